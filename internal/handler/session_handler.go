package handler

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dandantas/turnstile/internal/alert"
	"github.com/dandantas/turnstile/internal/database"
	"github.com/dandantas/turnstile/internal/engine"
	"github.com/dandantas/turnstile/internal/forecast"
	"github.com/dandantas/turnstile/internal/model"
	"github.com/dandantas/turnstile/internal/session"
	"github.com/dandantas/turnstile/internal/watch"
)

// maxUploadBytes caps how much of a multipart submission is buffered in memory
const maxUploadBytes = 512 << 20

// SessionHandler handles counting session operations: submission, state
// inspection, reset, CSV export and occupancy forecasts
type SessionHandler struct {
	store        *session.Store
	client       *engine.Client
	jobs         *database.JobRepository
	observations *database.ObservationRepository
	notifier     *alert.Notifier
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(
	store *session.Store,
	client *engine.Client,
	jobs *database.JobRepository,
	observations *database.ObservationRepository,
	notifier *alert.Notifier,
) *SessionHandler {
	return &SessionHandler{
		store:        store,
		client:       client,
		jobs:         jobs,
		observations: observations,
		notifier:     notifier,
	}
}

// Create handles POST /api/v1/sessions. An optional JSON body overrides the
// default counting parameters.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess := h.store.Create()

	if r.ContentLength > 0 {
		var params model.ParameterSet
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			h.store.Delete(sess.ID())
			writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
			return
		}
		if err := sess.SetParameters(params); err != nil {
			h.store.Delete(sess.ID())
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

// Get handles GET /api/v1/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	sess, exists := h.store.Get(id)
	if !exists {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// Submit handles POST /api/v1/sessions/{id}/submit: a multipart form with a
// "video" file plus any parameter overrides. On success the job is started
// on the engine and both pollers begin following it.
func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request, id string) {
	sess, exists := h.store.Get(id)
	if !exists {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form: "+err.Error())
		return
	}

	params, err := h.parameterOverrides(r, sess.Parameters())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := sess.SetParameters(params); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	upload := engine.Upload{}
	file, header, err := r.FormFile("video")
	if err == nil {
		defer file.Close()
		upload = engine.Upload{
			FileName:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Content:     file,
		}
	}

	frozen, err := sess.BeginSubmission(upload.FileName)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	handle, err := h.client.StartCounting(r.Context(), upload, frozen)
	sess.FinishSubmission(handle, err)
	if err != nil {
		h.writeSubmissionError(w, err)
		return
	}

	slog.Info("Counting job started",
		"session_id", sess.ID(),
		"job_id", handle.JobID,
		"status", handle.Status,
		"file_name", upload.FileName,
	)

	record := &model.JobRecord{
		SessionID:   sess.ID(),
		JobID:       handle.JobID,
		FileName:    upload.FileName,
		Parameters:  frozen,
		Status:      handle.Status,
		SubmittedAt: time.Now().UTC(),
	}
	if err := h.jobs.Create(r.Context(), record); err != nil {
		slog.Error("Failed to persist job record", "job_id", handle.JobID, "error", err)
	}

	interval := time.Duration(frozen.PollIntervalSeconds) * time.Second
	watch.Start(h.client, sess, handle.JobID, interval, h.watchHooks())

	writeJSON(w, http.StatusAccepted, sess.Snapshot())
}

// Reset handles POST /api/v1/sessions/{id}/reset
func (h *SessionHandler) Reset(w http.ResponseWriter, r *http.Request, id string) {
	sess, exists := h.store.Get(id)
	if !exists {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	sess.Reset()
	slog.Info("Session reset", "session_id", sess.ID())

	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// ExportCSV handles GET /api/v1/sessions/{id}/history.csv
func (h *SessionHandler) ExportCSV(w http.ResponseWriter, r *http.Request, id string) {
	sess, exists := h.store.Get(id)
	if !exists {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	state := sess.Snapshot()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="counts.csv"`)

	cw := csv.NewWriter(w)
	cw.Write([]string{"timestamp", "total_present_inside", "incoming_last_interval", "outgoing_last_interval"})
	for _, obs := range state.History {
		cw.Write([]string{
			obs.Timestamp,
			strconv.Itoa(obs.TotalPresentInside),
			strconv.Itoa(obs.IncomingLastInterval),
			strconv.Itoa(obs.OutgoingLastInterval),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		slog.Error("CSV export aborted mid-stream", "session_id", sess.ID(), "error", err)
	}
}

// Forecast handles GET /api/v1/sessions/{id}/forecast?intervals=N
func (h *SessionHandler) Forecast(w http.ResponseWriter, r *http.Request, id string) {
	sess, exists := h.store.Get(id)
	if !exists {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	intervals := parseQueryInt(r, "intervals", 5)
	if intervals > 60 {
		intervals = 60
	}

	state := sess.Snapshot()
	projections, err := forecast.Project(state.History, intervals)
	if err != nil {
		if errors.Is(err, forecast.ErrNotEnoughData) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id":  id,
		"based_on":    len(state.History),
		"projections": projections,
	})
}

// parameterOverrides merges multipart form fields over the session's current
// parameters. Absent fields keep their current values; present fields are
// parsed strictly.
func (h *SessionHandler) parameterOverrides(r *http.Request, params model.ParameterSet) (model.ParameterSet, error) {
	if v := r.FormValue("door_direction"); v != "" {
		direction, err := model.ParseDoorDirection(v)
		if err != nil {
			return params, err
		}
		params.DoorDirection = direction
	}
	if v := r.FormValue("confidence"); v != "" {
		confidence, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return params, errors.New("confidence must be a decimal number")
		}
		params.Confidence = confidence
	}
	if v := r.FormValue("skip_frames"); v != "" {
		skip, err := strconv.Atoi(v)
		if err != nil {
			return params, errors.New("skip_frames must be an integer")
		}
		params.SkipFrames = skip
	}
	if v := r.FormValue("poll_interval_seconds"); v != "" {
		interval, err := strconv.Atoi(v)
		if err != nil {
			return params, errors.New("poll_interval_seconds must be an integer")
		}
		params.PollIntervalSeconds = interval
	}
	if v := r.FormValue("center_crop"); v != "" {
		crop, err := strconv.ParseBool(v)
		if err != nil {
			return params, errors.New("center_crop must be a boolean")
		}
		params.CenterCrop = crop
	}
	if v := r.FormValue("show_preview"); v != "" {
		preview, err := strconv.ParseBool(v)
		if err != nil {
			return params, errors.New("show_preview must be a boolean")
		}
		params.ShowPreview = preview
	}
	return params, nil
}

// writeSubmissionError maps the submission error taxonomy onto HTTP codes.
// Validation problems are the operator's to fix; everything else means the
// engine said no or could not be reached.
func (h *SessionHandler) writeSubmissionError(w http.ResponseWriter, err error) {
	var validationErr *engine.ValidationError
	if errors.As(err, &validationErr) {
		writeError(w, http.StatusBadRequest, validationErr.Reason)
		return
	}

	var submissionErr *engine.SubmissionError
	if errors.As(err, &submissionErr) {
		writeError(w, http.StatusBadGateway, submissionErr.Detail)
		return
	}

	slog.Error("Submission failed", "error", err)
	writeError(w, http.StatusBadGateway, "counting engine unreachable")
}

// watchHooks wires poller updates into persistence and alerting. Hooks run
// on the poller goroutines, after the session state has been updated, so
// they use a background context rather than the submit request's.
func (h *SessionHandler) watchHooks() watch.Hooks {
	return watch.Hooks{
		OnStatus: func(jobID string, status model.JobStatus) {
			if err := h.jobs.UpdateStatus(context.Background(), jobID, status); err != nil {
				slog.Error("Failed to persist job status", "job_id", jobID, "error", err)
			}
		},
		OnHistory: func(jobID string, history []model.Observation) {
			if err := h.observations.ReplaceHistory(context.Background(), jobID, history); err != nil {
				slog.Error("Failed to persist result history", "job_id", jobID, "error", err)
			}
		},
		OnObservation: func(jobID string, obs model.Observation) {
			h.notifier.HandleObservation(context.Background(), jobID, obs)
		},
	}
}
