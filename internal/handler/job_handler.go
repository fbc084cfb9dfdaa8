package handler

import (
	"errors"
	"net/http"

	"github.com/dandantas/turnstile/internal/database"
	"github.com/dandantas/turnstile/internal/model"
	"go.mongodb.org/mongo-driver/bson"
)

// JobHandler serves the durable job archive: records persist across restarts
// and session resets, unlike live session state
type JobHandler struct {
	jobs         *database.JobRepository
	observations *database.ObservationRepository
	alertLogs    *database.AlertLogRepository
}

// NewJobHandler creates a new job handler
func NewJobHandler(
	jobs *database.JobRepository,
	observations *database.ObservationRepository,
	alertLogs *database.AlertLogRepository,
) *JobHandler {
	return &JobHandler{
		jobs:         jobs,
		observations: observations,
		alertLogs:    alertLogs,
	}
}

// List handles GET /api/v1/jobs with optional status filter and pagination
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	page := parseQueryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	limit := parseQueryInt(r, "limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	filter := bson.M{}
	if v := r.URL.Query().Get("status"); v != "" {
		status, err := model.ParseJobStatus(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter["status"] = status
	}

	jobs, total, err := h.jobs.List(r.Context(), filter, page, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}
	if jobs == nil {
		jobs = []model.JobRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// Get handles GET /api/v1/jobs/{job_id}
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.jobs.GetByJobID(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, database.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "Job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	writeJSON(w, http.StatusOK, job)
}

// History handles GET /api/v1/jobs/{job_id}/history, returning the stored
// result series for the job
func (h *JobHandler) History(w http.ResponseWriter, r *http.Request, jobID string) {
	if _, err := h.jobs.GetByJobID(r.Context(), jobID); err != nil {
		if errors.Is(err, database.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "Job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	history, err := h.observations.GetHistory(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get job history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"job_id":  jobID,
		"count":   len(history),
		"history": history,
	})
}

// Alerts handles GET /api/v1/jobs/{job_id}/alerts
func (h *JobHandler) Alerts(w http.ResponseWriter, r *http.Request, jobID string) {
	limit := parseQueryInt(r, "limit", 50)
	if limit < 1 || limit > 500 {
		limit = 50
	}

	logs, err := h.alertLogs.ListByJob(r.Context(), jobID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list alert logs")
		return
	}
	if logs == nil {
		logs = []model.AlertLog{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"job_id": jobID,
		"alerts": logs,
	})
}
