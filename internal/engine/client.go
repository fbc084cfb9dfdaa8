package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dandantas/turnstile/internal/model"
)

// Upload is the video file selected for submission
type Upload struct {
	FileName    string
	ContentType string
	Content     io.Reader
}

// StatusReport is the engine's answer to a status poll. Latest is the
// embedded snapshot and may be absent while the job is still queued.
type StatusReport struct {
	Status model.JobStatus
	Latest *model.Observation
}

// Client talks to the people-counting engine. The base URL is injected so
// tests can point it at a mock server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an engine client with connection pooling
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

// StartCounting submits a video and a frozen parameter set to the engine.
// Exactly one remote call per invocation; no automatic retry.
func (c *Client) StartCounting(ctx context.Context, upload Upload, params model.ParameterSet) (model.JobHandle, error) {
	if upload.FileName == "" || upload.Content == nil {
		return model.JobHandle{}, &ValidationError{Reason: "no video file selected"}
	}
	if !strings.HasPrefix(upload.ContentType, "video/") {
		return model.JobHandle{}, &ValidationError{Reason: fmt.Sprintf("file type %q is not a video", upload.ContentType)}
	}
	if err := params.Validate(); err != nil {
		return model.JobHandle{}, &ValidationError{Reason: err.Error()}
	}

	body, contentType, err := encodeSubmission(upload, params)
	if err != nil {
		return model.JobHandle{}, fmt.Errorf("failed to encode submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/start-counting", body)
	if err != nil {
		return model.JobHandle{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	slog.Debug("Submitting counting job",
		"file_name", upload.FileName,
		"door_direction", params.DoorDirection,
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.JobHandle{}, &NetworkError{Op: "start-counting", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		return model.JobHandle{}, &NetworkError{Op: "start-counting", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.JobHandle{}, &SubmissionError{
			StatusCode: resp.StatusCode,
			Detail:     decodeDetail(raw),
		}
	}

	var payload struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return model.JobHandle{}, &ParseError{Op: "start-counting", Err: err}
	}
	if payload.JobID == "" {
		return model.JobHandle{}, &ParseError{Op: "start-counting", Err: fmt.Errorf("response missing job_id")}
	}

	status, err := model.ParseJobStatus(payload.Status)
	if err != nil {
		return model.JobHandle{}, &ParseError{Op: "start-counting", Err: err}
	}

	return model.JobHandle{JobID: payload.JobID, Status: status}, nil
}

// GetStatus fetches the current job status and the embedded latest snapshot
func (c *Client) GetStatus(ctx context.Context, jobID string) (StatusReport, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/status/"+jobID, nil)
	if err != nil {
		return StatusReport{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return StatusReport{}, &NetworkError{Op: "status", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		return StatusReport{}, &NetworkError{Op: "status", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return StatusReport{}, fmt.Errorf("status fetch for job %s returned %d: %s", jobID, resp.StatusCode, decodeDetail(raw))
	}

	var payload struct {
		Status     string                `json:"status"`
		LatestData *model.ObservationRow `json:"latest_data"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return StatusReport{}, &ParseError{Op: "status", Err: err}
	}

	status, err := model.ParseJobStatus(payload.Status)
	if err != nil {
		return StatusReport{}, &ParseError{Op: "status", Err: err}
	}

	report := StatusReport{Status: status}
	if payload.LatestData != nil {
		obs, err := payload.LatestData.Parse()
		if err != nil {
			return StatusReport{}, &ParseError{Op: "status", Err: err}
		}
		report.Latest = &obs
	}

	return report, nil
}

// GetResults fetches the full accumulated result history for a job. Each
// call returns the complete series; callers replace their local copy rather
// than appending.
func (c *Client) GetResults(ctx context.Context, jobID string) ([]model.Observation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/csv-data/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: "csv-data", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return nil, &NetworkError{Op: "csv-data", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("result fetch for job %s returned %d: %s", jobID, resp.StatusCode, decodeDetail(raw))
	}

	var payload struct {
		Data []model.ObservationRow `json:"data"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &ParseError{Op: "csv-data", Err: err}
	}

	observations, err := model.ParseObservationRows(payload.Data)
	if err != nil {
		return nil, &ParseError{Op: "csv-data", Err: err}
	}

	return observations, nil
}

// encodeSubmission builds the multipart form the engine expects
func encodeSubmission(upload Upload, params model.ParameterSet) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("video", upload.FileName)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, upload.Content); err != nil {
		return nil, "", err
	}

	fields := map[string]string{
		"door_direction": string(params.DoorDirection),
		"confidence":     strconv.FormatFloat(params.Confidence, 'f', -1, 64),
		"skip_frames":    strconv.Itoa(params.SkipFrames),
		"interval":       strconv.Itoa(params.PollIntervalSeconds),
		"crop":           strconv.FormatBool(params.CenterCrop),
		"show_preview":   strconv.FormatBool(params.ShowPreview),
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, "", err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return body, writer.FormDataContentType(), nil
}

// decodeDetail extracts the engine's error detail field, falling back to the
// raw body
func decodeDetail(raw []byte) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Detail != "" {
		return payload.Detail
	}
	return strings.TrimSpace(string(raw))
}
