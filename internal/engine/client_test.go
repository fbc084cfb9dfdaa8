package engine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dandantas/turnstile/internal/model"
)

func testParams() model.ParameterSet {
	return model.ParameterSet{
		DoorDirection:       model.DoorLeft,
		Confidence:          0.7,
		SkipFrames:          2,
		PollIntervalSeconds: 5,
		CenterCrop:          true,
	}
}

func testUpload() Upload {
	return Upload{
		FileName:    "entrance.mp4",
		ContentType: "video/mp4",
		Content:     strings.NewReader("fake video bytes"),
	}
}

func TestStartCounting(t *testing.T) {
	var gotFields map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/start-counting" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}

		gotFields = map[string]string{}
		for _, key := range []string{"door_direction", "confidence", "skip_frames", "interval", "crop", "show_preview"} {
			gotFields[key] = r.FormValue(key)
		}

		file, header, err := r.FormFile("video")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			file.Close()
			if header.Filename != "entrance.mp4" {
				t.Errorf("file name = %q", header.Filename)
			}
		}

		json.NewEncoder(w).Encode(map[string]string{"job_id": "job-42", "status": "queued"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	handle, err := client.StartCounting(context.Background(), testUpload(), testParams())
	if err != nil {
		t.Fatalf("start counting: %v", err)
	}

	if handle.JobID != "job-42" || handle.Status != model.StatusQueued {
		t.Fatalf("handle = %+v", handle)
	}

	want := map[string]string{
		"door_direction": "left",
		"confidence":     "0.7",
		"skip_frames":    "2",
		"interval":       "5",
		"crop":           "true",
		"show_preview":   "false",
	}
	for key, value := range want {
		if gotFields[key] != value {
			t.Errorf("field %s = %q, want %q", key, gotFields[key], value)
		}
	}
}

// TestStartCountingValidation verifies invalid submissions are rejected
// before any remote call is made.
func TestStartCountingValidation(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)

	tests := []struct {
		name   string
		upload Upload
		params model.ParameterSet
	}{
		{"no file", Upload{}, testParams()},
		{"not a video", Upload{FileName: "a.txt", ContentType: "text/plain", Content: strings.NewReader("x")}, testParams()},
		{"bad params", testUpload(), model.ParameterSet{DoorDirection: "up", Confidence: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.StartCounting(context.Background(), tt.upload, tt.params)

			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("error = %v, want ValidationError", err)
			}
		})
	}

	if called {
		t.Fatal("engine was called for an invalid submission")
	}
}

func TestStartCountingEngineRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"detail": "unsupported codec"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	_, err := client.StartCounting(context.Background(), testUpload(), testParams())

	var submissionErr *SubmissionError
	if !errors.As(err, &submissionErr) {
		t.Fatalf("error = %v, want SubmissionError", err)
	}
	if submissionErr.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status code = %d", submissionErr.StatusCode)
	}
	if submissionErr.Detail != "unsupported codec" {
		t.Fatalf("detail = %q, want engine message verbatim", submissionErr.Detail)
	}
}

func TestStartCountingNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	client := NewClient(srv.URL, time.Second)
	_, err := client.StartCounting(context.Background(), testUpload(), testParams())

	var networkErr *NetworkError
	if !errors.As(err, &networkErr) {
		t.Fatalf("error = %v, want NetworkError", err)
	}
}

func TestGetStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/status/job-42" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "processing",
			"latest_data": map[string]string{
				"timestamp":              "00:05",
				"total_present_inside":   "12",
				"incoming_last_interval": "4",
				"outgoing_last_interval": "0",
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	report, err := client.GetStatus(context.Background(), "job-42")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}

	if report.Status != model.StatusProcessing {
		t.Fatalf("status = %q", report.Status)
	}
	if report.Latest == nil || report.Latest.TotalPresentInside != 12 {
		t.Fatalf("latest = %+v, want total 12", report.Latest)
	}
}

func TestGetStatusWithoutSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "queued"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	report, err := client.GetStatus(context.Background(), "job-42")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}

	if report.Status != model.StatusQueued || report.Latest != nil {
		t.Fatalf("report = %+v, want queued with no snapshot", report)
	}
}

func TestGetStatusRejectsUnknownStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "paused"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	_, err := client.GetStatus(context.Background(), "job-42")

	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error = %v, want ParseError for unknown status", err)
	}
}

func TestGetResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/csv-data/job-42" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]string{
				{"timestamp": "00:01", "total_present_inside": "5", "incoming_last_interval": "2", "outgoing_last_interval": "0"},
				{"timestamp": "00:02", "total_present_inside": "7", "incoming_last_interval": "3", "outgoing_last_interval": "1"},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	history, err := client.GetResults(context.Background(), "job-42")
	if err != nil {
		t.Fatalf("get results: %v", err)
	}

	if len(history) != 2 {
		t.Fatalf("len = %d, want 2", len(history))
	}
	want := model.Observation{Timestamp: "00:02", TotalPresentInside: 7, IncomingLastInterval: 3, OutgoingLastInterval: 1}
	if history[1] != want {
		t.Fatalf("history[1] = %+v, want %+v", history[1], want)
	}
}

func TestGetResultsBadRowPoisonsFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]string{
				{"timestamp": "00:01", "total_present_inside": "5", "incoming_last_interval": "2", "outgoing_last_interval": "0"},
				{"timestamp": "00:02", "total_present_inside": "???", "incoming_last_interval": "3", "outgoing_last_interval": "1"},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	_, err := client.GetResults(context.Background(), "job-42")

	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error = %v, want ParseError", err)
	}
}
