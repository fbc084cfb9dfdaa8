package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dandantas/turnstile/internal/model"
	"github.com/dandantas/turnstile/internal/session"
)

func testRouter(store *session.Store) http.Handler {
	sessions := NewSessionHandler(store, nil, nil, nil, nil)
	rt := &Router{sessionHandler: sessions}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/sessions", rt.handleSessions)
	mux.HandleFunc("/api/v1/sessions/", rt.handleSessionsWithID)
	return mux
}

func defaultStore() *session.Store {
	return session.NewStore(model.ParameterSet{
		DoorDirection:       model.DoorUp,
		Confidence:          0.5,
		SkipFrames:          1,
		PollIntervalSeconds: 5,
	})
}

func createSession(t *testing.T, h http.Handler, body string) session.State {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}

	var state session.State
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return state
}

func TestCreateSessionWithDefaults(t *testing.T) {
	h := testRouter(defaultStore())

	state := createSession(t, h, "")
	if state.SessionID == "" {
		t.Fatal("expected session id")
	}
	if state.Parameters.Confidence != 0.5 || state.Parameters.DoorDirection != model.DoorUp {
		t.Fatalf("parameters = %+v, want defaults", state.Parameters)
	}
	if state.Job != nil || state.Status != "" {
		t.Fatalf("new session should be idle: %+v", state)
	}
}

func TestCreateSessionWithParameterOverrides(t *testing.T) {
	h := testRouter(defaultStore())

	body := `{"door_direction":"left","confidence":0.8,"skip_frames":2,"poll_interval_seconds":10,"center_crop":true,"show_preview":false}`
	state := createSession(t, h, body)

	if state.Parameters.DoorDirection != model.DoorLeft || state.Parameters.PollIntervalSeconds != 10 {
		t.Fatalf("parameters = %+v", state.Parameters)
	}
}

func TestCreateSessionRejectsInvalidParameters(t *testing.T) {
	h := testRouter(defaultStore())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions",
		strings.NewReader(`{"door_direction":"up","confidence":7,"skip_frames":1,"poll_interval_seconds":5}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetUnknownSession(t *testing.T) {
	h := testRouter(defaultStore())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/nope", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestResetIdleSession(t *testing.T) {
	store := defaultStore()
	h := testRouter(store)

	state := createSession(t, h, "")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+state.SessionID+"/reset", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("reset status = %d", rec.Code)
	}

	var after session.State
	if err := json.Unmarshal(rec.Body.Bytes(), &after); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if after.Parameters != state.Parameters {
		t.Fatalf("reset changed parameters: %+v", after.Parameters)
	}
}

func TestForecastWithoutHistory(t *testing.T) {
	h := testRouter(defaultStore())

	state := createSession(t, h, "")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+state.SessionID+"/forecast", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 with no history", rec.Code)
	}
}

func TestExportCSVEmptyHistory(t *testing.T) {
	h := testRouter(defaultStore())

	state := createSession(t, h, "")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+state.SessionID+"/history.csv", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("content type = %q", ct)
	}

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 1 || !strings.HasPrefix(lines[0], "timestamp,") {
		t.Fatalf("csv body = %q, want header only", rec.Body.String())
	}
}

func populateHistory(t *testing.T, store *session.Store, id string) {
	t.Helper()

	sess, exists := store.Get(id)
	if !exists {
		t.Fatalf("session %s not found", id)
	}
	if _, err := sess.BeginSubmission("a.mp4"); err != nil {
		t.Fatalf("begin submission: %v", err)
	}
	sess.FinishSubmission(model.JobHandle{JobID: "job-1", Status: model.StatusProcessing}, nil)
	sess.ApplyResults("job-1", []model.Observation{
		{Timestamp: "00:01", TotalPresentInside: 5, IncomingLastInterval: 2},
		{Timestamp: "00:02", TotalPresentInside: 7, IncomingLastInterval: 3, OutgoingLastInterval: 1},
	})
}

func TestExportCSVWithHistory(t *testing.T) {
	store := defaultStore()
	h := testRouter(store)

	state := createSession(t, h, "")
	populateHistory(t, store, state.SessionID)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+state.SessionID+"/history.csv", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("csv lines = %d, want header + 2 rows: %q", len(lines), rec.Body.String())
	}
	if lines[2] != "00:02,7,3,1" {
		t.Fatalf("last row = %q", lines[2])
	}
}

// brokenWriter fails every write, standing in for a client that went away
type brokenWriter struct {
	header http.Header
}

func (w *brokenWriter) Header() http.Header        { return w.header }
func (w *brokenWriter) WriteHeader(statusCode int) {}
func (w *brokenWriter) Write(b []byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestExportCSVWriteFailure(t *testing.T) {
	store := defaultStore()
	h := testRouter(store)

	state := createSession(t, h, "")
	populateHistory(t, store, state.SessionID)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+state.SessionID+"/history.csv", nil)
	h.ServeHTTP(&brokenWriter{header: http.Header{}}, req)
}

func TestSessionRoutesMethodNotAllowed(t *testing.T) {
	h := testRouter(defaultStore())
	state := createSession(t, h, "")

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/sessions"},
		{http.MethodDelete, "/api/v1/sessions/" + state.SessionID},
		{http.MethodGet, "/api/v1/sessions/" + state.SessionID + "/submit"},
		{http.MethodGet, "/api/v1/sessions/" + state.SessionID + "/reset"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s %s status = %d, want 405", tt.method, tt.path, rec.Code)
		}
	}
}

func TestSessionUnknownAction(t *testing.T) {
	h := testRouter(defaultStore())
	state := createSession(t, h, "")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+state.SessionID+"/frobnicate", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
