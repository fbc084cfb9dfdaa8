package session

import (
	"errors"
	"testing"

	"github.com/dandantas/turnstile/internal/model"
)

func testParams() model.ParameterSet {
	return model.ParameterSet{
		DoorDirection:       model.DoorUp,
		Confidence:          0.5,
		SkipFrames:          1,
		PollIntervalSeconds: 5,
	}
}

func obs(ts string, total int) model.Observation {
	return model.Observation{Timestamp: ts, TotalPresentInside: total}
}

type stopRecorder struct {
	stopped int
}

func (s *stopRecorder) Stop() { s.stopped++ }

func TestReduceLatestHistoryTailWins(t *testing.T) {
	snapshot := obs("00:05", 9)
	history := []model.Observation{obs("00:01", 2), obs("00:02", 4)}

	latest := ReduceLatest(&snapshot, history)
	if latest == nil || latest.Timestamp != "00:02" {
		t.Fatalf("latest = %+v, want history tail 00:02", latest)
	}
}

func TestReduceLatestFallsBackToSnapshot(t *testing.T) {
	snapshot := obs("00:05", 9)

	latest := ReduceLatest(&snapshot, nil)
	if latest == nil || latest.Timestamp != "00:05" {
		t.Fatalf("latest = %+v, want status snapshot", latest)
	}

	if got := ReduceLatest(nil, nil); got != nil {
		t.Fatalf("latest = %+v, want nil with no inputs", got)
	}
}

func TestBeginSubmissionRejectsDoubleSubmit(t *testing.T) {
	s := New("sess-1", testParams())

	if _, err := s.BeginSubmission("a.mp4"); err != nil {
		t.Fatalf("first submission: %v", err)
	}
	if _, err := s.BeginSubmission("b.mp4"); !errors.Is(err, ErrSubmissionInFlight) {
		t.Fatalf("second submission error = %v, want ErrSubmissionInFlight", err)
	}

	// Completing the first submission leaves an active job; a fresh attempt
	// must still be rejected until reset.
	s.FinishSubmission(model.JobHandle{JobID: "job-1", Status: model.StatusQueued}, nil)
	if _, err := s.BeginSubmission("c.mp4"); !errors.Is(err, ErrJobActive) {
		t.Fatalf("resubmit error = %v, want ErrJobActive", err)
	}
}

func TestFailedSubmissionReenablesForm(t *testing.T) {
	s := New("sess-1", testParams())

	if _, err := s.BeginSubmission("a.mp4"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	s.FinishSubmission(model.JobHandle{}, errors.New("engine said no"))

	state := s.Snapshot()
	if state.SubmissionInFlight {
		t.Fatal("submission should no longer be in flight")
	}
	if state.Job != nil {
		t.Fatalf("job = %+v, want nil after failed submission", state.Job)
	}
	if state.FileName != "" {
		t.Fatalf("file name = %q, want cleared", state.FileName)
	}

	if _, err := s.BeginSubmission("b.mp4"); err != nil {
		t.Fatalf("resubmit after failure: %v", err)
	}
}

func TestFrozenParametersUnaffectedByEdits(t *testing.T) {
	s := New("sess-1", testParams())

	frozen, err := s.BeginSubmission("a.mp4")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	edited := testParams()
	edited.Confidence = 0.9
	s.FinishSubmission(model.JobHandle{JobID: "job-1", Status: model.StatusQueued}, nil)
	if err := s.SetParameters(edited); err != nil {
		t.Fatalf("set parameters: %v", err)
	}

	if frozen.Confidence != 0.5 {
		t.Fatalf("frozen confidence = %v, want 0.5", frozen.Confidence)
	}
	if got := s.Parameters().Confidence; got != 0.9 {
		t.Fatalf("session confidence = %v, want 0.9", got)
	}
}

func TestStaleResponsesDropped(t *testing.T) {
	s := New("sess-1", testParams())
	if _, err := s.BeginSubmission("a.mp4"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	s.FinishSubmission(model.JobHandle{JobID: "job-1", Status: model.StatusQueued}, nil)

	if !s.ApplyStatus("job-1", model.StatusProcessing, nil) {
		t.Fatal("status for current job should apply")
	}
	if s.ApplyStatus("job-0", model.StatusCompleted, nil) {
		t.Fatal("status for a stale job id should be dropped")
	}
	if s.ApplyResults("job-0", []model.Observation{obs("00:01", 1)}) {
		t.Fatal("results for a stale job id should be dropped")
	}

	state := s.Snapshot()
	if state.Status != model.StatusProcessing {
		t.Fatalf("status = %q, want processing", state.Status)
	}
	if len(state.History) != 0 {
		t.Fatalf("history = %v, want empty", state.History)
	}
}

func TestApplyResultsReplacesHistoryInFull(t *testing.T) {
	s := New("sess-1", testParams())
	if _, err := s.BeginSubmission("a.mp4"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	s.FinishSubmission(model.JobHandle{JobID: "job-1", Status: model.StatusProcessing}, nil)

	s.ApplyResults("job-1", []model.Observation{obs("00:01", 2), obs("00:02", 4), obs("00:03", 5)})
	s.ApplyResults("job-1", []model.Observation{obs("00:01", 2)})

	state := s.Snapshot()
	if len(state.History) != 1 {
		t.Fatalf("history len = %d, want full replacement to 1", len(state.History))
	}
	if state.LatestObservation == nil || state.LatestObservation.Timestamp != "00:01" {
		t.Fatalf("latest = %+v, want 00:01", state.LatestObservation)
	}
}

func TestResetClearsJobStateAndStopsWatcher(t *testing.T) {
	s := New("sess-1", testParams())
	if _, err := s.BeginSubmission("a.mp4"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	s.FinishSubmission(model.JobHandle{JobID: "job-1", Status: model.StatusProcessing}, nil)

	stopper := &stopRecorder{}
	s.AttachWatcher(stopper)

	snapshot := obs("00:03", 6)
	s.ApplyStatus("job-1", model.StatusProcessing, &snapshot)
	s.ApplyResults("job-1", []model.Observation{obs("00:01", 2)})

	s.Reset()

	if stopper.stopped != 1 {
		t.Fatalf("watcher stopped %d times, want 1", stopper.stopped)
	}

	state := s.Snapshot()
	if state.Job != nil || state.Status != "" || state.LatestObservation != nil || len(state.History) != 0 {
		t.Fatalf("state not cleared: %+v", state)
	}
	if state.FileName != "" {
		t.Fatalf("file name = %q, want cleared", state.FileName)
	}
	if state.Parameters != testParams() {
		t.Fatalf("parameters = %+v, want preserved", state.Parameters)
	}

	// A poll response landing after reset must be discarded.
	if s.ApplyStatus("job-1", model.StatusCompleted, nil) {
		t.Fatal("post-reset status should be dropped")
	}

	if _, err := s.BeginSubmission("b.mp4"); err != nil {
		t.Fatalf("submit after reset: %v", err)
	}
}

func TestStoreLifecycle(t *testing.T) {
	st := NewStore(testParams())

	s := st.Create()
	if s.ID() == "" {
		t.Fatal("expected generated session id")
	}
	if s.Parameters() != testParams() {
		t.Fatalf("defaults = %+v, want %+v", s.Parameters(), testParams())
	}

	got, exists := st.Get(s.ID())
	if !exists || got != s {
		t.Fatal("expected to retrieve created session")
	}

	st.Delete(s.ID())
	if _, exists := st.Get(s.ID()); exists {
		t.Fatal("session should be gone after delete")
	}
}
