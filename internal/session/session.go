package session

import (
	"errors"
	"sync"
	"time"

	"github.com/dandantas/turnstile/internal/model"
)

var (
	// ErrSubmissionInFlight is returned when a submission is already outstanding
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
	// ErrJobActive is returned when the session already tracks a job
	ErrJobActive = errors.New("session already has a job; reset before resubmitting")
)

// Stopper cancels a running pair of pollers
type Stopper interface {
	Stop()
}

// State is a point-in-time snapshot of a session
type State struct {
	SessionID          string              `json:"session_id"`
	FileName           string              `json:"file_name,omitempty"`
	Parameters         model.ParameterSet  `json:"parameters"`
	Job                *model.JobHandle    `json:"job,omitempty"`
	Status             model.JobStatus     `json:"status,omitempty"`
	LatestObservation  *model.Observation  `json:"latest_observation,omitempty"`
	History            []model.Observation `json:"history"`
	SubmissionInFlight bool                `json:"submission_in_flight"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// Session reconciles submitter and poller outputs into one observable state.
// All writers (submit handler, reset handler, both poller callbacks) go
// through the mutex, so callers may run on any goroutine.
type Session struct {
	mu sync.Mutex

	id         string
	fileName   string
	parameters model.ParameterSet

	job            *model.JobHandle
	status         model.JobStatus
	statusSnapshot *model.Observation
	history        []model.Observation

	submissionInFlight bool
	watcher            Stopper
	updatedAt          time.Time
}

// New creates an idle session with default parameters
func New(id string, defaults model.ParameterSet) *Session {
	return &Session{
		id:         id,
		parameters: defaults,
		updatedAt:  time.Now().UTC(),
	}
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// SetParameters updates the form parameters. Edits never touch the frozen
// copy captured by an in-flight job.
func (s *Session) SetParameters(p model.ParameterSet) error {
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.parameters = p
	s.touch()
	return nil
}

// Parameters returns the current form parameters
func (s *Session) Parameters() model.ParameterSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.parameters
}

// BeginSubmission marks a submission as in flight and returns the frozen
// parameter copy that will govern the job. Rapid double submission is
// rejected here, so at most one remote call is issued per accepted attempt.
func (s *Session) BeginSubmission(fileName string) (model.ParameterSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submissionInFlight {
		return model.ParameterSet{}, ErrSubmissionInFlight
	}
	if s.job != nil {
		return model.ParameterSet{}, ErrJobActive
	}

	s.submissionInFlight = true
	s.fileName = fileName
	s.touch()
	return s.parameters, nil
}

// FinishSubmission records the outcome of a submission attempt. On failure
// the form is re-enabled; on success the job handle and its initial status
// are stored.
func (s *Session) FinishSubmission(handle model.JobHandle, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.submissionInFlight = false
	if err != nil {
		s.fileName = ""
		s.touch()
		return
	}

	h := handle
	s.job = &h
	s.status = handle.Status
	s.touch()
}

// AttachWatcher registers the poller pair driving this session's job
func (s *Session) AttachWatcher(w Stopper) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watcher = w
}

// ApplyStatus records a status poll result. Responses for a job the session
// no longer tracks are discarded (stale-response guard keyed by job id).
// Returns false when the update was dropped.
func (s *Session) ApplyStatus(jobID string, status model.JobStatus, snapshot *model.Observation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.job == nil || s.job.JobID != jobID {
		return false
	}

	s.status = status
	if snapshot != nil {
		s.statusSnapshot = snapshot
	}
	s.touch()
	return true
}

// ApplyResults replaces the local result history in full with the most
// recently fetched series. Same stale-response guard as ApplyStatus.
func (s *Session) ApplyResults(jobID string, history []model.Observation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.job == nil || s.job.JobID != jobID {
		return false
	}

	s.history = history
	s.touch()
	return true
}

// Status returns the most recently observed job status
func (s *Session) Status() (model.JobStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job == nil {
		return "", false
	}
	return s.status, true
}

// Reset returns the session to its pre-submission state: job handle, status,
// latest observation and history are cleared, both pollers are cancelled and
// the submission form is re-enabled. The selected file is cleared; parameter
// values are preserved.
func (s *Session) Reset() {
	s.mu.Lock()
	watcher := s.watcher
	s.watcher = nil
	s.job = nil
	s.status = ""
	s.statusSnapshot = nil
	s.history = nil
	s.fileName = ""
	s.submissionInFlight = false
	s.touch()
	s.mu.Unlock()

	// Stop outside the lock: poller callbacks take the same mutex. Any fetch
	// already on the wire is discarded by the job-id guard when it lands.
	if watcher != nil {
		watcher.Stop()
	}
}

// Snapshot returns a copy of the current reconciled state
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := make([]model.Observation, len(s.history))
	copy(history, s.history)

	var job *model.JobHandle
	if s.job != nil {
		h := *s.job
		job = &h
	}

	state := State{
		SessionID:          s.id,
		FileName:           s.fileName,
		Parameters:         s.parameters,
		Job:                job,
		History:            history,
		SubmissionInFlight: s.submissionInFlight,
		UpdatedAt:          s.updatedAt,
	}
	if s.job != nil {
		state.Status = s.status
	}
	state.LatestObservation = ReduceLatest(s.statusSnapshot, history)
	return state
}

func (s *Session) touch() {
	s.updatedAt = time.Now().UTC()
}
