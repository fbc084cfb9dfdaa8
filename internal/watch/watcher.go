// Package watch drives the two polling loops that follow a counting job:
// a status poller and a result poller. The loops run on independent fixed
// tickers (ticks are scheduled relative to the interval, not relative to
// fetch completion) and each guarantees at most one outstanding fetch by
// skipping a tick while the previous fetch is still in flight.
package watch

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dandantas/turnstile/internal/engine"
	"github.com/dandantas/turnstile/internal/model"
	"github.com/dandantas/turnstile/internal/session"
)

// Engine is the slice of the engine client the pollers need
type Engine interface {
	GetStatus(ctx context.Context, jobID string) (engine.StatusReport, error)
	GetResults(ctx context.Context, jobID string) ([]model.Observation, error)
}

// Hooks receive poller updates after they have been applied to the session.
// All hooks are optional and are invoked from the poller goroutines.
type Hooks struct {
	// OnStatus fires on every successfully applied status fetch
	OnStatus func(jobID string, status model.JobStatus)
	// OnHistory fires after each full history replacement
	OnHistory func(jobID string, history []model.Observation)
	// OnObservation fires when the reconciled latest observation changes
	OnObservation func(jobID string, obs model.Observation)
}

// Watcher owns the poller pair for one job
type Watcher struct {
	client   Engine
	sess     *session.Session
	jobID    string
	interval time.Duration
	hooks    Hooks

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	statusBusy atomic.Bool
	resultBusy atomic.Bool

	mu         sync.Mutex
	lastLatest string // timestamp of the last observation handed to OnObservation
}

// Start attaches a watcher to a submitted job and launches both pollers.
// Each poller issues an immediate fetch and then polls on the fixed interval.
func Start(client Engine, sess *session.Session, jobID string, interval time.Duration, hooks Hooks) *Watcher {
	w := &Watcher{
		client:   client,
		sess:     sess,
		jobID:    jobID,
		interval: interval,
		hooks:    hooks,
		stopChan: make(chan struct{}),
	}

	sess.AttachWatcher(w)

	w.wg.Add(2)
	go w.statusLoop()
	go w.resultLoop()

	slog.Info("Watcher started",
		"session_id", sess.ID(),
		"job_id", jobID,
		"poll_interval", interval,
	)

	return w
}

// Stop cancels both pollers. It does not wait for an in-flight fetch; a
// response that lands after Stop is discarded by the session's job-id guard.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
	})
}

// Wait blocks until both poller goroutines have exited
func (w *Watcher) Wait() {
	w.wg.Wait()
}

// statusLoop polls job status until a terminal state is reached or the
// watcher is stopped
func (w *Watcher) statusLoop() {
	defer w.wg.Done()

	if done := w.statusTick(); done {
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if done := w.statusTick(); done {
				return
			}
		case <-w.stopChan:
			return
		}
	}
}

// statusTick performs one status fetch. Returns true when the loop should
// stop (terminal status, or the session dropped the job).
func (w *Watcher) statusTick() bool {
	if !w.statusBusy.CompareAndSwap(false, true) {
		slog.Debug("Skipping status tick, previous fetch still in flight", "job_id", w.jobID)
		return false
	}
	defer w.statusBusy.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), w.interval)
	defer cancel()

	report, err := w.client.GetStatus(ctx, w.jobID)
	if err != nil {
		// Poll failures are never fatal; retry on the next tick.
		slog.Error("Status fetch failed", "job_id", w.jobID, "error", err)
		return false
	}

	if !w.sess.ApplyStatus(w.jobID, report.Status, report.Latest) {
		slog.Debug("Discarding stale status response", "job_id", w.jobID)
		return true
	}

	if w.hooks.OnStatus != nil {
		w.hooks.OnStatus(w.jobID, report.Status)
	}
	w.notifyLatest()

	if report.Status.IsTerminal() {
		slog.Info("Job reached terminal status, stopping status poller",
			"job_id", w.jobID,
			"status", report.Status,
		)
		return true
	}

	return false
}

// resultLoop polls the accumulated result history while the job is in the
// processing state. The timer is independent of the status poller; status
// transitions are observed with at most one interval of lag.
func (w *Watcher) resultLoop() {
	defer w.wg.Done()

	if done := w.resultTick(); done {
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if done := w.resultTick(); done {
				return
			}
		case <-w.stopChan:
			return
		}
	}
}

// resultTick performs one result fetch if the job is currently processing.
// Returns true when the loop should stop.
func (w *Watcher) resultTick() bool {
	status, ok := w.sess.Status()
	if !ok {
		return true
	}
	if status.IsTerminal() {
		slog.Debug("Job left processing state, stopping result poller",
			"job_id", w.jobID,
			"status", status,
		)
		return true
	}
	if status != model.StatusProcessing {
		return false
	}

	if !w.resultBusy.CompareAndSwap(false, true) {
		slog.Debug("Skipping result tick, previous fetch still in flight", "job_id", w.jobID)
		return false
	}
	defer w.resultBusy.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), w.interval)
	defer cancel()

	history, err := w.client.GetResults(ctx, w.jobID)
	if err != nil {
		slog.Error("Result fetch failed", "job_id", w.jobID, "error", err)
		return false
	}

	if !w.sess.ApplyResults(w.jobID, history) {
		slog.Debug("Discarding stale result response", "job_id", w.jobID)
		return true
	}

	if w.hooks.OnHistory != nil {
		w.hooks.OnHistory(w.jobID, history)
	}
	w.notifyLatest()

	return false
}

// notifyLatest fires OnObservation when the reconciled latest observation
// has moved since the last notification
func (w *Watcher) notifyLatest() {
	if w.hooks.OnObservation == nil {
		return
	}

	latest := w.sess.Snapshot().LatestObservation
	if latest == nil {
		return
	}

	w.mu.Lock()
	changed := latest.Timestamp != w.lastLatest
	if changed {
		w.lastLatest = latest.Timestamp
	}
	w.mu.Unlock()

	if changed {
		w.hooks.OnObservation(w.jobID, *latest)
	}
}
