// Package sweeper prunes expired job records, stored observations and alert
// logs from MongoDB on a cron schedule. A distributed lock keeps concurrent
// pods from sweeping at the same time.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dandantas/turnstile/internal/config"
	"github.com/dandantas/turnstile/internal/database"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

const lockName = "retention_sweep"

// Sweeper runs scheduled retention sweeps
type Sweeper struct {
	cfg      *config.Config
	schedule cron.Schedule
	jobs     *database.JobRepository
	obs      *database.ObservationRepository
	alerts   *database.AlertLogRepository
	locks    *database.SweepLockRepository
	podID    string
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a sweeper, validating the configured cron expression
func New(
	cfg *config.Config,
	jobs *database.JobRepository,
	obs *database.ObservationRepository,
	alerts *database.AlertLogRepository,
	locks *database.SweepLockRepository,
) (*Sweeper, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(cfg.SweepSchedule)
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", cfg.SweepSchedule, err)
	}

	podID, err := os.Hostname()
	if err != nil {
		podID = uuid.New().String()
		slog.Warn("Failed to get hostname, using UUID as pod ID", "pod_id", podID)
	}

	return &Sweeper{
		cfg:      cfg,
		schedule: schedule,
		jobs:     jobs,
		obs:      obs,
		alerts:   alerts,
		locks:    locks,
		podID:    podID,
		stopChan: make(chan struct{}),
	}, nil
}

// Start begins the sweep loop
func (s *Sweeper) Start(ctx context.Context) {
	if !s.cfg.SweepEnabled {
		slog.Info("Retention sweeper is disabled by configuration")
		return
	}

	slog.Info("Starting retention sweeper",
		"pod_id", s.podID,
		"schedule", s.cfg.SweepSchedule,
		"retention", s.cfg.SweepRetention,
	)

	s.wg.Add(1)
	go s.run(ctx)
}

// Stop gracefully stops the sweeper, waiting for an in-flight sweep
func (s *Sweeper) Stop(ctx context.Context) {
	if !s.cfg.SweepEnabled {
		return
	}

	close(s.stopChan)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("Retention sweeper stopped", "pod_id", s.podID)
	case <-ctx.Done():
		slog.Warn("Timeout waiting for retention sweep to complete")
	}
}

// run sleeps until the next scheduled sweep time, sweeps, and repeats
func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()

	for {
		next := s.schedule.Next(time.Now().UTC())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-timer.C:
			s.sweep(ctx)
		case <-s.stopChan:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// sweep performs one retention pass under the distributed lock
func (s *Sweeper) sweep(ctx context.Context) {
	acquired, err := s.locks.Acquire(ctx, lockName, s.podID, s.cfg.SweepLockTTL)
	if err != nil {
		slog.Error("Failed to acquire sweep lock", "error", err)
		return
	}
	if !acquired {
		slog.Debug("Sweep lock held by another pod, skipping")
		return
	}
	defer func() {
		if err := s.locks.Release(ctx, lockName, s.podID); err != nil {
			slog.Error("Failed to release sweep lock", "error", err)
		}
	}()

	cutoff := time.Now().UTC().Add(-s.cfg.SweepRetention)
	start := time.Now()

	slog.Info("Starting retention sweep", "pod_id", s.podID, "cutoff", cutoff.Format(time.RFC3339))

	jobIDs, err := s.jobs.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		slog.Error("Failed to prune expired jobs", "error", err)
		return
	}

	observations, err := s.obs.DeleteForJobs(ctx, jobIDs)
	if err != nil {
		slog.Error("Failed to prune stored observations", "error", err)
	}

	alerts, err := s.alerts.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		slog.Error("Failed to prune expired alert logs", "error", err)
	}

	slog.Info("Retention sweep completed",
		"pod_id", s.podID,
		"jobs_removed", len(jobIDs),
		"observations_removed", observations,
		"alert_logs_removed", alerts,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
