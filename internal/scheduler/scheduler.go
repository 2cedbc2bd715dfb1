// Package scheduler runs periodic market data snapshot refreshes on cron
// schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Refresher pulls fresh market data and rewrites the snapshot files.
type Refresher interface {
	Refresh(ctx context.Context, from, to time.Time) error
}

// Scheduler manages cron-driven snapshot refresh jobs.
type Scheduler struct {
	cron            *cron.Cron
	refresher       Refresher
	logger          *logrus.Logger
	mu              sync.RWMutex
	isRunning       bool
	jobIDs          []cron.EntryID
	jobTimeout      time.Duration
	gracefulTimeout time.Duration
}

// NewScheduler creates a scheduler. All schedules are evaluated in UTC.
func NewScheduler(refresher Refresher, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Scheduler{
		cron:            cron.New(cron.WithLocation(time.UTC)),
		refresher:       refresher,
		logger:          logger,
		jobTimeout:      10 * time.Minute,
		gracefulTimeout: 30 * time.Second,
	}
}

// ScheduleSnapshotRefresh registers a refresh job covering the trailing
// lookback window each time it fires. Jobs cannot be added while the
// scheduler is running.
func (s *Scheduler) ScheduleSnapshotRefresh(cronExpression string, lookback time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule jobs while scheduler is running")
	}
	if lookback <= 0 {
		return fmt.Errorf("lookback must be positive, got %s", lookback)
	}

	id, err := s.cron.AddFunc(cronExpression, s.refreshJob(lookback))
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cronExpression, err)
	}
	s.jobIDs = append(s.jobIDs, id)

	s.logger.WithFields(logrus.Fields{
		"cron":     cronExpression,
		"lookback": lookback.String(),
	}).Info("Scheduled snapshot refresh")
	return nil
}

func (s *Scheduler) refreshJob(lookback time.Duration) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
		defer cancel()

		to := time.Now().UTC()
		from := to.Add(-lookback)

		start := time.Now()
		if err := s.refresher.Refresh(ctx, from, to); err != nil {
			s.logger.WithError(err).Error("Snapshot refresh failed")
			return
		}
		s.logger.WithField("duration", time.Since(start).String()).Info("Snapshot refresh finished")
	}
}

// Start begins executing scheduled jobs.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")
	return nil
}

// Stop halts the scheduler, waiting up to the graceful timeout for any
// running job to complete.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
		s.logger.Info("Scheduler stopped")
	case <-time.After(s.gracefulTimeout):
		s.logger.Warn("Scheduler stop timed out waiting for running jobs")
	}
	s.isRunning = false
	return nil
}

// IsRunning reports whether the scheduler has been started.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// JobCount returns the number of scheduled jobs.
func (s *Scheduler) JobCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobIDs)
}
