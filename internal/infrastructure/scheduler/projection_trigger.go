// Package scheduler runs the periodic revenue projection job.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"go.uber.org/zap"
)

// ProjectionRunner recalculates month-end revenue projections. Implemented
// by the application layer; the trigger only decides when to run.
type ProjectionRunner interface {
	RecalculateAll(ctx context.Context, asOf time.Time) error
}

// ProjectionTriggerConfig holds configuration for the projection trigger
type ProjectionTriggerConfig struct {
	// DailyRunHour is the hour (0-23) at which the daily recalculation runs
	DailyRunHour int

	// CheckInterval is how often the loop checks whether it is time to run
	CheckInterval time.Duration

	// LockTTL bounds how long one instance may hold the daily leader lock
	LockTTL time.Duration
}

// DefaultProjectionTriggerConfig returns default trigger configuration
func DefaultProjectionTriggerConfig() ProjectionTriggerConfig {
	return ProjectionTriggerConfig{
		DailyRunHour:  3,
		CheckInterval: time.Minute,
		LockTTL:       10 * time.Minute,
	}
}

// ProjectionTrigger runs the projection recalculation once per day. When a
// redislock client is configured, instances compete for a per-date leader
// lock so only one of them runs the job.
type ProjectionTrigger struct {
	config ProjectionTriggerConfig
	runner ProjectionRunner
	locker *redislock.Client
	logger *zap.Logger

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string
}

// NewProjectionTrigger creates a new projection trigger. locker may be nil
// in single-instance deployments.
func NewProjectionTrigger(
	config ProjectionTriggerConfig,
	runner ProjectionRunner,
	locker *redislock.Client,
	logger *zap.Logger,
) *ProjectionTrigger {
	return &ProjectionTrigger{
		config: config,
		runner: runner,
		locker: locker,
		logger: logger,
	}
}

// Start starts the trigger loop
func (t *ProjectionTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Projection trigger started",
		zap.Int("daily_run_hour", t.config.DailyRunHour),
		zap.Duration("check_interval", t.config.CheckInterval),
	)
	return nil
}

// Stop stops the trigger and waits for an in-flight run to finish
func (t *ProjectionTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Projection trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *ProjectionTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.checkAndRun(ctx)
		}
	}
}

func (t *ProjectionTrigger) checkAndRun(ctx context.Context) {
	now := time.Now()
	currentDate := now.Format("2006-01-02")

	t.mu.Lock()
	alreadyRan := t.lastRunDate == currentDate
	t.mu.Unlock()
	if alreadyRan || now.Hour() != t.config.DailyRunHour {
		return
	}

	t.mu.Lock()
	t.lastRunDate = currentDate
	t.mu.Unlock()

	if t.locker != nil {
		lock, err := t.locker.Obtain(ctx, "caixaops:projection:daily:"+currentDate, t.config.LockTTL, nil)
		if errors.Is(err, redislock.ErrNotObtained) {
			t.logger.Debug("Another instance holds the projection lock", zap.String("date", currentDate))
			return
		}
		if err != nil {
			t.logger.Error("Failed to obtain projection lock", zap.Error(err))
			return
		}
		defer func() {
			if err := lock.Release(ctx); err != nil {
				t.logger.Warn("Failed to release projection lock", zap.Error(err))
			}
		}()
	}

	t.logger.Info("Running daily projection recalculation", zap.String("date", currentDate))
	if err := t.runner.RecalculateAll(ctx, now); err != nil {
		t.logger.Error("Projection recalculation failed", zap.Error(err))
	}
}

// TriggerManualRun runs the recalculation immediately, outside the schedule
func (t *ProjectionTrigger) TriggerManualRun(ctx context.Context) error {
	return t.runner.RecalculateAll(ctx, time.Now())
}
