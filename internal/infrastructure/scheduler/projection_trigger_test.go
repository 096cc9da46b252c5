package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRunner struct {
	runs atomic.Int32
	err  error
}

func (f *fakeRunner) RecalculateAll(_ context.Context, _ time.Time) error {
	f.runs.Add(1)
	return f.err
}

func TestProjectionTrigger_RunsOncePerDay(t *testing.T) {
	runner := &fakeRunner{}
	cfg := ProjectionTriggerConfig{
		DailyRunHour:  time.Now().Hour(),
		CheckInterval: time.Minute,
		LockTTL:       time.Minute,
	}
	trigger := NewProjectionTrigger(cfg, runner, nil, zap.NewNop())

	ctx := context.Background()
	trigger.checkAndRun(ctx)
	trigger.checkAndRun(ctx)

	assert.Equal(t, int32(1), runner.runs.Load())
}

func TestProjectionTrigger_SkipsOutsideRunHour(t *testing.T) {
	runner := &fakeRunner{}
	cfg := ProjectionTriggerConfig{
		DailyRunHour:  (time.Now().Hour() + 1) % 24,
		CheckInterval: time.Minute,
		LockTTL:       time.Minute,
	}
	trigger := NewProjectionTrigger(cfg, runner, nil, zap.NewNop())

	trigger.checkAndRun(context.Background())

	assert.Zero(t, runner.runs.Load())
}

func TestProjectionTrigger_StartStop(t *testing.T) {
	runner := &fakeRunner{}
	trigger := NewProjectionTrigger(DefaultProjectionTriggerConfig(), runner, nil, zap.NewNop())

	ctx := context.Background()
	require.NoError(t, trigger.Start(ctx))
	require.NoError(t, trigger.Start(ctx)) // idempotent

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, trigger.Stop(stopCtx))
	require.NoError(t, trigger.Stop(stopCtx))
}

func TestProjectionTrigger_ManualRun(t *testing.T) {
	runner := &fakeRunner{}
	trigger := NewProjectionTrigger(DefaultProjectionTriggerConfig(), runner, nil, zap.NewNop())

	require.NoError(t, trigger.TriggerManualRun(context.Background()))
	assert.Equal(t, int32(1), runner.runs.Load())
}
