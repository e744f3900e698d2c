package scheduler

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funnelcli/internal/config"
	"funnelcli/internal/errors"
	"funnelcli/internal/infrastructure"
)

func scheduleConfig(retries int) config.ScheduleConfig {
	return config.ScheduleConfig{At: "02:00", Retries: retries, RetryDelay: time.Millisecond}
}

func TestRunWithRetry(t *testing.T) {
	boom := stderrors.New("boom")

	tests := []struct {
		name      string
		retries   int
		failFirst int
		wantCalls int32
		wantErr   bool
	}{
		{name: "first attempt succeeds", retries: 2, failFirst: 0, wantCalls: 1},
		{name: "succeeds after retries", retries: 2, failFirst: 2, wantCalls: 3},
		{name: "retries exhausted", retries: 2, failFirst: 5, wantCalls: 3, wantErr: true},
		{name: "no retries", retries: 0, failFirst: 1, wantCalls: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			job := func(ctx context.Context) error {
				n := calls.Add(1)
				if int(n) <= tt.failFirst {
					return boom
				}
				return nil
			}

			err := New(scheduleConfig(tt.retries), job, nil).RunWithRetry(context.Background())
			if tt.wantErr {
				assert.ErrorIs(t, err, boom)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestRunWithRetry_FreshRunIDPerAttempt(t *testing.T) {
	var ids []string
	job := func(ctx context.Context) error {
		ids = append(ids, infrastructure.GetRunID(ctx))
		return stderrors.New("fail")
	}

	_ = New(scheduleConfig(1), job, nil).RunWithRetry(context.Background())
	require.Len(t, ids, 2)
	assert.NotEmpty(t, ids[0])
	assert.NotEqual(t, ids[0], ids[1])
}

func TestRunWithRetry_CancelledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := config.ScheduleConfig{At: "02:00", Retries: 3, RetryDelay: time.Hour}

	var calls atomic.Int32
	job := func(context.Context) error {
		calls.Add(1)
		time.AfterFunc(10*time.Millisecond, cancel)
		return stderrors.New("fail")
	}

	err := New(cfg, job, nil).RunWithRetry(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRunWithRetry_StopsWhenJobCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var calls atomic.Int32
	job := func(context.Context) error {
		calls.Add(1)
		cancel()
		return context.Canceled
	}

	err := New(scheduleConfig(3), job, nil).RunWithRetry(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSchedule_NextRun(t *testing.T) {
	s := New(config.ScheduleConfig{At: "03:15"}, func(context.Context) error { return nil }, nil)

	cron, job, err := s.schedule(context.Background())
	require.NoError(t, err)
	cron.StartAsync()
	defer cron.Stop()

	next := job.NextRun().UTC()
	assert.Equal(t, 3, next.Hour())
	assert.Equal(t, 15, next.Minute())
	assert.True(t, next.After(time.Now()))
}

func TestSchedule_InvalidTime(t *testing.T) {
	s := New(config.ScheduleConfig{At: "25:99"}, func(context.Context) error { return nil }, nil)

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrTypeConfig, errors.TypeOf(err))
}

func TestStart_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New(scheduleConfig(0), func(context.Context) error { return nil }, nil)

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
