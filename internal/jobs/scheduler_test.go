package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type funcJob func(ctx context.Context) error

func (f funcJob) Run(ctx context.Context) error { return f(ctx) }

func TestAddJobRejectsInvalidSchedule(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	err := s.AddJob("not a schedule", "bad", funcJob(func(ctx context.Context) error { return nil }))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}

func TestSchedulerRunsJob(t *testing.T) {
	s := NewScheduler(zap.NewNop())

	var runs atomic.Int32
	done := make(chan struct{})
	err := s.AddJob("* * * * * *", "tick", funcJob(func(ctx context.Context) error {
		if runs.Add(1) == 1 {
			close(done)
		}
		return nil
	}))
	require.NoError(t, err)

	s.Start()
	defer s.Stop(time.Second)

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("job never ran")
	}
}

func TestSchedulerSkipsOverlappingRuns(t *testing.T) {
	s := NewScheduler(zap.NewNop())

	var inFlight, maxInFlight atomic.Int32
	err := s.AddJob("* * * * * *", "slow", funcJob(func(ctx context.Context) error {
		cur := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			prev := maxInFlight.Load()
			if cur <= prev || maxInFlight.CompareAndSwap(prev, cur) {
				break
			}
		}
		time.Sleep(2500 * time.Millisecond)
		return nil
	}))
	require.NoError(t, err)

	s.Start()
	time.Sleep(3 * time.Second)
	s.Stop(3 * time.Second)

	assert.Equal(t, int32(1), maxInFlight.Load(), "overlapping runs must be skipped")
}

func TestSchedulerRunningFlag(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	assert.False(t, s.Running())

	s.Start()
	assert.True(t, s.Running())

	s.Stop(time.Second)
	assert.False(t, s.Running())
}

func TestSchedulerRecoversFromPanic(t *testing.T) {
	s := NewScheduler(zap.NewNop())

	var runs atomic.Int32
	second := make(chan struct{})
	err := s.AddJob("* * * * * *", "panicky", funcJob(func(ctx context.Context) error {
		if runs.Add(1) == 2 {
			close(second)
		}
		panic("boom")
	}))
	require.NoError(t, err)

	s.Start()
	defer s.Stop(time.Second)

	// A panic in one run must not stop subsequent runs
	select {
	case <-second:
	case <-time.After(4 * time.Second):
		t.Fatal("scheduler stopped after panic")
	}
}
