package sweeper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cronpulse/cronpulse/internal/models"
)

func TestClassify(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	ping := func(minutesAgo float64) *time.Time {
		t := now.Add(-time.Duration(minutesAgo * float64(time.Minute)))
		return &t
	}

	tests := []struct {
		name string
		m    models.Monitor
		want State
	}{
		{
			name: "never pinged",
			m:    models.Monitor{Interval: 5},
			want: StateIdle,
		},
		{
			name: "never pinged and expired",
			m:    models.Monitor{Interval: 5, ExpiresAt: &past},
			want: StateIdle,
		},
		{
			name: "expired with stale ping",
			m:    models.Monitor{Interval: 5, LastPing: ping(60), ExpiresAt: &past},
			want: StateExpired,
		},
		{
			name: "future expiry still checked",
			m:    models.Monitor{Interval: 5, LastPing: ping(10), ExpiresAt: &future},
			want: StateOverdue,
		},
		{
			name: "recent ping",
			m:    models.Monitor{Interval: 5, LastPing: ping(2)},
			want: StateOnTime,
		},
		{
			name: "ping exactly at the deadline",
			m:    models.Monitor{Interval: 5, LastPing: ping(5)},
			want: StateOnTime,
		},
		{
			name: "one second past the deadline",
			m:    models.Monitor{Interval: 5, LastPing: func() *time.Time { t := now.Add(-5*time.Minute - time.Second); return &t }()},
			want: StateOverdue,
		},
		{
			name: "fractional interval",
			m:    models.Monitor{Interval: 0.5, LastPing: ping(1)},
			want: StateOverdue,
		},
		{
			name: "long interval well within bounds",
			m:    models.Monitor{Interval: 60 * 24, LastPing: ping(60)},
			want: StateOnTime,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(&tt.m, now))
		})
	}
}

func TestIntervalDuration(t *testing.T) {
	assert.Equal(t, 5*time.Minute, IntervalDuration(5))
	assert.Equal(t, 30*time.Second, IntervalDuration(0.5))
	assert.Equal(t, 90*time.Second, IntervalDuration(1.5))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "overdue", StateOverdue.String())
	assert.Equal(t, "idle", StateIdle.String())
}
