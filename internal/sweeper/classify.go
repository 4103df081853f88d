package sweeper

import (
	"time"

	"github.com/cronpulse/cronpulse/internal/models"
)

// State is the classification of a monitor at a point in time.
type State int

const (
	// StateIdle means the monitor has never been pinged and has not started
	// its cycle.
	StateIdle State = iota
	// StateExpired means the monitor is past its expiry and is inert.
	StateExpired
	// StateOnTime means the last ping arrived within the interval.
	StateOnTime
	// StateOverdue means the expected ping was missed.
	StateOverdue
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExpired:
		return "expired"
	case StateOnTime:
		return "on-time"
	case StateOverdue:
		return "overdue"
	default:
		return "unknown"
	}
}

// Classify determines the state of a monitor at the given instant. It is a
// total function over the monitor fields: every monitor in a sweep is judged
// against the same now, and classification itself cannot fail.
//
// Order matters: a monitor that never pinged is idle even if expired, and an
// expired monitor is never overdue.
func Classify(m *models.Monitor, now time.Time) State {
	if m.LastPing == nil {
		return StateIdle
	}
	if m.Expired(now) {
		return StateExpired
	}

	expected := m.LastPing.Add(IntervalDuration(m.Interval))
	if now.After(expected) {
		return StateOverdue
	}
	return StateOnTime
}

// IntervalDuration converts a monitor interval in minutes to a duration.
func IntervalDuration(minutes float64) time.Duration {
	return time.Duration(minutes * float64(time.Minute))
}
