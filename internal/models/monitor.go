package models

import "time"

// MaxIntervalMinutes bounds a monitor's expected ping interval (30 days).
const MaxIntervalMinutes = 30 * 24 * 60

// Monitor represents one watched heartbeat source. Clients are expected to
// ping it at least once every Interval minutes; the sweeper alerts when they
// do not.
type Monitor struct {
	ID             int        `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID         int        `json:"user_id" gorm:"not null;index"`
	Name           string     `json:"name" gorm:"not null"`
	Interval       float64    `json:"interval" gorm:"not null"` // minutes
	LastPing       *time.Time `json:"last_ping"`
	EmailRecipient string     `json:"email_recipient"`
	WebhookURL     string     `json:"webhook_url"`
	ExpiresAt      *time.Time `json:"expires_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	User User `json:"-" gorm:"foreignKey:UserID"`
}

// TableName specifies the table name for Monitor
func (Monitor) TableName() string {
	return "monitors"
}

// Expired reports whether the monitor is past its expiry at the given time.
// An expired monitor keeps its record but no longer alerts.
func (m *Monitor) Expired(now time.Time) bool {
	return m.ExpiresAt != nil && now.After(*m.ExpiresAt)
}

// HasAlertDestination reports whether at least one alert channel is configured.
func (m *Monitor) HasAlertDestination() bool {
	return m.EmailRecipient != "" || m.WebhookURL != ""
}
