package alert

import (
	"fmt"
	"time"

	"github.com/cronpulse/cronpulse/internal/models"
)

// MissedPingSubject builds the alert email subject for an overdue monitor.
func MissedPingSubject(m *models.Monitor) string {
	return fmt.Sprintf("Alert: Monitor %s missed ping", m.Name)
}

// MissedPingBody builds the alert email body for an overdue monitor. It
// always names the monitor, its interval and its last ping time.
func MissedPingBody(m *models.Monitor) string {
	return fmt.Sprintf(
		"<p>The monitor <strong>%s</strong> has not received a ping within the "+
			"expected interval of %g minutes.</p><p>Last ping: %s</p>",
		m.Name, m.Interval, formatLastPing(m.LastPing),
	)
}

// MissedPingPayload builds the webhook payload for an overdue monitor.
func MissedPingPayload(m *models.Monitor) WebhookPayload {
	return WebhookPayload{
		Event:           EventMissedPing,
		MonitorName:     m.Name,
		IntervalMinutes: m.Interval,
		LastPing:        m.LastPing,
		Message:         "Monitor missed its expected ping interval.",
	}
}

func formatLastPing(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.UTC().Format(time.RFC3339)
}
