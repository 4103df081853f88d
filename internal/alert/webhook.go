package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// EventMissedPing tags webhook payloads sent for an overdue monitor.
const EventMissedPing = "monitor_missed_ping"

// WebhookPayload is the wire format posted to a monitor's webhook URL.
type WebhookPayload struct {
	Event           string     `json:"event"`
	MonitorName     string     `json:"monitor_name"`
	IntervalMinutes float64    `json:"interval_minutes"`
	LastPing        *time.Time `json:"last_ping"`
	Message         string     `json:"message"`
}

// WebhookSender posts alert payloads to user-configured URLs. The request
// timeout is bounded; non-2xx responses and network errors are both failures.
type WebhookSender struct {
	client *http.Client
	log    *zap.Logger
}

// NewWebhookSender creates a webhook sender with the given request timeout.
func NewWebhookSender(timeout time.Duration, log *zap.Logger) *WebhookSender {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookSender{
		client: &http.Client{Timeout: timeout},
		log:    log.With(zap.String("component", "alert.webhook")),
	}
}

// Send posts one payload. The returned error is informational; callers log
// it and move on.
func (s *WebhookSender) Send(ctx context.Context, url string, payload WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "CronPulse/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	s.log.Info("webhook sent",
		zap.String("url", url),
		zap.String("event", payload.Event),
		zap.String("monitor", payload.MonitorName))
	return nil
}
