package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/cronpulse/cronpulse/internal/alert"
	"github.com/cronpulse/cronpulse/internal/models"
)

// MonitorSource is the slice of the monitor store the sweeper needs: the
// full monitor set, fetched fresh each sweep, and the last-ping update that
// suppresses duplicate alerts.
type MonitorSource interface {
	GetAll(ctx context.Context) ([]models.Monitor, error)
	UpdateLastPing(ctx context.Context, m *models.Monitor, t time.Time) error
}

// EmailChannel sends one alert email. Implementations never raise past
// their own boundary; failures come back as the flag/message pair.
type EmailChannel interface {
	Send(toEmail, toName, subject, htmlBody string) (bool, string)
}

// WebhookChannel posts one alert payload.
type WebhookChannel interface {
	Send(ctx context.Context, url string, payload alert.WebhookPayload) error
}

// Broadcaster publishes sweep events to connected dashboard clients.
type Broadcaster interface {
	Broadcast(event string, payload interface{})
}

var (
	mSweeps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cronpulse_sweeps_total", Help: "Completed missed-ping sweeps",
	})
	mSweepErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cronpulse_sweep_errors_total", Help: "Sweeps aborted by a store error",
	})
	mOverdue = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cronpulse_monitors_overdue_total", Help: "Monitors classified overdue",
	})
	mAlertsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cronpulse_alerts_sent_total", Help: "Alerts dispatched successfully",
	}, []string{"channel"})
	mAlertFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cronpulse_alert_failures_total", Help: "Alert dispatches that failed",
	}, []string{"channel"})
	mSweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "cronpulse_sweep_duration_seconds", Help: "Sweep duration",
		Buckets: prometheus.DefBuckets,
	})
)

// Sweeper scans all monitors, classifies each against a single timestamp and
// dispatches alerts for the overdue ones. After dispatching it advances the
// monitor's last ping so the next sweep does not re-alert for the same miss;
// a persistent outage alerts again only after another full interval.
type Sweeper struct {
	monitors MonitorSource
	email    EmailChannel
	webhook  WebhookChannel
	hub      Broadcaster
	log      *zap.Logger
	now      func() time.Time
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithEmail wires the email alert channel. A nil channel leaves email
// alerts disabled.
func WithEmail(ch EmailChannel) Option {
	return func(s *Sweeper) { s.email = ch }
}

// WithWebhook wires the webhook alert channel.
func WithWebhook(ch WebhookChannel) Option {
	return func(s *Sweeper) { s.webhook = ch }
}

// WithBroadcaster wires the websocket event feed.
func WithBroadcaster(b Broadcaster) Option {
	return func(s *Sweeper) { s.hub = b }
}

// WithClock overrides the sweep clock. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

// New creates a Sweeper over the given monitor store.
func New(monitors MonitorSource, log *zap.Logger, opts ...Option) *Sweeper {
	s := &Sweeper{
		monitors: monitors,
		log:      log.With(zap.String("component", "sweeper")),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one sweep. A failure to fetch the monitor set aborts the
// sweep and is returned to the scheduler driver; everything past that point
// is handled per monitor and never stops the loop.
func (s *Sweeper) Run(ctx context.Context) error {
	start := time.Now()

	monitors, err := s.monitors.GetAll(ctx)
	if err != nil {
		mSweepErrors.Inc()
		return fmt.Errorf("fetch monitors: %w", err)
	}

	now := s.now()
	overdue := 0
	for i := range monitors {
		m := &monitors[i]
		switch Classify(m, now) {
		case StateIdle, StateOnTime:
			continue
		case StateExpired:
			s.log.Info("monitor expired, skipping ping check", zap.String("monitor", m.Name))
			continue
		case StateOverdue:
			overdue++
			s.handleOverdue(ctx, m, now)
		}
	}

	if overdue > 0 {
		mOverdue.Add(float64(overdue))
	}
	mSweeps.Inc()
	mSweepDuration.Observe(time.Since(start).Seconds())
	s.log.Debug("sweep finished",
		zap.Int("monitors", len(monitors)),
		zap.Int("overdue", overdue),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// handleOverdue dispatches alerts for one overdue monitor and then advances
// its last ping. The update happens whether or not any dispatch succeeded,
// and a failure in one channel never blocks the other.
func (s *Sweeper) handleOverdue(ctx context.Context, m *models.Monitor, now time.Time) {
	s.log.Info("monitor is overdue",
		zap.String("monitor", m.Name),
		zap.Float64("interval_minutes", m.Interval),
		zap.Timep("last_ping", m.LastPing))

	if m.EmailRecipient != "" {
		s.sendEmail(m)
	}
	if m.WebhookURL != "" {
		s.sendWebhook(ctx, m)
	}

	if s.hub != nil {
		s.hub.Broadcast("monitor_alert", alert.MissedPingPayload(m))
	}

	if err := s.monitors.UpdateLastPing(ctx, m, now); err != nil {
		// The next sweep will classify this monitor overdue again and
		// re-alert; safe, since classification is idempotent.
		s.log.Error("failed to advance last ping after alert",
			zap.String("monitor", m.Name), zap.Error(err))
	}
}

func (s *Sweeper) sendEmail(m *models.Monitor) {
	if s.email == nil {
		s.log.Warn("email channel not configured, skipping email alert",
			zap.String("monitor", m.Name))
		return
	}

	ok, msg := s.email.Send(m.EmailRecipient, "", alert.MissedPingSubject(m), alert.MissedPingBody(m))
	if !ok {
		mAlertFailures.WithLabelValues("email").Inc()
		s.log.Error("failed to send email alert",
			zap.String("monitor", m.Name),
			zap.String("reason", msg))
		return
	}
	mAlertsSent.WithLabelValues("email").Inc()
	s.log.Info("email alert sent", zap.String("monitor", m.Name))
}

func (s *Sweeper) sendWebhook(ctx context.Context, m *models.Monitor) {
	if s.webhook == nil {
		s.log.Warn("webhook channel not configured, skipping webhook alert",
			zap.String("monitor", m.Name))
		return
	}

	if err := s.webhook.Send(ctx, m.WebhookURL, alert.MissedPingPayload(m)); err != nil {
		mAlertFailures.WithLabelValues("webhook").Inc()
		s.log.Error("failed to send webhook alert",
			zap.String("monitor", m.Name),
			zap.Error(err))
		return
	}
	mAlertsSent.WithLabelValues("webhook").Inc()
	s.log.Info("webhook alert sent", zap.String("monitor", m.Name))
}
