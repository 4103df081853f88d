package alert

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cronpulse/cronpulse/internal/models"
)

func TestNewEmailSenderRequiresTransportConfig(t *testing.T) {
	log := zap.NewNop()

	tests := []struct {
		name string
		cfg  SMTPConfig
	}{
		{"empty", SMTPConfig{}},
		{"missing host", SMTPConfig{Port: "587", SenderEmail: "a@b.com"}},
		{"missing port", SMTPConfig{Host: "smtp.example.com", SenderEmail: "a@b.com"}},
		{"missing sender", SMTPConfig{Host: "smtp.example.com", Port: "587"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEmailSender(tt.cfg, log)
			require.Error(t, err)
		})
	}
}

func TestNewEmailSenderDefaults(t *testing.T) {
	s, err := NewEmailSender(SMTPConfig{
		Host: "smtp.example.com", Port: "587", SenderEmail: "alerts@example.com",
	}, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "CronPulse", s.cfg.SenderName)
	assert.Equal(t, 10*time.Second, s.cfg.Timeout)
	assert.Nil(t, s.auth)
}

func TestBuildMessage(t *testing.T) {
	s, err := NewEmailSender(SMTPConfig{
		Host: "smtp.example.com", Port: "587",
		SenderEmail: "alerts@example.com", SenderName: "CronPulse Alerts",
	}, zap.NewNop())
	require.NoError(t, err)

	msg := string(s.buildMessage("ops@example.com", "Ops Team", "Alert: Monitor backup missed ping", "<p>body</p>"))
	assert.Contains(t, msg, "From: CronPulse Alerts <alerts@example.com>")
	assert.Contains(t, msg, "To: Ops Team <ops@example.com>")
	assert.Contains(t, msg, "Subject: Alert: Monitor backup missed ping")
	assert.Contains(t, msg, "Content-Type: text/html")
	assert.Contains(t, msg, "<p>body</p>")
}

func TestSendPlainBoundedByTimeout(t *testing.T) {
	// A server that accepts and never sends the SMTP greeting
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)

	s, err := NewEmailSender(SMTPConfig{
		Host: host, Port: port, SenderEmail: "alerts@example.com",
		UseTLS:  false,
		Timeout: 500 * time.Millisecond,
	}, zap.NewNop())
	require.NoError(t, err)

	start := time.Now()
	ok, msg := s.Send("ops@example.com", "", "subject", "<p>body</p>")
	assert.False(t, ok)
	assert.NotEmpty(t, msg)
	assert.Less(t, time.Since(start), 5*time.Second, "hung server must not stall the send")
}

func TestMissedPingSubjectNamesMonitor(t *testing.T) {
	m := &models.Monitor{Name: "nightly-backup"}
	subject := MissedPingSubject(m)
	assert.Contains(t, subject, "nightly-backup")
	assert.Contains(t, subject, "missed ping")
}

func TestMissedPingBody(t *testing.T) {
	lastPing := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := &models.Monitor{Name: "nightly-backup", Interval: 7.5, LastPing: &lastPing}

	body := MissedPingBody(m)
	assert.Contains(t, body, "nightly-backup")
	assert.Contains(t, body, "7.5 minutes")
	assert.Contains(t, body, "2025-06-01T12:00:00Z")
}

func TestMissedPingBodyNeverPinged(t *testing.T) {
	m := &models.Monitor{Name: "m", Interval: 5}
	assert.Contains(t, MissedPingBody(m), "never")
}
