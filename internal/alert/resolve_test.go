package alert

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cronpulse/cronpulse/internal/store"
)

type staticSettings map[string]string

func (s staticSettings) Get(ctx context.Context, key string) (string, error) { return s[key], nil }
func (s staticSettings) Set(ctx context.Context, key, value string, isSecret bool) error {
	s[key] = value
	return nil
}
func (s staticSettings) All(ctx context.Context, includeSecrets bool) (map[string]string, error) {
	return s, nil
}

func TestResolveSMTPConfig(t *testing.T) {
	r := store.NewResolverWithEnv(staticSettings{
		store.SettingSMTPHost:    "smtp.example.com",
		store.SettingSMTPPort:    "465",
		store.SettingSMTPUser:    "mailer",
		store.SettingSMTPPass:    "hunter2",
		store.SettingSenderEmail: "alerts@example.com",
		store.SettingSenderName:  "CronPulse",
		store.SettingSMTPUseTLS:  "false",
	}, func(string) string { return "" })

	cfg, err := ResolveSMTPConfig(context.Background(), r, 7*time.Second)
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com", cfg.Host)
	assert.Equal(t, "465", cfg.Port)
	assert.Equal(t, "mailer", cfg.Username)
	assert.Equal(t, "hunter2", cfg.Password)
	assert.Equal(t, "alerts@example.com", cfg.SenderEmail)
	assert.False(t, cfg.UseTLS)
	assert.Equal(t, 7*time.Second, cfg.Timeout)
}

func TestResolveSMTPConfigTLSDefaultsOn(t *testing.T) {
	r := store.NewResolverWithEnv(staticSettings{
		store.SettingSMTPHost: "smtp.example.com",
	}, func(string) string { return "" })

	cfg, err := ResolveSMTPConfig(context.Background(), r, time.Second)
	require.NoError(t, err)
	assert.True(t, cfg.UseTLS, "unset or unparsable flag defaults to TLS")
}
