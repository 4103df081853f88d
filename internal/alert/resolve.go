package alert

import (
	"context"
	"strconv"
	"time"

	"github.com/cronpulse/cronpulse/internal/store"
)

// ResolveSMTPConfig assembles the mail transport configuration from the
// layered settings resolver (environment over persisted settings).
func ResolveSMTPConfig(ctx context.Context, r *store.Resolver, timeout time.Duration) (SMTPConfig, error) {
	var cfg SMTPConfig
	var err error

	if cfg.Host, err = r.Get(ctx, store.SettingSMTPHost); err != nil {
		return cfg, err
	}
	if cfg.Port, err = r.Get(ctx, store.SettingSMTPPort); err != nil {
		return cfg, err
	}
	if cfg.Username, err = r.Get(ctx, store.SettingSMTPUser); err != nil {
		return cfg, err
	}
	if cfg.Password, err = r.Get(ctx, store.SettingSMTPPass); err != nil {
		return cfg, err
	}
	if cfg.SenderEmail, err = r.Get(ctx, store.SettingSenderEmail); err != nil {
		return cfg, err
	}
	if cfg.SenderName, err = r.Get(ctx, store.SettingSenderName); err != nil {
		return cfg, err
	}

	useTLS, err := r.Get(ctx, store.SettingSMTPUseTLS)
	if err != nil {
		return cfg, err
	}
	if v, parseErr := strconv.ParseBool(useTLS); parseErr == nil {
		cfg.UseTLS = v
	} else {
		cfg.UseTLS = true
	}

	cfg.Timeout = timeout
	return cfg, nil
}
