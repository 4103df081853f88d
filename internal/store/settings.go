package store

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/cronpulse/cronpulse/internal/models"
)

// SettingsStore is the persistence boundary for key/value settings.
type SettingsStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, isSecret bool) error
	All(ctx context.Context, includeSecrets bool) (map[string]string, error)
}

// GormSettingsStore implements SettingsStore on top of GORM.
type GormSettingsStore struct {
	db *gorm.DB
}

// NewSettingsStore creates a settings store backed by the given database.
func NewSettingsStore(db *gorm.DB) *GormSettingsStore {
	return &GormSettingsStore{db: db}
}

func (s *GormSettingsStore) Get(ctx context.Context, key string) (string, error) {
	var setting models.Setting
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to fetch setting: %w", err)
	}
	return setting.Value, nil
}

func (s *GormSettingsStore) Set(ctx context.Context, key, value string, isSecret bool) error {
	var setting models.Setting
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&setting).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		setting = models.Setting{Key: key, Value: value, IsSecret: isSecret}
		if err := s.db.WithContext(ctx).Create(&setting).Error; err != nil {
			return fmt.Errorf("failed to create setting: %w", err)
		}
	case err != nil:
		return fmt.Errorf("failed to fetch setting: %w", err)
	default:
		setting.Value = value
		setting.IsSecret = isSecret
		if err := s.db.WithContext(ctx).Save(&setting).Error; err != nil {
			return fmt.Errorf("failed to update setting: %w", err)
		}
	}
	return nil
}

func (s *GormSettingsStore) All(ctx context.Context, includeSecrets bool) (map[string]string, error) {
	q := s.db.WithContext(ctx).Model(&models.Setting{})
	if !includeSecrets {
		q = q.Where("is_secret = ?", false)
	}

	var settings []models.Setting
	if err := q.Find(&settings).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch settings: %w", err)
	}

	result := make(map[string]string, len(settings))
	for _, setting := range settings {
		result[setting.Key] = setting.Value
	}
	return result, nil
}

// Resolver resolves configuration values in layers: the environment wins
// over the persisted settings table. Callers see a single resolved value and
// never the precedence rule.
type Resolver struct {
	store  SettingsStore
	getenv func(string) string
}

// NewResolver creates a resolver over the given settings store.
func NewResolver(store SettingsStore) *Resolver {
	return &Resolver{store: store, getenv: os.Getenv}
}

// NewResolverWithEnv creates a resolver with a custom environment lookup.
func NewResolverWithEnv(store SettingsStore, getenv func(string) string) *Resolver {
	return &Resolver{store: store, getenv: getenv}
}

// Get returns the resolved value for key, or "" when unset everywhere.
func (r *Resolver) Get(ctx context.Context, key string) (string, error) {
	if v := r.getenv(key); v != "" {
		return v, nil
	}
	return r.store.Get(ctx, key)
}

// SMTP setting keys recognized by the resolver.
const (
	SettingSMTPHost    = "SMTP_HOST"
	SettingSMTPPort    = "SMTP_PORT"
	SettingSMTPUser    = "SMTP_USER"
	SettingSMTPPass    = "SMTP_PASSWORD"
	SettingSenderEmail = "SENDER_EMAIL"
	SettingSenderName  = "SENDER_NAME"
	SettingSMTPUseTLS  = "SMTP_USE_TLS"
)

// SMTPConfigured reports whether the minimum SMTP settings are resolvable.
func (r *Resolver) SMTPConfigured(ctx context.Context) (bool, error) {
	for _, key := range []string{SettingSMTPHost, SettingSMTPPort, SettingSenderEmail} {
		v, err := r.Get(ctx, key)
		if err != nil {
			return false, err
		}
		if v == "" {
			return false, nil
		}
	}
	return true, nil
}
