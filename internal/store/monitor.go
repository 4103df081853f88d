package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/cronpulse/cronpulse/internal/models"
)

// ErrNotFound is returned when a record does not exist or is not owned by
// the requesting user.
var ErrNotFound = errors.New("record not found")

// MonitorUpdate carries the fields of a monitor update request. Nil fields
// are left unchanged. ExpiresAt is applied only when SetExpiresAt is true;
// a nil value then clears the expiry.
type MonitorUpdate struct {
	Name           *string
	Interval       *float64
	EmailRecipient *string
	WebhookURL     *string
	SetExpiresAt   bool
	ExpiresAt      *time.Time
}

// MonitorStore is the persistence boundary for monitors. The sweeper depends
// only on GetAll and UpdateLastPing; the rest serves the HTTP API.
type MonitorStore interface {
	Create(ctx context.Context, m *models.Monitor) error
	GetByID(ctx context.Context, id, userID int) (*models.Monitor, error)
	ListByUser(ctx context.Context, userID int) ([]models.Monitor, error)
	GetAll(ctx context.Context) ([]models.Monitor, error)
	Update(ctx context.Context, id, userID int, upd MonitorUpdate) (*models.Monitor, error)
	UpdateLastPing(ctx context.Context, m *models.Monitor, t time.Time) error
	Delete(ctx context.Context, id, userID int) error
	CountActiveByUser(ctx context.Context, userID int, now time.Time) (int64, error)
}

// GormMonitorStore implements MonitorStore on top of GORM.
type GormMonitorStore struct {
	db *gorm.DB
}

// NewMonitorStore creates a monitor store backed by the given database.
func NewMonitorStore(db *gorm.DB) *GormMonitorStore {
	return &GormMonitorStore{db: db}
}

func (s *GormMonitorStore) Create(ctx context.Context, m *models.Monitor) error {
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("failed to create monitor: %w", err)
	}
	return nil
}

func (s *GormMonitorStore) GetByID(ctx context.Context, id, userID int) (*models.Monitor, error) {
	var m models.Monitor
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch monitor: %w", err)
	}
	return &m, nil
}

func (s *GormMonitorStore) ListByUser(ctx context.Context, userID int) ([]models.Monitor, error) {
	var monitors []models.Monitor
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&monitors).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list monitors: %w", err)
	}
	return monitors, nil
}

func (s *GormMonitorStore) GetAll(ctx context.Context) ([]models.Monitor, error) {
	var monitors []models.Monitor
	if err := s.db.WithContext(ctx).Find(&monitors).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch monitors: %w", err)
	}
	return monitors, nil
}

func (s *GormMonitorStore) Update(ctx context.Context, id, userID int, upd MonitorUpdate) (*models.Monitor, error) {
	m, err := s.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		m.Name = *upd.Name
	}
	if upd.Interval != nil {
		m.Interval = *upd.Interval
	}
	if upd.EmailRecipient != nil {
		m.EmailRecipient = *upd.EmailRecipient
	}
	if upd.WebhookURL != nil {
		m.WebhookURL = *upd.WebhookURL
	}
	if upd.SetExpiresAt {
		m.ExpiresAt = upd.ExpiresAt
	}

	if err := s.db.WithContext(ctx).Save(m).Error; err != nil {
		return nil, fmt.Errorf("failed to update monitor: %w", err)
	}
	return m, nil
}

func (s *GormMonitorStore) UpdateLastPing(ctx context.Context, m *models.Monitor, t time.Time) error {
	err := s.db.WithContext(ctx).
		Model(&models.Monitor{}).
		Where("id = ?", m.ID).
		Update("last_ping", t).Error
	if err != nil {
		return fmt.Errorf("failed to update last ping: %w", err)
	}
	m.LastPing = &t
	return nil
}

func (s *GormMonitorStore) Delete(ctx context.Context, id, userID int) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Monitor{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete monitor: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormMonitorStore) CountActiveByUser(ctx context.Context, userID int, now time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Monitor{}).
		Where("user_id = ? AND (expires_at IS NULL OR expires_at > ?)", userID, now).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count monitors: %w", err)
	}
	return count, nil
}
