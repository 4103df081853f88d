package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/cronpulse/cronpulse/internal/models"
)

// UserStore is the persistence boundary for users.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Count(ctx context.Context) (int64, error)
	SetAdmin(ctx context.Context, id int, admin bool) error
	Delete(ctx context.Context, id int) error
}

// APIKeyStore is the persistence boundary for API keys.
type APIKeyStore interface {
	Create(ctx context.Context, k *models.APIKey) error
	ListByUser(ctx context.Context, userID int) ([]models.APIKey, error)
	GetAll(ctx context.Context) ([]models.APIKey, error)
	UpdateLastUsed(ctx context.Context, id int, t time.Time) error
	Delete(ctx context.Context, id, userID int) error
}

// GormUserStore implements UserStore and APIKeyStore on top of GORM.
type GormUserStore struct {
	db *gorm.DB
}

// NewUserStore creates a user store backed by the given database.
func NewUserStore(db *gorm.DB) *GormUserStore {
	return &GormUserStore{db: db}
}

func (s *GormUserStore) Create(ctx context.Context, u *models.User) error {
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *GormUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return &u, nil
}

func (s *GormUserStore) GetByID(ctx context.Context, id int) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return &u, nil
}

func (s *GormUserStore) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).Order("created_at ASC").Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *GormUserStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

func (s *GormUserStore) SetAdmin(ctx context.Context, id int, admin bool) error {
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("is_admin", admin).Error
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (s *GormUserStore) Delete(ctx context.Context, id int) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.User{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GormAPIKeyStore implements APIKeyStore on top of GORM.
type GormAPIKeyStore struct {
	db *gorm.DB
}

// NewAPIKeyStore creates an API key store backed by the given database.
func NewAPIKeyStore(db *gorm.DB) *GormAPIKeyStore {
	return &GormAPIKeyStore{db: db}
}

func (s *GormAPIKeyStore) Create(ctx context.Context, k *models.APIKey) error {
	if err := s.db.WithContext(ctx).Create(k).Error; err != nil {
		return fmt.Errorf("failed to create api key: %w", err)
	}
	return nil
}

func (s *GormAPIKeyStore) ListByUser(ctx context.Context, userID int) ([]models.APIKey, error) {
	var keys []models.APIKey
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&keys).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	return keys, nil
}

func (s *GormAPIKeyStore) GetAll(ctx context.Context) ([]models.APIKey, error) {
	var keys []models.APIKey
	if err := s.db.WithContext(ctx).Find(&keys).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch api keys: %w", err)
	}
	return keys, nil
}

func (s *GormAPIKeyStore) UpdateLastUsed(ctx context.Context, id int, t time.Time) error {
	err := s.db.WithContext(ctx).
		Model(&models.APIKey{}).
		Where("id = ?", id).
		Update("last_used_at", t).Error
	if err != nil {
		return fmt.Errorf("failed to update api key: %w", err)
	}
	return nil
}

func (s *GormAPIKeyStore) Delete(ctx context.Context, id, userID int) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.APIKey{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete api key: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
