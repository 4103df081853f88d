package models

import "time"

// APIKey represents a long-lived credential for programmatic access. Only the
// bcrypt hash is stored; the key itself is shown once at creation.
type APIKey struct {
	ID         int        `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID     int        `json:"user_id" gorm:"not null;index"`
	Name       string     `json:"name" gorm:"not null"`
	KeyHash    string     `json:"-" gorm:"not null"` // Never send to client
	Prefix     string     `json:"prefix" gorm:"not null"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`

	User User `json:"-" gorm:"foreignKey:UserID"`
}

// TableName specifies the table name for APIKey
func (APIKey) TableName() string {
	return "api_keys"
}
