package models

import "time"

// User represents a user in the system
type User struct {
	ID             int       `json:"id" gorm:"primaryKey;autoIncrement"`
	Email          string    `json:"email" gorm:"uniqueIndex;not null"`
	HashedPassword string    `json:"-" gorm:"not null"` // Never expose password in JSON
	IsAdmin        bool      `json:"is_admin" gorm:"default:false"`
	CreatedAt      time.Time `json:"created_at"`

	// Relationships (optional, for eager loading)
	Monitors []Monitor `json:"-" gorm:"foreignKey:UserID"`
	APIKeys  []APIKey  `json:"-" gorm:"foreignKey:UserID"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}
