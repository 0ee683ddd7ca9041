package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a library member. Staff accounts carry a password hash and
// a system role; regular borrowers have neither.
type User struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email         string     `gorm:"column:email;type:text;not null;uniqueIndex"`
	Name          string     `gorm:"column:name;type:text;not null"`
	BorrowedCount int        `gorm:"column:borrowed_count;not null;default:0"`
	PasswordHash  *string    `gorm:"column:password_hash"`
	SystemRole    *string    `gorm:"column:system_role"`
	IsActive      bool       `gorm:"column:is_active;not null;default:true"`
	LastLoginAt   *time.Time `gorm:"column:last_login_at"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
