package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/libralend/libralend-backend/pkg/enums"
)

// Alert stores a borrower-facing message produced while processing requests.
type Alert struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index"`
	BookID    *uuid.UUID      `gorm:"column:book_id;type:uuid"`
	Type      enums.AlertType `gorm:"column:type;type:alert_type;not null"`
	Message   string          `gorm:"column:message;type:text;not null"`
	ReadAt    *time.Time      `gorm:"column:read_at"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
