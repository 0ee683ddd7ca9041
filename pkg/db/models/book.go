package models

import (
	"time"

	"github.com/google/uuid"
)

// Book represents a title in the catalog along with its copy inventory.
// Availability is derived from Count and must be recomputed whenever the
// count changes.
type Book struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BookCode    string    `gorm:"column:book_code;type:text;not null;uniqueIndex"`
	Title       string    `gorm:"column:title;type:text;not null"`
	Author      string    `gorm:"column:author;type:text;not null"`
	Genre       *string   `gorm:"column:genre;type:text"`
	ImageURL    *string   `gorm:"column:image_url;type:text"`
	Count       int       `gorm:"column:count;not null;default:0"`
	IsAvailable bool      `gorm:"column:is_available;not null;default:false"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// RecomputeAvailability syncs the availability flag with the copy count.
func (b *Book) RecomputeAvailability() {
	b.IsAvailable = b.Count > 0
}
