package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/libralend/libralend-backend/pkg/db/models"
)

// UserDTO is the transport shape that omits credentials.
type UserDTO struct {
	ID            uuid.UUID  `json:"id"`
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	BorrowedCount int        `json:"borrowed_count"`
	IsActive      bool       `json:"is_active"`
	SystemRole    *string    `json:"system_role,omitempty"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// UserList wraps a page of members plus the cursor for the next page.
type UserList struct {
	Items  []UserDTO `json:"items"`
	Cursor string    `json:"cursor"`
}

// CreateUserDTO holds the data required by the repo to persist a new member.
type CreateUserDTO struct {
	Email        string
	Name         string
	PasswordHash *string
	SystemRole   *string
	IsActive     *bool
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		BorrowedCount: u.BorrowedCount,
		IsActive:      u.IsActive,
		SystemRole:    u.SystemRole,
		LastLoginAt:   u.LastLoginAt,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func fromModels(rows []models.User) []UserDTO {
	items := make([]UserDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}
	return items
}

func (c CreateUserDTO) ToModel() *models.User {
	isActive := true
	if c.IsActive != nil {
		isActive = *c.IsActive
	}

	return &models.User{
		Email:        c.Email,
		Name:         c.Name,
		PasswordHash: c.PasswordHash,
		SystemRole:   c.SystemRole,
		IsActive:     isActive,
	}
}
