package users

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/libralend/libralend-backend/pkg/db/models"
)

func setupUsersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	users := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  borrowed_count INTEGER NOT NULL DEFAULT 0,
  password_hash TEXT,
  system_role TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(`DROP TABLE IF EXISTS users`).Error)
	require.NoError(t, db.Exec(users).Error)
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email, name string, created time.Time) *models.User {
	t.Helper()

	user := &models.User{
		ID:        uuid.New(),
		Email:     email,
		Name:      name,
		IsActive:  true,
		CreatedAt: created,
		UpdatedAt: created,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestUsersRepoCreateAndLookup(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, CreateUserDTO{Email: "reader@example.com", Name: "Reader"})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)
	assert.True(t, created.IsActive)

	byEmail, err := repo.FindByEmail(ctx, "reader@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	byID, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Reader", byID.Name)
}

func TestUsersRepoListSearchAndPagination(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 3; i++ {
		seedUser(t, db, fmt.Sprintf("member%d@example.com", i), fmt.Sprintf("Member %d", i), base.Add(time.Duration(i)*time.Minute))
	}
	seedUser(t, db, "other@example.com", "Someone Else", base.Add(time.Hour))

	matched, _, err := repo.List(ctx, listUsersParams{Search: "member"})
	require.NoError(t, err)
	assert.Len(t, matched, 3)

	first, cursor, err := repo.List(ctx, listUsersParams{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.NotNil(t, cursor)

	rest, next, err := repo.List(ctx, listUsersParams{Limit: 2, Cursor: cursor})
	require.NoError(t, err)
	assert.Len(t, rest, 2)
	assert.Nil(t, next)
}

func TestUsersRepoIncrementBorrowedCountClampsAtZero(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	user := seedUser(t, db, "counter@example.com", "Counter", time.Now().UTC())

	require.NoError(t, repo.IncrementBorrowedCount(ctx, user.ID, 2))
	loaded, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.BorrowedCount)

	require.NoError(t, repo.IncrementBorrowedCount(ctx, user.ID, -1))
	loaded, err = repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.BorrowedCount)

	// A decrement past zero must not apply.
	require.NoError(t, repo.IncrementBorrowedCount(ctx, user.ID, -5))
	loaded, err = repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.BorrowedCount)
}

func TestUsersRepoSetActiveAndLastLogin(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	user := seedUser(t, db, "flags@example.com", "Flags", time.Now().UTC())

	require.NoError(t, repo.SetActive(ctx, user.ID, false))
	loaded, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, loaded.IsActive)

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.UpdateLastLogin(ctx, user.ID, at))
	loaded, err = repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.LastLoginAt)
	assert.WithinDuration(t, at, *loaded.LastLoginAt, time.Second)
}
