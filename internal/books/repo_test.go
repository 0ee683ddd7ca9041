package books

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/libralend/libralend-backend/pkg/db/models"
)

func setupBooksTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	books := `
CREATE TABLE IF NOT EXISTS books (
  id TEXT PRIMARY KEY,
  book_code TEXT NOT NULL UNIQUE,
  title TEXT NOT NULL,
  author TEXT NOT NULL,
  genre TEXT,
  image_url TEXT,
  count INTEGER NOT NULL DEFAULT 0,
  is_available INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	lendingRequests := `
CREATE TABLE IF NOT EXISTS lending_requests (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  book_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  requested_at DATETIME,
  approved_at DATETIME,
  due_date DATETIME,
  is_returned INTEGER NOT NULL DEFAULT 0,
  is_return_request INTEGER NOT NULL DEFAULT 0,
  return_request_status TEXT,
  penalty_amount TEXT NOT NULL DEFAULT '0',
  is_paid INTEGER NOT NULL DEFAULT 0,
  processed_at DATETIME,
  processed_by TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(`DROP TABLE IF EXISTS books`).Error)
	require.NoError(t, db.Exec(`DROP TABLE IF EXISTS lending_requests`).Error)
	require.NoError(t, db.Exec(books).Error)
	require.NoError(t, db.Exec(lendingRequests).Error)
	return db
}

func seedBook(t *testing.T, db *gorm.DB, code, title string, count int, created time.Time) *models.Book {
	t.Helper()

	book := &models.Book{
		ID:          uuid.New(),
		BookCode:    code,
		Title:       title,
		Author:      "Author " + code,
		Count:       count,
		IsAvailable: count > 0,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	require.NoError(t, db.Create(book).Error)
	return book
}

func TestBooksRepoCreateAndFind(t *testing.T) {
	db := setupBooksTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	book := &models.Book{
		ID:          uuid.New(),
		BookCode:    "LB-100",
		Title:       "Repository Patterns",
		Author:      "Fowler",
		Count:       2,
		IsAvailable: true,
	}
	_, err := repo.Create(ctx, book)
	require.NoError(t, err)

	byID, err := repo.FindByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "LB-100", byID.BookCode)

	byCode, err := repo.FindByCode(ctx, "LB-100")
	require.NoError(t, err)
	assert.Equal(t, book.ID, byCode.ID)

	_, err = repo.FindByCode(ctx, "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestBooksRepoListPagination(t *testing.T) {
	db := setupBooksTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 3; i++ {
		seedBook(t, db, uuid.NewString()[:8], "Paged", 1, base.Add(time.Duration(i)*time.Minute))
	}

	first, cursor, err := repo.List(ctx, listBooksParams{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.NotNil(t, cursor)

	second, next, err := repo.List(ctx, listBooksParams{Limit: 2, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Nil(t, next)

	// Newest first, no overlap between pages.
	assert.True(t, first[0].CreatedAt.After(first[1].CreatedAt) || first[0].CreatedAt.Equal(first[1].CreatedAt))
	for _, row := range second {
		assert.NotEqual(t, first[0].ID, row.ID)
		assert.NotEqual(t, first[1].ID, row.ID)
	}
}

func TestBooksRepoListAvailableOnly(t *testing.T) {
	db := setupBooksTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	seedBook(t, db, "LB-200", "In Stock", 1, now)
	seedBook(t, db, "LB-201", "Out of Stock", 0, now.Add(time.Second))

	rows, _, err := repo.List(ctx, listBooksParams{AvailableOnly: true})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "LB-200", rows[0].BookCode)
}

func TestBooksRepoUpdateAndDelete(t *testing.T) {
	db := setupBooksTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	book := seedBook(t, db, "LB-300", "Mutable", 1, time.Now().UTC())

	require.NoError(t, repo.Update(ctx, book.ID, map[string]any{"count": 5, "is_available": true}))
	updated, err := repo.FindByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Count)

	require.NoError(t, repo.Delete(ctx, book.ID))
	_, err = repo.FindByID(ctx, book.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestBooksRepoCountOpenLoans(t *testing.T) {
	db := setupBooksTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	book := seedBook(t, db, "LB-400", "Counted", 1, time.Now().UTC())

	open := &models.LendingRequest{
		ID:     uuid.New(),
		UserID: uuid.New(),
		BookID: book.ID,
		Status: "approved",
	}
	require.NoError(t, db.Create(open).Error)

	returned := &models.LendingRequest{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		BookID:     book.ID,
		Status:     "approved",
		IsReturned: true,
	}
	require.NoError(t, db.Create(returned).Error)

	count, err := repo.CountOpenLoans(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
