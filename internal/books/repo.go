package books

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/libralend/libralend-backend/pkg/db/models"
	"github.com/libralend/libralend-backend/pkg/enums"
	"github.com/libralend/libralend-backend/pkg/pagination"
)

// Repository defines persistence operations for the book catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, book *models.Book) (*models.Book, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Book, error)
	FindByCode(ctx context.Context, code string) (*models.Book, error)
	List(ctx context.Context, params listBooksParams) ([]models.Book, *pagination.Cursor, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountOpenLoans(ctx context.Context, bookID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a books repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

type listBooksParams struct {
	Limit         int
	Cursor        *pagination.Cursor
	Search        string
	AvailableOnly bool
}

func (r *repository) Create(ctx context.Context, book *models.Book) (*models.Book, error) {
	if err := r.db.WithContext(ctx).Create(book).Error; err != nil {
		return nil, err
	}
	return book, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	var book models.Book
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&book).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Book, error) {
	var book models.Book
	err := r.db.WithContext(ctx).Where("book_code = ?", code).First(&book).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *repository) List(ctx context.Context, params listBooksParams) ([]models.Book, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.Book{})
	if params.Search != "" {
		pattern := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where("(LOWER(title) LIKE ? OR LOWER(author) LIKE ? OR LOWER(book_code) LIKE ?)", pattern, pattern, pattern)
	}
	if params.AvailableOnly {
		query = query.Where("is_available = ?", true)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.Book
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	if len(rows) > normalized {
		rows = rows[:normalized]
		last := rows[len(rows)-1]
		return rows, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return rows, nil, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Book{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Book{}).Error
}

func (r *repository) CountOpenLoans(ctx context.Context, bookID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.LendingRequest{}).
		Where("book_id = ? AND status = ? AND is_returned = ?", bookID, enums.LendingRequestStatusApproved, false).
		Count(&count).Error
	return count, err
}
