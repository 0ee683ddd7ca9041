package lending

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/libralend/libralend-backend/pkg/db/models"
	"github.com/libralend/libralend-backend/pkg/enums"
	"github.com/libralend/libralend-backend/pkg/pagination"
)

// Repository exposes persistence helpers for the loan workflow.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.LendingRequest) (*models.LendingRequest, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.LendingRequest, error)
	FindDetail(ctx context.Context, id uuid.UUID) (*lendingRequestRecord, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params listRequestsParams) ([]lendingRequestRecord, *pagination.Cursor, error)
	ListAllByUser(ctx context.Context, userID uuid.UUID) ([]models.LendingRequest, error)
	ListOverdueLoans(ctx context.Context, dueBefore time.Time) ([]models.LendingRequest, error)
	HasOpenRequest(ctx context.Context, userID, bookID uuid.UUID) (bool, error)
	FindBook(ctx context.Context, bookID uuid.UUID) (*models.Book, error)
	FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	DecrementBookStock(ctx context.Context, bookID uuid.UUID) (bool, error)
	IncrementBookStock(ctx context.Context, bookID uuid.UUID) error
	AdjustUserBorrowedCount(ctx context.Context, userID uuid.UUID, delta int) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a lending repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

// lendingRequestRecord is the joined row shape for staff-facing listings.
// Display fields are nullable so deleted users or books do not break reads.
type lendingRequestRecord struct {
	ID                  uuid.UUID
	UserID              uuid.UUID
	BookID              uuid.UUID
	Status              enums.LendingRequestStatus
	RequestedAt         time.Time
	ApprovedAt          *time.Time
	DueDate             *time.Time
	IsReturned          bool
	IsReturnRequest     bool
	ReturnRequestStatus *enums.ReturnRequestStatus
	PenaltyAmount       decimal.Decimal
	IsPaid              bool
	ProcessedAt         *time.Time
	CreatedAt           time.Time
	UserName            sql.NullString
	UserEmail           sql.NullString
	BookTitle           sql.NullString
	BookCode            sql.NullString
}

type requestFilter struct {
	UserID         *uuid.UUID
	PendingBorrow  bool
	PendingReturns bool
	PenaltiesOnly  bool
	UnpaidOnly     bool
	HistoryOnly    bool
}

type listRequestsParams struct {
	Limit  int
	Cursor *pagination.Cursor
	Filter requestFilter
}

var requestSelectColumns = strings.Join([]string{
	"lr.id",
	"lr.user_id",
	"lr.book_id",
	"lr.status",
	"lr.requested_at",
	"lr.approved_at",
	"lr.due_date",
	"lr.is_returned",
	"lr.is_return_request",
	"lr.return_request_status",
	"lr.penalty_amount",
	"lr.is_paid",
	"lr.processed_at",
	"lr.created_at",
	"u.name AS user_name",
	"u.email AS user_email",
	"b.title AS book_title",
	"b.book_code AS book_code",
}, ", ")

func (r *repositoryImpl) requestQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("lending_requests lr").
		Select(requestSelectColumns).
		Joins("LEFT JOIN users u ON u.id = lr.user_id").
		Joins("LEFT JOIN books b ON b.id = lr.book_id")
}

func (r *repositoryImpl) Create(ctx context.Context, request *models.LendingRequest) (*models.LendingRequest, error) {
	if err := r.db.WithContext(ctx).Create(request).Error; err != nil {
		return nil, err
	}
	return request, nil
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.LendingRequest, error) {
	var request models.LendingRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repositoryImpl) FindDetail(ctx context.Context, id uuid.UUID) (*lendingRequestRecord, error) {
	var rec lendingRequestRecord
	result := r.requestQuery(ctx).Where("lr.id = ?", id).Limit(1).Scan(&rec)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &rec, nil
}

func (r *repositoryImpl) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.LendingRequest{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.LendingRequest{}).Error
}

func (r *repositoryImpl) List(ctx context.Context, params listRequestsParams) ([]lendingRequestRecord, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	qb := r.requestQuery(ctx)
	filter := params.Filter
	if filter.UserID != nil {
		qb = qb.Where("lr.user_id = ?", *filter.UserID)
	}
	if filter.PendingBorrow {
		qb = qb.Where("lr.status = ?", enums.LendingRequestStatusPending)
	}
	if filter.PendingReturns {
		qb = qb.Where("lr.status = ?", enums.LendingRequestStatusApproved).
			Where("lr.is_return_request = ?", true).
			Where("lr.return_request_status = ?", enums.ReturnRequestStatusPending)
	}
	if filter.PenaltiesOnly {
		qb = qb.Where("lr.penalty_amount > 0")
	}
	if filter.UnpaidOnly {
		qb = qb.Where("lr.is_paid = ?", false)
	}
	if filter.HistoryOnly {
		qb = qb.Where("lr.status IN ?", []enums.LendingRequestStatus{
			enums.LendingRequestStatusApproved,
			enums.LendingRequestStatusRejected,
		})
	}
	if params.Cursor != nil {
		qb = qb.Where("(lr.created_at < ?) OR (lr.created_at = ? AND lr.id < ?)",
			params.Cursor.CreatedAt, params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var records []lendingRequestRecord
	if err := qb.Order("lr.created_at DESC").Order("lr.id DESC").Limit(limit).Scan(&records).Error; err != nil {
		return nil, nil, err
	}

	if len(records) > normalized {
		records = records[:normalized]
		last := records[len(records)-1]
		return records, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return records, nil, nil
}

func (r *repositoryImpl) ListAllByUser(ctx context.Context, userID uuid.UUID) ([]models.LendingRequest, error) {
	var rows []models.LendingRequest
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) ListOverdueLoans(ctx context.Context, dueBefore time.Time) ([]models.LendingRequest, error) {
	var rows []models.LendingRequest
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.LendingRequestStatusApproved).
		Where("is_returned = ?", false).
		Where("due_date IS NOT NULL").
		Where("due_date < ?", dueBefore).
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) HasOpenRequest(ctx context.Context, userID, bookID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.LendingRequest{}).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Where("(status = ? OR (status = ? AND is_returned = ?))",
			enums.LendingRequestStatusPending, enums.LendingRequestStatusApproved, false).
		Count(&count).Error
	return count > 0, err
}

func (r *repositoryImpl) FindBook(ctx context.Context, bookID uuid.UUID) (*models.Book, error) {
	var book models.Book
	if err := r.db.WithContext(ctx).Where("id = ?", bookID).First(&book).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *repositoryImpl) FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// DecrementBookStock takes one copy off the shelf. The guard on count keeps
// concurrent approvals from driving stock negative; false means no copy left.
func (r *repositoryImpl) DecrementBookStock(ctx context.Context, bookID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE books
		SET count = count - 1,
			is_available = (count - 1) > 0,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND count > 0
	`, bookID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repositoryImpl) IncrementBookStock(ctx context.Context, bookID uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE books
		SET count = count + 1,
			is_available = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, true, bookID).Error
}

func (r *repositoryImpl) AdjustUserBorrowedCount(ctx context.Context, userID uuid.UUID, delta int) error {
	if delta == 0 {
		return nil
	}
	if delta > 0 {
		return r.db.WithContext(ctx).Exec(`
			UPDATE users
			SET borrowed_count = borrowed_count + ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, delta, userID).Error
	}
	return r.db.WithContext(ctx).Exec(`
		UPDATE users
		SET borrowed_count = borrowed_count + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND borrowed_count >= ?
	`, delta, userID, -delta).Error
}
