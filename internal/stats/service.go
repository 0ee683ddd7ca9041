package stats

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/libralend/libralend-backend/pkg/db/models"
	"github.com/libralend/libralend-backend/pkg/enums"
	pkgerrors "github.com/libralend/libralend-backend/pkg/errors"
)

// CatalogStats is the library-wide dashboard summary.
type CatalogStats struct {
	TotalBooks            int64           `json:"total_books"`
	TotalCopies           int64           `json:"total_copies"`
	AvailableBooks        int64           `json:"available_books"`
	OutOfStockBooks       int64           `json:"out_of_stock_books"`
	TotalMembers          int64           `json:"total_members"`
	ActiveLoans           int64           `json:"active_loans"`
	PendingBorrowRequests int64           `json:"pending_borrow_requests"`
	PendingReturnRequests int64           `json:"pending_return_requests"`
	UnpaidPenaltyTotal    decimal.Decimal `json:"unpaid_penalty_total"`
}

// Service computes dashboard summaries straight from the database.
type Service interface {
	Catalog(ctx context.Context) (*CatalogStats, error)
}

type service struct {
	db *gorm.DB
}

// NewService builds a stats service bound to the provided database handle.
func NewService(db *gorm.DB) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle required")
	}
	return &service{db: db}, nil
}

func (s *service) Catalog(ctx context.Context) (*CatalogStats, error) {
	out := &CatalogStats{UnpaidPenaltyTotal: decimal.Zero}

	if err := s.db.WithContext(ctx).Model(&models.Book{}).Count(&out.TotalBooks).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count books")
	}

	var copies sql.NullInt64
	if err := s.db.WithContext(ctx).Model(&models.Book{}).
		Select("COALESCE(SUM(count), 0)").Scan(&copies).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum copies")
	}
	out.TotalCopies = copies.Int64

	if err := s.db.WithContext(ctx).Model(&models.Book{}).
		Where("is_available = ?", true).Count(&out.AvailableBooks).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count available books")
	}

	if err := s.db.WithContext(ctx).Model(&models.Book{}).
		Where("count = ?", 0).Count(&out.OutOfStockBooks).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count out of stock books")
	}

	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("password_hash IS NULL").Count(&out.TotalMembers).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count members")
	}

	if err := s.db.WithContext(ctx).Model(&models.LendingRequest{}).
		Where("status = ? AND is_returned = ?", enums.LendingRequestStatusApproved, false).
		Count(&out.ActiveLoans).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active loans")
	}

	if err := s.db.WithContext(ctx).Model(&models.LendingRequest{}).
		Where("status = ?", enums.LendingRequestStatusPending).
		Count(&out.PendingBorrowRequests).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count pending borrows")
	}

	if err := s.db.WithContext(ctx).Model(&models.LendingRequest{}).
		Where("is_return_request = ? AND return_request_status = ?", true, enums.ReturnRequestStatusPending).
		Count(&out.PendingReturnRequests).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count pending returns")
	}

	var unpaid sql.NullString
	if err := s.db.WithContext(ctx).Model(&models.LendingRequest{}).
		Select("COALESCE(SUM(penalty_amount), 0)").
		Where("penalty_amount > 0 AND is_paid = ?", false).
		Scan(&unpaid).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum unpaid penalties")
	}
	if unpaid.Valid && unpaid.String != "" {
		total, err := decimal.NewFromString(unpaid.String)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "parse penalty total")
		}
		out.UnpaidPenaltyTotal = total
	}

	return out, nil
}
