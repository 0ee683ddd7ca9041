package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/libralend/libralend-backend/pkg/enums"
)

// LendingRequest is the single record tracking a loan from borrow request to
// return. Return-request fields only become meaningful after approval, and a
// request whose status left pending is part of the processed history.
type LendingRequest struct {
	ID                  uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID              uuid.UUID                  `gorm:"column:user_id;type:uuid;not null;index"`
	BookID              uuid.UUID                  `gorm:"column:book_id;type:uuid;not null;index"`
	Status              enums.LendingRequestStatus `gorm:"column:status;type:lending_request_status;not null;default:'pending'"`
	RequestedAt         time.Time                  `gorm:"column:requested_at;not null"`
	ApprovedAt          *time.Time                 `gorm:"column:approved_at"`
	DueDate             *time.Time                 `gorm:"column:due_date"`
	IsReturned          bool                       `gorm:"column:is_returned;not null;default:false"`
	IsReturnRequest     bool                       `gorm:"column:is_return_request;not null;default:false"`
	ReturnRequestStatus *enums.ReturnRequestStatus `gorm:"column:return_request_status;type:return_request_status"`
	PenaltyAmount       decimal.Decimal            `gorm:"column:penalty_amount;type:numeric(10,2);not null;default:0"`
	IsPaid              bool                       `gorm:"column:is_paid;not null;default:false"`
	ProcessedAt         *time.Time                 `gorm:"column:processed_at"`
	ProcessedBy         *uuid.UUID                 `gorm:"column:processed_by;type:uuid"`
	CreatedAt           time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}

// ReturnClearable reports whether a return can be accepted: any penalty on
// the loan must be settled first.
func (r LendingRequest) ReturnClearable() bool {
	return r.IsPaid || r.PenaltyAmount.LessThanOrEqual(decimal.Zero)
}
