package lending

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/libralend/libralend-backend/pkg/db/models"
	"github.com/libralend/libralend-backend/pkg/enums"
)

// unknownLabel fills display fields when the joined user or book row is gone.
const unknownLabel = "Unknown"

// LendingRequestDTO is the staff-facing shape of a loan record with the
// borrower and book display fields denormalized in.
type LendingRequestDTO struct {
	ID                  uuid.UUID                  `json:"id"`
	UserID              uuid.UUID                  `json:"user_id"`
	UserName            string                     `json:"user_name"`
	UserEmail           string                     `json:"user_email"`
	BookID              uuid.UUID                  `json:"book_id"`
	BookTitle           string                     `json:"book_title"`
	BookCode            string                     `json:"book_code"`
	Status              enums.LendingRequestStatus `json:"status"`
	RequestedAt         time.Time                  `json:"requested_at"`
	ApprovedAt          *time.Time                 `json:"approved_at,omitempty"`
	DueDate             *time.Time                 `json:"due_date,omitempty"`
	IsReturned          bool                       `json:"is_returned"`
	IsReturnRequest     bool                       `json:"is_return_request"`
	ReturnRequestStatus *enums.ReturnRequestStatus `json:"return_request_status,omitempty"`
	PenaltyAmount       decimal.Decimal            `json:"penalty_amount"`
	IsPaid              bool                       `json:"is_paid"`
	CanApprove          bool                       `json:"can_approve"`
	ProcessedAt         *time.Time                 `json:"processed_at,omitempty"`
	CreatedAt           time.Time                  `json:"created_at"`
}

// LendingRequestList wraps a page of requests plus the cursor for the next page.
type LendingRequestList struct {
	Items  []LendingRequestDTO `json:"items"`
	Cursor string              `json:"cursor"`
}

// BorrowOutcome distinguishes a granted approval from a request dropped
// because the last copy was already gone.
type BorrowOutcome string

const (
	BorrowOutcomeApproved    BorrowOutcome = "approved"
	BorrowOutcomeUnavailable BorrowOutcome = "unavailable"
)

// BorrowDecisionDTO reports what happened to an approval attempt. Request is
// nil when the record was dropped for lack of stock.
type BorrowDecisionDTO struct {
	Outcome BorrowOutcome      `json:"outcome"`
	Request *LendingRequestDTO `json:"request,omitempty"`
	Message string             `json:"message,omitempty"`
}

func toRequestDTO(rec lendingRequestRecord) LendingRequestDTO {
	dto := LendingRequestDTO{
		ID:                  rec.ID,
		UserID:              rec.UserID,
		UserName:            unknownLabel,
		UserEmail:           unknownLabel,
		BookID:              rec.BookID,
		BookTitle:           unknownLabel,
		BookCode:            unknownLabel,
		Status:              rec.Status,
		RequestedAt:         rec.RequestedAt,
		ApprovedAt:          rec.ApprovedAt,
		DueDate:             rec.DueDate,
		IsReturned:          rec.IsReturned,
		IsReturnRequest:     rec.IsReturnRequest,
		ReturnRequestStatus: rec.ReturnRequestStatus,
		PenaltyAmount:       rec.PenaltyAmount,
		IsPaid:              rec.IsPaid,
		CanApprove:          models.LendingRequest{PenaltyAmount: rec.PenaltyAmount, IsPaid: rec.IsPaid}.ReturnClearable(),
		ProcessedAt:         rec.ProcessedAt,
		CreatedAt:           rec.CreatedAt,
	}
	if rec.UserName.Valid && rec.UserName.String != "" {
		dto.UserName = rec.UserName.String
	}
	if rec.UserEmail.Valid && rec.UserEmail.String != "" {
		dto.UserEmail = rec.UserEmail.String
	}
	if rec.BookTitle.Valid && rec.BookTitle.String != "" {
		dto.BookTitle = rec.BookTitle.String
	}
	if rec.BookCode.Valid && rec.BookCode.String != "" {
		dto.BookCode = rec.BookCode.String
	}
	return dto
}

func toRequestDTOs(recs []lendingRequestRecord) []LendingRequestDTO {
	items := make([]LendingRequestDTO, 0, len(recs))
	for _, rec := range recs {
		items = append(items, toRequestDTO(rec))
	}
	return items
}
