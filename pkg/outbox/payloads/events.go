package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/libralend/libralend-backend/pkg/enums"
)

// BorrowDecisionEvent is emitted when staff approve or reject a borrow request.
type BorrowDecisionEvent struct {
	RequestID uuid.UUID                  `json:"request_id"`
	UserID    uuid.UUID                  `json:"user_id"`
	BookID    uuid.UUID                  `json:"book_id"`
	Status    enums.LendingRequestStatus `json:"status"`
	DueDate   *time.Time                 `json:"due_date,omitempty"`
}

// BorrowDroppedEvent reports a borrow request deleted because the last copy
// was gone by the time staff approved it.
type BorrowDroppedEvent struct {
	RequestID uuid.UUID `json:"request_id"`
	UserID    uuid.UUID `json:"user_id"`
	BookID    uuid.UUID `json:"book_id"`
	BookTitle string    `json:"book_title,omitempty"`
}

// ReturnDecisionEvent is emitted when staff process a return request.
type ReturnDecisionEvent struct {
	RequestID uuid.UUID                 `json:"request_id"`
	UserID    uuid.UUID                 `json:"user_id"`
	BookID    uuid.UUID                 `json:"book_id"`
	Status    enums.ReturnRequestStatus `json:"status"`
}

// PenaltyAssessedEvent carries a newly computed overdue fine.
type PenaltyAssessedEvent struct {
	RequestID   uuid.UUID       `json:"request_id"`
	UserID      uuid.UUID       `json:"user_id"`
	BookID      uuid.UUID       `json:"book_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	DaysOverdue int             `json:"days_overdue"`
	DueDate     time.Time       `json:"due_date"`
}

// PenaltyPaidEvent is emitted when staff mark a fine as settled.
type PenaltyPaidEvent struct {
	RequestID uuid.UUID       `json:"request_id"`
	UserID    uuid.UUID       `json:"user_id"`
	BookID    uuid.UUID       `json:"book_id"`
	Amount    decimal.Decimal `json:"amount"`
	PaidAt    time.Time       `json:"paid_at"`
}

// BookInventoryEvent reports catalog changes: creation, edits, restocks,
// and removals.
type BookInventoryEvent struct {
	BookID   uuid.UUID `json:"book_id"`
	BookCode string    `json:"book_code"`
	Title    string    `json:"title"`
	Count    int       `json:"count"`
}

// AlertRequestedEvent tells the alert consumer to materialize a message for
// a borrower.
type AlertRequestedEvent struct {
	UserID  uuid.UUID       `json:"user_id"`
	BookID  *uuid.UUID      `json:"book_id,omitempty"`
	Type    enums.AlertType `json:"type"`
	Message string          `json:"message"`
}
