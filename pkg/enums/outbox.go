package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateLendingRequest OutboxAggregateType = "lending_request"
	AggregateBook           OutboxAggregateType = "book"
	AggregateUser           OutboxAggregateType = "user"
	AggregateAlert          OutboxAggregateType = "alert"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateLendingRequest,
	AggregateBook,
	AggregateUser,
	AggregateAlert,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventBorrowApproved   OutboxEventType = "borrow_approved"
	EventBorrowRejected   OutboxEventType = "borrow_rejected"
	EventBorrowDropped    OutboxEventType = "borrow_dropped"
	EventReturnApproved   OutboxEventType = "return_approved"
	EventReturnRejected   OutboxEventType = "return_rejected"
	EventPenaltyAssessed  OutboxEventType = "penalty_assessed"
	EventPenaltyPaid      OutboxEventType = "penalty_paid"
	EventBookCreated      OutboxEventType = "book_created"
	EventBookUpdated      OutboxEventType = "book_updated"
	EventBookRestocked    OutboxEventType = "book_restocked"
	EventBookRemoved      OutboxEventType = "book_removed"
	EventAlertRequested   OutboxEventType = "alert_requested"
)

var validOutboxEventTypes = []OutboxEventType{
	EventBorrowApproved,
	EventBorrowRejected,
	EventBorrowDropped,
	EventReturnApproved,
	EventReturnRejected,
	EventPenaltyAssessed,
	EventPenaltyPaid,
	EventBookCreated,
	EventBookUpdated,
	EventBookRestocked,
	EventBookRemoved,
	EventAlertRequested,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
