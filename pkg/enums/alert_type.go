package enums

import "fmt"

// AlertType maps to the alert_type enum in Postgres.
type AlertType string

const (
	AlertTypeBorrowApproved  AlertType = "borrow_approved"
	AlertTypeBorrowRejected  AlertType = "borrow_rejected"
	AlertTypeBookUnavailable AlertType = "book_unavailable"
	AlertTypeReturnApproved  AlertType = "return_approved"
	AlertTypeReturnRejected  AlertType = "return_rejected"
	AlertTypePenaltyAssessed AlertType = "penalty_assessed"
	AlertTypePenaltyPaid     AlertType = "penalty_paid"
)

var validAlertTypes = []AlertType{
	AlertTypeBorrowApproved,
	AlertTypeBorrowRejected,
	AlertTypeBookUnavailable,
	AlertTypeReturnApproved,
	AlertTypeReturnRejected,
	AlertTypePenaltyAssessed,
	AlertTypePenaltyPaid,
}

// IsValid checks whether the given type matches the canonical enum.
func (a AlertType) IsValid() bool {
	for _, candidate := range validAlertTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAlertType converts raw strings into AlertType.
func ParseAlertType(value string) (AlertType, error) {
	for _, candidate := range validAlertTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid alert type %q", value)
}
