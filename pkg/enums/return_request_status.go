package enums

import "fmt"

// ReturnRequestStatus tracks the decision on a borrower's return request.
// Empty means no return has ever been requested for the loan.
type ReturnRequestStatus string

const (
	ReturnRequestStatusPending  ReturnRequestStatus = "pending"
	ReturnRequestStatusApproved ReturnRequestStatus = "approved"
	ReturnRequestStatusRejected ReturnRequestStatus = "rejected"
)

var validReturnRequestStatuses = []ReturnRequestStatus{
	ReturnRequestStatusPending,
	ReturnRequestStatusApproved,
	ReturnRequestStatusRejected,
}

// String implements fmt.Stringer.
func (s ReturnRequestStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ReturnRequestStatus.
func (s ReturnRequestStatus) IsValid() bool {
	for _, candidate := range validReturnRequestStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseReturnRequestStatus converts raw input into a ReturnRequestStatus.
func ParseReturnRequestStatus(value string) (ReturnRequestStatus, error) {
	for _, candidate := range validReturnRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid return request status %q", value)
}
