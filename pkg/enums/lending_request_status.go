package enums

import "fmt"

// LendingRequestStatus tracks the lifecycle of a borrow request.
type LendingRequestStatus string

const (
	LendingRequestStatusPending  LendingRequestStatus = "pending"
	LendingRequestStatusApproved LendingRequestStatus = "approved"
	LendingRequestStatusRejected LendingRequestStatus = "rejected"
)

var validLendingRequestStatuses = []LendingRequestStatus{
	LendingRequestStatusPending,
	LendingRequestStatusApproved,
	LendingRequestStatusRejected,
}

// String implements fmt.Stringer.
func (s LendingRequestStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known LendingRequestStatus.
func (s LendingRequestStatus) IsValid() bool {
	for _, candidate := range validLendingRequestStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseLendingRequestStatus converts raw input into a LendingRequestStatus.
func ParseLendingRequestStatus(value string) (LendingRequestStatus, error) {
	for _, candidate := range validLendingRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid lending request status %q", value)
}
