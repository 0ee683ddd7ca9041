package stats

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/libralend/libralend-backend/pkg/db/models"
	"github.com/libralend/libralend-backend/pkg/enums"
)

func approvedLoan(returned, returnRequested bool, penalty decimal.Decimal) models.LendingRequest {
	return models.LendingRequest{
		ID:              uuid.New(),
		UserID:          uuid.New(),
		BookID:          uuid.New(),
		Status:          enums.LendingRequestStatusApproved,
		IsReturned:      returned,
		IsReturnRequest: returnRequested,
		PenaltyAmount:   penalty,
	}
}

func TestComputeUserStatsEmpty(t *testing.T) {
	got := ComputeUserStats(nil)
	if got != (UserStats{}) {
		t.Fatalf("expected zero stats, got %+v", got)
	}
}

func TestComputeUserStats(t *testing.T) {
	rows := []models.LendingRequest{
		{Status: enums.LendingRequestStatusPending},
		{Status: enums.LendingRequestStatusRejected},
		approvedLoan(false, false, decimal.Zero),
		approvedLoan(false, true, decimal.Zero),
		approvedLoan(true, false, decimal.Zero),
		approvedLoan(false, false, decimal.NewFromInt(15)),
	}

	got := ComputeUserStats(rows)
	if got.TotalBorrows != 6 {
		t.Fatalf("total borrows: want 6 got %d", got.TotalBorrows)
	}
	if got.ApprovedBorrows != 4 {
		t.Fatalf("approved borrows: want 4 got %d", got.ApprovedBorrows)
	}
	if got.ActiveBooks != 3 {
		t.Fatalf("active books: want 3 got %d", got.ActiveBooks)
	}
	if got.OverdueBooks != 1 {
		t.Fatalf("overdue books: want 1 got %d", got.OverdueBooks)
	}
}

func TestComputeUserStatsReturnedLoanWithoutReturnRequestStaysActive(t *testing.T) {
	loan := approvedLoan(true, false, decimal.Zero)

	got := ComputeUserStats([]models.LendingRequest{loan})
	if got.ActiveBooks != 1 {
		t.Fatalf("active books: want 1 got %d", got.ActiveBooks)
	}
}

func TestComputeUserStatsPaidPenaltyStillOverdueUntilReturned(t *testing.T) {
	loan := approvedLoan(false, false, decimal.NewFromInt(10))
	loan.IsPaid = true

	got := ComputeUserStats([]models.LendingRequest{loan})
	if got.OverdueBooks != 1 {
		t.Fatalf("overdue books: want 1 got %d", got.OverdueBooks)
	}
}
