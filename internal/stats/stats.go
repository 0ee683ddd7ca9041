package stats

import (
	"github.com/shopspring/decimal"

	"github.com/libralend/libralend-backend/pkg/db/models"
	"github.com/libralend/libralend-backend/pkg/enums"
)

// UserStats summarizes one borrower's lending activity.
type UserStats struct {
	TotalBorrows    int `json:"total_borrows"`
	ApprovedBorrows int `json:"approved_borrows"`
	ActiveBooks     int `json:"active_books"`
	OverdueBooks    int `json:"overdue_books"`
}

// ComputeUserStats derives the borrower summary from their full request
// history. Overdue counts loans carrying an unsettled penalty rather than
// comparing clocks, so the figure matches the penalty listings exactly.
func ComputeUserStats(rows []models.LendingRequest) UserStats {
	var out UserStats
	out.TotalBorrows = len(rows)
	for _, row := range rows {
		if row.Status != enums.LendingRequestStatusApproved {
			continue
		}
		out.ApprovedBorrows++
		if !row.IsReturnRequest {
			out.ActiveBooks++
		}
		if !row.IsReturned && row.PenaltyAmount.GreaterThan(decimal.Zero) {
			out.OverdueBooks++
		}
	}
	return out
}
