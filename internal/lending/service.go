package lending

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/libralend/libralend-backend/internal/stats"
	"github.com/libralend/libralend-backend/pkg/config"
	"github.com/libralend/libralend-backend/pkg/db/models"
	"github.com/libralend/libralend-backend/pkg/enums"
	pkgerrors "github.com/libralend/libralend-backend/pkg/errors"
	"github.com/libralend/libralend-backend/pkg/outbox"
	"github.com/libralend/libralend-backend/pkg/outbox/payloads"
	"github.com/libralend/libralend-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// alertWriter persists borrower alerts inside the caller's transaction.
type alertWriter interface {
	Create(ctx context.Context, tx *gorm.DB, alert *models.Alert) error
}

// Actor identifies the staff member deciding a request.
type Actor struct {
	UserID uuid.UUID
	Role   enums.StaffRole
}

// Service drives the loan workflow from borrow request to settled return.
type Service interface {
	CreateBorrowRequest(ctx context.Context, userID, bookID uuid.UUID) (*LendingRequestDTO, error)
	ApproveBorrow(ctx context.Context, actor Actor, requestID uuid.UUID) (*BorrowDecisionDTO, error)
	RejectBorrow(ctx context.Context, actor Actor, requestID uuid.UUID) (*LendingRequestDTO, error)
	RequestReturn(ctx context.Context, requestID uuid.UUID) (*LendingRequestDTO, error)
	ProcessReturn(ctx context.Context, actor Actor, requestID uuid.UUID, approve bool) (*LendingRequestDTO, error)
	MarkPenaltyPaid(ctx context.Context, actor Actor, requestID uuid.UUID) (*LendingRequestDTO, error)
	AssessPenalties(ctx context.Context, asOf time.Time) (int, error)
	GetRequest(ctx context.Context, requestID uuid.UUID) (*LendingRequestDTO, error)
	PendingBorrowRequests(ctx context.Context, params pagination.Params) (*LendingRequestList, error)
	PendingReturnRequests(ctx context.Context, params pagination.Params) (*LendingRequestList, error)
	Penalties(ctx context.Context, params pagination.Params, unpaidOnly bool) (*LendingRequestList, error)
	History(ctx context.Context, params pagination.Params, userID *uuid.UUID) (*LendingRequestList, error)
	UserRequests(ctx context.Context, userID uuid.UUID, params pagination.Params) (*LendingRequestList, error)
	UserStats(ctx context.Context, userID uuid.UUID) (*stats.UserStats, error)
}

type service struct {
	repo        Repository
	tx          txRunner
	outbox      outboxPublisher
	alerts      alertWriter
	loanPeriod  time.Duration
	penaltyRate decimal.Decimal
	graceDays   int
	currency    string
}

// NewService builds the lending service from its dependencies and loan policy.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, alerts alertWriter, cfg config.LendingConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("lending repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if alerts == nil {
		return nil, fmt.Errorf("alert writer required")
	}
	rate, err := decimal.NewFromString(cfg.PenaltyDailyRate)
	if err != nil {
		return nil, fmt.Errorf("invalid penalty daily rate %q: %w", cfg.PenaltyDailyRate, err)
	}
	if rate.IsNegative() {
		return nil, fmt.Errorf("penalty daily rate must not be negative")
	}
	loanPeriod := cfg.LoanPeriod()
	if loanPeriod <= 0 {
		return nil, fmt.Errorf("loan period must be positive")
	}
	return &service{
		repo:        repo,
		tx:          tx,
		outbox:      outboxSvc,
		alerts:      alerts,
		loanPeriod:  loanPeriod,
		penaltyRate: rate,
		graceDays:   cfg.PenaltyGraceDays,
		currency:    cfg.PenaltyCurrencyCode,
	}, nil
}

func (s *service) CreateBorrowRequest(ctx context.Context, userID, bookID uuid.UUID) (*LendingRequestDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if bookID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "book id required")
	}

	user, err := s.repo.FindUser(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "user account is inactive")
	}

	book, err := s.repo.FindBook(ctx, bookID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load book")
	}
	if !book.IsAvailable {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "book is not available")
	}

	open, err := s.repo.HasOpenRequest(ctx, userID, bookID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check open requests")
	}
	if open {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "an open request for this book already exists")
	}

	request := &models.LendingRequest{
		ID:          uuid.New(),
		UserID:      userID,
		BookID:      bookID,
		Status:      enums.LendingRequestStatusPending,
		RequestedAt: time.Now().UTC(),
	}
	if _, err := s.repo.Create(ctx, request); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist request")
	}
	return s.loadDTO(ctx, request.ID)
}

func (s *service) ApproveBorrow(ctx context.Context, actor Actor, requestID uuid.UUID) (*BorrowDecisionDTO, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if requestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}

	var decision *BorrowDecisionDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		detail, err := repo.FindDetail(ctx, requestID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
		}
		if detail.Status == enums.LendingRequestStatusApproved {
			dto := toRequestDTO(*detail)
			decision = &BorrowDecisionDTO{Outcome: BorrowOutcomeApproved, Request: &dto}
			return nil
		}
		if detail.Status != enums.LendingRequestStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "request is not pending")
		}

		granted, err := repo.DecrementBookStock(ctx, detail.BookID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
		}

		bookTitle := unknownLabel
		if detail.BookTitle.Valid && detail.BookTitle.String != "" {
			bookTitle = detail.BookTitle.String
		}

		if !granted {
			// Out of copies: the request is dropped rather than left pending.
			if err := repo.Delete(ctx, detail.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "drop request")
			}
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventBorrowDropped,
				AggregateType: enums.AggregateLendingRequest,
				AggregateID:   detail.ID,
				Version:       1,
				Actor:         buildActor(actor),
				Data: payloads.BorrowDroppedEvent{
					RequestID: detail.ID,
					UserID:    detail.UserID,
					BookID:    detail.BookID,
					BookTitle: bookTitle,
				},
			}); err != nil {
				return err
			}
			bookID := detail.BookID
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventAlertRequested,
				AggregateType: enums.AggregateUser,
				AggregateID:   detail.UserID,
				Version:       1,
				Actor:         buildActor(actor),
				Data: payloads.AlertRequestedEvent{
					UserID:  detail.UserID,
					BookID:  &bookID,
					Type:    enums.AlertTypeBookUnavailable,
					Message: fmt.Sprintf("%q is no longer available; your borrow request was removed.", bookTitle),
				},
			}); err != nil {
				return err
			}
			decision = &BorrowDecisionDTO{Outcome: BorrowOutcomeUnavailable, Message: "book unavailable"}
			return nil
		}

		now := time.Now().UTC()
		due := now.Add(s.loanPeriod)
		updates := map[string]any{
			"status":            enums.LendingRequestStatusApproved,
			"approved_at":       now,
			"due_date":          due,
			"penalty_amount":    decimal.Zero,
			"is_paid":           false,
			"is_return_request": false,
			"processed_at":      now,
			"processed_by":      actor.UserID,
		}
		if err := repo.Update(ctx, detail.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve request")
		}
		if err := repo.AdjustUserBorrowedCount(ctx, detail.UserID, 1); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bump borrowed count")
		}

		bookID := detail.BookID
		if err := s.alerts.Create(ctx, tx, &models.Alert{
			UserID:  detail.UserID,
			BookID:  &bookID,
			Type:    enums.AlertTypeBorrowApproved,
			Message: fmt.Sprintf("Your borrow request for %q was approved. Due back by %s.", bookTitle, due.Format("Jan 2, 2006")),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create alert")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBorrowApproved,
			AggregateType: enums.AggregateLendingRequest,
			AggregateID:   detail.ID,
			Version:       1,
			Actor:         buildActor(actor),
			Data: payloads.BorrowDecisionEvent{
				RequestID: detail.ID,
				UserID:    detail.UserID,
				BookID:    detail.BookID,
				Status:    enums.LendingRequestStatusApproved,
				DueDate:   &due,
			},
		}); err != nil {
			return err
		}

		updated, err := repo.FindDetail(ctx, detail.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload request")
		}
		dto := toRequestDTO(*updated)
		decision = &BorrowDecisionDTO{Outcome: BorrowOutcomeApproved, Request: &dto}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decision, nil
}

func (s *service) RejectBorrow(ctx context.Context, actor Actor, requestID uuid.UUID) (*LendingRequestDTO, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if requestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}

	var dto *LendingRequestDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		detail, err := repo.FindDetail(ctx, requestID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
		}
		if detail.Status == enums.LendingRequestStatusRejected {
			mapped := toRequestDTO(*detail)
			dto = &mapped
			return nil
		}
		if detail.Status != enums.LendingRequestStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "request is not pending")
		}

		now := time.Now().UTC()
		updates := map[string]any{
			"status":       enums.LendingRequestStatusRejected,
			"processed_at": now,
			"processed_by": actor.UserID,
		}
		if err := repo.Update(ctx, detail.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject request")
		}

		bookTitle := unknownLabel
		if detail.BookTitle.Valid && detail.BookTitle.String != "" {
			bookTitle = detail.BookTitle.String
		}
		bookID := detail.BookID
		if err := s.alerts.Create(ctx, tx, &models.Alert{
			UserID:  detail.UserID,
			BookID:  &bookID,
			Type:    enums.AlertTypeBorrowRejected,
			Message: fmt.Sprintf("Your borrow request for %q was rejected.", bookTitle),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create alert")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBorrowRejected,
			AggregateType: enums.AggregateLendingRequest,
			AggregateID:   detail.ID,
			Version:       1,
			Actor:         buildActor(actor),
			Data: payloads.BorrowDecisionEvent{
				RequestID: detail.ID,
				UserID:    detail.UserID,
				BookID:    detail.BookID,
				Status:    enums.LendingRequestStatusRejected,
			},
		}); err != nil {
			return err
		}

		updated, err := repo.FindDetail(ctx, detail.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload request")
		}
		mapped := toRequestDTO(*updated)
		dto = &mapped
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func (s *service) RequestReturn(ctx context.Context, requestID uuid.UUID) (*LendingRequestDTO, error) {
	if requestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}

	request, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
	}
	if request.Status != enums.LendingRequestStatusApproved || request.IsReturned {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "loan is not active")
	}
	if request.IsReturnRequest {
		return s.loadDTO(ctx, request.ID)
	}

	pending := enums.ReturnRequestStatusPending
	updates := map[string]any{
		"is_return_request":     true,
		"return_request_status": pending,
	}
	if err := s.repo.Update(ctx, request.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "flag return request")
	}
	return s.loadDTO(ctx, request.ID)
}

func (s *service) ProcessReturn(ctx context.Context, actor Actor, requestID uuid.UUID, approve bool) (*LendingRequestDTO, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if requestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}

	var dto *LendingRequestDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		detail, err := repo.FindDetail(ctx, requestID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
		}
		if detail.IsReturned {
			mapped := toRequestDTO(*detail)
			dto = &mapped
			return nil
		}
		if detail.Status != enums.LendingRequestStatusApproved || !detail.IsReturnRequest {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "no pending return request")
		}

		now := time.Now().UTC()
		bookTitle := unknownLabel
		if detail.BookTitle.Valid && detail.BookTitle.String != "" {
			bookTitle = detail.BookTitle.String
		}
		bookID := detail.BookID

		if approve {
			if !detail.IsPaid && detail.PenaltyAmount.GreaterThan(decimal.Zero) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "penalty must be paid before the return is accepted")
			}
			if err := repo.IncrementBookStock(ctx, detail.BookID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore stock")
			}
			approved := enums.ReturnRequestStatusApproved
			updates := map[string]any{
				"is_returned":           true,
				"is_return_request":     false,
				"return_request_status": approved,
				"is_paid":               true,
				"processed_at":          now,
				"processed_by":          actor.UserID,
			}
			if err := repo.Update(ctx, detail.ID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accept return")
			}
			if err := repo.AdjustUserBorrowedCount(ctx, detail.UserID, -1); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "drop borrowed count")
			}
			if err := s.alerts.Create(ctx, tx, &models.Alert{
				UserID:  detail.UserID,
				BookID:  &bookID,
				Type:    enums.AlertTypeReturnApproved,
				Message: fmt.Sprintf("Your return of %q was accepted. Thanks for bringing it back.", bookTitle),
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create alert")
			}
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventReturnApproved,
				AggregateType: enums.AggregateLendingRequest,
				AggregateID:   detail.ID,
				Version:       1,
				Actor:         buildActor(actor),
				Data: payloads.ReturnDecisionEvent{
					RequestID: detail.ID,
					UserID:    detail.UserID,
					BookID:    detail.BookID,
					Status:    enums.ReturnRequestStatusApproved,
				},
			}); err != nil {
				return err
			}
		} else {
			rejected := enums.ReturnRequestStatusRejected
			updates := map[string]any{
				"is_return_request":     false,
				"return_request_status": rejected,
				"processed_at":          now,
				"processed_by":          actor.UserID,
			}
			if err := repo.Update(ctx, detail.ID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject return")
			}
			if err := s.alerts.Create(ctx, tx, &models.Alert{
				UserID:  detail.UserID,
				BookID:  &bookID,
				Type:    enums.AlertTypeReturnRejected,
				Message: fmt.Sprintf("Your return request for %q was rejected. Please see the front desk.", bookTitle),
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create alert")
			}
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventReturnRejected,
				AggregateType: enums.AggregateLendingRequest,
				AggregateID:   detail.ID,
				Version:       1,
				Actor:         buildActor(actor),
				Data: payloads.ReturnDecisionEvent{
					RequestID: detail.ID,
					UserID:    detail.UserID,
					BookID:    detail.BookID,
					Status:    enums.ReturnRequestStatusRejected,
				},
			}); err != nil {
				return err
			}
		}

		updated, err := repo.FindDetail(ctx, detail.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload request")
		}
		mapped := toRequestDTO(*updated)
		dto = &mapped
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func (s *service) MarkPenaltyPaid(ctx context.Context, actor Actor, requestID uuid.UUID) (*LendingRequestDTO, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if requestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}

	var dto *LendingRequestDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		detail, err := repo.FindDetail(ctx, requestID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
		}
		if detail.PenaltyAmount.LessThanOrEqual(decimal.Zero) {
			return pkgerrors.New(pkgerrors.CodeValidation, "no penalty on this loan")
		}
		if detail.IsPaid {
			mapped := toRequestDTO(*detail)
			dto = &mapped
			return nil
		}

		now := time.Now().UTC()
		if err := repo.Update(ctx, detail.ID, map[string]any{"is_paid": true}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle penalty")
		}

		bookID := detail.BookID
		if err := s.alerts.Create(ctx, tx, &models.Alert{
			UserID:  detail.UserID,
			BookID:  &bookID,
			Type:    enums.AlertTypePenaltyPaid,
			Message: fmt.Sprintf("Your fine of %s %s has been recorded as paid.", detail.PenaltyAmount.StringFixed(2), s.currency),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create alert")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPenaltyPaid,
			AggregateType: enums.AggregateLendingRequest,
			AggregateID:   detail.ID,
			Version:       1,
			Actor:         buildActor(actor),
			Data: payloads.PenaltyPaidEvent{
				RequestID: detail.ID,
				UserID:    detail.UserID,
				BookID:    detail.BookID,
				Amount:    detail.PenaltyAmount,
				PaidAt:    now,
			},
		}); err != nil {
			return err
		}

		updated, err := repo.FindDetail(ctx, detail.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload request")
		}
		mapped := toRequestDTO(*updated)
		dto = &mapped
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// AssessPenalties assesses fines for overdue loans that have none yet and
// returns how many rows changed. Loans that already carry a penalty are left
// alone, so a paid fine stays paid and a second run on the same day is a
// no-op. Each loan is updated in its own transaction so one bad row does not
// abort the run.
func (s *service) AssessPenalties(ctx context.Context, asOf time.Time) (int, error) {
	if s.penaltyRate.IsZero() {
		return 0, nil
	}

	overdue, err := s.repo.ListOverdueLoans(ctx, asOf)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list overdue loans")
	}

	assessed := 0
	for _, loan := range overdue {
		if loan.DueDate == nil {
			continue
		}
		if loan.PenaltyAmount.IsPositive() {
			continue
		}
		daysOverdue := int(asOf.Sub(*loan.DueDate).Hours()/24) - s.graceDays
		if daysOverdue <= 0 {
			continue
		}
		amount := s.penaltyRate.Mul(decimal.NewFromInt(int64(daysOverdue)))

		loan := loan
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			updates := map[string]any{
				"penalty_amount": amount,
			}
			if err := repo.Update(ctx, loan.ID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update penalty")
			}
			return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventPenaltyAssessed,
				AggregateType: enums.AggregateLendingRequest,
				AggregateID:   loan.ID,
				Version:       1,
				Data: payloads.PenaltyAssessedEvent{
					RequestID:   loan.ID,
					UserID:      loan.UserID,
					BookID:      loan.BookID,
					Amount:      amount,
					Currency:    s.currency,
					DaysOverdue: daysOverdue,
					DueDate:     *loan.DueDate,
				},
			})
		})
		if err != nil {
			return assessed, err
		}
		assessed++
	}
	return assessed, nil
}

func (s *service) GetRequest(ctx context.Context, requestID uuid.UUID) (*LendingRequestDTO, error) {
	if requestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	return s.loadDTO(ctx, requestID)
}

func (s *service) PendingBorrowRequests(ctx context.Context, params pagination.Params) (*LendingRequestList, error) {
	return s.list(ctx, params, requestFilter{PendingBorrow: true})
}

func (s *service) PendingReturnRequests(ctx context.Context, params pagination.Params) (*LendingRequestList, error) {
	return s.list(ctx, params, requestFilter{PendingReturns: true})
}

func (s *service) Penalties(ctx context.Context, params pagination.Params, unpaidOnly bool) (*LendingRequestList, error) {
	return s.list(ctx, params, requestFilter{PenaltiesOnly: true, UnpaidOnly: unpaidOnly})
}

func (s *service) History(ctx context.Context, params pagination.Params, userID *uuid.UUID) (*LendingRequestList, error) {
	return s.list(ctx, params, requestFilter{HistoryOnly: true, UserID: userID})
}

func (s *service) UserRequests(ctx context.Context, userID uuid.UUID, params pagination.Params) (*LendingRequestList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	return s.list(ctx, params, requestFilter{UserID: &userID})
}

func (s *service) UserStats(ctx context.Context, userID uuid.UUID) (*stats.UserStats, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	rows, err := s.repo.ListAllByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user requests")
	}
	computed := stats.ComputeUserStats(rows)
	return &computed, nil
}

func (s *service) list(ctx context.Context, params pagination.Params, filter requestFilter) (*LendingRequestList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}

	records, next, err := s.repo.List(ctx, listRequestsParams{
		Limit:  params.Limit,
		Cursor: cursor,
		Filter: filter,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list requests")
	}

	result := &LendingRequestList{Items: toRequestDTOs(records)}
	if next != nil {
		result.Cursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

func (s *service) loadDTO(ctx context.Context, id uuid.UUID) (*LendingRequestDTO, error) {
	detail, err := s.repo.FindDetail(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
	}
	dto := toRequestDTO(*detail)
	return &dto, nil
}

func requireActor(actor Actor) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !actor.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "staff role missing")
	}
	return nil
}

func buildActor(actor Actor) *outbox.ActorRef {
	return &outbox.ActorRef{
		UserID: actor.UserID,
		Role:   actor.Role.String(),
	}
}
