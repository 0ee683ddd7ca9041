package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/libralend/libralend-backend/api/responses"
	"github.com/libralend/libralend-backend/api/validators"
	"github.com/libralend/libralend-backend/internal/lending"
	pkgerrors "github.com/libralend/libralend-backend/pkg/errors"
	"github.com/libralend/libralend-backend/pkg/logger"
)

type createBorrowBody struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
	BookID uuid.UUID `json:"book_id" validate:"required"`
}

type processReturnBody struct {
	Approve *bool `json:"approve" validate:"required"`
}

// PendingBorrowRequests lists borrow requests awaiting a decision.
func PendingBorrowRequests(svc lending.Service, logg *logger.Logger) http.HandlerFunc {
	return listRequests(svc, logg, func(r *http.Request, svc lending.Service) (*lending.LendingRequestList, error) {
		page, err := pageParams(r)
		if err != nil {
			return nil, err
		}
		return svc.PendingBorrowRequests(r.Context(), page)
	})
}

// PendingReturnRequests lists flagged returns awaiting a decision.
func PendingReturnRequests(svc lending.Service, logg *logger.Logger) http.HandlerFunc {
	return listRequests(svc, logg, func(r *http.Request, svc lending.Service) (*lending.LendingRequestList, error) {
		page, err := pageParams(r)
		if err != nil {
			return nil, err
		}
		return svc.PendingReturnRequests(r.Context(), page)
	})
}

// Penalties lists loans carrying fines, optionally restricted to unpaid ones.
func Penalties(svc lending.Service, logg *logger.Logger) http.HandlerFunc {
	return listRequests(svc, logg, func(r *http.Request, svc lending.Service) (*lending.LendingRequestList, error) {
		page, err := pageParams(r)
		if err != nil {
			return nil, err
		}
		unpaidOnly, err := queryBool(r, "unpaidOnly")
		if err != nil {
			return nil, err
		}
		return svc.Penalties(r.Context(), page, unpaidOnly)
	})
}

// History lists processed requests, optionally scoped to one member.
func History(svc lending.Service, logg *logger.Logger) http.HandlerFunc {
	return listRequests(svc, logg, func(r *http.Request, svc lending.Service) (*lending.LendingRequestList, error) {
		page, err := pageParams(r)
		if err != nil {
			return nil, err
		}
		var userID *uuid.UUID
		if raw := r.URL.Query().Get("userId"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid userId")
			}
			userID = &id
		}
		return svc.History(r.Context(), page, userID)
	})
}

func listRequests(svc lending.Service, logg *logger.Logger, fetch func(*http.Request, lending.Service) (*lending.LendingRequestList, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lending service unavailable"))
			return
		}
		result, err := fetch(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// CreateBorrowRequest records a borrow request placed on a member's behalf.
func CreateBorrowRequest(svc lending.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lending service unavailable"))
			return
		}

		var body createBorrowBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateBorrowRequest(r.Context(), body.UserID, body.BookID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// ApproveBorrowRequest grants a pending borrow request.
func ApproveBorrowRequest(svc lending.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lending service unavailable"))
			return
		}

		actorID, role, err := staffActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requestID, err := pathUUID(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ApproveBorrow(r.Context(), lending.Actor{UserID: actorID, Role: role}, requestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// RejectBorrowRequest declines a pending borrow request.
func RejectBorrowRequest(svc lending.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lending service unavailable"))
			return
		}

		actorID, role, err := staffActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requestID, err := pathUUID(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.RejectBorrow(r.Context(), lending.Actor{UserID: actorID, Role: role}, requestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// FlagReturnRequest marks an active loan as awaiting return review.
func FlagReturnRequest(svc lending.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lending service unavailable"))
			return
		}

		requestID, err := pathUUID(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.RequestReturn(r.Context(), requestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ProcessReturnRequest approves or rejects a flagged return.
func ProcessReturnRequest(svc lending.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lending service unavailable"))
			return
		}

		actorID, role, err := staffActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requestID, err := pathUUID(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body processReturnBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ProcessReturn(r.Context(), lending.Actor{UserID: actorID, Role: role}, requestID, *body.Approve)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// MarkPenaltyPaid settles the fine on a loan.
func MarkPenaltyPaid(svc lending.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lending service unavailable"))
			return
		}

		actorID, role, err := staffActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requestID, err := pathUUID(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.MarkPenaltyPaid(r.Context(), lending.Actor{UserID: actorID, Role: role}, requestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// GetLendingRequest fetches one request with its joined display fields.
func GetLendingRequest(svc lending.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lending service unavailable"))
			return
		}

		requestID, err := pathUUID(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.GetRequest(r.Context(), requestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
