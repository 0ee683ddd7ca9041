package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/libralend/libralend-backend/api/middleware"
	"github.com/libralend/libralend-backend/internal/lending"
	"github.com/libralend/libralend-backend/internal/stats"
	"github.com/libralend/libralend-backend/pkg/enums"
	"github.com/libralend/libralend-backend/pkg/pagination"
)

type testLendingService struct {
	lending.Service

	approveFn func(ctx context.Context, actor lending.Actor, requestID uuid.UUID) (*lending.BorrowDecisionDTO, error)
	processFn func(ctx context.Context, actor lending.Actor, requestID uuid.UUID, approve bool) (*lending.LendingRequestDTO, error)
	pendingFn func(ctx context.Context, params pagination.Params) (*lending.LendingRequestList, error)
	historyFn func(ctx context.Context, params pagination.Params, userID *uuid.UUID) (*lending.LendingRequestList, error)
	statsFn   func(ctx context.Context, userID uuid.UUID) (*stats.UserStats, error)
}

func (s *testLendingService) ApproveBorrow(ctx context.Context, actor lending.Actor, requestID uuid.UUID) (*lending.BorrowDecisionDTO, error) {
	return s.approveFn(ctx, actor, requestID)
}

func (s *testLendingService) ProcessReturn(ctx context.Context, actor lending.Actor, requestID uuid.UUID, approve bool) (*lending.LendingRequestDTO, error) {
	return s.processFn(ctx, actor, requestID, approve)
}

func (s *testLendingService) PendingBorrowRequests(ctx context.Context, params pagination.Params) (*lending.LendingRequestList, error) {
	return s.pendingFn(ctx, params)
}

func (s *testLendingService) History(ctx context.Context, params pagination.Params, userID *uuid.UUID) (*lending.LendingRequestList, error) {
	return s.historyFn(ctx, params, userID)
}

func (s *testLendingService) UserStats(ctx context.Context, userID uuid.UUID) (*stats.UserStats, error) {
	return s.statsFn(ctx, userID)
}

func addRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func withStaffContext(req *http.Request, actorID uuid.UUID, role enums.StaffRole) *http.Request {
	ctx := middleware.WithUserID(req.Context(), actorID.String())
	ctx = middleware.WithRole(ctx, string(role))
	return req.WithContext(ctx)
}

func TestApproveBorrowRequestSuccess(t *testing.T) {
	actorID := uuid.New()
	requestID := uuid.New()
	svc := &testLendingService{
		approveFn: func(ctx context.Context, actor lending.Actor, id uuid.UUID) (*lending.BorrowDecisionDTO, error) {
			if actor.UserID != actorID || actor.Role != enums.StaffRoleLibrarian {
				t.Fatalf("unexpected actor %+v", actor)
			}
			if id != requestID {
				t.Fatalf("unexpected request id %s", id)
			}
			return &lending.BorrowDecisionDTO{Outcome: lending.BorrowOutcomeApproved}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/borrow-requests/"+requestID.String()+"/approve", nil)
	req = withStaffContext(req, actorID, enums.StaffRoleLibrarian)
	req = addRouteParam(req, "requestId", requestID.String())
	resp := httptest.NewRecorder()

	ApproveBorrowRequest(svc, discardLogger()).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data lending.BorrowDecisionDTO `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Outcome != lending.BorrowOutcomeApproved {
		t.Fatalf("unexpected outcome %s", envelope.Data.Outcome)
	}
}

func TestApproveBorrowRequestMissingActor(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/borrow-requests/"+uuid.NewString()+"/approve", nil)
	req = addRouteParam(req, "requestId", uuid.NewString())
	resp := httptest.NewRecorder()

	ApproveBorrowRequest(&testLendingService{}, discardLogger()).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestApproveBorrowRequestInvalidID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/borrow-requests/invalid/approve", nil)
	req = withStaffContext(req, uuid.New(), enums.StaffRoleAdmin)
	req = addRouteParam(req, "requestId", "invalid")
	resp := httptest.NewRecorder()

	ApproveBorrowRequest(&testLendingService{}, discardLogger()).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestProcessReturnRequestPassesDecision(t *testing.T) {
	requestID := uuid.New()
	var gotApprove bool
	svc := &testLendingService{
		processFn: func(ctx context.Context, actor lending.Actor, id uuid.UUID, approve bool) (*lending.LendingRequestDTO, error) {
			gotApprove = approve
			return &lending.LendingRequestDTO{ID: id, Status: enums.LendingRequestStatusApproved}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/return-requests/"+requestID.String()+"/process", bytes.NewReader([]byte(`{"approve":false}`)))
	req.Header.Set("Content-Type", "application/json")
	req = withStaffContext(req, uuid.New(), enums.StaffRoleAdmin)
	req = addRouteParam(req, "requestId", requestID.String())
	resp := httptest.NewRecorder()

	ProcessReturnRequest(svc, discardLogger()).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if gotApprove {
		t.Fatal("expected approve=false passed through")
	}
}

func TestProcessReturnRequestRequiresDecision(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/return-requests/"+uuid.NewString()+"/process", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	req = withStaffContext(req, uuid.New(), enums.StaffRoleAdmin)
	req = addRouteParam(req, "requestId", uuid.NewString())
	resp := httptest.NewRecorder()

	ProcessReturnRequest(&testLendingService{}, discardLogger()).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestPendingBorrowRequestsPagination(t *testing.T) {
	svc := &testLendingService{
		pendingFn: func(ctx context.Context, params pagination.Params) (*lending.LendingRequestList, error) {
			if params.Limit != 10 || params.Cursor != "abc" {
				t.Fatalf("unexpected params %+v", params)
			}
			return &lending.LendingRequestList{Items: []lending.LendingRequestDTO{}, Cursor: ""}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/borrow-requests/pending?limit=10&cursor=abc", nil)
	resp := httptest.NewRecorder()

	PendingBorrowRequests(svc, discardLogger()).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestPendingBorrowRequestsRejectsBadLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/borrow-requests/pending?limit=0", nil)
	resp := httptest.NewRecorder()

	PendingBorrowRequests(&testLendingService{}, discardLogger()).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestHistoryScopesToMember(t *testing.T) {
	memberID := uuid.New()
	svc := &testLendingService{
		historyFn: func(ctx context.Context, params pagination.Params, userID *uuid.UUID) (*lending.LendingRequestList, error) {
			if userID == nil || *userID != memberID {
				t.Fatalf("expected member filter got %v", userID)
			}
			return &lending.LendingRequestList{}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history?userId="+memberID.String(), nil)
	resp := httptest.NewRecorder()

	History(svc, discardLogger()).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestUserStatsEndpoint(t *testing.T) {
	memberID := uuid.New()
	svc := &testLendingService{
		statsFn: func(ctx context.Context, userID uuid.UUID) (*stats.UserStats, error) {
			if userID != memberID {
				t.Fatalf("unexpected user %s", userID)
			}
			return &stats.UserStats{TotalBorrows: 4, ApprovedBorrows: 2}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/"+memberID.String()+"/stats", nil)
	req = addRouteParam(req, "userId", memberID.String())
	resp := httptest.NewRecorder()

	UserStats(svc, discardLogger()).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data stats.UserStats `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.TotalBorrows != 4 {
		t.Fatalf("unexpected stats %+v", envelope.Data)
	}
}
