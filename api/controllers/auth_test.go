package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/libralend/libralend-backend/internal/auth"
	"github.com/libralend/libralend-backend/internal/users"
	pkgAuth "github.com/libralend/libralend-backend/pkg/auth"
	"github.com/libralend/libralend-backend/pkg/auth/session"
	"github.com/libralend/libralend-backend/pkg/config"
	"github.com/libralend/libralend-backend/pkg/enums"
	pkgerrors "github.com/libralend/libralend-backend/pkg/errors"
	"github.com/libralend/libralend-backend/pkg/logger"
)

var testControllerJWT = config.JWTConfig{Secret: "controller-secret", Issuer: "libralend", ExpirationMinutes: 30}

type stubAuthService struct {
	login      *auth.LoginResponse
	loginErr   error
	refresh    *auth.RefreshResponse
	refreshErr error
	logoutErr  error

	loginReq   auth.LoginRequest
	refreshReq auth.RefreshRequest
	loggedOut  string
}

func (s *stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	s.loginReq = req
	return s.login, s.loginErr
}

func (s *stubAuthService) Refresh(ctx context.Context, req auth.RefreshRequest) (*auth.RefreshResponse, error) {
	s.refreshReq = req
	return s.refresh, s.refreshErr
}

func (s *stubAuthService) Logout(ctx context.Context, accessID string) error {
	s.loggedOut = accessID
	return s.logoutErr
}

func discardLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func mintControllerToken(t *testing.T, accessID string) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(testControllerJWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.StaffRoleAdmin,
		JTI:    accessID,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestAuthLoginSuccess(t *testing.T) {
	userID := uuid.New()
	svc := &stubAuthService{login: &auth.LoginResponse{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		User:         &users.UserDTO{ID: userID, Email: "staff@example.com", Name: "Staff"},
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader([]byte(`{"email":"staff@example.com","password":"Secret#1"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	AuthLogin(svc, discardLogger()).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got := resp.Header().Get("X-LL-Token"); got != "access-token" {
		t.Fatalf("expected token header got %q", got)
	}
	if svc.loginReq.Email != "staff@example.com" {
		t.Fatalf("unexpected login request %+v", svc.loginReq)
	}

	var envelope struct {
		Data struct {
			AccessToken  string         `json:"access_token"`
			RefreshToken string         `json:"refresh_token"`
			User         *users.UserDTO `json:"user"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.User == nil || envelope.Data.User.ID != userID {
		t.Fatalf("expected user payload got %+v", envelope.Data.User)
	}
}

func TestAuthLoginInvalidPayload(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader([]byte(`{"email":"not-an-email"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	AuthLogin(&stubAuthService{}, discardLogger()).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAuthLoginRejectedCredentials(t *testing.T) {
	svc := &stubAuthService{loginErr: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader([]byte(`{"email":"staff@example.com","password":"wrong"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	AuthLogin(svc, discardLogger()).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRefreshRotates(t *testing.T) {
	svc := &stubAuthService{refresh: &auth.RefreshResponse{
		AccessToken:  "new-access-token",
		RefreshToken: "new-refresh-token",
	}}
	token := mintControllerToken(t, session.NewAccessID())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", bytes.NewReader([]byte(`{"refresh_token":"refresh-token"}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()

	AuthRefresh(svc, testControllerJWT, discardLogger()).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got := resp.Header().Get("X-LL-Token"); got != "new-access-token" {
		t.Fatalf("expected rotated token header got %q", got)
	}
	if svc.refreshReq.AccessToken != token || svc.refreshReq.RefreshToken != "refresh-token" {
		t.Fatalf("unexpected refresh request %+v", svc.refreshReq)
	}
}

func TestAuthRefreshMissingBearer(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", bytes.NewReader([]byte(`{"refresh_token":"refresh-token"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	AuthRefresh(&stubAuthService{}, testControllerJWT, discardLogger()).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthLogoutRevokesSession(t *testing.T) {
	svc := &stubAuthService{}
	accessID := session.NewAccessID()
	token := mintControllerToken(t, accessID)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()

	AuthLogout(svc, testControllerJWT, discardLogger()).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.loggedOut != accessID {
		t.Fatalf("expected revoke of %s got %s", accessID, svc.loggedOut)
	}
}

func TestAuthLogoutInvalidToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	resp := httptest.NewRecorder()

	AuthLogout(&stubAuthService{}, testControllerJWT, discardLogger()).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}
