package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/libralend/libralend-backend/api/middleware"
	"github.com/libralend/libralend-backend/api/validators"
	"github.com/libralend/libralend-backend/pkg/enums"
	pkgerrors "github.com/libralend/libralend-backend/pkg/errors"
	"github.com/libralend/libralend-backend/pkg/pagination"
)

// staffActor resolves the authenticated staff identity from the request
// context seeded by the auth middleware.
func staffActor(r *http.Request) (uuid.UUID, enums.StaffRole, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "actor context missing")
	}
	actorID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid actor id")
	}
	role, err := enums.ParseStaffRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return uuid.Nil, "", pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "staff role required")
	}
	return actorID, role, nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "path parameter required").
			WithDetails(map[string]any{"field": name})
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid identifier").
			WithDetails(map[string]any{"field": name})
	}
	return id, nil
}

// pageParams reads limit and cursor query parameters shared by list endpoints.
func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}

func queryBool(r *http.Request, key string) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid boolean query parameter").
			WithDetails(map[string]any{"field": key})
	}
	return value, nil
}
