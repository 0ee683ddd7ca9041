package controllers

import (
	"net/http"

	"github.com/libralend/libralend-backend/api/middleware"
	"github.com/libralend/libralend-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

func StaffPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "staff", "status": "ok"}
		if role := middleware.RoleFromContext(r.Context()); role != "" {
			payload["role"] = role
		}
		responses.WriteSuccess(w, payload)
	}
}
