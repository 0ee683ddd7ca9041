package controllers

import (
	"net/http"

	"github.com/libralend/libralend-backend/api/responses"
	"github.com/libralend/libralend-backend/internal/stats"
	pkgerrors "github.com/libralend/libralend-backend/pkg/errors"
	"github.com/libralend/libralend-backend/pkg/logger"
)

// CatalogStats returns the library-wide dashboard summary.
func CatalogStats(svc stats.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stats service unavailable"))
			return
		}

		result, err := svc.Catalog(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
