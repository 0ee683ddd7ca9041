package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/libralend/libralend-backend/api/responses"
	"github.com/libralend/libralend-backend/internal/alerts"
	pkgerrors "github.com/libralend/libralend-backend/pkg/errors"
	"github.com/libralend/libralend-backend/pkg/logger"
)

// alertUser resolves which member's alerts the call addresses. Staff may pass
// an explicit userId query parameter; otherwise the authenticated identity is
// used.
func alertUser(r *http.Request) (uuid.UUID, error) {
	if raw := strings.TrimSpace(r.URL.Query().Get("userId")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid userId")
		}
		return id, nil
	}
	actorID, _, err := staffActor(r)
	if err != nil {
		return uuid.Nil, err
	}
	return actorID, nil
}

// ListAlerts returns paginated alerts for a member.
func ListAlerts(svc alerts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "alerts service unavailable"))
			return
		}

		userID, err := alertUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		unreadOnly, err := queryBool(r, "unreadOnly")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), alerts.ListParams{
			UserID:     userID,
			Limit:      page.Limit,
			Cursor:     page.Cursor,
			UnreadOnly: unreadOnly,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// MarkAlertRead stamps one alert as read.
func MarkAlertRead(svc alerts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "alerts service unavailable"))
			return
		}

		userID, err := alertUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		alertID, err := pathUUID(r, "alertId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.MarkRead(r.Context(), userID, alertID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"read": true})
	}
}

// MarkAllAlertsRead stamps every unread alert for a member.
func MarkAllAlertsRead(svc alerts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "alerts service unavailable"))
			return
		}

		userID, err := alertUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.MarkAllRead(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"updated": updated})
	}
}
