package controllers

import (
	"net/http"

	"github.com/franmoretti/tiendabot-backend/api/responses"
	"github.com/franmoretti/tiendabot-backend/api/validators"
	"github.com/franmoretti/tiendabot-backend/internal/schedule"
	pkgerrors "github.com/franmoretti/tiendabot-backend/pkg/errors"
	"github.com/franmoretti/tiendabot-backend/pkg/logger"
	"github.com/franmoretti/tiendabot-backend/pkg/types"
)

// AdminHoursGet returns the tenant's weekly schedule.
func AdminHoursGet(store schedule.HoursStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := validators.SanitizeString(r.URL.Query().Get("tenant_id"), 64)
		if tenantID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "tenant_id is required"))
			return
		}

		week, err := store.Week(r.Context(), tenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, week)
	}
}

type HoursPutBody struct {
	TenantID string             `json:"tenant_id" validate:"required,min=1,max=64"`
	Week     types.WeekSchedule `json:"week" validate:"required"`
}

// AdminHoursPut replaces the tenant's weekly schedule.
func AdminHoursPut(store schedule.HoursStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body HoursPutBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := store.PutWeek(r.Context(), validators.SanitizeString(body.TenantID, 64), body.Week); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, body.Week)
	}
}
