package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/franmoretti/tiendabot-backend/api/responses"
	"github.com/franmoretti/tiendabot-backend/api/validators"
	"github.com/franmoretti/tiendabot-backend/internal/catalog"
	"github.com/franmoretti/tiendabot-backend/pkg/db/models"
	pkgerrors "github.com/franmoretti/tiendabot-backend/pkg/errors"
	"github.com/franmoretti/tiendabot-backend/pkg/logger"
)

// AdminCatalogList returns every catalog entry for a tenant, active or not.
func AdminCatalogList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := validators.SanitizeString(r.URL.Query().Get("tenant_id"), 64)
		if tenantID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "tenant_id is required"))
			return
		}

		entries, err := svc.ListEntries(r.Context(), tenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entries)
	}
}

type CatalogUpsertBody struct {
	ID          string   `json:"id"`
	TenantID    string   `json:"tenant_id" validate:"required,min=1,max=64"`
	Description string   `json:"description" validate:"required,min=1,max=200"`
	UnitPrice   string   `json:"unit_price" validate:"required"`
	Active      bool     `json:"active"`
	MinKm       *float64 `json:"min_km"`
	MaxKm       *float64 `json:"max_km"`
}

// AdminCatalogUpsert creates or updates one catalog entry. Delivery tiers
// are just entries with a distance range.
func AdminCatalogUpsert(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body CatalogUpsertBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		price, err := decimal.NewFromString(body.UnitPrice)
		if err != nil || price.Sign() < 0 {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "unit_price must be a non-negative decimal"))
			return
		}
		if (body.MinKm == nil) != (body.MaxKm == nil) {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "min_km and max_km must be set together"))
			return
		}
		if body.MinKm != nil && *body.MaxKm <= *body.MinKm {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "max_km must be greater than min_km"))
			return
		}

		entry := models.CatalogEntry{
			TenantID:    validators.SanitizeString(body.TenantID, 64),
			Description: validators.SanitizeString(body.Description, 200),
			UnitPrice:   price,
			Active:      body.Active,
			MinKm:       body.MinKm,
			MaxKm:       body.MaxKm,
		}
		if body.ID != "" {
			id, parseErr := uuid.Parse(body.ID)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "id must be a uuid"))
				return
			}
			entry.ID = id
		}

		if err := svc.UpsertEntry(r.Context(), &entry); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}
