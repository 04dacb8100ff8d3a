package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/franmoretti/tiendabot-backend/api/responses"
	"github.com/franmoretti/tiendabot-backend/api/validators"
	"github.com/franmoretti/tiendabot-backend/internal/conversation"
	"github.com/franmoretti/tiendabot-backend/pkg/enums"
	pkgerrors "github.com/franmoretti/tiendabot-backend/pkg/errors"
	"github.com/franmoretti/tiendabot-backend/pkg/logger"
)

// AdminConversationsList pages through conversations for the admin panel.
func AdminConversationsList(svc conversation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := conversation.ListFilter{
			TenantID: validators.SanitizeString(r.URL.Query().Get("tenant_id"), 64),
			Limit:    limit,
			Cursor:   validators.SanitizeString(r.URL.Query().Get("cursor"), 256),
		}
		if raw := validators.SanitizeString(r.URL.Query().Get("status"), 32); raw != "" {
			status, parseErr := enums.ParseConversationStatus(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "unknown status"))
				return
			}
			filter.Status = status
		}

		page, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"conversations": page.Conversations,
			"next_cursor":   page.NextCursor,
		})
	}
}

// AdminConversationDetail returns one conversation with its draft.
func AdminConversationDetail(svc conversation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "conversationId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "conversation id must be a uuid"))
			return
		}

		conv, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, conv)
	}
}

type OverrideBody struct {
	Enabled bool `json:"enabled"`
}

// AdminConversationOverride toggles human takeover for a conversation.
// While enabled, inbound turns are recorded but the bot stays silent.
func AdminConversationOverride(svc conversation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "conversationId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "conversation id must be a uuid"))
			return
		}

		var body OverrideBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Override(r.Context(), id, body.Enabled); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"conversation_id": id, "manual_override": body.Enabled})
	}
}
