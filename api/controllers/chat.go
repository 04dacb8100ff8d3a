package controllers

import (
	"net/http"

	"github.com/franmoretti/tiendabot-backend/api/responses"
	"github.com/franmoretti/tiendabot-backend/api/validators"
	"github.com/franmoretti/tiendabot-backend/internal/conversation"
	"github.com/franmoretti/tiendabot-backend/pkg/logger"
)

type ChatWebhookBody struct {
	TenantID   string `json:"tenant_id" validate:"required,min=1,max=64"`
	CustomerID string `json:"customer_id" validate:"required,min=1,max=64"`
	Text       string `json:"text" validate:"required,min=1,max=4000"`
}

// ChatWebhook receives one inbound customer message and runs it through
// the conversation engine.
func ChatWebhook(svc conversation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body ChatWebhookBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.HandleInbound(r.Context(), conversation.InboundMessage{
			TenantID:   validators.SanitizeString(body.TenantID, 64),
			CustomerID: validators.SanitizeString(body.CustomerID, 64),
			Text:       body.Text,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"conversation_id": result.ConversationID,
			"status":          result.Status,
			"reply":           result.Reply,
			"order":           result.Order,
			"finalized":       result.Finalized,
		})
	}
}
