package messaging

import (
	"context"

	"github.com/franmoretti/tiendabot-backend/pkg/logger"
)

// Messenger delivers an outbound reply to a customer on whatever channel
// the deployment has wired (WhatsApp gateway, webhook relay, etc).
type Messenger interface {
	Send(ctx context.Context, customerID, text string) error
}

type logMessenger struct {
	logg *logger.Logger
}

// NewLogMessenger returns a Messenger that only logs outbound replies.
// Used in development and whenever no webhook is configured.
func NewLogMessenger(logg *logger.Logger) Messenger {
	return &logMessenger{logg: logg}
}

func (m *logMessenger) Send(ctx context.Context, customerID, text string) error {
	if m.logg != nil {
		ctx = m.logg.WithCustomerID(ctx, customerID)
		m.logg.Info(ctx, "outbound reply (log only): "+text)
	}
	return nil
}
