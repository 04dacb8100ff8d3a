package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/franmoretti/tiendabot-backend/pkg/enums"
	"github.com/franmoretti/tiendabot-backend/pkg/types"
)

// Conversation is one customer chat session building up a single order.
// Finalized flips exactly once when the conversation reaches a terminal
// status; the guarded update on that flag is what keeps duplicate webhook
// deliveries from double-finalizing.
type Conversation struct {
	ID             uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID       string                   `gorm:"column:tenant_id;not null;index:idx_conversations_tenant_customer"`
	CustomerID     string                   `gorm:"column:customer_id;not null;index:idx_conversations_tenant_customer"`
	Status         enums.ConversationStatus `gorm:"column:status;type:text;not null;default:'OPEN'"`
	Finalized      bool                     `gorm:"column:finalized;not null;default:false"`
	ManualOverride bool                     `gorm:"column:manual_override;not null;default:false"`
	OrderDraft     types.OrderDraft         `gorm:"column:order_draft;type:jsonb;serializer:json"`
	Messages       []ConversationMessage    `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
