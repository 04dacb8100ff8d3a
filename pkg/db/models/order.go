package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/franmoretti/tiendabot-backend/pkg/enums"
	"github.com/franmoretti/tiendabot-backend/pkg/types"
)

// Order is the immutable ledger record written when a conversation closes.
// It is upserted keyed on ConversationID so repeated finalization attempts
// converge to one row.
type Order struct {
	ID             uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ConversationID uuid.UUID                `gorm:"column:conversation_id;type:uuid;not null;uniqueIndex"`
	TenantID       string                   `gorm:"column:tenant_id;not null;index"`
	CustomerID     string                   `gorm:"column:customer_id;not null"`
	Status         enums.ConversationStatus `gorm:"column:status;type:text;not null"`
	Mode           enums.OrderMode          `gorm:"column:mode;type:text;not null;default:''"`
	Address        types.Address            `gorm:"column:address;type:jsonb;serializer:json"`
	Items          []types.OrderItem        `gorm:"column:items;type:jsonb;serializer:json"`
	GrandTotal     decimal.Decimal          `gorm:"column:grand_total;type:numeric(12,2);not null"`
	ScheduledDate  string                   `gorm:"column:scheduled_date"`
	ScheduledTime  string                   `gorm:"column:scheduled_time"`
	DistanceKm     *float64                 `gorm:"column:distance_km"`
	CreatedAt      time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
