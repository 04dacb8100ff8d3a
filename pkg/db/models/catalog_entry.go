package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CatalogEntry is one priced product for a tenant. Delivery-fee tiers are
// catalog entries whose description starts with the configured delivery
// keyword and which carry a [MinKm, MaxKm) distance range.
type CatalogEntry struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID    string          `gorm:"column:tenant_id;not null;index"`
	Description string          `gorm:"column:description;not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Active      bool            `gorm:"column:active;not null;default:true"`
	MinKm       *float64        `gorm:"column:min_km"`
	MaxKm       *float64        `gorm:"column:max_km"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// IsDeliveryTier reports whether the entry carries a distance range.
func (c CatalogEntry) IsDeliveryTier() bool {
	return c.MinKm != nil && c.MaxKm != nil
}
