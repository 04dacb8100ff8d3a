package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/franmoretti/tiendabot-backend/pkg/types"
)

// BusinessHours is the per-tenant weekly schedule document.
type BusinessHours struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID  string             `gorm:"column:tenant_id;not null;uniqueIndex"`
	Week      types.WeekSchedule `gorm:"column:week;type:jsonb;serializer:json"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
