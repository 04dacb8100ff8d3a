package models

import (
	"time"

	"github.com/google/uuid"
)

// ConversationMessage is one stored chat turn.
type ConversationMessage struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ConversationID uuid.UUID `gorm:"column:conversation_id;type:uuid;not null;index"`
	Role           string    `gorm:"column:role;not null"`
	Body           string    `gorm:"column:body;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
