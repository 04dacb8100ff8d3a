package conversation

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/franmoretti/tiendabot-backend/pkg/db/models"
	"github.com/franmoretti/tiendabot-backend/pkg/enums"
	pkgerrors "github.com/franmoretti/tiendabot-backend/pkg/errors"
	"github.com/franmoretti/tiendabot-backend/pkg/pagination"
	"github.com/franmoretti/tiendabot-backend/pkg/types"
)

// ListFilter narrows conversation listings for the admin surface.
// Cursor is an opaque token from a previous page.
type ListFilter struct {
	TenantID string
	Status   enums.ConversationStatus
	Limit    int
	Cursor   string
}

// Page is one page of conversations plus the cursor for the next one.
type Page struct {
	Conversations []models.Conversation
	NextCursor    string
}

// Repository persists conversations, their transcripts and the order
// ledger. Finalization goes through a guarded update so that concurrent
// deliveries of the same webhook settle on exactly one winner.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindActive(ctx context.Context, tenantID, customerID string) (*models.Conversation, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	Create(ctx context.Context, conv *models.Conversation) error
	SaveDraft(ctx context.Context, id uuid.UUID, status enums.ConversationStatus, draft types.OrderDraft) error
	AppendMessage(ctx context.Context, msg *models.ConversationMessage) error
	Finalize(ctx context.Context, id uuid.UUID, status enums.ConversationStatus) (bool, error)
	UpsertOrder(ctx context.Context, order *models.Order) error
	SetManualOverride(ctx context.Context, id uuid.UUID, override bool) error
	List(ctx context.Context, filter ListFilter) (*Page, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds the GORM-backed conversation store.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindActive returns the customer's newest non-terminal conversation, or
// nil when every prior conversation has closed.
func (r *repository) FindActive(ctx context.Context, tenantID, customerID string) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND customer_id = ? AND status IN ?",
			tenantID, customerID,
			[]enums.ConversationStatus{enums.ConversationStatusOpen, enums.ConversationStatusInProgress}).
		Order("created_at DESC").
		First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find active conversation")
	}
	return &conv, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "conversation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find conversation")
	}
	return &conv, nil
}

func (r *repository) Create(ctx context.Context, conv *models.Conversation) error {
	if conv.ID == uuid.Nil {
		conv.ID = uuid.New()
	}
	if conv.Status == "" {
		conv.Status = enums.ConversationStatusOpen
	}
	if err := r.db.WithContext(ctx).Create(conv).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create conversation")
	}
	return nil
}

func (r *repository) SaveDraft(ctx context.Context, id uuid.UUID, status enums.ConversationStatus, draft types.OrderDraft) error {
	err := r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      status,
			"order_draft": draft,
		}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save conversation draft")
	}
	return nil
}

func (r *repository) AppendMessage(ctx context.Context, msg *models.ConversationMessage) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append conversation message")
	}
	return nil
}

// Finalize flips the conversation into a terminal status. The WHERE clause
// on finalized makes the transition first-writer-wins: the bool result
// reports whether this caller performed it.
func (r *repository) Finalize(ctx context.Context, id uuid.UUID, status enums.ConversationStatus) (bool, error) {
	if !status.IsTerminal() {
		return false, pkgerrors.New(pkgerrors.CodeStateConflict, "finalize requires a terminal status")
	}
	res := r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ? AND finalized = ?", id, false).
		Updates(map[string]any{
			"status":    status,
			"finalized": true,
		})
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "finalize conversation")
	}
	return res.RowsAffected > 0, nil
}

// UpsertOrder writes the ledger row, keyed on conversation_id so repeated
// finalizations converge on one order.
func (r *repository) UpsertOrder(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "conversation_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "mode", "address", "items", "grand_total",
				"scheduled_date", "scheduled_time", "distance_km", "updated_at",
			}),
		}).
		Create(order).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "upsert order")
	}
	return nil
}

func (r *repository) SetManualOverride(ctx context.Context, id uuid.UUID, override bool) error {
	res := r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ?", id).
		Update("manual_override", override)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "set manual override")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "conversation not found")
	}
	return nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) (*Page, error) {
	query := r.db.WithContext(ctx).Model(&models.Conversation{})
	if filter.TenantID != "" {
		query = query.Where("tenant_id = ?", filter.TenantID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	cursor, err := pagination.ParseCursor(filter.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	limit := pagination.NormalizeLimit(filter.Limit)
	var convs []models.Conversation
	err = query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(filter.Limit)).Find(&convs).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list conversations")
	}

	page := &Page{Conversations: convs}
	if len(convs) > limit {
		page.Conversations = convs[:limit]
		last := page.Conversations[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return page, nil
}
