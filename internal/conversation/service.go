package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/franmoretti/tiendabot-backend/internal/intent"
	"github.com/franmoretti/tiendabot-backend/internal/messaging"
	"github.com/franmoretti/tiendabot-backend/internal/reconcile"
	"github.com/franmoretti/tiendabot-backend/internal/schedule"
	"github.com/franmoretti/tiendabot-backend/internal/session"
	"github.com/franmoretti/tiendabot-backend/pkg/config"
	"github.com/franmoretti/tiendabot-backend/pkg/db/models"
	"github.com/franmoretti/tiendabot-backend/pkg/enums"
	pkgerrors "github.com/franmoretti/tiendabot-backend/pkg/errors"
	"github.com/franmoretti/tiendabot-backend/pkg/llm"
	"github.com/franmoretti/tiendabot-backend/pkg/logger"
	"github.com/franmoretti/tiendabot-backend/pkg/metrics"
	"github.com/franmoretti/tiendabot-backend/pkg/types"
)

// Completer is the slice of the model client the engine calls.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

// TxRunner executes fn inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Reconciler recomputes a candidate order and reports disagreement.
type Reconciler interface {
	Reconcile(ctx context.Context, tenantID string, candidate types.OrderDraft) (reconcile.Result, error)
}

// CatalogLister provides the active catalog for the model prompt.
type CatalogLister interface {
	ListEntries(ctx context.Context, tenantID string) ([]models.CatalogEntry, error)
}

// InboundMessage is one customer turn arriving over the chat webhook.
type InboundMessage struct {
	TenantID   string
	CustomerID string
	Text       string
}

// TurnResult is what a handled turn produced. Reply is empty when the bot
// stayed silent (manual override).
type TurnResult struct {
	ConversationID uuid.UUID
	Status         enums.ConversationStatus
	Reply          string
	Order          types.OrderDraft
	Finalized      bool
}

// Service drives the conversation lifecycle: one inbound turn in, one
// reconciled draft and one outbound reply out.
type Service interface {
	HandleInbound(ctx context.Context, msg InboundMessage) (*TurnResult, error)
	Override(ctx context.Context, conversationID uuid.UUID, enabled bool) error
	List(ctx context.Context, filter ListFilter) (*Page, error)
	Get(ctx context.Context, conversationID uuid.UUID) (*models.Conversation, error)
}

type service struct {
	repo       Repository
	tx         TxRunner
	sessions   session.Store
	completer  Completer
	reconciler Reconciler
	catalog    CatalogLister
	hours      schedule.HoursStore
	messenger  messaging.Messenger
	metrics    *metrics.ChatMetrics
	logg       *logger.Logger

	storeLocation     *time.Location
	llmTimeout        time.Duration
	repairMaxAttempts int
}

// ServiceParams carries the engine dependencies.
type ServiceParams struct {
	Repo       Repository
	Tx         TxRunner
	Sessions   session.Store
	Completer  Completer
	Reconciler Reconciler
	Catalog    CatalogLister
	Hours      schedule.HoursStore
	Messenger  messaging.Messenger
	Metrics    *metrics.ChatMetrics
	Logger     *logger.Logger
	Store      config.StoreConfig
	Chat       config.ChatConfig
	LLMTimeout time.Duration
}

// NewService builds the conversation engine.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("conversation repository required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Sessions == nil:
		return nil, fmt.Errorf("session store required")
	case params.Completer == nil:
		return nil, fmt.Errorf("completer required")
	case params.Reconciler == nil:
		return nil, fmt.Errorf("reconciler required")
	case params.Catalog == nil:
		return nil, fmt.Errorf("catalog lister required")
	case params.Hours == nil:
		return nil, fmt.Errorf("hours store required")
	case params.Messenger == nil:
		return nil, fmt.Errorf("messenger required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}

	loc, err := time.LoadLocation(params.Store.Timezone)
	if err != nil {
		loc = time.UTC
	}
	timeout := params.LLMTimeout
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	maxAttempts := params.Chat.RepairMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	return &service{
		repo:              params.Repo,
		tx:                params.Tx,
		sessions:          params.Sessions,
		completer:         params.Completer,
		reconciler:        params.Reconciler,
		catalog:           params.Catalog,
		hours:             params.Hours,
		messenger:         params.Messenger,
		metrics:           params.Metrics,
		logg:              params.Logger,
		storeLocation:     loc,
		llmTimeout:        timeout,
		repairMaxAttempts: maxAttempts,
	}, nil
}

// HandleInbound processes one customer turn end to end. The model only
// ever proposes; every figure it emits is reconciled against the catalog
// before anything is persisted or sent back.
func (s *service) HandleInbound(ctx context.Context, msg InboundMessage) (*TurnResult, error) {
	started := time.Now()
	defer func() {
		s.metrics.ObserveTurnDuration(msg.TenantID, time.Since(started))
	}()

	if strings.TrimSpace(msg.TenantID) == "" || strings.TrimSpace(msg.CustomerID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant and customer are required")
	}
	if strings.TrimSpace(msg.Text) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message text is required")
	}

	ctx = s.logg.WithTenantID(ctx, msg.TenantID)
	ctx = s.logg.WithCustomerID(ctx, msg.CustomerID)

	conv, err := s.repo.FindActive(ctx, msg.TenantID, msg.CustomerID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		conv = &models.Conversation{
			ID:         uuid.New(),
			TenantID:   msg.TenantID,
			CustomerID: msg.CustomerID,
			Status:     enums.ConversationStatusOpen,
		}
		if err := s.repo.Create(ctx, conv); err != nil {
			return nil, err
		}
	}
	ctx = s.logg.WithConversationID(ctx, conv.ID.String())

	if err := s.repo.AppendMessage(ctx, &models.ConversationMessage{
		ConversationID: conv.ID,
		Role:           llm.RoleUser,
		Body:           msg.Text,
	}); err != nil {
		return nil, err
	}

	// A human took over: record the turn but stay silent.
	if conv.ManualOverride {
		s.logg.Info(ctx, "manual override active, skipping automated reply")
		return &TurnResult{ConversationID: conv.ID, Status: conv.Status, Order: conv.OrderDraft}, nil
	}

	if intent.Classify(msg.Text) == enums.IntentCancel {
		return s.cancel(ctx, conv, msg)
	}

	return s.converse(ctx, conv, msg)
}

// cancel closes the conversation on explicit customer request. The model
// is not consulted: user intent outranks whatever status it would propose.
func (s *service) cancel(ctx context.Context, conv *models.Conversation, msg InboundMessage) (*TurnResult, error) {
	performed, err := s.finalize(ctx, conv, conv.OrderDraft, enums.ConversationStatusCancelled)
	if err != nil {
		return nil, err
	}
	if performed {
		if err := s.sessions.Evict(ctx, msg.TenantID, msg.CustomerID); err != nil {
			s.logg.Warn(ctx, "failed to evict session after cancellation")
		}
	}
	s.respond(ctx, conv, msg, cancelReply)
	return &TurnResult{
		ConversationID: conv.ID,
		Status:         enums.ConversationStatusCancelled,
		Reply:          cancelReply,
		Order:          conv.OrderDraft,
		Finalized:      performed,
	}, nil
}

func (s *service) converse(ctx context.Context, conv *models.Conversation, msg InboundMessage) (*TurnResult, error) {
	base, err := s.promptMessages(ctx, msg)
	if err != nil {
		return nil, err
	}

	raw, err := s.complete(ctx, base)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.metrics.IncLLMTimeout(msg.TenantID)
		}
		s.logg.Error(ctx, "model call failed", err)
		return s.stall(ctx, conv, msg)
	}

	reply, err := ParseModelReply(raw)
	if err != nil {
		s.logg.Warn(ctx, "model reply was unparsable")
		return s.stall(ctx, conv, msg)
	}

	merged := mergeProposal(conv.OrderDraft, reply.Order)
	reconciled, err := s.reconciler.Reconcile(ctx, msg.TenantID, merged)
	if err != nil {
		// Geocoder or catalog store down. The draft is left untouched so
		// nothing the customer already established is lost.
		s.logg.Error(ctx, "reconciliation unavailable", err)
		return s.stall(ctx, conv, msg)
	}

	order := reconciled.Order
	replyText := reply.Response
	forceInProgress := false

	if reconciled.Mismatch && reconciled.HasItems {
		s.metrics.IncMismatch(msg.TenantID)
		repaired := s.repair(ctx, msg.TenantID, base, order)
		order = repaired.Order
		replyText = repaired.Reply
	}

	if reconciled.NeedsAddress {
		replyText = addressRetypeReply
		forceInProgress = true
	}

	week, err := s.hours.Week(ctx, msg.TenantID)
	if err != nil {
		s.logg.Error(ctx, "loading business hours failed", err)
		week = types.WeekSchedule{}
	}
	if verdict := schedule.Validate(order, week, s.storeLocation); !verdict.OK {
		order.ScheduledDate = ""
		order.ScheduledTime = ""
		replyText = verdict.Message
		forceInProgress = true
	}

	status := s.nextStatus(conv, reply, order, msg.Text, forceInProgress)

	if strings.TrimSpace(replyText) == "" {
		if status == enums.ConversationStatusCompleted {
			replyText = confirmReply
		} else {
			replyText = fallbackSummary(order)
		}
	}

	finalized := false
	if status == enums.ConversationStatusCompleted {
		performed, err := s.finalize(ctx, conv, order, status)
		if err != nil {
			return nil, err
		}
		finalized = performed
	}

	if err := s.repo.SaveDraft(ctx, conv.ID, status, order); err != nil {
		return nil, err
	}

	// A terminal turn ends the session outright; appending the closing
	// exchange would leak it into the customer's next conversation.
	if status.IsTerminal() {
		if err := s.sessions.Evict(ctx, msg.TenantID, msg.CustomerID); err != nil {
			s.logg.Warn(ctx, "failed to evict session after completion")
		}
	} else if err := s.sessions.Append(ctx, msg.TenantID, msg.CustomerID,
		llm.Message{Role: llm.RoleUser, Content: msg.Text},
		llm.Message{Role: llm.RoleAssistant, Content: replyText},
	); err != nil {
		s.logg.Warn(ctx, "failed to append session history")
	}

	s.respond(ctx, conv, msg, replyText)

	return &TurnResult{
		ConversationID: conv.ID,
		Status:         status,
		Reply:          replyText,
		Order:          order,
		Finalized:      finalized,
	}, nil
}

// nextStatus applies the lifecycle rules. Completion requires both an
// explicit signal (the model's estado or a confirm intent) and a complete
// order; anything else keeps the conversation open.
func (s *service) nextStatus(conv *models.Conversation, reply ModelReply, order types.OrderDraft, userText string, forceInProgress bool) enums.ConversationStatus {
	if forceInProgress {
		return enums.ConversationStatusInProgress
	}

	proposed, err := enums.ParseConversationStatus(reply.Status)
	if err != nil {
		proposed = conv.Status
	}

	wantsCompletion := proposed == enums.ConversationStatusCompleted ||
		intent.Classify(userText) == enums.IntentConfirm
	if wantsCompletion && orderComplete(order) {
		return enums.ConversationStatusCompleted
	}

	// The model cannot cancel on the customer's behalf; that path runs off
	// explicit user intent before the model is ever consulted.
	if order.HasItems() || conv.Status == enums.ConversationStatusInProgress {
		return enums.ConversationStatusInProgress
	}
	return enums.ConversationStatusOpen
}

// orderComplete reports whether the draft can close: at least one item, a
// resolved fulfillment mode (delivery needs an address) and a requested
// slot.
func orderComplete(order types.OrderDraft) bool {
	if !order.HasItems() {
		return false
	}
	switch order.Mode {
	case enums.OrderModePickup:
	case enums.OrderModeDelivery:
		if order.Address.IsZero() {
			return false
		}
	default:
		return false
	}
	return strings.TrimSpace(order.ScheduledDate) != "" && strings.TrimSpace(order.ScheduledTime) != ""
}

// stall answers with the retry template without touching the draft.
func (s *service) stall(ctx context.Context, conv *models.Conversation, msg InboundMessage) (*TurnResult, error) {
	s.respond(ctx, conv, msg, stallReply)
	return &TurnResult{
		ConversationID: conv.ID,
		Status:         conv.Status,
		Reply:          stallReply,
		Order:          conv.OrderDraft,
	}, nil
}

// respond persists and delivers the outbound reply. Delivery failures are
// logged, not fatal: the turn already committed its state.
func (s *service) respond(ctx context.Context, conv *models.Conversation, msg InboundMessage, text string) {
	if err := s.repo.AppendMessage(ctx, &models.ConversationMessage{
		ConversationID: conv.ID,
		Role:           llm.RoleAssistant,
		Body:           text,
	}); err != nil {
		s.logg.Error(ctx, "failed to persist outbound reply", err)
	}
	if err := s.messenger.Send(ctx, msg.CustomerID, text); err != nil {
		s.logg.Error(ctx, "failed to deliver outbound reply", err)
	}
}

// promptMessages assembles the full prompt: contract, catalog, history and
// the new user turn.
func (s *service) promptMessages(ctx context.Context, msg InboundMessage) ([]llm.Message, error) {
	entries, err := s.catalog.ListEntries(ctx, msg.TenantID)
	if err != nil {
		return nil, err
	}
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Active {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: $%s", entry.Description, entry.UnitPrice.StringFixed(2)))
	}

	history, err := s.sessions.History(ctx, msg.TenantID, msg.CustomerID)
	if err != nil {
		s.logg.Warn(ctx, "failed to load session history")
		history = nil
	}

	messages := make([]llm.Message, 0, len(history)+3)
	messages = append(messages,
		llm.Message{Role: llm.RoleSystem, Content: systemPrompt},
		llm.Message{Role: llm.RoleSystem, Content: catalogPromptSection(lines)},
	)
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: msg.Text})
	return messages, nil
}

// complete calls the model under the configured per-turn timeout.
func (s *service) complete(ctx context.Context, messages []llm.Message) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.llmTimeout)
	defer cancel()
	return s.completer.Complete(callCtx, messages)
}

// finalize flips the conversation into the terminal status and writes the
// order ledger row in one transaction, so a crash between the two writes
// cannot lose the order. The winner of the guarded update is the only
// caller that touches the ledger.
func (s *service) finalize(ctx context.Context, conv *models.Conversation, order types.OrderDraft, status enums.ConversationStatus) (bool, error) {
	performed := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.Finalize(ctx, conv.ID, status)
		if err != nil {
			return err
		}
		performed = ok
		if !ok {
			return nil
		}
		return repo.UpsertOrder(ctx, s.orderRecord(conv, order, status))
	})
	if err != nil {
		return false, err
	}
	return performed, nil
}

func (s *service) orderRecord(conv *models.Conversation, order types.OrderDraft, status enums.ConversationStatus) *models.Order {
	return &models.Order{
		ConversationID: conv.ID,
		TenantID:       conv.TenantID,
		CustomerID:     conv.CustomerID,
		Status:         status,
		Mode:           order.Mode,
		Address:        order.Address,
		Items:          order.Items,
		GrandTotal:     order.GrandTotal,
		ScheduledDate:  order.ScheduledDate,
		ScheduledTime:  order.ScheduledTime,
		DistanceKm:     order.DistanceKm,
	}
}

// Override flips the human-takeover flag for a conversation.
func (s *service) Override(ctx context.Context, conversationID uuid.UUID, enabled bool) error {
	return s.repo.SetManualOverride(ctx, conversationID, enabled)
}

// List exposes conversations to the admin surface.
func (s *service) List(ctx context.Context, filter ListFilter) (*Page, error) {
	return s.repo.List(ctx, filter)
}

// Get loads one conversation by ID.
func (s *service) Get(ctx context.Context, conversationID uuid.UUID) (*models.Conversation, error) {
	return s.repo.FindByID(ctx, conversationID)
}
