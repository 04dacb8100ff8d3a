package conversation

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/franmoretti/tiendabot-backend/internal/reconcile"
	"github.com/franmoretti/tiendabot-backend/internal/session"
	"github.com/franmoretti/tiendabot-backend/pkg/config"
	"github.com/franmoretti/tiendabot-backend/pkg/db/models"
	"github.com/franmoretti/tiendabot-backend/pkg/enums"
	"github.com/franmoretti/tiendabot-backend/pkg/llm"
	"github.com/franmoretti/tiendabot-backend/pkg/logger"
	"github.com/franmoretti/tiendabot-backend/pkg/metrics"
	"github.com/franmoretti/tiendabot-backend/pkg/types"
)

type stubRepo struct {
	conv          *models.Conversation
	finalized     bool
	finalizeCalls int
	orders        []*models.Order
	messages      []models.ConversationMessage
	savedStatus   enums.ConversationStatus
	savedDraft    types.OrderDraft
}

func (s *stubRepo) WithTx(_ *gorm.DB) Repository {
	return s
}

func (s *stubRepo) FindActive(_ context.Context, _, _ string) (*models.Conversation, error) {
	return s.conv, nil
}

func (s *stubRepo) FindByID(_ context.Context, _ uuid.UUID) (*models.Conversation, error) {
	return s.conv, nil
}

func (s *stubRepo) Create(_ context.Context, conv *models.Conversation) error {
	s.conv = conv
	return nil
}

func (s *stubRepo) SaveDraft(_ context.Context, _ uuid.UUID, status enums.ConversationStatus, draft types.OrderDraft) error {
	s.savedStatus = status
	s.savedDraft = draft
	return nil
}

func (s *stubRepo) AppendMessage(_ context.Context, msg *models.ConversationMessage) error {
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *stubRepo) Finalize(_ context.Context, _ uuid.UUID, _ enums.ConversationStatus) (bool, error) {
	s.finalizeCalls++
	if s.finalized {
		return false, nil
	}
	s.finalized = true
	return true, nil
}

func (s *stubRepo) UpsertOrder(_ context.Context, order *models.Order) error {
	s.orders = append(s.orders, order)
	return nil
}

func (s *stubRepo) SetManualOverride(_ context.Context, _ uuid.UUID, _ bool) error {
	return nil
}

func (s *stubRepo) List(_ context.Context, _ ListFilter) (*Page, error) {
	return &Page{}, nil
}

type stubTx struct{}

func (stubTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubCompleter struct {
	calls   int
	replies []string
	err     error
}

func (s *stubCompleter) Complete(_ context.Context, _ []llm.Message) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	idx := s.calls - 1
	if idx >= len(s.replies) {
		idx = len(s.replies) - 1
	}
	return s.replies[idx], nil
}

type stubReconciler struct {
	fn func(candidate types.OrderDraft) reconcile.Result
}

func (s *stubReconciler) Reconcile(_ context.Context, _ string, candidate types.OrderDraft) (reconcile.Result, error) {
	if s.fn != nil {
		return s.fn(candidate), nil
	}
	return reconcile.Result{Order: candidate, HasItems: candidate.HasItems()}, nil
}

type stubCatalog struct{}

func (stubCatalog) ListEntries(_ context.Context, _ string) ([]models.CatalogEntry, error) {
	return []models.CatalogEntry{
		{Description: "empanada de carne", UnitPrice: decimal.NewFromInt(350), Active: true},
	}, nil
}

type stubHours struct {
	week types.WeekSchedule
}

func (s *stubHours) Week(_ context.Context, _ string) (types.WeekSchedule, error) {
	return s.week, nil
}

func (s *stubHours) PutWeek(_ context.Context, _ string, _ types.WeekSchedule) error {
	return nil
}

type stubMessenger struct {
	sent []string
}

func (s *stubMessenger) Send(_ context.Context, _, text string) error {
	s.sent = append(s.sent, text)
	return nil
}

func allWeek() types.WeekSchedule {
	week := types.WeekSchedule{}
	for _, day := range []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"} {
		week[day] = []types.TimeRange{{From: "00:00", To: "23:59"}}
	}
	return week
}

type testHarness struct {
	svc       Service
	repo      *stubRepo
	completer *stubCompleter
	messenger *stubMessenger
	sessions  session.Store
}

func newTestService(t *testing.T, repo *stubRepo, completer *stubCompleter, reconciler Reconciler) *testHarness {
	t.Helper()

	messenger := &stubMessenger{}
	sessions := session.NewMemoryStore(20)
	svc, err := NewService(ServiceParams{
		Repo:       repo,
		Tx:         stubTx{},
		Sessions:   sessions,
		Completer:  completer,
		Reconciler: reconciler,
		Catalog:    stubCatalog{},
		Hours:      &stubHours{week: allWeek()},
		Messenger:  messenger,
		Metrics:    metrics.NewChatMetrics(nil),
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Store:      config.StoreConfig{Timezone: "UTC", DeliveryKeyword: "envío"},
		Chat:       config.ChatConfig{RepairMaxAttempts: 3, HistoryLimit: 20},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &testHarness{svc: svc, repo: repo, completer: completer, messenger: messenger, sessions: sessions}
}

func inbound(text string) InboundMessage {
	return InboundMessage{TenantID: "t1", CustomerID: "c1", Text: text}
}

const wrongTotalsReply = `{"respuesta":"Tu pedido sale $5000","estado":"IN_PROGRESS","pedido":{"entrega":"retiro","items":[{"descripcion":"empanada de carne","cantidad":12,"precio_unitario":400,"total":4800}],"total":4800}}`

func TestHandleInboundRepairLoopIsBounded(t *testing.T) {
	repo := &stubRepo{}
	completer := &stubCompleter{replies: []string{wrongTotalsReply}}
	reconciler := &stubReconciler{fn: func(candidate types.OrderDraft) reconcile.Result {
		order := candidate
		order.GrandTotal = decimal.NewFromInt(4200)
		return reconcile.Result{Order: order, Mismatch: true, HasItems: true}
	}}
	h := newTestService(t, repo, completer, reconciler)

	result, err := h.svc.HandleInbound(context.Background(), inbound("12 empanadas de carne"))
	if err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}

	// One initial call plus exactly RepairMaxAttempts repair calls.
	if completer.calls != 4 {
		t.Fatalf("model calls = %d, want 4", completer.calls)
	}
	if !strings.Contains(result.Reply, "Total: $4200.00") {
		t.Fatalf("exhausted repair must fall back to the templated summary, got %q", result.Reply)
	}
	if !result.Order.GrandTotal.Equal(decimal.NewFromInt(4200)) {
		t.Fatalf("order total = %s, want 4200", result.Order.GrandTotal)
	}
}

func TestHandleInboundRepairSucceedsMidLoop(t *testing.T) {
	repo := &stubRepo{}
	completer := &stubCompleter{replies: []string{
		wrongTotalsReply,
		`{"respuesta":"Perdón, son $4200","estado":"IN_PROGRESS","pedido":{"entrega":"retiro","items":[{"descripcion":"empanada de carne","cantidad":12,"precio_unitario":350,"total":4200}],"total":4200}}`,
	}}
	attempt := 0
	reconciler := &stubReconciler{fn: func(candidate types.OrderDraft) reconcile.Result {
		attempt++
		order := candidate
		order.GrandTotal = decimal.NewFromInt(4200)
		return reconcile.Result{Order: order, Mismatch: attempt == 1, HasItems: true}
	}}
	h := newTestService(t, repo, completer, reconciler)

	result, err := h.svc.HandleInbound(context.Background(), inbound("12 empanadas de carne"))
	if err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	if completer.calls != 2 {
		t.Fatalf("model calls = %d, want 2", completer.calls)
	}
	if result.Reply != "Perdón, son $4200" {
		t.Fatalf("reply = %q", result.Reply)
	}
}

func TestHandleInboundCancelIntentWins(t *testing.T) {
	existing := &models.Conversation{
		ID:       uuid.New(),
		TenantID: "t1", CustomerID: "c1",
		Status: enums.ConversationStatusInProgress,
		OrderDraft: types.OrderDraft{
			Items: []types.OrderItem{{ID: 1, Description: "empanada de carne", Quantity: decimal.NewFromInt(2)}},
		},
	}
	repo := &stubRepo{conv: existing}
	completer := &stubCompleter{replies: []string{wrongTotalsReply}}
	h := newTestService(t, repo, completer, &stubReconciler{})

	result, err := h.svc.HandleInbound(context.Background(), inbound("quiero cancelar mi pedido"))
	if err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	if result.Status != enums.ConversationStatusCancelled {
		t.Fatalf("status = %s", result.Status)
	}
	if !result.Finalized {
		t.Fatal("first cancellation must finalize")
	}
	if completer.calls != 0 {
		t.Fatal("cancellation must not consult the model")
	}
	if len(repo.orders) != 1 || repo.orders[0].Status != enums.ConversationStatusCancelled {
		t.Fatalf("ledger orders = %+v", repo.orders)
	}
	if len(h.messenger.sent) != 1 {
		t.Fatalf("sent = %d", len(h.messenger.sent))
	}

	// A redelivered cancellation converges without a second ledger write.
	repo.conv = existing
	again, err := h.svc.HandleInbound(context.Background(), inbound("cancelar"))
	if err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	if again.Finalized {
		t.Fatal("second cancellation must not finalize again")
	}
	if len(repo.orders) != 1 {
		t.Fatalf("ledger orders after redelivery = %d, want 1", len(repo.orders))
	}
}

func TestHandleInboundNegatedCancelGoesToModel(t *testing.T) {
	repo := &stubRepo{}
	completer := &stubCompleter{replies: []string{
		`{"respuesta":"¡Seguimos!","estado":"OPEN","pedido":{"items":[]}}`,
	}}
	h := newTestService(t, repo, completer, &stubReconciler{})

	result, err := h.svc.HandleInbound(context.Background(), inbound("no quiero cancelar, sumá una empanada"))
	if err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	if result.Status == enums.ConversationStatusCancelled {
		t.Fatal("negated cancel must not close the conversation")
	}
	if completer.calls != 1 {
		t.Fatalf("model calls = %d, want 1", completer.calls)
	}
}

func TestHandleInboundModelFailureStallsWithoutTouchingDraft(t *testing.T) {
	draft := types.OrderDraft{
		Items: []types.OrderItem{{ID: 1, Description: "empanada de carne", Quantity: decimal.NewFromInt(2)}},
	}
	existing := &models.Conversation{
		ID:       uuid.New(),
		TenantID: "t1", CustomerID: "c1",
		Status:     enums.ConversationStatusInProgress,
		OrderDraft: draft,
	}
	repo := &stubRepo{conv: existing}
	completer := &stubCompleter{err: context.DeadlineExceeded}
	h := newTestService(t, repo, completer, &stubReconciler{})

	result, err := h.svc.HandleInbound(context.Background(), inbound("hola?"))
	if err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	if result.Reply == "" || !strings.Contains(result.Reply, "repetís") {
		t.Fatalf("reply = %q", result.Reply)
	}
	if result.Status != enums.ConversationStatusInProgress {
		t.Fatalf("status = %s", result.Status)
	}
	if len(result.Order.Items) != 1 {
		t.Fatal("draft must survive a model failure")
	}
	if repo.savedStatus != "" {
		t.Fatal("stalled turn must not rewrite the draft")
	}
}

func TestHandleInboundCompletionFinalizesOnce(t *testing.T) {
	existing := &models.Conversation{
		ID:       uuid.New(),
		TenantID: "t1", CustomerID: "c1",
		Status: enums.ConversationStatusInProgress,
	}
	repo := &stubRepo{conv: existing}
	completer := &stubCompleter{replies: []string{
		`{"respuesta":"¡Gracias por tu compra!","estado":"COMPLETED","pedido":{"entrega":"retiro","items":[{"descripcion":"empanada de carne","cantidad":12,"precio_unitario":350,"total":4200}],"total":4200,"fecha":"2026-09-07","hora":"12:00"}}`,
	}}
	h := newTestService(t, repo, completer, &stubReconciler{})

	result, err := h.svc.HandleInbound(context.Background(), inbound("confirmo"))
	if err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	if result.Status != enums.ConversationStatusCompleted {
		t.Fatalf("status = %s", result.Status)
	}
	if !result.Finalized {
		t.Fatal("completion must finalize")
	}
	if len(repo.orders) != 1 || repo.orders[0].Status != enums.ConversationStatusCompleted {
		t.Fatalf("ledger orders = %+v", repo.orders)
	}
	if repo.orders[0].ConversationID != existing.ID {
		t.Fatal("ledger row must be keyed to the conversation")
	}
}

func TestHandleInboundCompletionLeavesNoSessionHistory(t *testing.T) {
	repo := &stubRepo{}
	completer := &stubCompleter{replies: []string{
		`{"respuesta":"Anotado, ¿algo más?","estado":"IN_PROGRESS","pedido":{"entrega":"retiro","items":[{"descripcion":"empanada de carne","cantidad":12,"precio_unitario":350,"total":4200}],"total":4200,"fecha":"2026-09-07","hora":"12:00"}}`,
		`{"respuesta":"¡Gracias por tu compra!","estado":"COMPLETED","pedido":{"entrega":"retiro","items":[{"descripcion":"empanada de carne","cantidad":12,"precio_unitario":350,"total":4200}],"total":4200,"fecha":"2026-09-07","hora":"12:00"}}`,
	}}
	h := newTestService(t, repo, completer, &stubReconciler{})
	ctx := context.Background()

	if _, err := h.svc.HandleInbound(ctx, inbound("12 empanadas de carne")); err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	history, err := h.sessions.History(ctx, "t1", "c1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("open turn must record the exchange, history = %d", len(history))
	}

	result, err := h.svc.HandleInbound(ctx, inbound("confirmo"))
	if err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	if result.Status != enums.ConversationStatusCompleted {
		t.Fatalf("status = %s", result.Status)
	}

	// The next conversation for this customer starts from scratch.
	history, err = h.sessions.History(ctx, "t1", "c1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("completed conversation must leave no history, got %d messages", len(history))
	}
}

func TestHandleInboundCompletionWithBlankReplyConfirms(t *testing.T) {
	repo := &stubRepo{}
	completer := &stubCompleter{replies: []string{
		`{"respuesta":"","estado":"COMPLETED","pedido":{"entrega":"retiro","items":[{"descripcion":"empanada de carne","cantidad":12,"precio_unitario":350,"total":4200}],"total":4200,"fecha":"2026-09-07","hora":"12:00"}}`,
	}}
	h := newTestService(t, repo, completer, &stubReconciler{})

	result, err := h.svc.HandleInbound(context.Background(), inbound("confirmo"))
	if err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	if result.Status != enums.ConversationStatusCompleted {
		t.Fatalf("status = %s", result.Status)
	}
	if result.Reply != confirmReply {
		t.Fatalf("reply = %q, want the confirmation message", result.Reply)
	}
}

func TestHandleInboundIncompleteOrderCannotComplete(t *testing.T) {
	repo := &stubRepo{}
	// estado COMPLETED but delivery without an address.
	completer := &stubCompleter{replies: []string{
		`{"respuesta":"¡Listo!","estado":"COMPLETED","pedido":{"entrega":"envío","items":[{"descripcion":"empanada de carne","cantidad":12,"precio_unitario":350,"total":4200}],"total":4200,"fecha":"2026-09-07","hora":"12:00"}}`,
	}}
	h := newTestService(t, repo, completer, &stubReconciler{})

	result, err := h.svc.HandleInbound(context.Background(), inbound("dale"))
	if err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	if result.Status == enums.ConversationStatusCompleted {
		t.Fatal("delivery without address must not complete")
	}
	if result.Finalized {
		t.Fatal("incomplete order must not finalize")
	}
	if len(repo.orders) != 0 {
		t.Fatal("no ledger row for an unfinished order")
	}
}

func TestHandleInboundModelCannotCancel(t *testing.T) {
	repo := &stubRepo{}
	completer := &stubCompleter{replies: []string{
		`{"respuesta":"Cancelado","estado":"CANCELLED","pedido":{"items":[]}}`,
	}}
	h := newTestService(t, repo, completer, &stubReconciler{})

	result, err := h.svc.HandleInbound(context.Background(), inbound("mmm no sé"))
	if err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	if result.Status == enums.ConversationStatusCancelled {
		t.Fatal("the model cannot cancel on the customer's behalf")
	}
	if repo.finalizeCalls != 0 {
		t.Fatal("no finalization without user intent")
	}
}

func TestHandleInboundManualOverrideStaysSilent(t *testing.T) {
	existing := &models.Conversation{
		ID:       uuid.New(),
		TenantID: "t1", CustomerID: "c1",
		Status:         enums.ConversationStatusInProgress,
		ManualOverride: true,
	}
	repo := &stubRepo{conv: existing}
	completer := &stubCompleter{replies: []string{wrongTotalsReply}}
	h := newTestService(t, repo, completer, &stubReconciler{})

	result, err := h.svc.HandleInbound(context.Background(), inbound("hola"))
	if err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	if result.Reply != "" {
		t.Fatalf("reply = %q, want silence", result.Reply)
	}
	if completer.calls != 0 {
		t.Fatal("override must not consult the model")
	}
	if len(h.messenger.sent) != 0 {
		t.Fatal("override must not send a reply")
	}
	if len(repo.messages) != 1 {
		t.Fatalf("inbound turn must still be recorded, messages = %d", len(repo.messages))
	}
}

func TestHandleInboundNeedsAddressForcesRetype(t *testing.T) {
	repo := &stubRepo{}
	completer := &stubCompleter{replies: []string{
		`{"respuesta":"¡Va en camino!","estado":"IN_PROGRESS","pedido":{"entrega":"envío","direccion":"por el centro","items":[{"descripcion":"empanada de carne","cantidad":2,"precio_unitario":350,"total":700}],"total":700}}`,
	}}
	reconciler := &stubReconciler{fn: func(candidate types.OrderDraft) reconcile.Result {
		order := candidate
		order.Address = types.Address{}
		return reconcile.Result{Order: order, HasItems: true, NeedsAddress: true}
	}}
	h := newTestService(t, repo, completer, reconciler)

	result, err := h.svc.HandleInbound(context.Background(), inbound("mandalo por el centro"))
	if err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	if !strings.Contains(result.Reply, "dirección") && !strings.Contains(result.Reply, "escribís") {
		t.Fatalf("reply = %q", result.Reply)
	}
	if result.Status != enums.ConversationStatusInProgress {
		t.Fatalf("status = %s", result.Status)
	}
}

func TestHandleInboundClosedDayRejectsSlot(t *testing.T) {
	repo := &stubRepo{}
	completer := &stubCompleter{replies: []string{
		`{"respuesta":"Agendado","estado":"IN_PROGRESS","pedido":{"entrega":"retiro","items":[{"descripcion":"empanada de carne","cantidad":2,"precio_unitario":350,"total":700}],"total":700,"fecha":"2026-09-06","hora":"12:00"}}`,
	}}
	messenger := &stubMessenger{}
	svc, err := NewService(ServiceParams{
		Repo:       repo,
		Tx:         stubTx{},
		Sessions:   session.NewMemoryStore(20),
		Completer:  completer,
		Reconciler: &stubReconciler{},
		Catalog:    stubCatalog{},
		Hours:      &stubHours{week: types.WeekSchedule{"monday": {{From: "09:00", To: "13:00"}}}},
		Messenger:  messenger,
		Metrics:    metrics.NewChatMetrics(nil),
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Store:      config.StoreConfig{Timezone: "UTC"},
		Chat:       config.ChatConfig{RepairMaxAttempts: 3, HistoryLimit: 20},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	// 2026-09-06 is a Sunday; only Monday is configured.
	result, err := svc.HandleInbound(context.Background(), inbound("para el domingo al mediodía"))
	if err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	if !strings.Contains(result.Reply, "no atendemos") {
		t.Fatalf("reply = %q", result.Reply)
	}
	if result.Status != enums.ConversationStatusInProgress {
		t.Fatalf("status = %s", result.Status)
	}
	if result.Order.ScheduledDate != "" || result.Order.ScheduledTime != "" {
		t.Fatal("rejected slot must be cleared for re-elicitation")
	}
}
