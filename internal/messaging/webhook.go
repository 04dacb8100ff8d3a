package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/franmoretti/tiendabot-backend/pkg/errors"
)

const webhookBodyReadLimit int64 = 1024

// WebhookMessenger POSTs outbound replies to a configured relay endpoint.
type WebhookMessenger struct {
	httpClient *http.Client
	url        string
	token      string
}

// WebhookOption configures optional messenger behavior.
type WebhookOption func(*WebhookMessenger)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) WebhookOption {
	return func(m *WebhookMessenger) {
		if client != nil {
			m.httpClient = client
		}
	}
}

// WithToken sets the bearer token sent with each delivery.
func WithToken(token string) WebhookOption {
	return func(m *WebhookMessenger) {
		m.token = strings.TrimSpace(token)
	}
}

// NewWebhookMessenger builds a messenger targeting the given relay URL.
func NewWebhookMessenger(url string, opts ...WebhookOption) (*WebhookMessenger, error) {
	trimmed := strings.TrimSpace(url)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "webhook url is required")
	}

	m := &WebhookMessenger{
		url:        trimmed,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	if m.httpClient == nil {
		m.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return m, nil
}

type outboundMessage struct {
	CustomerID string `json:"customer_id"`
	Text       string `json:"text"`
}

// Send delivers one reply. Failures are dependency errors; callers decide
// whether delivery is fatal for the turn.
func (m *WebhookMessenger) Send(ctx context.Context, customerID, text string) error {
	payload, err := json.Marshal(outboundMessage{CustomerID: customerID, Text: text})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal outbound message")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build delivery request")
	}
	req.Header.Set("Content-Type", "application/json")
	if m.token != "" {
		req.Header.Set("Authorization", "Bearer "+m.token)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deliver message")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, webhookBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
			"message delivery rejected")
	}
	return nil
}
