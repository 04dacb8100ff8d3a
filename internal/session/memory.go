package session

import (
	"context"
	"sync"

	"github.com/franmoretti/tiendabot-backend/pkg/llm"
)

type memoryStore struct {
	mu           sync.Mutex
	sessions     map[string][]llm.Message
	historyLimit int
}

// NewMemoryStore is an in-process Store used in tests and local runs
// without Redis.
func NewMemoryStore(historyLimit int) Store {
	if historyLimit <= 0 {
		historyLimit = 20
	}
	return &memoryStore{sessions: make(map[string][]llm.Message), historyLimit: historyLimit}
}

func (s *memoryStore) key(tenantID, customerID string) string {
	return tenantID + ":" + customerID
}

func (s *memoryStore) Append(_ context.Context, tenantID, customerID string, msgs ...llm.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := s.key(tenantID, customerID)
	history := append(s.sessions[key], msgs...)
	if len(history) > s.historyLimit {
		history = history[len(history)-s.historyLimit:]
	}
	s.sessions[key] = history
	return nil
}

func (s *memoryStore) History(_ context.Context, tenantID, customerID string) ([]llm.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := s.sessions[s.key(tenantID, customerID)]
	out := make([]llm.Message, len(history))
	copy(out, history)
	return out, nil
}

func (s *memoryStore) Evict(_ context.Context, tenantID, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, s.key(tenantID, customerID))
	return nil
}
