package session

import (
	"context"
	"encoding/json"
	"time"

	pkgerrors "github.com/franmoretti/tiendabot-backend/pkg/errors"
	"github.com/franmoretti/tiendabot-backend/pkg/llm"
	"github.com/franmoretti/tiendabot-backend/pkg/redis"
)

// Store keeps the short-lived chat history handed to the model on each
// turn. History is a cache, not the record: the durable transcript lives
// in conversation_messages.
type Store interface {
	Append(ctx context.Context, tenantID, customerID string, msgs ...llm.Message) error
	History(ctx context.Context, tenantID, customerID string) ([]llm.Message, error)
	Evict(ctx context.Context, tenantID, customerID string) error
}

// Cache is the subset of the redis client the store needs.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	SessionKey(tenantID, customerID string) string
}

type redisStore struct {
	cache        Cache
	ttl          time.Duration
	historyLimit int
}

// NewRedisStore builds the production store. historyLimit caps how many
// messages are retained per session; older turns are trimmed on append.
func NewRedisStore(cache Cache, ttl time.Duration, historyLimit int) (Store, error) {
	if cache == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cache is required")
	}
	if ttl <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session ttl must be positive")
	}
	if historyLimit <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "history limit must be positive")
	}
	return &redisStore{cache: cache, ttl: ttl, historyLimit: historyLimit}, nil
}

func (s *redisStore) Append(ctx context.Context, tenantID, customerID string, msgs ...llm.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	history, err := s.History(ctx, tenantID, customerID)
	if err != nil {
		return err
	}
	history = append(history, msgs...)
	if len(history) > s.historyLimit {
		history = history[len(history)-s.historyLimit:]
	}
	raw, err := json.Marshal(history)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal session history")
	}
	key := s.cache.SessionKey(tenantID, customerID)
	if err := s.cache.Set(ctx, key, string(raw), s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store session history")
	}
	return nil
}

func (s *redisStore) History(ctx context.Context, tenantID, customerID string) ([]llm.Message, error) {
	key := s.cache.SessionKey(tenantID, customerID)
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if redis.IsNil(err) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session history")
	}
	var history []llm.Message
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		// Corrupt payloads are dropped rather than poisoning every turn.
		return nil, nil
	}
	return history, nil
}

func (s *redisStore) Evict(ctx context.Context, tenantID, customerID string) error {
	key := s.cache.SessionKey(tenantID, customerID)
	if err := s.cache.Del(ctx, key); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "evict session")
	}
	return nil
}
