package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultSessionTTL is how long an idle chat session is kept.
const DefaultSessionTTL = 24 * time.Hour

// SessionStore persists conversations between turns for clients that do not
// keep the state themselves.
type SessionStore interface {
	Load(ctx context.Context, id string) (Conversation, error)
	Save(ctx context.Context, conv Conversation) error
	Delete(ctx context.Context, id string) error
}

// RedisSessionStore keeps each conversation as a JSON string with a sliding TTL.
type RedisSessionStore struct {
	redis  *redis.Client
	tracer trace.Tracer
	ttl    time.Duration
}

// NewRedisSessionStore creates a session store. A non-positive ttl uses DefaultSessionTTL.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration, tracer trace.Tracer) *RedisSessionStore {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("roofing.internal.conversation.sessions")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisSessionStore{redis: client, tracer: tracer, ttl: ttl}
}

// Save writes the conversation and refreshes its TTL.
func (s *RedisSessionStore) Save(ctx context.Context, conv Conversation) error {
	ctx, span := s.tracer.Start(ctx, "conversation.save_session")
	defer span.End()
	span.SetAttributes(attribute.String("conversation.id", conv.ID))

	if conv.ID == "" {
		return fmt.Errorf("conversation: cannot save session without an id")
	}
	data, err := json.Marshal(conv)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(conv.ID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to persist session: %w", err)
	}
	return nil
}

// Load fetches a conversation; ErrSessionNotFound when it expired or never existed.
func (s *RedisSessionStore) Load(ctx context.Context, id string) (Conversation, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.load_session")
	defer span.End()
	span.SetAttributes(attribute.String("conversation.id", id))

	data, err := s.redis.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Conversation{}, ErrSessionNotFound
		}
		span.RecordError(err)
		return Conversation{}, fmt.Errorf("conversation: failed to load session: %w", err)
	}

	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		span.RecordError(err)
		return Conversation{}, fmt.Errorf("conversation: failed to decode session: %w", err)
	}
	return conv, nil
}

// Delete drops a session.
func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "conversation.delete_session")
	defer span.End()

	if err := s.redis.Del(ctx, sessionKey(id)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to delete session: %w", err)
	}
	return nil
}

func sessionKey(id string) string {
	return fmt.Sprintf("chat_session:%s", id)
}
