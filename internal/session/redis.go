package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"pdf-chat-backend/models"
)

const keyPrefix = "chat:session:"

// RedisStore keeps each session as a Redis list of JSON turns so that
// history is shared between API replicas. Idle sessions expire with the key.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func key(id string) string { return keyPrefix + id }

func (r *RedisStore) GetOrCreate(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrInvalidID
	}

	raw, err := r.client.LRange(ctx, key(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	turns := make([]models.Turn, 0, len(raw))
	for _, item := range raw {
		var t models.Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, fmt.Errorf("failed to decode turn: %w", err)
		}
		turns = append(turns, t)
	}

	if r.ttl > 0 && len(turns) > 0 {
		r.client.Expire(ctx, key(id), r.ttl)
	}
	return newSession(id, turns), nil
}

func (r *RedisStore) AppendTurn(ctx context.Context, id string, turn models.Turn) error {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}
	return r.push(ctx, id, turn)
}

func (r *RedisStore) AppendExchange(ctx context.Context, id, user, assistant string) error {
	return r.push(ctx, id, exchange(user, assistant, time.Now())...)
}

// push appends turns inside one MULTI/EXEC so that both halves of an exchange land together.
func (r *RedisStore) push(ctx context.Context, id string, turns ...models.Turn) error {
	if id == "" {
		return ErrInvalidID
	}

	values := make([]interface{}, len(turns))
	for i, t := range turns {
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("failed to encode turn: %w", err)
		}
		values[i] = b
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key(id), values...)
		if r.ttl > 0 {
			pipe.Expire(ctx, key(id), r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append to session: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
