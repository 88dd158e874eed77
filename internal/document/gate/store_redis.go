package gate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"notaria/pkg/platform/sentinel"
)

const (
	pendingKeyPrefix = "notaria:gate:pending:"
	undoKeyPrefix    = "notaria:gate:undo:"
)

// RedisStore shares session state across instances. Values are JSON with the
// entry TTL as the key expiry.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) PutPending(ctx context.Context, session string, p *Pending, ttl time.Duration) error {
	return r.put(ctx, pendingKeyPrefix+session, p, ttl)
}

func (r *RedisStore) GetPending(ctx context.Context, session string) (*Pending, error) {
	var p Pending
	if err := r.get(ctx, pendingKeyPrefix+session, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *RedisStore) DeletePending(ctx context.Context, session string) error {
	return r.client.Del(ctx, pendingKeyPrefix+session).Err()
}

func (r *RedisStore) PutUndo(ctx context.Context, session string, e *UndoEntry, ttl time.Duration) error {
	return r.put(ctx, undoKeyPrefix+session, e, ttl)
}

func (r *RedisStore) GetUndo(ctx context.Context, session string) (*UndoEntry, error) {
	var e UndoEntry
	if err := r.get(ctx, undoKeyPrefix+session, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *RedisStore) DeleteUndo(ctx context.Context, session string) error {
	return r.client.Del(ctx, undoKeyPrefix+session).Err()
}

func (r *RedisStore) put(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal session entry: %w", err)
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

func (r *RedisStore) get(ctx context.Context, key string, v any) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal session entry: %w", err)
	}
	return nil
}
