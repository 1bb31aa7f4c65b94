package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/transmeralda/fleetdocs/constants"
)

const keyPrefix = "session:"

// RedisStore keeps one JSON document per session under session:<id>.
// Only the owning worker writes a given session, so read-modify-write
// without a lock is safe; concurrent readers always see a complete record.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisStore(client *redis.Client, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{client: client, logger: logger}
}

func key(sessionID string) string {
	return keyPrefix + sessionID
}

func (r *RedisStore) Init(ctx context.Context, state State) error {
	state.Status = constants.StatusQueued
	state.UpdatedAt = time.Now().UTC()
	return r.write(ctx, state)
}

func (r *RedisStore) Get(ctx context.Context, sessionID string) (State, error) {
	raw, err := r.client.Get(ctx, key(sessionID)).Bytes()
	if err == redis.Nil {
		return State{}, ErrSessionNotFound
	}
	if err != nil {
		return State{}, fmt.Errorf("session get: %w", err)
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return State{}, fmt.Errorf("session decode: %w", err)
	}
	return st, nil
}

func (r *RedisStore) Advance(ctx context.Context, sessionID string, status constants.SessionStatus, progress int, message string) error {
	st, err := r.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	next, err := st.advance(status, progress, message, time.Now().UTC())
	if err != nil {
		return err
	}
	return r.write(ctx, next)
}

func (r *RedisStore) SetDocument(ctx context.Context, sessionID string, processed int, progress int, category constants.Category) error {
	st, err := r.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	next, err := st.advance(st.Status, progress, "", time.Now().UTC())
	if err != nil {
		return err
	}
	next.ProcessedCount = processed
	next.CurrentCategory = string(category)
	return r.write(ctx, next)
}

func (r *RedisStore) Fail(ctx context.Context, sessionID string, errType constants.ErrorType, message string) error {
	st, err := r.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	next, err := st.fail(errType, message, time.Now().UTC())
	if err != nil {
		r.logger.Warn("session.fail.ignored", "session_id", sessionID, "error", err)
		return nil
	}
	return r.write(ctx, next)
}

func (r *RedisStore) ExpireAfter(ctx context.Context, sessionID string, ttl time.Duration) error {
	if err := r.client.Expire(ctx, key(sessionID), ttl).Err(); err != nil {
		return fmt.Errorf("session expire: %w", err)
	}
	return nil
}

func (r *RedisStore) write(ctx context.Context, st State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("session encode: %w", err)
	}
	if err := r.client.Set(ctx, key(st.SessionID), raw, 0).Err(); err != nil {
		return fmt.Errorf("session set: %w", err)
	}
	return nil
}
