package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("session")

const maxUpdateRetries = 5

type RedisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed session store. Every write refreshes
// the key expiry to ttl.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		rdb:    rdb,
		prefix: "session:",
		ttl:    ttl,
	}
}

func (r *RedisStore) key(id string) string {
	return r.prefix + id
}

func decodeState(val []byte, err error) (State, error) {
	if errors.Is(err, redis.Nil) {
		return State{}, nil
	}
	if err != nil {
		return State{}, err
	}
	var st State
	if err := json.Unmarshal(val, &st); err != nil {
		return State{}, fmt.Errorf("session: failed to unmarshal: %w", err)
	}
	return st, nil
}

// Get loads the state for id.
func (r *RedisStore) Get(ctx context.Context, id string) (State, error) {
	ctx, span := tracer.Start(ctx, "RedisStore.Get")
	defer span.End()

	st, err := decodeState(r.rdb.Get(ctx, r.key(id)).Bytes())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to load session")
		return State{}, err
	}
	return st, nil
}

// Update applies fn inside a WATCH/MULTI transaction, retrying when another
// request modified the same session in between.
func (r *RedisStore) Update(ctx context.Context, id string, fn func(*State) error) (State, error) {
	ctx, span := tracer.Start(ctx, "RedisStore.Update")
	defer span.End()

	key := r.key(id)
	var out State

	txf := func(tx *redis.Tx) error {
		st, err := decodeState(tx.Get(ctx, key).Bytes())
		if err != nil {
			return err
		}
		if err := fn(&st); err != nil {
			return err
		}

		var data []byte
		if !st.IsZero() {
			data, err = json.Marshal(st)
			if err != nil {
				return fmt.Errorf("session: failed to marshal: %w", err)
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if data == nil {
				pipe.Del(ctx, key)
			} else {
				pipe.Set(ctx, key, data, r.ttl)
			}
			return nil
		})
		if err != nil {
			return err
		}
		out = st
		return nil
	}

	for attempt := 1; attempt <= maxUpdateRetries; attempt++ {
		err := r.rdb.Watch(ctx, txf, key)
		if err == nil {
			span.SetAttributes(attribute.Int("session.attempts", attempt))
			return out, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if !isDomainError(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Session update failed")
		}
		return State{}, err
	}

	span.SetStatus(codes.Error, "Session update conflict")
	return State{}, ErrConflict
}

// Delete removes the session.
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "RedisStore.Delete", trace.WithAttributes(
		attribute.Bool("session.present", id != ""),
	))
	defer span.End()

	return r.rdb.Del(ctx, r.key(id)).Err()
}

func isDomainError(err error) bool {
	return errors.Is(err, ErrNoPendingAuth) || errors.Is(err, ErrChallengeNotPassed)
}
