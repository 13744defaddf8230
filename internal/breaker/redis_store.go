package breaker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	defaultStateTTL   = 24 * time.Hour
	maxUpdateAttempts = 10
)

// RedisStore shares circuits between replicas. Updates run as WATCH/MULTI
// transactions and are retried when another replica touched the key first.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultStateTTL
	}

	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) Get(ctx context.Context, key string) (State, error) {
	return readState(ctx, r.client, key)
}

func (r *RedisStore) Update(ctx context.Context, key string, fn func(*State) error) (State, error) {
	var result State

	txf := func(tx *redis.Tx) error {
		s, err := readState(ctx, tx, key)
		if err != nil {
			return err
		}

		if err := fn(&s); err != nil {
			return err
		}

		raw, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("encode circuit state: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, r.ttl)
			return nil
		})
		if err == nil {
			result = s
		}

		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}

		if err != nil {
			return State{}, err
		}

		return result, nil
	}

	return State{}, fmt.Errorf("update circuit %s: too many concurrent writers", key)
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readState(ctx context.Context, c stringGetter, key string) (State, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return State{}, nil
	}

	if err != nil {
		return State{}, fmt.Errorf("read circuit %s: %w", key, err)
	}

	var s State
	if err := json.Unmarshal(raw, &s); err != nil {
		return State{}, fmt.Errorf("decode circuit %s: %w", key, err)
	}

	return s, nil
}
