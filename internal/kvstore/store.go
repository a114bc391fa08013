// Package kvstore wraps the external key-value cache that receives
// serialized portfolio/analysis snapshots. Strategy and portfolio code
// depend only on the Store interface, never the concrete client, so the
// client is constructed once and injected, and its absence is tolerated.
package kvstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Store is the minimal capability the core needs: set a string JSON value.
// A KV outage is an operational error: callers log and continue in
// degraded mode rather than treat it as fatal.
type Store interface {
	Set(ctx context.Context, key string, value string) error
}

// SetJSON marshals v and stores it, logging (not returning) marshal
// failures since they indicate an internal invariant breach, not an
// operational one.
func SetJSON(ctx context.Context, s Store, key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to marshal snapshot for kv store")
		return
	}
	if err := s.Set(ctx, key, string(data)); err != nil {
		log.Error().Err(err).Str("key", key).Msg("kv store write failed, continuing in degraded mode")
	}
}

// RedisStore is the production Store backed by github.com/redis/go-redis/v9.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore dials addr. A connection failure degrades to NoopStore
// (logged once) instead of aborting startup, since the KV store is an
// external collaborator whose absence must not stop trading.
func NewRedisStore(addr, password string, db int) Store {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Error().Err(err).Str("addr", addr).Msg("redis unreachable at startup, running in degraded mode without kv snapshots")
		return NoopStore{}
	}

	log.Info().Str("addr", addr).Msg("connected to redis kv store")
	return &RedisStore{client: client}
}

// Set implements Store.
func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

// NoopStore discards every write; it is the degraded-mode fallback.
type NoopStore struct{}

// Set implements Store as a no-op.
func (NoopStore) Set(ctx context.Context, key, value string) error {
	return nil
}
