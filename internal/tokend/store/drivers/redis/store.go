// Package redis implements the token store on Redis. Each refresh token
// record is a hash whose key TTL is the token's natural expiry, so replay
// evidence self-prunes exactly when the token would stop being usable
// anyway. Per-user and per-session sorted sets index the records, scored
// by expiry so stale members can be ranged away.
package redis

import (
	"context"
	"time"

	"github.com/fitzroyhq/tokend/internal/tokend/store"
	goredis "github.com/redis/go-redis/v9"
)

const defaultPrefix = "tokend"

type Store struct {
	rdb    goredis.UniversalClient
	prefix string
}

// NewStore wraps an existing Redis client. prefix namespaces every key and
// defaults to "tokend". The store takes ownership of the client; Close
// closes it.
func NewStore(rdb goredis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{
		rdb:    rdb,
		prefix: prefix,
	}
}

func (s *Store) Close() error { return s.rdb.Close() }

// Ping verifies the Redis connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// ApplyMigrations is a no-op: Redis is schemaless.
func (s *Store) ApplyMigrations() error { return nil }

// Tx is unsupported. Every mutating operation here is a single Lua script,
// so there is no multi-step state to make atomic.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	return nil, store.ErrTxUnsupported
}

// WithTx runs fn directly against the store. Commit and Rollback on the
// handed-in Tx are no-ops; each operation already applied atomically.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return fn(noopTx{s})
}

func (s *Store) RefreshTokens() store.RefreshTokens {
	return &refreshTokensRepo{rdb: s.rdb, prefix: s.prefix}
}

// noopTx satisfies store.Tx for a backend whose writes are individually
// atomic. There is nothing to commit or roll back.
type noopTx struct {
	*Store
}

func (noopTx) Commit() error   { return nil }
func (noopTx) Rollback() error { return nil }
