// Package memory implements the token store as an in-process map. It backs
// unit tests and single-node dev setups where standing up sqlite is more
// ceremony than the job needs. Semantics track the SQL drivers: revoked
// rows stay visible until pruned past their natural expiry.
package memory

import (
	"context"

	"github.com/fitzroyhq/tokend/internal/tokend/domain"
	"github.com/fitzroyhq/tokend/internal/tokend/store"
)

type Store struct {
	repo *refreshTokensRepo
}

func NewStore() *Store {
	return &Store{
		repo: &refreshTokensRepo{
			tokens: make(map[string]domain.RefreshToken),
		},
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) Ping(ctx context.Context) error { return nil }

// ApplyMigrations is a no-op: there is no schema.
func (s *Store) ApplyMigrations() error { return nil }

// Tx is unsupported. The repo serializes every operation on one mutex, so
// there is no partial state a transaction would need to hide.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	return nil, store.ErrTxUnsupported
}

// WithTx runs fn directly against the store. Commit and Rollback on the
// handed-in Tx are no-ops; each operation already applied atomically.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return fn(noopTx{s})
}

func (s *Store) RefreshTokens() store.RefreshTokens { return s.repo }

type noopTx struct {
	*Store
}

func (noopTx) Commit() error   { return nil }
func (noopTx) Rollback() error { return nil }
