package sqlite

import (
	"context"
	"database/sql"

	"github.com/fitzroyhq/tokend/internal/tokend/store"
)

// txStore answers repository calls from inside an open *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

func newTx(tx *sql.Tx) *txStore { return &txStore{tx: tx} }

func (t *txStore) RefreshTokens() store.RefreshTokens { return &refreshTokensRepo{db: t.tx} }

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

// Close is a no-op: the owning Store keeps the database open, and the
// caller settles the transaction through Commit or Rollback.
func (t *txStore) Close() error { return nil }

// Ping reports healthy; the connection was checked out when the
// transaction began.
func (t *txStore) Ping(ctx context.Context) error { return nil }

// Nested transactions are not supported (would need SAVEPOINTs).
func (t *txStore) Tx(ctx context.Context) (store.Tx, error) { return nil, sql.ErrTxDone }

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

// ApplyMigrations is a no-op here; the schema is migrated before any
// transaction starts.
func (t *txStore) ApplyMigrations() error { return nil }
