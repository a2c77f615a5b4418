package store

import (
	"context"
	"errors"
	"time"

	"github.com/fitzroyhq/tokend/internal/tokend/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrTxUnsupported is returned by drivers without real transactions
	// (memory, redis). Their conditional revoke is still atomic, which is
	// the only linearization point rotation relies on.
	ErrTxUnsupported = errors.New("store: transactions unsupported")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres, redis, memory) implement this. It exposes sub-repositories to
// keep concerns tidy and testable, and to actively stop people from
// accidently doing transactions within transactions.
type Store interface {
	RefreshTokens() RefreshTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// Use it for multi-step operations that must be atomic (e.g., refresh rotation).
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// Drivers without transactions run fn directly; see ErrTxUnsupported.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the backing storage is still reachable.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token record.
	// Returns ErrAlreadyExists if the jti is already present.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByJTI returns the record for a jti, revoked or not.
	GetRefreshTokenByJTI(ctx context.Context, jti string) (domain.RefreshToken, error)

	// RevokeRefreshToken stamps revoked_at on the record iff it is not
	// already revoked. Returns true when this call did the stamping.
	// Rotation races resolve here: of N concurrent callers exactly one
	// sees true. An unknown jti is (false, nil), not an error.
	RevokeRefreshToken(ctx context.Context, jti string, at time.Time) (bool, error)

	// RevokeSessionRefreshTokens revokes every live record in a session
	// lineage and reports how many rows were stamped.
	RevokeSessionRefreshTokens(ctx context.Context, sessionID string, at time.Time) (int64, error)

	// RevokeUserRefreshTokens revokes every live record belonging to a
	// user, across all sessions.
	RevokeUserRefreshTokens(ctx context.Context, userID string, at time.Time) (int64, error)

	// CountActiveSessions counts distinct sessions with a live record.
	CountActiveSessions(ctx context.Context, userID string, now time.Time) (int, error)

	// ListActiveRefreshTokens returns the live records for a user,
	// oldest session first.
	ListActiveRefreshTokens(ctx context.Context, userID string, now time.Time) ([]domain.RefreshToken, error)

	// OldestActiveSession returns the session id of the user's
	// longest-lived active session, or ErrNotFound when none exist.
	// Session ids are ULIDs, so their ordering is creation order.
	OldestActiveSession(ctx context.Context, userID string, now time.Time) (string, error)

	// DeleteExpiredRefreshTokens prunes rows past their natural expiry.
	// Revoked rows are kept until then; they are the replay evidence.
	DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error)
}
