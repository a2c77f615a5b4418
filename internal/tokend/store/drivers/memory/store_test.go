package memory

import (
	"context"
	"testing"
	"time"

	"github.com/fitzroyhq/tokend/internal/tokend/domain"
	"github.com/fitzroyhq/tokend/internal/tokend/store"
	"github.com/fitzroyhq/tokend/internal/tokend/store/storetest"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreContract(t *testing.T) {
	t.Parallel()

	storetest.Run(t, func(t *testing.T) store.Store {
		return NewStore()
	}, storetest.Options{RetainsExpired: true})
}

func TestMemoryStoreTx(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ctx := context.Background()

	_, err := s.Tx(ctx)
	require.ErrorIs(t, err, store.ErrTxUnsupported)

	// WithTx still works: fn runs against the store itself.
	err = s.WithTx(ctx, func(tx store.Tx) error {
		return tx.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
			JTI:       "jti-1",
			UserID:    "user-a",
			SessionID: "sess-1",
			IssuedAt:  time.Now().UTC(),
			ExpiresAt: time.Now().UTC().Add(time.Hour),
		})
	})
	require.NoError(t, err)

	got, err := s.RefreshTokens().GetRefreshTokenByJTI(ctx, "jti-1")
	require.NoError(t, err)
	require.Equal(t, "user-a", got.UserID)
}

func TestMemoryStoreReadsDoNotAlias(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ctx := context.Background()

	tok := domain.RefreshToken{
		JTI:       "jti-alias",
		UserID:    "user-a",
		SessionID: "sess-1",
		IssuedAt:  time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, tok))

	_, err := s.RefreshTokens().RevokeRefreshToken(ctx, tok.JTI, time.Now().UTC())
	require.NoError(t, err)

	got, err := s.RefreshTokens().GetRefreshTokenByJTI(ctx, tok.JTI)
	require.NoError(t, err)
	require.NotNil(t, got.RevokedAt)

	// Mutating the returned copy must not reach stored state.
	*got.RevokedAt = got.RevokedAt.Add(time.Hour)

	again, err := s.RefreshTokens().GetRefreshTokenByJTI(ctx, tok.JTI)
	require.NoError(t, err)
	require.NotEqual(t, got.RevokedAt.Unix(), again.RevokedAt.Unix())
}
