// Package storetest runs every store driver through the behaviour the
// token lifecycle relies on, so a driver that passes here can back the
// service without surprises.
package storetest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fitzroyhq/tokend/internal/tokend/domain"
	"github.com/fitzroyhq/tokend/internal/tokend/store"
	"github.com/fitzroyhq/tokend/pkg/idx"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// Options flags the places where backend semantics legitimately differ.
type Options struct {
	// RetainsExpired is set by drivers that keep rows past natural expiry
	// until pruned. Redis keys carry a TTL and self-delete at expiry, so
	// that driver opts out of assertions which read rows back afterwards.
	RetainsExpired bool
}

// Run exercises a fresh store from newStore against the shared contract.
func Run(t *testing.T, newStore func(t *testing.T) store.Store, opts Options) {
	base := time.Now().UTC().Truncate(time.Millisecond)

	newToken := func(userID, sessionID string, ttl time.Duration) domain.RefreshToken {
		return domain.RefreshToken{
			JTI:       uuid.NewString(),
			UserID:    userID,
			SessionID: sessionID,
			IssuedAt:  base,
			ExpiresAt: base.Add(ttl),
			IP:        "203.0.113.9",
			UserAgent: "storetest/1.0",
		}
	}

	t.Run("create and fetch round trip", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		repo := s.RefreshTokens()

		want := newToken("user-a", idx.New().String(), time.Hour)
		want.RotatedFrom = uuid.NewString()
		require.NoError(t, repo.CreateRefreshToken(ctx, want))

		got, err := repo.GetRefreshTokenByJTI(ctx, want.JTI)
		require.NoError(t, err)
		require.Equal(t, want.JTI, got.JTI)
		require.Equal(t, want.UserID, got.UserID)
		require.Equal(t, want.SessionID, got.SessionID)
		require.Equal(t, want.RotatedFrom, got.RotatedFrom)
		require.Equal(t, want.IP, got.IP)
		require.Equal(t, want.UserAgent, got.UserAgent)
		require.WithinDuration(t, want.IssuedAt, got.IssuedAt, time.Second)
		require.WithinDuration(t, want.ExpiresAt, got.ExpiresAt, time.Second)
		require.Nil(t, got.RevokedAt)
	})

	t.Run("create rejects duplicate jti", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		repo := s.RefreshTokens()

		tok := newToken("user-a", idx.New().String(), time.Hour)
		require.NoError(t, repo.CreateRefreshToken(ctx, tok))

		dup := newToken("user-b", idx.New().String(), time.Hour)
		dup.JTI = tok.JTI
		require.ErrorIs(t, repo.CreateRefreshToken(ctx, dup), store.ErrAlreadyExists)
	})

	t.Run("get unknown jti", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		_, err := s.RefreshTokens().GetRefreshTokenByJTI(ctx, uuid.NewString())
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("revoke stamps exactly once", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		repo := s.RefreshTokens()

		tok := newToken("user-a", idx.New().String(), time.Hour)
		require.NoError(t, repo.CreateRefreshToken(ctx, tok))

		won, err := repo.RevokeRefreshToken(ctx, tok.JTI, base.Add(time.Minute))
		require.NoError(t, err)
		require.True(t, won)

		got, err := repo.GetRefreshTokenByJTI(ctx, tok.JTI)
		require.NoError(t, err)
		require.NotNil(t, got.RevokedAt)
		require.WithinDuration(t, base.Add(time.Minute), *got.RevokedAt, time.Second)

		won, err = repo.RevokeRefreshToken(ctx, tok.JTI, base.Add(2*time.Minute))
		require.NoError(t, err)
		require.False(t, won)

		// The second call must not move the stamp.
		got, err = repo.GetRefreshTokenByJTI(ctx, tok.JTI)
		require.NoError(t, err)
		require.WithinDuration(t, base.Add(time.Minute), *got.RevokedAt, time.Second)
	})

	t.Run("revoke of unknown jti is not an error", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		won, err := s.RefreshTokens().RevokeRefreshToken(ctx, uuid.NewString(), base)
		require.NoError(t, err)
		require.False(t, won)
	})

	t.Run("concurrent revokers produce one winner", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		repo := s.RefreshTokens()

		tok := newToken("user-a", idx.New().String(), time.Hour)
		require.NoError(t, repo.CreateRefreshToken(ctx, tok))

		const racers = 16

		var (
			wg      sync.WaitGroup
			winners atomic.Int32
			failed  atomic.Int32
		)
		start := make(chan struct{})

		for range racers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				won, err := repo.RevokeRefreshToken(ctx, tok.JTI, time.Now().UTC())
				if err != nil {
					failed.Add(1)
					return
				}
				if won {
					winners.Add(1)
				}
			}()
		}

		close(start)
		wg.Wait()

		require.Zero(t, failed.Load())
		require.EqualValues(t, 1, winners.Load())
	})

	t.Run("session revoke stamps the whole lineage", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		repo := s.RefreshTokens()

		lineage := idx.New().String()
		other := idx.New().String()

		for range 3 {
			require.NoError(t, repo.CreateRefreshToken(ctx, newToken("user-a", lineage, time.Hour)))
		}
		bystander := newToken("user-a", other, time.Hour)
		require.NoError(t, repo.CreateRefreshToken(ctx, bystander))

		n, err := repo.RevokeSessionRefreshTokens(ctx, lineage, base.Add(time.Minute))
		require.NoError(t, err)
		require.EqualValues(t, 3, n)

		got, err := repo.GetRefreshTokenByJTI(ctx, bystander.JTI)
		require.NoError(t, err)
		require.Nil(t, got.RevokedAt)

		// Already stamped rows do not count a second time.
		n, err = repo.RevokeSessionRefreshTokens(ctx, lineage, base.Add(2*time.Minute))
		require.NoError(t, err)
		require.Zero(t, n)
	})

	t.Run("user revoke spans every session", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		repo := s.RefreshTokens()

		require.NoError(t, repo.CreateRefreshToken(ctx, newToken("user-a", idx.New().String(), time.Hour)))
		require.NoError(t, repo.CreateRefreshToken(ctx, newToken("user-a", idx.New().String(), time.Hour)))
		stranger := newToken("user-b", idx.New().String(), time.Hour)
		require.NoError(t, repo.CreateRefreshToken(ctx, stranger))

		n, err := repo.RevokeUserRefreshTokens(ctx, "user-a", base.Add(time.Minute))
		require.NoError(t, err)
		require.EqualValues(t, 2, n)

		got, err := repo.GetRefreshTokenByJTI(ctx, stranger.JTI)
		require.NoError(t, err)
		require.Nil(t, got.RevokedAt)
	})

	t.Run("active session accounting", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		repo := s.RefreshTokens()

		first := idx.New().String()
		second := idx.New().String()
		revokedSession := idx.New().String()

		require.NoError(t, repo.CreateRefreshToken(ctx, newToken("user-a", first, time.Hour)))
		require.NoError(t, repo.CreateRefreshToken(ctx, newToken("user-a", second, time.Hour)))

		dead := newToken("user-a", revokedSession, time.Hour)
		require.NoError(t, repo.CreateRefreshToken(ctx, dead))
		_, err := repo.RevokeRefreshToken(ctx, dead.JTI, base)
		require.NoError(t, err)

		now := base.Add(time.Minute)

		count, err := repo.CountActiveSessions(ctx, "user-a", now)
		require.NoError(t, err)
		require.Equal(t, 2, count)

		active, err := repo.ListActiveRefreshTokens(ctx, "user-a", now)
		require.NoError(t, err)
		require.Len(t, active, 2)
		require.Equal(t, first, active[0].SessionID)
		require.Equal(t, second, active[1].SessionID)

		oldest, err := repo.OldestActiveSession(ctx, "user-a", now)
		require.NoError(t, err)
		require.Equal(t, first, oldest)
	})

	t.Run("rotation within a session keeps one active session", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		repo := s.RefreshTokens()

		session := idx.New().String()

		old := newToken("user-a", session, time.Hour)
		require.NoError(t, repo.CreateRefreshToken(ctx, old))

		won, err := repo.RevokeRefreshToken(ctx, old.JTI, base)
		require.NoError(t, err)
		require.True(t, won)

		replacement := newToken("user-a", session, time.Hour)
		replacement.RotatedFrom = old.JTI
		require.NoError(t, repo.CreateRefreshToken(ctx, replacement))

		count, err := repo.CountActiveSessions(ctx, "user-a", base.Add(time.Minute))
		require.NoError(t, err)
		require.Equal(t, 1, count)
	})

	t.Run("oldest session without active records", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		_, err := s.RefreshTokens().OldestActiveSession(ctx, "user-a", base)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("revoked rows stay until natural expiry", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		repo := s.RefreshTokens()

		tok := newToken("user-a", idx.New().String(), time.Hour)
		require.NoError(t, repo.CreateRefreshToken(ctx, tok))
		_, err := repo.RevokeRefreshToken(ctx, tok.JTI, base)
		require.NoError(t, err)

		// Housekeeping must not touch it: the row is the replay evidence.
		_, err = repo.DeleteExpiredRefreshTokens(ctx, base.Add(time.Minute))
		require.NoError(t, err)

		got, err := repo.GetRefreshTokenByJTI(ctx, tok.JTI)
		require.NoError(t, err)
		require.NotNil(t, got.RevokedAt)
	})

	if opts.RetainsExpired {
		t.Run("expired rows readable until pruned", func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)
			repo := s.RefreshTokens()

			stale := newToken("user-a", idx.New().String(), -time.Hour)
			require.NoError(t, repo.CreateRefreshToken(ctx, stale))

			// Still present: rotation needs to see expired records so it
			// can stamp them before rejecting the caller.
			got, err := repo.GetRefreshTokenByJTI(ctx, stale.JTI)
			require.NoError(t, err)
			require.True(t, got.Expired(base))

			live := newToken("user-a", idx.New().String(), time.Hour)
			require.NoError(t, repo.CreateRefreshToken(ctx, live))

			n, err := repo.DeleteExpiredRefreshTokens(ctx, base)
			require.NoError(t, err)
			require.EqualValues(t, 1, n)

			_, err = repo.GetRefreshTokenByJTI(ctx, stale.JTI)
			require.ErrorIs(t, err, store.ErrNotFound)

			_, err = repo.GetRefreshTokenByJTI(ctx, live.JTI)
			require.NoError(t, err)
		})

		t.Run("expired sessions drop out of accounting", func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)
			repo := s.RefreshTokens()

			gone := newToken("user-a", idx.New().String(), time.Minute)
			require.NoError(t, repo.CreateRefreshToken(ctx, gone))
			live := newToken("user-a", idx.New().String(), time.Hour)
			require.NoError(t, repo.CreateRefreshToken(ctx, live))

			now := base.Add(30 * time.Minute)

			count, err := repo.CountActiveSessions(ctx, "user-a", now)
			require.NoError(t, err)
			require.Equal(t, 1, count)

			oldest, err := repo.OldestActiveSession(ctx, "user-a", now)
			require.NoError(t, err)
			require.Equal(t, live.SessionID, oldest)
		})
	}
}
