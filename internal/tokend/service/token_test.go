package service

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fitzroyhq/tokend/internal/tokend/directory"
	"github.com/fitzroyhq/tokend/internal/tokend/domain"
	"github.com/fitzroyhq/tokend/internal/tokend/store/drivers/memory"
	"github.com/fitzroyhq/tokend/internal/tokend/store/drivers/sqlite"
	"github.com/fitzroyhq/tokend/pkg/idx"
	"github.com/fitzroyhq/tokend/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const testIssuer = "tokend-test"

var (
	testAccessSecret  = bytes.Repeat([]byte{0x11}, 32)
	testRefreshSecret = bytes.Repeat([]byte{0x22}, 32)

	testMeta = ClientMeta{IP: "203.0.113.7", UserAgent: "tokend-test/1.0"}
)

// fakeClock is hand-driven so tests can walk tokens across their expiry
// without sleeping. The service and both verifiers share it.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now().UTC().Truncate(time.Second)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeDirectory is a user directory whose records can be flipped or
// broken mid-test.
type fakeDirectory struct {
	mu    sync.Mutex
	users map[string]domain.User
	err   error
}

func newFakeDirectory(users ...domain.User) *fakeDirectory {
	d := &fakeDirectory{users: make(map[string]domain.User)}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

func (d *fakeDirectory) Lookup(ctx context.Context, userID string) (domain.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.err != nil {
		return domain.User{}, d.err
	}
	u, ok := d.users[userID]
	if !ok {
		return domain.User{}, directory.ErrNotFound
	}
	return u, nil
}

func (d *fakeDirectory) set(u domain.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
}

func (d *fakeDirectory) remove(userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.users, userID)
}

func (d *fakeDirectory) fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

// newTestService wires a TokenService over the in-memory store with
// alice (active), bob (deactivated), and carol (active) in the
// directory. Session caps are off unless a test sets them.
func newTestService(t *testing.T) (*TokenService, *fakeClock) {
	t.Helper()

	clock := newFakeClock()

	accessSigner, err := jwtx.NewSignerHS256(testAccessSecret)
	require.NoError(t, err)
	refreshSigner, err := jwtx.NewSignerHS256(testRefreshSecret)
	require.NoError(t, err)

	accessVerifier, err := jwtx.NewVerifierHS256(testAccessSecret, testIssuer, []string{"tokend"},
		jwtx.WithTokenType(jwtx.TokenTypeAccess),
		jwtx.WithTimeFunc(clock.Now),
	)
	require.NoError(t, err)
	refreshVerifier, err := jwtx.NewVerifierHS256(testRefreshSecret, testIssuer, []string{"tokend"},
		jwtx.WithTokenType(jwtx.TokenTypeRefresh),
		jwtx.WithTimeFunc(clock.Now),
	)
	require.NoError(t, err)

	dir := newFakeDirectory(
		domain.User{ID: "alice", Email: "alice@example.com", Role: "member", Active: true},
		domain.User{ID: "bob", Email: "bob@example.com", Role: "member", Active: false},
		domain.User{ID: "carol", Email: "carol@example.com", Role: "admin", Active: true},
	)

	svc := &TokenService{
		Store:           memory.NewStore(),
		Directory:       dir,
		AccessSigner:    accessSigner,
		AccessVerifier:  accessVerifier,
		RefreshSigner:   refreshSigner,
		RefreshVerifier: refreshVerifier,
		Issuer:          testIssuer,
		Audience:        []string{"tokend"},
		AccessTTL:       15 * time.Minute,
		RefreshTTL:      24 * time.Hour,
		NowFunc:         clock.Now,
	}
	return svc, clock
}

func TestIssuePairMintsSessionAndRecord(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	pair, err := svc.IssuePair(ctx, "alice", testMeta)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.Equal(t, "Bearer", pair.TokenType)
	require.Equal(t, int64(900), pair.ExpiresIn)
	require.NotEmpty(t, pair.SessionID)

	// The refresh token carries the session and maps to a stored record.
	claims, err := svc.RefreshVerifier.Verify(pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Subject)
	require.Equal(t, pair.SessionID, claims.SessionID)

	rt, err := svc.Store.RefreshTokens().GetRefreshTokenByJTI(ctx, claims.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", rt.UserID)
	require.Equal(t, pair.SessionID, rt.SessionID)
	require.Empty(t, rt.RotatedFrom)
	require.Nil(t, rt.RevokedAt)
	require.Equal(t, testMeta.IP, rt.IP)
	require.Equal(t, testMeta.UserAgent, rt.UserAgent)
}

func TestIssuePairRejectsUnknownAndInactiveUsers(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.IssuePair(ctx, "nobody", testMeta)
	require.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.IssuePair(ctx, "bob", testMeta)
	require.ErrorIs(t, err, ErrUserInactive)
}

func TestIssuePairDirectoryOutageIsNotUnauthorized(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	svc.Directory.(*fakeDirectory).fail(errors.New("directory down"))

	_, err := svc.IssuePair(ctx, "alice", testMeta)
	require.ErrorIs(t, err, ErrStoreUnavailable)
	require.NotErrorIs(t, err, ErrUserNotFound)
}

func TestRotateMintsSuccessorInSameSession(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	pair, err := svc.IssuePair(ctx, "alice", testMeta)
	require.NoError(t, err)
	oldClaims, err := svc.RefreshVerifier.Verify(pair.RefreshToken)
	require.NoError(t, err)

	next, err := svc.Rotate(ctx, pair.RefreshToken, testMeta)
	require.NoError(t, err)
	require.Equal(t, pair.SessionID, next.SessionID)
	require.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	newClaims, err := svc.RefreshVerifier.Verify(next.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, oldClaims.ID, newClaims.ID)
	require.Equal(t, pair.SessionID, newClaims.SessionID)

	// The predecessor is consumed but kept: it is the replay tripwire.
	old, err := svc.Store.RefreshTokens().GetRefreshTokenByJTI(ctx, oldClaims.ID)
	require.NoError(t, err)
	require.NotNil(t, old.RevokedAt)

	successor, err := svc.Store.RefreshTokens().GetRefreshTokenByJTI(ctx, newClaims.ID)
	require.NoError(t, err)
	require.Equal(t, oldClaims.ID, successor.RotatedFrom)
	require.Nil(t, successor.RevokedAt)
}

func TestRotateReuseKillsSessionLineage(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService(t)

	pair, err := svc.IssuePair(ctx, "alice", testMeta)
	require.NoError(t, err)

	second, err := svc.Rotate(ctx, pair.RefreshToken, testMeta)
	require.NoError(t, err)
	clock.Advance(time.Second)
	third, err := svc.Rotate(ctx, second.RefreshToken, testMeta)
	require.NoError(t, err)

	// Replaying the first token: already consumed, so this is reuse.
	_, err = svc.Rotate(ctx, pair.RefreshToken, testMeta)
	require.ErrorIs(t, err, ErrRefreshReuse)

	// The kill took the live head of the lineage with it.
	_, err = svc.Rotate(ctx, third.RefreshToken, testMeta)
	require.ErrorIs(t, err, ErrRefreshReuse)

	sessions, err := svc.ActiveSessions(ctx, "alice")
	require.NoError(t, err)
	require.Empty(t, sessions)
}

func TestRotateReuseLeavesOtherSessionsAlive(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	phone, err := svc.IssuePair(ctx, "alice", testMeta)
	require.NoError(t, err)
	laptop, err := svc.IssuePair(ctx, "alice", testMeta)
	require.NoError(t, err)

	_, err = svc.Rotate(ctx, phone.RefreshToken, testMeta)
	require.NoError(t, err)
	_, err = svc.Rotate(ctx, phone.RefreshToken, testMeta)
	require.ErrorIs(t, err, ErrRefreshReuse)

	// Only the compromised lineage died.
	_, err = svc.Rotate(ctx, laptop.RefreshToken, testMeta)
	require.NoError(t, err)
}

func TestRotateRejectsForgedTokens(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService(t)

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.Rotate(ctx, "not-a-jwt", testMeta)
		require.ErrorIs(t, err, ErrInvalidRefresh)
	})

	t.Run("wrong secret", func(t *testing.T) {
		forger, err := jwtx.NewSignerHS256(bytes.Repeat([]byte{0x99}, 32))
		require.NoError(t, err)
		token, err := forger.Sign(jwtx.NewRefreshClaims(
			"alice", idx.New().String(), jwtx.NewJTI(),
			time.Hour, testIssuer, []string{"tokend"}, clock.Now(),
		))
		require.NoError(t, err)

		_, err = svc.Rotate(ctx, token, testMeta)
		require.ErrorIs(t, err, ErrInvalidRefresh)
	})

	t.Run("access token in the refresh slot", func(t *testing.T) {
		pair, err := svc.IssuePair(ctx, "alice", testMeta)
		require.NoError(t, err)

		_, err = svc.Rotate(ctx, pair.AccessToken, testMeta)
		require.ErrorIs(t, err, ErrInvalidRefresh)
	})

	t.Run("authentic token with no record", func(t *testing.T) {
		token, err := svc.RefreshSigner.Sign(jwtx.NewRefreshClaims(
			"alice", idx.New().String(), jwtx.NewJTI(),
			time.Hour, testIssuer, []string{"tokend"}, clock.Now(),
		))
		require.NoError(t, err)

		_, err = svc.Rotate(ctx, token, testMeta)
		require.ErrorIs(t, err, ErrInvalidRefresh)
	})
}

func TestRotateExpiredTokenStampsRecord(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService(t)

	pair, err := svc.IssuePair(ctx, "alice", testMeta)
	require.NoError(t, err)
	claims, err := svc.RefreshVerifier.Verify(pair.RefreshToken)
	require.NoError(t, err)

	clock.Advance(svc.RefreshTTL + time.Minute)

	_, err = svc.Rotate(ctx, pair.RefreshToken, testMeta)
	require.ErrorIs(t, err, ErrInvalidRefresh)

	// The record was stamped, so probing the same token again trips the
	// reuse alarm instead of a quiet rejection.
	rt, err := svc.Store.RefreshTokens().GetRefreshTokenByJTI(ctx, claims.ID)
	require.NoError(t, err)
	require.NotNil(t, rt.RevokedAt)

	_, err = svc.Rotate(ctx, pair.RefreshToken, testMeta)
	require.ErrorIs(t, err, ErrRefreshReuse)
}

func TestRotateAtExpiryBoundary(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService(t)

	pair, err := svc.IssuePair(ctx, "alice", testMeta)
	require.NoError(t, err)

	// One second shy of expiry the rotation still goes through.
	clock.Advance(svc.RefreshTTL - time.Second)
	next, err := svc.Rotate(ctx, pair.RefreshToken, testMeta)
	require.NoError(t, err)

	// Exactly at its expiry instant a token is already dead.
	clock.Advance(svc.RefreshTTL)
	_, err = svc.Rotate(ctx, next.RefreshToken, testMeta)
	require.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestRotateStopsForDeactivatedUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	dir := svc.Directory.(*fakeDirectory)

	pair, err := svc.IssuePair(ctx, "alice", testMeta)
	require.NoError(t, err)
	claims, err := svc.RefreshVerifier.Verify(pair.RefreshToken)
	require.NoError(t, err)

	dir.set(domain.User{ID: "alice", Email: "alice@example.com", Role: "member", Active: false})

	_, err = svc.Rotate(ctx, pair.RefreshToken, testMeta)
	require.ErrorIs(t, err, ErrUserInactive)

	// The token was not consumed, so reactivating the account lets the
	// held token rotate normally.
	rt, err := svc.Store.RefreshTokens().GetRefreshTokenByJTI(ctx, claims.ID)
	require.NoError(t, err)
	require.Nil(t, rt.RevokedAt)

	dir.set(domain.User{ID: "alice", Email: "alice@example.com", Role: "member", Active: true})
	_, err = svc.Rotate(ctx, pair.RefreshToken, testMeta)
	require.NoError(t, err)
}

func TestRotateStopsForDeletedUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	pair, err := svc.IssuePair(ctx, "alice", testMeta)
	require.NoError(t, err)

	svc.Directory.(*fakeDirectory).remove("alice")

	_, err = svc.Rotate(ctx, pair.RefreshToken, testMeta)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestRotateRetriesJTICollisions(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService(t)

	pair, err := svc.IssuePair(ctx, "alice", testMeta)
	require.NoError(t, err)

	// Occupy the jti the seam will hand out first.
	taken := jwtx.NewJTI()
	now := clock.Now()
	require.NoError(t, svc.Store.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
		JTI:       taken,
		UserID:    "carol",
		SessionID: idx.New().String(),
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}))

	fresh := jwtx.NewJTI()
	draws := []string{taken, taken, fresh}
	svc.NewJTIFunc = func() string {
		jti := draws[0]
		if len(draws) > 1 {
			draws = draws[1:]
		}
		return jti
	}

	next, err := svc.Rotate(ctx, pair.RefreshToken, testMeta)
	require.NoError(t, err)

	claims, err := svc.RefreshVerifier.Verify(next.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, fresh, claims.ID)
}

func TestRotateGivesUpAfterRepeatedCollisions(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService(t)

	pair, err := svc.IssuePair(ctx, "alice", testMeta)
	require.NoError(t, err)

	taken := jwtx.NewJTI()
	now := clock.Now()
	require.NoError(t, svc.Store.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
		JTI:       taken,
		UserID:    "carol",
		SessionID: idx.New().String(),
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}))
	svc.NewJTIFunc = func() string { return taken }

	_, err = svc.Rotate(ctx, pair.RefreshToken, testMeta)
	require.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestRevokePairIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService(t)

	pair, err := svc.IssuePair(ctx, "alice", testMeta)
	require.NoError(t, err)
	claims, err := svc.RefreshVerifier.Verify(pair.RefreshToken)
	require.NoError(t, err)

	require.NoError(t, svc.RevokePair(ctx, pair.RefreshToken))

	rt, err := svc.Store.RefreshTokens().GetRefreshTokenByJTI(ctx, claims.ID)
	require.NoError(t, err)
	require.NotNil(t, rt.RevokedAt)
	stamped := *rt.RevokedAt

	// Revoking again succeeds and the stamp does not move.
	clock.Advance(time.Minute)
	require.NoError(t, svc.RevokePair(ctx, pair.RefreshToken))

	rt, err = svc.Store.RefreshTokens().GetRefreshTokenByJTI(ctx, claims.ID)
	require.NoError(t, err)
	require.Equal(t, stamped, *rt.RevokedAt)
}

func TestRevokePairNeverLeaksTokenState(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService(t)

	t.Run("garbage accepted", func(t *testing.T) {
		require.NoError(t, svc.RevokePair(ctx, "junk"))
	})

	t.Run("unknown jti accepted", func(t *testing.T) {
		token, err := svc.RefreshSigner.Sign(jwtx.NewRefreshClaims(
			"alice", idx.New().String(), jwtx.NewJTI(),
			time.Hour, testIssuer, []string{"tokend"}, clock.Now(),
		))
		require.NoError(t, err)
		require.NoError(t, svc.RevokePair(ctx, token))
	})

	t.Run("expired token still stamps its record", func(t *testing.T) {
		pair, err := svc.IssuePair(ctx, "alice", testMeta)
		require.NoError(t, err)
		claims, err := svc.RefreshVerifier.Verify(pair.RefreshToken)
		require.NoError(t, err)

		clock.Advance(svc.RefreshTTL + time.Hour)
		require.NoError(t, svc.RevokePair(ctx, pair.RefreshToken))

		rt, err := svc.Store.RefreshTokens().GetRefreshTokenByJTI(ctx, claims.ID)
		require.NoError(t, err)
		require.NotNil(t, rt.RevokedAt)
	})
}

func TestRevokedTokenPresentedForRotationIsReuse(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	pair, err := svc.IssuePair(ctx, "alice", testMeta)
	require.NoError(t, err)
	require.NoError(t, svc.RevokePair(ctx, pair.RefreshToken))

	_, err = svc.Rotate(ctx, pair.RefreshToken, testMeta)
	require.ErrorIs(t, err, ErrRefreshReuse)
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService(t)

	pair, err := svc.IssuePair(ctx, "alice", testMeta)
	require.NoError(t, err)

	claims, err := svc.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Subject)
	require.Equal(t, "alice@example.com", claims.Email)
	require.Equal(t, "member", claims.Role)

	t.Run("refresh token is not an access token", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, pair.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidAccess)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "junk")
		require.ErrorIs(t, err, ErrInvalidAccess)
	})

	t.Run("expired", func(t *testing.T) {
		clock.Advance(svc.AccessTTL + time.Minute)
		_, err := svc.Authenticate(ctx, pair.AccessToken)
		require.ErrorIs(t, err, ErrInvalidAccess)
	})
}

func TestAuthenticateSurvivesRefreshRevocation(t *testing.T) {
	// Access validation is stateless: revoking the session leaves an
	// already issued access token valid until its exp. The short access
	// TTL is what bounds that window.
	ctx := context.Background()
	svc, _ := newTestService(t)

	pair, err := svc.IssuePair(ctx, "alice", testMeta)
	require.NoError(t, err)
	require.NoError(t, svc.RevokePair(ctx, pair.RefreshToken))

	_, err = svc.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
}

func TestConcurrentRotationsProduceOneWinner(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	pair, err := svc.IssuePair(ctx, "alice", testMeta)
	require.NoError(t, err)

	const racers = 16
	var (
		wg      sync.WaitGroup
		winners atomic.Int32
		reuse   atomic.Int32
	)
	start := make(chan struct{})

	for range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start

			_, err := svc.Rotate(ctx, pair.RefreshToken, testMeta)
			switch {
			case err == nil:
				winners.Add(1)
			case errors.Is(err, ErrRefreshReuse):
				reuse.Add(1)
			}
		}()
	}

	close(start)
	wg.Wait()

	require.Equal(t, int32(1), winners.Load())
	require.Equal(t, int32(racers-1), reuse.Load())
}

func TestRotateOnSqliteConsumesAndInsertsAtomically(t *testing.T) {
	// Same flow as the in-memory rotation tests, but through the sqlite
	// driver where consume and insert share one transaction.
	ctx := context.Background()
	svc, _ := newTestService(t)

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())
	svc.Store = st

	pair, err := svc.IssuePair(ctx, "alice", testMeta)
	require.NoError(t, err)

	next, err := svc.Rotate(ctx, pair.RefreshToken, testMeta)
	require.NoError(t, err)
	require.Equal(t, pair.SessionID, next.SessionID)

	_, err = svc.Rotate(ctx, pair.RefreshToken, testMeta)
	require.ErrorIs(t, err, ErrRefreshReuse)

	sessions, err := svc.ActiveSessions(ctx, "alice")
	require.NoError(t, err)
	require.Empty(t, sessions)
}
