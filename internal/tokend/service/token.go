package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fitzroyhq/tokend/internal/tokend/directory"
	"github.com/fitzroyhq/tokend/internal/tokend/domain"
	"github.com/fitzroyhq/tokend/internal/tokend/metrics"
	"github.com/fitzroyhq/tokend/internal/tokend/store"
	"github.com/fitzroyhq/tokend/pkg/cryptox"
	"github.com/fitzroyhq/tokend/pkg/idx"
	"github.com/fitzroyhq/tokend/pkg/jwtx"
	"github.com/fitzroyhq/tokend/pkg/slogx"
)

// maxJTIAttempts bounds the retries when a freshly minted jti collides
// with a stored one. Two UUIDv4 collisions in a row means the random
// source is broken, not unlucky.
const maxJTIAttempts = 3

// ClientMeta is what we record about the caller alongside a refresh
// token. Opaque strings, never parsed.
type ClientMeta struct {
	IP        string
	UserAgent string
}

type TokenService struct {
	Store     store.Store
	Directory directory.Directory
	Metrics   *metrics.Metrics

	AccessSigner    jwtx.Signer
	AccessVerifier  jwtx.Verifier
	RefreshSigner   jwtx.Signer
	RefreshVerifier jwtx.Verifier

	Issuer     string
	Audience   []string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// MaxSessionsPerUser caps concurrent sessions; 0 means unlimited.
	MaxSessionsPerUser int
	SessionLimitPolicy SessionLimitPolicy

	// NowFunc and NewJTIFunc are test seams; nil means the real thing.
	NowFunc    func() time.Time
	NewJTIFunc func() string
}

func (s *TokenService) now() time.Time {
	if s.NowFunc != nil {
		return s.NowFunc().UTC()
	}
	return time.Now().UTC()
}

func (s *TokenService) newJTI() string {
	if s.NewJTIFunc != nil {
		return s.NewJTIFunc()
	}
	return jwtx.NewJTI()
}

// IssuePair starts a brand new session for a user the upstream
// authenticator has already verified. The refresh record is persisted
// before any token leaves this function; if the write fails the caller
// gets nothing.
func (s *TokenService) IssuePair(ctx context.Context, userID string, meta ClientMeta) (*domain.TokenPair, error) {
	now := s.now()
	l := slogx.FromContext(ctx)

	user, err := s.lookupActiveUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.ensureSessionCapacity(ctx, userID, now); err != nil {
		return nil, err
	}

	sessionID := idx.New().String()

	var pair *domain.TokenPair
	for range maxJTIAttempts {
		p, record, err := s.mintPair(user, sessionID, "", meta, now)
		if err != nil {
			return nil, err
		}

		err = s.Store.RefreshTokens().CreateRefreshToken(ctx, record)
		if err == nil {
			pair = p
			break
		}
		if !errors.Is(err, store.ErrAlreadyExists) {
			return nil, s.storeErr(err)
		}
	}
	if pair == nil {
		return nil, fmt.Errorf("%w: jti collisions exhausted retries", ErrStoreUnavailable)
	}

	l.Info("issued token pair",
		"user_id", user.ID,
		"session_id", sessionID,
	)
	s.countIssued()
	return pair, nil
}

// Rotate exchanges a refresh token for a fresh pair in the same session.
//
// The presented token is verified before anything touches the store, then
// its record drives the decision: already revoked means reuse (lineage
// dies), past expiry gets stamped and rejected, and an inactive or
// vanished user ends the exchange. Only then is the predecessor consumed,
// and that conditional revoke is the one point where concurrent
// presentations of the same token are serialized: the single winner
// inserts the successor, every loser lands on the reuse path.
func (s *TokenService) Rotate(ctx context.Context, refreshToken string, meta ClientMeta) (*domain.TokenPair, error) {
	now := s.now()
	l := slogx.FromContext(ctx)

	// 1. Verify signature and shape. An unverified token never reaches
	// the store. Expired-but-authentic continues: its record needs to be
	// looked up so it can be stamped.
	claims, err := s.RefreshVerifier.Verify(refreshToken)
	if err != nil && !errors.Is(err, jwtx.ErrExpired) {
		s.countRotation(metrics.RotationOutcomeInvalid)
		return nil, ErrInvalidRefresh
	}
	if claims.ID == "" {
		s.countRotation(metrics.RotationOutcomeInvalid)
		return nil, ErrInvalidRefresh
	}

	// 2. Look up the server-side record by jti.
	rt, err := s.Store.RefreshTokens().GetRefreshTokenByJTI(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.countRotation(metrics.RotationOutcomeInvalid)
			return nil, ErrInvalidRefresh
		}
		s.countRotation(metrics.RotationOutcomeError)
		return nil, s.storeErr(err)
	}

	// 3. A revoked record means this token was already spent. Someone is
	// replaying it; kill the whole lineage.
	if rt.Revoked() {
		return nil, s.handleReuse(ctx, rt, refreshToken, now)
	}

	// 4. Past natural expiry: stamp the record so a later replay of this
	// token reads as revoked, then reject.
	if rt.Expired(now) {
		if _, err := s.Store.RefreshTokens().RevokeRefreshToken(ctx, rt.JTI, now); err != nil {
			s.countRotation(metrics.RotationOutcomeError)
			return nil, s.storeErr(err)
		}
		s.countRotation(metrics.RotationOutcomeExpired)
		return nil, ErrInvalidRefresh
	}

	// 5. The user must still exist and be allowed to hold sessions.
	user, err := s.lookupActiveUser(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrUserInactive) {
			s.countRotation(metrics.RotationOutcomeInactive)
		} else {
			s.countRotation(metrics.RotationOutcomeError)
		}
		return nil, err
	}

	// 6+7. Consume the predecessor and insert the successor. On SQL
	// stores both land in one transaction; elsewhere the conditional
	// revoke alone decides the winner and a crash between the two steps
	// only ever costs a re-login.
	var pair *domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		won, err := tx.RefreshTokens().RevokeRefreshToken(ctx, rt.JTI, now)
		if err != nil {
			return err
		}
		if !won {
			return errRotationRaceLost
		}

		for range maxJTIAttempts {
			p, record, err := s.mintPair(user, rt.SessionID, rt.JTI, meta, now)
			if err != nil {
				return err
			}
			err = tx.RefreshTokens().CreateRefreshToken(ctx, record)
			if err == nil {
				pair = p
				return nil
			}
			if !errors.Is(err, store.ErrAlreadyExists) {
				return err
			}
		}
		return fmt.Errorf("jti collisions exhausted retries: %w", store.ErrAlreadyExists)
	})
	if err != nil {
		if errors.Is(err, errRotationRaceLost) {
			// Lost the conditional revoke: a concurrent rotation beat us
			// to this token. Indistinguishable from theft, so same path.
			return nil, s.handleReuse(ctx, rt, refreshToken, now)
		}
		s.countRotation(metrics.RotationOutcomeError)
		return nil, s.storeErr(err)
	}

	l.Debug("rotated refresh token",
		"user_id", user.ID,
		"session_id", rt.SessionID,
	)
	s.countRotation(metrics.RotationOutcomeRotated)
	return pair, nil
}

// errRotationRaceLost never leaves Rotate.
var errRotationRaceLost = errors.New("rotation race lost")

// handleReuse is the response to a spent refresh token showing up again:
// revoke every live record in its session lineage, log loudly, reject.
// The legitimate holder will have to log in again; worth it.
func (s *TokenService) handleReuse(ctx context.Context, rt domain.RefreshToken, presented string, now time.Time) error {
	l := slogx.FromContext(ctx)

	revoked, err := s.Store.RefreshTokens().RevokeSessionRefreshTokens(ctx, rt.SessionID, now)
	if err != nil {
		l.Error("lineage revoke failed after refresh reuse",
			"error", err,
			"user_id", rt.UserID,
			"session_id", rt.SessionID,
		)
	}

	l.Error("refresh token reuse detected, session lineage revoked",
		"user_id", rt.UserID,
		"session_id", rt.SessionID,
		"jti", rt.JTI,
		"token_fingerprint", cryptox.FingerprintToken(presented),
		"records_revoked", revoked,
	)

	s.countReuse(revoked)
	return ErrRefreshReuse
}

// RevokePair invalidates the presented refresh token. Garbage, unknown,
// and already-revoked tokens all count as success: revocation is
// idempotent and refuses to be a token oracle. Only a failing backend
// surfaces an error.
func (s *TokenService) RevokePair(ctx context.Context, refreshToken string) error {
	now := s.now()
	l := slogx.FromContext(ctx)

	claims, err := s.RefreshVerifier.Verify(refreshToken)
	if err != nil && !errors.Is(err, jwtx.ErrExpired) {
		return nil
	}
	if claims.ID == "" {
		return nil
	}

	won, err := s.Store.RefreshTokens().RevokeRefreshToken(ctx, claims.ID, now)
	if err != nil {
		return s.storeErr(err)
	}
	if won {
		l.Info("revoked refresh token",
			"user_id", claims.Subject,
			"session_id", claims.SessionID,
		)
		s.countRevocation(metrics.RevocationScopeToken, 1)
	}
	return nil
}

// Authenticate statelessly validates an access token. No store round
// trip: an access token is valid until its exp, which is exactly the
// trade the short access TTL pays for.
func (s *TokenService) Authenticate(ctx context.Context, accessToken string) (jwtx.Claims, error) {
	claims, err := s.AccessVerifier.Verify(accessToken)
	if err != nil {
		return jwtx.Claims{}, ErrInvalidAccess
	}
	return claims, nil
}

// mintPair builds and signs an access/refresh pair plus the refresh
// record to persist. The refresh jti and the record key must match, so
// both come from one draw.
func (s *TokenService) mintPair(
	user domain.User,
	sessionID, rotatedFrom string,
	meta ClientMeta,
	now time.Time,
) (*domain.TokenPair, domain.RefreshToken, error) {
	jti := s.newJTI()

	accessToken, err := s.AccessSigner.Sign(
		jwtx.NewAccessClaims(user.ID, user.Email, user.Role, s.AccessTTL, s.Issuer, s.Audience, now),
	)
	if err != nil {
		return nil, domain.RefreshToken{}, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken, err := s.RefreshSigner.Sign(
		jwtx.NewRefreshClaims(user.ID, sessionID, jti, s.RefreshTTL, s.Issuer, s.Audience, now),
	)
	if err != nil {
		return nil, domain.RefreshToken{}, fmt.Errorf("sign refresh token: %w", err)
	}

	record := domain.RefreshToken{
		JTI:         jti,
		UserID:      user.ID,
		SessionID:   sessionID,
		RotatedFrom: rotatedFrom,
		IssuedAt:    now,
		ExpiresAt:   now.Add(s.RefreshTTL),
		IP:          meta.IP,
		UserAgent:   meta.UserAgent,
	}

	pair := &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.AccessTTL.Seconds()),
		SessionID:    sessionID,
	}
	return pair, record, nil
}

func (s *TokenService) lookupActiveUser(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.Directory.Lookup(ctx, userID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !user.Active {
		return domain.User{}, ErrUserInactive
	}
	return user, nil
}

func (s *TokenService) storeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func (s *TokenService) countIssued() {
	if s.Metrics != nil {
		s.Metrics.IssuedPairs.Inc()
	}
}

func (s *TokenService) countRotation(outcome string) {
	if s.Metrics != nil {
		s.Metrics.Rotations.WithLabelValues(outcome).Inc()
	}
}

func (s *TokenService) countReuse(lineageRevoked int64) {
	if s.Metrics != nil {
		s.Metrics.ReuseDetected.Inc()
		s.Metrics.Rotations.WithLabelValues(metrics.RotationOutcomeReuse).Inc()
		s.Metrics.Revocations.WithLabelValues(metrics.RevocationScopeSession).Add(float64(lineageRevoked))
	}
}

func (s *TokenService) countRevocation(scope string, n int64) {
	if s.Metrics != nil {
		s.Metrics.Revocations.WithLabelValues(scope).Add(float64(n))
	}
}
