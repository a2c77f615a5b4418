package service

import (
	"context"
	"errors"
	"time"

	"github.com/fitzroyhq/tokend/internal/tokend/domain"
	"github.com/fitzroyhq/tokend/internal/tokend/metrics"
	"github.com/fitzroyhq/tokend/internal/tokend/store"
	"github.com/fitzroyhq/tokend/pkg/idx"
	"github.com/fitzroyhq/tokend/pkg/slogx"
)

// SessionLimitPolicy decides what happens when a login would exceed
// MaxSessionsPerUser.
type SessionLimitPolicy string

const (
	// SessionLimitReject refuses the new login. The default: silently
	// killing another device's session is the more surprising failure.
	SessionLimitReject SessionLimitPolicy = "reject"

	// SessionLimitEvictOldest revokes the user's longest-lived session
	// and admits the new login.
	SessionLimitEvictOldest SessionLimitPolicy = "evict_oldest"
)

// DefaultMaxSessionsPerUser is what the app config applies when nothing
// is configured.
const DefaultMaxSessionsPerUser = 5

// ensureSessionCapacity enforces the session cap before a fresh login
// mints a new session id. Rotation never passes through here; it stays
// within an existing session.
func (s *TokenService) ensureSessionCapacity(ctx context.Context, userID string, now time.Time) error {
	if s.MaxSessionsPerUser <= 0 {
		return nil
	}

	count, err := s.Store.RefreshTokens().CountActiveSessions(ctx, userID, now)
	if err != nil {
		return s.storeErr(err)
	}
	if count < s.MaxSessionsPerUser {
		return nil
	}

	l := slogx.FromContext(ctx)

	switch s.SessionLimitPolicy {
	case SessionLimitEvictOldest:
		oldest, err := s.Store.RefreshTokens().OldestActiveSession(ctx, userID, now)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// Counted sessions vanished under us; admit the login.
				return nil
			}
			return s.storeErr(err)
		}

		revoked, err := s.Store.RefreshTokens().RevokeSessionRefreshTokens(ctx, oldest, now)
		if err != nil {
			return s.storeErr(err)
		}

		l.Info("evicted oldest session to admit new login",
			"user_id", userID,
			"session_id", oldest,
			"records_revoked", revoked,
		)
		s.countRevocation(metrics.RevocationScopeSession, revoked)
		return nil

	default:
		l.Info("session limit reached, rejecting new login",
			"user_id", userID,
			"active_sessions", count,
			"max_sessions", s.MaxSessionsPerUser,
		)
		if s.Metrics != nil {
			s.Metrics.SessionLimitRejections.Inc()
		}
		return ErrSessionLimitExceeded
	}
}

// ActiveSessions lists the user's live sessions for session-management
// surfaces. Each entry reflects the session's current refresh record;
// the started-at time comes from the session id itself, which is a ULID
// minted when the session began.
func (s *TokenService) ActiveSessions(ctx context.Context, userID string) ([]domain.Session, error) {
	now := s.now()

	records, err := s.Store.RefreshTokens().ListActiveRefreshTokens(ctx, userID, now)
	if err != nil {
		return nil, s.storeErr(err)
	}

	// Records arrive sorted by session id then issuance, so the last
	// record of each group is the session's current token.
	sessions := make([]domain.Session, 0, len(records))
	for i, rt := range records {
		if i+1 < len(records) && records[i+1].SessionID == rt.SessionID {
			continue
		}
		sessions = append(sessions, domain.Session{
			SessionID: rt.SessionID,
			IssuedAt:  sessionStart(rt.SessionID, rt.IssuedAt),
			ExpiresAt: rt.ExpiresAt,
			IP:        rt.IP,
			UserAgent: rt.UserAgent,
		})
	}
	return sessions, nil
}

// RevokeAllSessions logs the user out everywhere and reports how many
// records were stamped. Zero is success: nothing was live.
func (s *TokenService) RevokeAllSessions(ctx context.Context, userID string) (int64, error) {
	now := s.now()
	l := slogx.FromContext(ctx)

	revoked, err := s.Store.RefreshTokens().RevokeUserRefreshTokens(ctx, userID, now)
	if err != nil {
		return 0, s.storeErr(err)
	}

	l.Info("revoked all sessions",
		"user_id", userID,
		"records_revoked", revoked,
	)
	s.countRevocation(metrics.RevocationScopeUser, revoked)
	return revoked, nil
}

func sessionStart(sessionID string, fallback time.Time) time.Time {
	if id, err := idx.Parse(sessionID); err == nil {
		return id.Time()
	}
	return fallback
}
