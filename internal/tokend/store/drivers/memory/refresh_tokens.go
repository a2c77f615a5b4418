package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fitzroyhq/tokend/internal/tokend/domain"
	"github.com/fitzroyhq/tokend/internal/tokend/store"
)

type refreshTokensRepo struct {
	mu     sync.RWMutex
	tokens map[string]domain.RefreshToken
}

// cloneToken deep-copies the one pointer field so callers can never alias
// stored state.
func cloneToken(t domain.RefreshToken) domain.RefreshToken {
	if t.RevokedAt != nil {
		at := *t.RevokedAt
		t.RevokedAt = &at
	}
	return t
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tokens[t.JTI]; ok {
		return store.ErrAlreadyExists
	}

	t.IssuedAt = t.IssuedAt.UTC()
	t.ExpiresAt = t.ExpiresAt.UTC()
	r.tokens[t.JTI] = cloneToken(t)
	return nil
}

func (r *refreshTokensRepo) GetRefreshTokenByJTI(ctx context.Context, jti string) (domain.RefreshToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tokens[jti]
	if !ok {
		return domain.RefreshToken{}, store.ErrNotFound
	}
	return cloneToken(t), nil
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, jti string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tokens[jti]
	if !ok || t.RevokedAt != nil {
		return false, nil
	}

	at = at.UTC()
	t.RevokedAt = &at
	r.tokens[jti] = t
	return true, nil
}

func (r *refreshTokensRepo) RevokeSessionRefreshTokens(ctx context.Context, sessionID string, at time.Time) (int64, error) {
	return r.revokeWhere(at, func(t domain.RefreshToken) bool {
		return t.SessionID == sessionID
	})
}

func (r *refreshTokensRepo) RevokeUserRefreshTokens(ctx context.Context, userID string, at time.Time) (int64, error) {
	return r.revokeWhere(at, func(t domain.RefreshToken) bool {
		return t.UserID == userID
	})
}

func (r *refreshTokensRepo) revokeWhere(at time.Time, match func(domain.RefreshToken) bool) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	at = at.UTC()
	var stamped int64
	for jti, t := range r.tokens {
		if t.RevokedAt != nil || !match(t) {
			continue
		}
		revokedAt := at
		t.RevokedAt = &revokedAt
		r.tokens[jti] = t
		stamped++
	}
	return stamped, nil
}

func (r *refreshTokensRepo) CountActiveSessions(ctx context.Context, userID string, now time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make(map[string]struct{})
	for _, t := range r.tokens {
		if t.UserID == userID && t.Active(now) {
			sessions[t.SessionID] = struct{}{}
		}
	}
	return len(sessions), nil
}

func (r *refreshTokensRepo) ListActiveRefreshTokens(ctx context.Context, userID string, now time.Time) ([]domain.RefreshToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var tokens []domain.RefreshToken
	for _, t := range r.tokens {
		if t.UserID == userID && t.Active(now) {
			tokens = append(tokens, cloneToken(t))
		}
	}

	// Session ids are ULIDs; sorting on them yields creation order.
	sort.Slice(tokens, func(i, j int) bool {
		if tokens[i].SessionID != tokens[j].SessionID {
			return tokens[i].SessionID < tokens[j].SessionID
		}
		return tokens[i].IssuedAt.Before(tokens[j].IssuedAt)
	})
	return tokens, nil
}

func (r *refreshTokensRepo) OldestActiveSession(ctx context.Context, userID string, now time.Time) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	oldest := ""
	for _, t := range r.tokens {
		if t.UserID != userID || !t.Active(now) {
			continue
		}
		if oldest == "" || t.SessionID < oldest {
			oldest = t.SessionID
		}
	}
	if oldest == "" {
		return "", store.ErrNotFound
	}
	return oldest, nil
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for jti, t := range r.tokens {
		if !t.ExpiresAt.After(before) {
			delete(r.tokens, jti)
			deleted++
		}
	}
	return deleted, nil
}
