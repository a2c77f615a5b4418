package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/fitzroyhq/tokend/internal/tokend/domain"
	"github.com/fitzroyhq/tokend/internal/tokend/store"
	goredis "github.com/redis/go-redis/v9"
)

// createTokenScript stores a record iff its jti is unseen, stamps the key
// TTL to the token's natural expiry, and indexes the jti under the user
// and session sorted sets. Index TTLs are stretched to outlive the record.
const createTokenScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1],
  "jti", ARGV[1],
  "user_id", ARGV[2],
  "session_id", ARGV[3],
  "rotated_from", ARGV[4],
  "issued_at", ARGV[5],
  "expires_at", ARGV[6],
  "revoked_at", ARGV[7],
  "ip", ARGV[8],
  "user_agent", ARGV[9])
redis.call("PEXPIRE", KEYS[1], ARGV[10])
for i = 2, 3 do
  redis.call("ZADD", KEYS[i], ARGV[11], ARGV[1])
  if redis.call("PTTL", KEYS[i]) < tonumber(ARGV[10]) then
    redis.call("PEXPIRE", KEYS[i], ARGV[10])
  end
end
return 1
`

var createTokenLua = goredis.NewScript(createTokenScript)

// revokeTokenScript is the compare-and-set at the heart of rotation: stamp
// revoked_at iff the record exists and is not already stamped. Of N
// concurrent callers exactly one sees 1.
const revokeTokenScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
local revoked = redis.call("HGET", KEYS[1], "revoked_at")
if revoked and revoked ~= "" then
  return 0
end
redis.call("HSET", KEYS[1], "revoked_at", ARGV[1])
return 1
`

var revokeTokenLua = goredis.NewScript(revokeTokenScript)

type refreshTokensRepo struct {
	rdb    goredis.UniversalClient
	prefix string
}

func (r *refreshTokensRepo) tokenKey(jti string) string {
	return r.prefix + ":rt:" + jti
}

func (r *refreshTokensRepo) userKey(userID string) string {
	return r.prefix + ":user:" + userID
}

func (r *refreshTokensRepo) sessionKey(sessionID string) string {
	return r.prefix + ":session:" + sessionID
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	ttl := time.Until(t.ExpiresAt)
	if ttl <= 0 {
		// Born expired: the key TTL would delete it before anyone could
		// read it, so there is nothing worth storing.
		return nil
	}

	revokedAt := ""
	if t.RevokedAt != nil {
		revokedAt = t.RevokedAt.UTC().Format(time.RFC3339Nano)
	}

	keys := []string{r.tokenKey(t.JTI), r.userKey(t.UserID), r.sessionKey(t.SessionID)}
	created, err := createTokenLua.Run(ctx, r.rdb, keys,
		t.JTI,
		t.UserID,
		t.SessionID,
		t.RotatedFrom,
		t.IssuedAt.UTC().Format(time.RFC3339Nano),
		t.ExpiresAt.UTC().Format(time.RFC3339Nano),
		revokedAt,
		t.IP,
		t.UserAgent,
		ttl.Milliseconds(),
		t.ExpiresAt.UnixMilli(),
	).Int64()
	if err != nil {
		return err
	}
	if created == 0 {
		return store.ErrAlreadyExists
	}
	return nil
}

func (r *refreshTokensRepo) GetRefreshTokenByJTI(ctx context.Context, jti string) (domain.RefreshToken, error) {
	fields, err := r.rdb.HGetAll(ctx, r.tokenKey(jti)).Result()
	if err != nil {
		return domain.RefreshToken{}, err
	}
	if len(fields) == 0 {
		return domain.RefreshToken{}, store.ErrNotFound
	}
	return tokenFromHash(fields)
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, jti string, at time.Time) (bool, error) {
	stamped, err := revokeTokenLua.Run(ctx, r.rdb,
		[]string{r.tokenKey(jti)},
		at.UTC().Format(time.RFC3339Nano),
	).Int64()
	if err != nil {
		return false, err
	}
	return stamped == 1, nil
}

func (r *refreshTokensRepo) RevokeSessionRefreshTokens(ctx context.Context, sessionID string, at time.Time) (int64, error) {
	return r.revokeIndexed(ctx, r.sessionKey(sessionID), at)
}

func (r *refreshTokensRepo) RevokeUserRefreshTokens(ctx context.Context, userID string, at time.Time) (int64, error) {
	return r.revokeIndexed(ctx, r.userKey(userID), at)
}

// revokeIndexed walks an index and CAS-revokes each member. Members whose
// record already expired lose the CAS and simply do not count.
func (r *refreshTokensRepo) revokeIndexed(ctx context.Context, indexKey string, at time.Time) (int64, error) {
	jtis, err := r.rdb.ZRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return 0, err
	}

	var stamped int64
	for _, jti := range jtis {
		ok, err := r.RevokeRefreshToken(ctx, jti, at)
		if err != nil {
			return stamped, err
		}
		if ok {
			stamped++
		}
	}
	return stamped, nil
}

func (r *refreshTokensRepo) CountActiveSessions(ctx context.Context, userID string, now time.Time) (int, error) {
	tokens, err := r.activeTokens(ctx, userID, now)
	if err != nil {
		return 0, err
	}

	sessions := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		sessions[t.SessionID] = struct{}{}
	}
	return len(sessions), nil
}

func (r *refreshTokensRepo) ListActiveRefreshTokens(ctx context.Context, userID string, now time.Time) ([]domain.RefreshToken, error) {
	return r.activeTokens(ctx, userID, now)
}

func (r *refreshTokensRepo) OldestActiveSession(ctx context.Context, userID string, now time.Time) (string, error) {
	tokens, err := r.activeTokens(ctx, userID, now)
	if err != nil {
		return "", err
	}
	if len(tokens) == 0 {
		return "", store.ErrNotFound
	}
	// activeTokens sorts by session id, and session ids are ULIDs, so the
	// first entry belongs to the longest-lived session.
	return tokens[0].SessionID, nil
}

// DeleteExpiredRefreshTokens prunes stale index members. The records
// themselves expire on their own via key TTL; the returned count is the
// number of user-index entries removed.
func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error) {
	max := strconv.FormatInt(before.UnixMilli(), 10)

	pruned, err := r.pruneIndexes(ctx, r.prefix+":user:*", max, true)
	if err != nil {
		return pruned, err
	}
	if _, err := r.pruneIndexes(ctx, r.prefix+":session:*", max, false); err != nil {
		return pruned, err
	}
	return pruned, nil
}

func (r *refreshTokensRepo) pruneIndexes(ctx context.Context, match, max string, counted bool) (int64, error) {
	var total int64
	iter := r.rdb.Scan(ctx, 0, match, 0).Iterator()
	for iter.Next(ctx) {
		n, err := r.rdb.ZRemRangeByScore(ctx, iter.Val(), "-inf", max).Result()
		if err != nil {
			return total, err
		}
		if counted {
			total += n
		}
	}
	return total, iter.Err()
}

// activeTokens returns the user's live records, oldest session first.
// The index range is a prefilter; the parsed record decides for real.
func (r *refreshTokensRepo) activeTokens(ctx context.Context, userID string, now time.Time) ([]domain.RefreshToken, error) {
	min := strconv.FormatInt(now.UnixMilli(), 10)
	jtis, err := r.rdb.ZRangeByScore(ctx, r.userKey(userID), &goredis.ZRangeBy{Min: min, Max: "+inf"}).Result()
	if err != nil {
		return nil, err
	}
	if len(jtis) == 0 {
		return nil, nil
	}

	cmds := make([]*goredis.MapStringStringCmd, len(jtis))
	_, err = r.rdb.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for i, jti := range jtis {
			cmds[i] = pipe.HGetAll(ctx, r.tokenKey(jti))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var tokens []domain.RefreshToken
	for _, cmd := range cmds {
		fields, err := cmd.Result()
		if err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			// Record TTL'd out between the index read and now.
			continue
		}
		t, err := tokenFromHash(fields)
		if err != nil {
			return nil, err
		}
		if t.Active(now) {
			tokens = append(tokens, t)
		}
	}

	sort.Slice(tokens, func(i, j int) bool {
		if tokens[i].SessionID != tokens[j].SessionID {
			return tokens[i].SessionID < tokens[j].SessionID
		}
		return tokens[i].IssuedAt.Before(tokens[j].IssuedAt)
	})
	return tokens, nil
}

func tokenFromHash(fields map[string]string) (domain.RefreshToken, error) {
	issuedAt, err := time.Parse(time.RFC3339Nano, fields["issued_at"])
	if err != nil {
		return domain.RefreshToken{}, fmt.Errorf("parse refresh token record: %w", err)
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, fields["expires_at"])
	if err != nil {
		return domain.RefreshToken{}, fmt.Errorf("parse refresh token record: %w", err)
	}

	var revokedAt *time.Time
	if raw := fields["revoked_at"]; raw != "" {
		at, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return domain.RefreshToken{}, fmt.Errorf("parse refresh token record: %w", err)
		}
		revokedAt = &at
	}

	return domain.RefreshToken{
		JTI:         fields["jti"],
		UserID:      fields["user_id"],
		SessionID:   fields["session_id"],
		RotatedFrom: fields["rotated_from"],
		IssuedAt:    issuedAt,
		ExpiresAt:   expiresAt,
		RevokedAt:   revokedAt,
		IP:          fields["ip"],
		UserAgent:   fields["user_agent"],
	}, nil
}
