package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/fitzroyhq/tokend/internal/tokend/domain"
	"github.com/fitzroyhq/tokend/internal/tokend/store"
)

type refreshTokensRepo struct {
	db dbtx
}

const refreshTokenColumns = `jti, user_id, session_id, rotated_from, issued_at, expires_at, revoked_at, ip, user_agent`

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	// ON CONFLICT DO NOTHING turns a duplicate jti into zero affected
	// rows instead of a driver-specific constraint error.
	query := `
		INSERT INTO refresh_tokens (` + refreshTokenColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (jti) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query,
		t.JTI,
		t.UserID,
		t.SessionID,
		t.RotatedFrom,
		t.IssuedAt.UTC(),
		t.ExpiresAt.UTC(),
		mapOptionalTime(t.RevokedAt),
		t.IP,
		t.UserAgent,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrAlreadyExists
	}
	return nil
}

func (r *refreshTokensRepo) GetRefreshTokenByJTI(ctx context.Context, jti string) (domain.RefreshToken, error) {
	query := `
		SELECT ` + refreshTokenColumns + `
		FROM refresh_tokens
		WHERE jti = $1`

	row := r.db.QueryRowContext(ctx, query, jti)
	return scanRefreshToken(row)
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, jti string, at time.Time) (bool, error) {
	// The revoked_at IS NULL guard makes this a compare-and-set: under
	// concurrent rotation of the same token only one caller gets a row.
	query := `
		UPDATE refresh_tokens
		SET revoked_at = $1
		WHERE jti = $2 AND revoked_at IS NULL`

	res, err := r.db.ExecContext(ctx, query, at.UTC(), jti)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *refreshTokensRepo) RevokeSessionRefreshTokens(ctx context.Context, sessionID string, at time.Time) (int64, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = $1
		WHERE session_id = $2 AND revoked_at IS NULL`

	res, err := r.db.ExecContext(ctx, query, at.UTC(), sessionID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *refreshTokensRepo) RevokeUserRefreshTokens(ctx context.Context, userID string, at time.Time) (int64, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = $1
		WHERE user_id = $2 AND revoked_at IS NULL`

	res, err := r.db.ExecContext(ctx, query, at.UTC(), userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *refreshTokensRepo) CountActiveSessions(ctx context.Context, userID string, now time.Time) (int, error) {
	query := `
		SELECT COUNT(DISTINCT session_id)
		FROM refresh_tokens
		WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > $2`

	var count int
	if err := r.db.QueryRowContext(ctx, query, userID, now.UTC()).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *refreshTokensRepo) ListActiveRefreshTokens(ctx context.Context, userID string, now time.Time) ([]domain.RefreshToken, error) {
	// Session ids are ULIDs; sorting on them yields creation order.
	query := `
		SELECT ` + refreshTokenColumns + `
		FROM refresh_tokens
		WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > $2
		ORDER BY session_id, issued_at`

	rows, err := r.db.QueryContext(ctx, query, userID, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []domain.RefreshToken
	for rows.Next() {
		t, err := scanRefreshToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (r *refreshTokensRepo) OldestActiveSession(ctx context.Context, userID string, now time.Time) (string, error) {
	query := `
		SELECT MIN(session_id)
		FROM refresh_tokens
		WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > $2`

	var sessionID *string
	if err := r.db.QueryRowContext(ctx, query, userID, now.UTC()).Scan(&sessionID); err != nil {
		return "", err
	}
	if sessionID == nil {
		// MIN over zero rows yields NULL, not ErrNoRows.
		return "", store.ErrNotFound
	}
	return *sessionID, nil
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE expires_at <= $1`

	res, err := r.db.ExecContext(ctx, query, before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRefreshToken(row scanner) (domain.RefreshToken, error) {
	var (
		t         domain.RefreshToken
		revokedAt sql.NullTime
	)

	err := row.Scan(
		&t.JTI,
		&t.UserID,
		&t.SessionID,
		&t.RotatedFrom,
		&t.IssuedAt,
		&t.ExpiresAt,
		&revokedAt,
		&t.IP,
		&t.UserAgent,
	)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}

	t.IssuedAt = t.IssuedAt.UTC()
	t.ExpiresAt = t.ExpiresAt.UTC()
	t.RevokedAt = mapNullTimePtr(revokedAt)
	return t, nil
}
