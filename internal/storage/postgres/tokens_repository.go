package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TokenRepository is the revocation ledger table. Tokens are unique;
// revoking twice is absorbed by ON CONFLICT so the second logout is a
// no-op for the caller.
type TokenRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func (r *TokenRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

func (r *TokenRepository) Revoke(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	_, err := r.queryer().Exec(ctx, `
INSERT INTO revoked_tokens (token, user_id, expires_at)
VALUES ($1, $2, $3)
ON CONFLICT (token) DO NOTHING
`, token, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("insert revoked token: %w", err)
	}
	return nil
}

func (r *TokenRepository) IsRevoked(ctx context.Context, token string, userID int64) (bool, error) {
	row := r.queryer().QueryRow(ctx, `
SELECT EXISTS (
	SELECT 1 FROM revoked_tokens
	 WHERE token = $1
	   AND user_id = $2
)
`, token, userID)

	var revoked bool
	if err := row.Scan(&revoked); err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

func (r *TokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.queryer().Exec(ctx, `DELETE FROM revoked_tokens WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired revoked tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
