package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RevokeToken adds a session token's JTI to the revocation list.
func RevokeToken(ctx context.Context, db *sql.DB, jti string, expiresAt time.Time) error {
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO revoked_tokens (jti, expires_at) VALUES (?, ?)`,
		jti, expiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}
	return nil
}

// IsTokenRevoked checks if a token's JTI has been revoked.
func IsTokenRevoked(ctx context.Context, db *sql.DB, jti string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM revoked_tokens WHERE jti = ?`, jti,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking token revocation: %w", err)
	}
	return count > 0, nil
}

// PurgeExpiredTokens deletes revocations whose token has expired anyway and
// returns how many were removed.
func PurgeExpiredTokens(ctx context.Context, db *sql.DB, now time.Time) (int64, error) {
	res, err := db.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at < ?`, now.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("purging revoked tokens: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
