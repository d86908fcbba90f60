package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
)

// Settings keys.
const (
	keyJWTSecret = "jwt_secret"
	keyCSRFKey   = "csrf_key"
)

// GetJWTSecret returns the panel session signing secret, generating and
// storing it on first use.
func GetJWTSecret(ctx context.Context, db *sql.DB) (string, error) {
	return getOrCreateSecret(ctx, db, keyJWTSecret)
}

// GetCSRFKey returns the 32-byte CSRF authentication key, generating and
// storing it on first use.
func GetCSRFKey(ctx context.Context, db *sql.DB) ([]byte, error) {
	s, err := getOrCreateSecret(ctx, db, keyCSRFKey)
	if err != nil {
		return nil, err
	}
	key, err := hex.DecodeString(s)
	if err != nil || len(key) != 32 {
		return nil, fmt.Errorf("stored %s is malformed", keyCSRFKey)
	}
	return key, nil
}

// getOrCreateSecret uses INSERT OR IGNORE + re-SELECT to avoid a TOCTOU race
// on concurrent startup.
func getOrCreateSecret(ctx context.Context, db *sql.DB, key string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating %s: %w", key, err)
	}
	candidate := hex.EncodeToString(buf)

	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`,
		key, candidate,
	)
	if err != nil {
		return "", fmt.Errorf("storing %s: %w", key, err)
	}

	// Always read back (either our insert or the existing value).
	var secret string
	err = db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key,
	).Scan(&secret)
	if err != nil {
		return "", fmt.Errorf("querying %s: %w", key, err)
	}

	return secret, nil
}
