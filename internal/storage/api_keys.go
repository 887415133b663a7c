package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/frostlabs/frostgate/internal/model"
)

// CreateAPIKey stores a scoped API key. Only the hash of the secret is
// persisted; callers hold the secret.
func (db *DB) CreateAPIKey(ctx context.Context, key *model.APIKey) (int64, error) {
	scopesJSON, err := json.Marshal(nonNil(key.Scopes))
	if err != nil {
		return 0, fmt.Errorf("storage: marshal scopes: %w", err)
	}
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now().UTC()
	}

	res, err := db.sqlDB.ExecContext(ctx, `
		INSERT INTO api_keys (name, key_hash, scopes_json, tenant_id, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		key.Name, key.KeyHash, string(scopesJSON), nullableStr(key.TenantID),
		key.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("storage: create api key: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: create api key id: %w", err)
	}
	key.ID = id
	return id, nil
}

// GetAPIKeyByHash looks up a non-revoked API key by the hex digest of
// its secret. Returns ErrNotFound for unknown or revoked keys.
func (db *DB) GetAPIKeyByHash(ctx context.Context, keyHash string) (*model.APIKey, error) {
	var (
		key        model.APIKey
		scopesJSON string
		tenantID   sql.NullString
		createdAt  string
		revokedAt  sql.NullString
	)
	err := db.sqlDB.QueryRowContext(ctx, `
		SELECT id, name, key_hash, scopes_json, tenant_id, created_at, revoked_at
		FROM api_keys WHERE key_hash = ? AND revoked_at IS NULL`,
		keyHash,
	).Scan(&key.ID, &key.Name, &key.KeyHash, &scopesJSON, &tenantID, &createdAt, &revokedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("storage: get api key: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get api key: %w", err)
	}

	if err := json.Unmarshal([]byte(scopesJSON), &key.Scopes); err != nil {
		return nil, fmt.Errorf("storage: decode scopes: %w", err)
	}
	key.TenantID = tenantID.String
	key.CreatedAt = parseStoredTime(createdAt)
	if revokedAt.Valid {
		t := parseStoredTime(revokedAt.String)
		key.RevokedAt = &t
	}
	return &key, nil
}

// RevokeAPIKey marks a key revoked. Revoked keys stop authenticating
// immediately; the row is kept for the audit trail.
func (db *DB) RevokeAPIKey(ctx context.Context, id int64) error {
	res, err := db.sqlDB.ExecContext(ctx,
		`UPDATE api_keys SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`,
		time.Now().UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("storage: revoke api key %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: revoke api key %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("storage: revoke api key %d: %w", id, ErrNotFound)
	}
	return nil
}

// CountAPIKeys returns the number of non-revoked API keys.
func (db *DB) CountAPIKeys(ctx context.Context) (int64, error) {
	var n int64
	err := db.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM api_keys WHERE revoked_at IS NULL`,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("storage: count api keys: %w", err)
	}
	return n, nil
}

func nullableStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
