package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/frostlabs/frostgate/internal/model"
)

// UpsertTenant creates or replaces a tenant row.
func (db *DB) UpsertTenant(ctx context.Context, t *model.Tenant) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := db.sqlDB.ExecContext(ctx, `
		INSERT INTO tenants (id, name, api_key, status, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			api_key = excluded.api_key,
			status = excluded.status`,
		t.ID, t.Name, t.APIKey, t.Status, t.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("storage: upsert tenant %s: %w", t.ID, err)
	}
	return nil
}

// GetTenant fetches a tenant by id. Returns ErrNotFound for unknown ids.
func (db *DB) GetTenant(ctx context.Context, id string) (*model.Tenant, error) {
	var (
		t         model.Tenant
		createdAt string
	)
	err := db.sqlDB.QueryRowContext(ctx, `
		SELECT id, name, api_key, status, created_at
		FROM tenants WHERE id = ?`, id,
	).Scan(&t.ID, &t.Name, &t.APIKey, &t.Status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("storage: get tenant %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get tenant %s: %w", id, err)
	}
	t.CreatedAt = parseStoredTime(createdAt)
	return &t, nil
}

// ListTenants returns all tenants ordered by id.
func (db *DB) ListTenants(ctx context.Context) ([]model.Tenant, error) {
	rows, err := db.sqlDB.QueryContext(ctx,
		`SELECT id, name, api_key, status, created_at FROM tenants ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("storage: list tenants: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Tenant
	for rows.Next() {
		var (
			t         model.Tenant
			createdAt string
		)
		if err := rows.Scan(&t.ID, &t.Name, &t.APIKey, &t.Status, &createdAt); err != nil {
			return nil, fmt.Errorf("storage: scan tenant: %w", err)
		}
		t.CreatedAt = parseStoredTime(createdAt)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: list tenants: %w", err)
	}
	return out, nil
}

// SetTenantStatus updates a tenant's lifecycle status.
func (db *DB) SetTenantStatus(ctx context.Context, id, status string) error {
	res, err := db.sqlDB.ExecContext(ctx,
		`UPDATE tenants SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("storage: set tenant status %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: set tenant status %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("storage: set tenant status %s: %w", id, ErrNotFound)
	}
	return nil
}
