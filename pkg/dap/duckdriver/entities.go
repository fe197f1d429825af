package duckdriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/factlake/factlake/pkg/idgen"
	"github.com/factlake/factlake/pkg/model"
)

// UpsertEntity attempts the insert first and only falls back to a lookup
// on conflict, so the common case (a new entity) costs a single
// round-trip instead of a lookup-then-write pair.
func (d *Driver) UpsertEntity(ctx context.Context, workspaceID, entityType, primaryKey string, displayName *string) (string, bool, error) {
	entityID := d.idGen.Generate(idgen.PrefixEntity)
	now := d.clock.Now()
	res, err := d.db.ExecContext(ctx, `
		INSERT INTO entities (entity_id, workspace_id, entity_type, primary_key, display_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (workspace_id, entity_type, primary_key) DO NOTHING`,
		entityID, workspaceID, entityType, primaryKey, nullIfEmpty(displayName), now, now)
	if err != nil {
		return "", false, err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return entityID, false, nil
	}

	existing, err := d.LookupEntity(ctx, workspaceID, entityType, primaryKey)
	if err != nil {
		return "", false, err
	}
	if existing == nil {
		return "", false, fmt.Errorf("entity vanished after conflicting insert")
	}
	return existing.EntityID, true, nil
}

func (d *Driver) LookupEntity(ctx context.Context, workspaceID, entityType, primaryKey string) (*model.Entity, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT entity_id, workspace_id, entity_type, primary_key, display_name, created_at, updated_at
		FROM entities WHERE workspace_id = ? AND entity_type = ? AND primary_key = ?`,
		workspaceID, entityType, primaryKey)
	return scanEntity(row)
}

func (d *Driver) GetEntity(ctx context.Context, workspaceID, entityID string) (*model.Entity, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT entity_id, workspace_id, entity_type, primary_key, display_name, created_at, updated_at
		FROM entities WHERE entity_id = ? AND workspace_id = ?`,
		entityID, workspaceID)
	return scanEntity(row)
}

func (d *Driver) SearchEntities(ctx context.Context, workspaceID string, entityType, primaryKey *string, limit int) ([]model.Entity, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT entity_id, workspace_id, entity_type, primary_key, display_name, created_at, updated_at
		FROM entities
		WHERE workspace_id = ?
		  AND (? IS NULL OR entity_type = ?)
		  AND (? IS NULL OR primary_key = ?)
		LIMIT ?`,
		workspaceID, nullIfEmpty(entityType), nullIfEmpty(entityType), nullIfEmpty(primaryKey), nullIfEmpty(primaryKey), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Entity
	for rows.Next() {
		e, err := scanEntityRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanEntity(row *sql.Row) (*model.Entity, error) {
	e, err := scanEntityInto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func scanEntityRows(rows *sql.Rows) (*model.Entity, error) {
	return scanEntityInto(rows)
}

func scanEntityInto(s scannable) (*model.Entity, error) {
	var e model.Entity
	var displayName sql.NullString
	var createdAt, updatedAt time.Time
	if err := s.Scan(&e.EntityID, &e.WorkspaceID, &e.EntityType, &e.PrimaryKey, &displayName, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if displayName.Valid {
		e.DisplayName = &displayName.String
	}
	e.CreatedAt = createdAt
	e.UpdatedAt = updatedAt
	return &e, nil
}
