package duckdriver

import (
	"context"
	"database/sql"
	"time"

	"github.com/factlake/factlake/pkg/idgen"
	"github.com/factlake/factlake/pkg/model"
)

func (d *Driver) InsertAssertion(ctx context.Context, a model.AssertionRecord) (string, error) {
	if a.AssertionID == "" {
		a.AssertionID = d.idGen.Generate(idgen.PrefixAssertionRecord)
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO assertion_records (
			assertion_id, workspace_id, assertion_key, raw_hash, normalized_hash,
			source_type, source_ref, source_id, import_run_id, recorded_at,
			valid_from, valid_to, scenario_id, confidence, supersedes,
			relationship_type, property_key
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.AssertionID, a.WorkspaceID, a.AssertionKey, a.RawHash, a.NormalizedHash,
		string(a.SourceType), nullIfEmpty(a.SourceRef), nullIfEmpty(a.SourceID), nullIfEmpty(a.ImportRunID),
		a.RecordedAt, a.ValidFrom, nullTimeIfEmpty(a.ValidTo), a.ScenarioID, a.Confidence,
		nullIfEmpty(a.Supersedes), a.RelationshipType, nullIfEmpty(a.PropertyKey))
	if err != nil {
		return "", err
	}
	return a.AssertionID, nil
}

func (d *Driver) CloseAssertion(ctx context.Context, assertionID string, validTo time.Time) error {
	_, err := d.db.ExecContext(ctx, `
		UPDATE assertion_records SET valid_to = ? WHERE assertion_id = ?`, validTo, assertionID)
	return err
}

func (d *Driver) LookupAssertionsByKey(ctx context.Context, workspaceID, assertionKey, scenarioID string) ([]model.AssertionRecord, error) {
	rows, err := d.db.QueryContext(ctx, assertionSelect+`
		WHERE workspace_id = ? AND assertion_key = ? AND scenario_id = ?`,
		workspaceID, assertionKey, scenarioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAssertions(rows)
}

func (d *Driver) LookupAssertionsByImportRun(ctx context.Context, importRunID string) ([]model.AssertionRecord, error) {
	rows, err := d.db.QueryContext(ctx, assertionSelect+`
		WHERE import_run_id = ?`, importRunID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAssertions(rows)
}

func (d *Driver) GetAssertionsForEntity(ctx context.Context, workspaceID, entityID string) ([]model.AssertionRecord, error) {
	rows, err := d.db.QueryContext(ctx, assertionSelect+`
		WHERE workspace_id = ? AND assertion_id IN (
			SELECT assertion_id FROM asserted_rel_edges WHERE entity_id = ?
		)`, workspaceID, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAssertions(rows)
}

const assertionSelect = `
	SELECT assertion_id, workspace_id, assertion_key, raw_hash, normalized_hash,
		source_type, source_ref, source_id, import_run_id, recorded_at,
		valid_from, valid_to, scenario_id, confidence, supersedes,
		relationship_type, property_key
	FROM assertion_records
`

func scanAssertions(rows *sql.Rows) ([]model.AssertionRecord, error) {
	var out []model.AssertionRecord
	for rows.Next() {
		var a model.AssertionRecord
		var sourceType string
		var sourceRef, sourceID, importRunID, supersedes, propertyKey sql.NullString
		var validTo sql.NullTime
		if err := rows.Scan(&a.AssertionID, &a.WorkspaceID, &a.AssertionKey, &a.RawHash, &a.NormalizedHash,
			&sourceType, &sourceRef, &sourceID, &importRunID, &a.RecordedAt,
			&a.ValidFrom, &validTo, &a.ScenarioID, &a.Confidence, &supersedes,
			&a.RelationshipType, &propertyKey); err != nil {
			return nil, err
		}
		a.SourceType = model.SourceType(sourceType)
		a.SourceRef = nullStringPtr(sourceRef)
		a.SourceID = nullStringPtr(sourceID)
		a.ImportRunID = nullStringPtr(importRunID)
		a.Supersedes = nullStringPtr(supersedes)
		a.PropertyKey = nullStringPtr(propertyKey)
		if validTo.Valid {
			t := validTo.Time
			a.ValidTo = &t
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func nullStringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	s := n.String
	return &s
}

func nullTimeIfEmpty(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
