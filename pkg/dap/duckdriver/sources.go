package duckdriver

import (
	"context"
	"database/sql"

	"github.com/factlake/factlake/pkg/idgen"
	"github.com/factlake/factlake/pkg/model"
)

func (d *Driver) UpsertSource(ctx context.Context, s model.Source) (string, error) {
	if s.SourceID == "" {
		s.SourceID = d.idGen.Generate(idgen.PrefixSource)
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO sources (source_id, workspace_id, source_name, source_type, authority_rank, authority_domains, update_frequency, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_id) DO UPDATE SET
			source_name = EXCLUDED.source_name, source_type = EXCLUDED.source_type,
			authority_rank = EXCLUDED.authority_rank, authority_domains = EXCLUDED.authority_domains,
			update_frequency = EXCLUDED.update_frequency, description = EXCLUDED.description`,
		s.SourceID, s.WorkspaceID, s.SourceName, s.SourceType, int64(s.AuthorityRank),
		nullIfEmpty(s.AuthorityDomains), nullIfEmpty(s.UpdateFrequency), nullIfEmpty(s.Description))
	if err != nil {
		return "", err
	}
	return s.SourceID, nil
}

func (d *Driver) ListSources(ctx context.Context, workspaceID string) ([]model.Source, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT source_id, workspace_id, source_name, source_type, authority_rank, authority_domains, update_frequency, description
		FROM sources WHERE workspace_id = ?`, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Source
	for rows.Next() {
		var s model.Source
		var authorityDomains, updateFrequency, description sql.NullString
		var rank int64
		if err := rows.Scan(&s.SourceID, &s.WorkspaceID, &s.SourceName, &s.SourceType, &rank, &authorityDomains, &updateFrequency, &description); err != nil {
			return nil, err
		}
		s.AuthorityRank = int(rank)
		s.AuthorityDomains = nullStringPtr(authorityDomains)
		s.UpdateFrequency = nullStringPtr(updateFrequency)
		s.Description = nullStringPtr(description)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (d *Driver) GetSourceAuthorityMap(ctx context.Context, workspaceID string) (map[string]int, error) {
	sources, err := d.ListSources(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	m := make(map[string]int, len(sources))
	for _, s := range sources {
		m[s.SourceID] = s.AuthorityRank
	}
	return m, nil
}
