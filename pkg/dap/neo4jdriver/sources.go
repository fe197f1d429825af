package neo4jdriver

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/factlake/factlake/pkg/idgen"
	"github.com/factlake/factlake/pkg/model"
)

func (d *Driver) UpsertSource(ctx context.Context, s model.Source) (string, error) {
	if s.SourceID == "" {
		s.SourceID = d.idGen.Generate(idgen.PrefixSource)
	}
	session := d.session(ctx)
	defer session.Close(ctx)

	_, err := d.retryableWrite(ctx, func() (any, error) {
		return session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			_, err := tx.Run(ctx, `
				MERGE (s:Source {source_id: $source_id, workspace_id: $workspace_id})
				SET s.source_name = $source_name, s.source_type = $source_type,
					s.authority_rank = $authority_rank, s.authority_domains = $authority_domains,
					s.update_frequency = $update_frequency, s.description = $description`, map[string]any{
				"source_id":         s.SourceID,
				"workspace_id":      s.WorkspaceID,
				"source_name":       s.SourceName,
				"source_type":       s.SourceType,
				"authority_rank":    int64(s.AuthorityRank),
				"authority_domains": strOrNil(s.AuthorityDomains),
				"update_frequency":  strOrNil(s.UpdateFrequency),
				"description":       strOrNil(s.Description),
			})
			return nil, err
		})
	})
	if err != nil {
		return "", err
	}
	return s.SourceID, nil
}

func (d *Driver) ListSources(ctx context.Context, workspaceID string) ([]model.Source, error) {
	session := d.session(ctx)
	defer session.Close(ctx)

	res, err := d.retryableWrite(ctx, func() (any, error) {
		return session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			result, err := tx.Run(ctx, `
				MATCH (s:Source {workspace_id: $workspace_id}) RETURN s`, map[string]any{
				"workspace_id": workspaceID,
			})
			if err != nil {
				return nil, err
			}
			records, err := result.Collect(ctx)
			if err != nil {
				return nil, err
			}
			sources := make([]model.Source, 0, len(records))
			for _, rec := range records {
				s, err := recordToSource(rec)
				if err != nil {
					return nil, err
				}
				sources = append(sources, *s)
			}
			return sources, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return res.([]model.Source), nil
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

func recordToSource(rec *neo4j.Record) (*model.Source, error) {
	raw, _ := rec.Get("s")
	node := raw.(neo4j.Node)
	props := node.Props

	s := &model.Source{
		SourceID:         props["source_id"].(string),
		WorkspaceID:      props["workspace_id"].(string),
		SourceName:       props["source_name"].(string),
		SourceType:       props["source_type"].(string),
		AuthorityDomains: asOptString(props["authority_domains"]),
		UpdateFrequency:  asOptString(props["update_frequency"]),
		Description:      asOptString(props["description"]),
	}
	if rank, ok := props["authority_rank"].(int64); ok {
		s.AuthorityRank = int(rank)
	}
	return s, nil
}
