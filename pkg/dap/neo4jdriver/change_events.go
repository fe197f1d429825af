package neo4jdriver

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/factlake/factlake/pkg/idgen"
	"github.com/factlake/factlake/pkg/model"
)

func (d *Driver) InsertChangeEvent(ctx context.Context, ce model.ChangeEvent) (string, error) {
	if ce.ChangeEventID == "" {
		ce.ChangeEventID = d.idGen.Generate(idgen.PrefixChangeEvent)
	}
	session := d.session(ctx)
	defer session.Close(ctx)

	_, err := d.retryableWrite(ctx, func() (any, error) {
		return session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			_, err := tx.Run(ctx, `
				CREATE (ce:ChangeEvent {
					change_event_id: $change_event_id, workspace_id: $workspace_id,
					event_type: $event_type, description: $description, ts: $ts,
					import_run_id: $import_run_id, actor: $actor, stats: $stats
				})`, map[string]any{
				"change_event_id": ce.ChangeEventID,
				"workspace_id":    ce.WorkspaceID,
				"event_type":      string(ce.EventType),
				"description":     strOrNil(ce.Description),
				"ts":              ce.TS,
				"import_run_id":   strOrNil(ce.ImportRunID),
				"actor":           strOrNil(ce.Actor),
				"stats":           strOrNil(ce.Stats),
			})
			return nil, err
		})
	})
	if err != nil {
		return "", err
	}
	return ce.ChangeEventID, nil
}
