package duckdriver

import (
	"context"

	"github.com/factlake/factlake/pkg/idgen"
	"github.com/factlake/factlake/pkg/model"
)

func (d *Driver) InsertChangeEvent(ctx context.Context, ce model.ChangeEvent) (string, error) {
	if ce.ChangeEventID == "" {
		ce.ChangeEventID = d.idGen.Generate(idgen.PrefixChangeEvent)
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO change_events (change_event_id, workspace_id, event_type, description, ts, import_run_id, actor, stats)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ce.ChangeEventID, ce.WorkspaceID, string(ce.EventType), nullIfEmpty(ce.Description), ce.TS,
		nullIfEmpty(ce.ImportRunID), nullIfEmpty(ce.Actor), nullIfEmpty(ce.Stats))
	if err != nil {
		return "", err
	}
	return ce.ChangeEventID, nil
}
