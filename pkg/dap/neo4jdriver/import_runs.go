package neo4jdriver

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/factlake/factlake/pkg/idgen"
	"github.com/factlake/factlake/pkg/model"
)

func (d *Driver) InsertImportRun(ctx context.Context, ir model.ImportRun) (string, error) {
	if ir.ImportRunID == "" {
		ir.ImportRunID = d.idGen.Generate(idgen.PrefixImportRun)
	}
	session := d.session(ctx)
	defer session.Close(ctx)

	_, err := d.retryableWrite(ctx, func() (any, error) {
		return session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			_, err := tx.Run(ctx, `
				CREATE (ir:ImportRun {
					import_run_id: $import_run_id, workspace_id: $workspace_id,
					source_file: $source_file, spec_name: $spec_name,
					started_at: $started_at, completed_at: $completed_at,
					status: $status, stats: $stats, error_message: $error_message
				})`, map[string]any{
				"import_run_id": ir.ImportRunID,
				"workspace_id":  ir.WorkspaceID,
				"source_file":   strOrNil(ir.SourceFile),
				"spec_name":     strOrNil(ir.SpecName),
				"started_at":    ir.StartedAt,
				"completed_at":  timeOrNil(ir.CompletedAt),
				"status":        string(ir.Status),
				"stats":         strOrNil(ir.Stats),
				"error_message": strOrNil(ir.ErrorMessage),
			})
			return nil, err
		})
	})
	if err != nil {
		return "", err
	}
	return ir.ImportRunID, nil
}

func (d *Driver) UpdateImportRun(ctx context.Context, importRunID string, status *model.ImportStatus, completedAt *time.Time, stats, errorMessage *string) error {
	session := d.session(ctx)
	defer session.Close(ctx)

	var statusVal any
	if status != nil {
		statusVal = string(*status)
	}

	_, err := d.retryableWrite(ctx, func() (any, error) {
		return session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			_, err := tx.Run(ctx, `
				MATCH (ir:ImportRun {import_run_id: $import_run_id})
				SET ir.status = COALESCE($status, ir.status),
					ir.completed_at = COALESCE($completed_at, ir.completed_at),
					ir.stats = COALESCE($stats, ir.stats),
					ir.error_message = COALESCE($error_message, ir.error_message)`, map[string]any{
				"import_run_id": importRunID,
				"status":        statusVal,
				"completed_at":  timeOrNil(completedAt),
				"stats":         strOrNil(stats),
				"error_message": strOrNil(errorMessage),
			})
			return nil, err
		})
	})
	return err
}

func (d *Driver) GetImportRun(ctx context.Context, workspaceID, importRunID string) (*model.ImportRun, error) {
	session := d.session(ctx)
	defer session.Close(ctx)

	res, err := d.retryableWrite(ctx, func() (any, error) {
		return session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			result, err := tx.Run(ctx, `
				MATCH (ir:ImportRun {import_run_id: $import_run_id, workspace_id: $workspace_id})
				RETURN ir LIMIT 1`, map[string]any{
				"import_run_id": importRunID,
				"workspace_id":  workspaceID,
			})
			if err != nil {
				return nil, err
			}
			records, err := result.Collect(ctx)
			if err != nil {
				return nil, err
			}
			if len(records) == 0 {
				return nil, nil
			}
			return recordToImportRun(records[0])
		})
	})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	return res.(*model.ImportRun), nil
}

func (d *Driver) ListImportRuns(ctx context.Context, workspaceID string, limit int) ([]model.ImportRun, error) {
	session := d.session(ctx)
	defer session.Close(ctx)

	res, err := d.retryableWrite(ctx, func() (any, error) {
		return session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			result, err := tx.Run(ctx, `
				MATCH (ir:ImportRun {workspace_id: $workspace_id})
				RETURN ir ORDER BY ir.started_at DESC LIMIT $limit`, map[string]any{
				"workspace_id": workspaceID,
				"limit":        int64(limit),
			})
			if err != nil {
				return nil, err
			}
			records, err := result.Collect(ctx)
			if err != nil {
				return nil, err
			}
			runs := make([]model.ImportRun, 0, len(records))
			for _, rec := range records {
				ir, err := recordToImportRun(rec)
				if err != nil {
					return nil, err
				}
				runs = append(runs, *ir)
			}
			return runs, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return res.([]model.ImportRun), nil
}

func recordToImportRun(rec *neo4j.Record) (*model.ImportRun, error) {
	raw, _ := rec.Get("ir")
	node := raw.(neo4j.Node)
	props := node.Props

	ir := &model.ImportRun{
		ImportRunID:  props["import_run_id"].(string),
		WorkspaceID:  props["workspace_id"].(string),
		SourceFile:   asOptString(props["source_file"]),
		SpecName:     asOptString(props["spec_name"]),
		Status:       model.ImportStatus(props["status"].(string)),
		Stats:        asOptString(props["stats"]),
		ErrorMessage: asOptString(props["error_message"]),
	}
	if startedAt, ok := props["started_at"]; ok {
		ir.StartedAt = asTime(startedAt)
	}
	ir.CompletedAt = asOptTime(props["completed_at"])
	return ir, nil
}
