package duckdriver

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/factlake/factlake/pkg/idgen"
	"github.com/factlake/factlake/pkg/model"
)

func (d *Driver) InsertImportRun(ctx context.Context, ir model.ImportRun) (string, error) {
	if ir.ImportRunID == "" {
		ir.ImportRunID = d.idGen.Generate(idgen.PrefixImportRun)
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO import_runs (import_run_id, workspace_id, source_file, spec_name, started_at, completed_at, status, stats, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ir.ImportRunID, ir.WorkspaceID, nullIfEmpty(ir.SourceFile), nullIfEmpty(ir.SpecName),
		ir.StartedAt, nullTimeIfEmpty(ir.CompletedAt), string(ir.Status), nullIfEmpty(ir.Stats), nullIfEmpty(ir.ErrorMessage))
	if err != nil {
		return "", err
	}
	return ir.ImportRunID, nil
}

func (d *Driver) UpdateImportRun(ctx context.Context, importRunID string, status *model.ImportStatus, completedAt *time.Time, stats, errorMessage *string) error {
	current, err := d.getImportRunByID(ctx, importRunID)
	if err != nil {
		return err
	}
	if current == nil {
		return nil
	}
	if status != nil {
		current.Status = *status
	}
	if completedAt != nil {
		current.CompletedAt = completedAt
	}
	if stats != nil {
		current.Stats = stats
	}
	if errorMessage != nil {
		current.ErrorMessage = errorMessage
	}
	_, err = d.db.ExecContext(ctx, `
		UPDATE import_runs SET status = ?, completed_at = ?, stats = ?, error_message = ?
		WHERE import_run_id = ?`,
		string(current.Status), nullTimeIfEmpty(current.CompletedAt), nullIfEmpty(current.Stats), nullIfEmpty(current.ErrorMessage), importRunID)
	return err
}

func (d *Driver) GetImportRun(ctx context.Context, workspaceID, importRunID string) (*model.ImportRun, error) {
	row := d.db.QueryRowContext(ctx, importRunSelect+`
		WHERE import_run_id = ? AND workspace_id = ?`, importRunID, workspaceID)
	return scanImportRun(row)
}

func (d *Driver) getImportRunByID(ctx context.Context, importRunID string) (*model.ImportRun, error) {
	row := d.db.QueryRowContext(ctx, importRunSelect+`WHERE import_run_id = ?`, importRunID)
	return scanImportRun(row)
}

func (d *Driver) ListImportRuns(ctx context.Context, workspaceID string, limit int) ([]model.ImportRun, error) {
	rows, err := d.db.QueryContext(ctx, importRunSelect+`
		WHERE workspace_id = ? ORDER BY started_at DESC LIMIT ?`, workspaceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ImportRun
	for rows.Next() {
		ir, err := scanImportRunInto(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ir)
	}
	return out, rows.Err()
}

const importRunSelect = `
	SELECT import_run_id, workspace_id, source_file, spec_name, started_at, completed_at, status, stats, error_message
	FROM import_runs
`

func scanImportRun(row *sql.Row) (*model.ImportRun, error) {
	ir, err := scanImportRunInto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return ir, err
}

func scanImportRunInto(s scannable) (*model.ImportRun, error) {
	var ir model.ImportRun
	var sourceFile, specName, stats, errorMessage sql.NullString
	var completedAt sql.NullTime
	var status string
	if err := s.Scan(&ir.ImportRunID, &ir.WorkspaceID, &sourceFile, &specName, &ir.StartedAt, &completedAt, &status, &stats, &errorMessage); err != nil {
		return nil, err
	}
	ir.SourceFile = nullStringPtr(sourceFile)
	ir.SpecName = nullStringPtr(specName)
	ir.Stats = nullStringPtr(stats)
	ir.ErrorMessage = nullStringPtr(errorMessage)
	ir.Status = model.ImportStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		ir.CompletedAt = &t
	}
	return &ir, nil
}
