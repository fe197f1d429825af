// Package duckdriver is the secondary, embedded Data Access Port reference
// driver. It backs pkg/dap.DAP with a local DuckDB file (or an in-memory
// instance for tests), opening the database directly rather than through
// a catalog/storage ATTACH, which targets a different analytical use case
// than workspace-scoped graph storage.
package duckdriver

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/jonboulle/clockwork"

	"github.com/factlake/factlake/pkg/dap"
	"github.com/factlake/factlake/pkg/idgen"
)

// Driver implements dap.DAP against an embedded DuckDB database.
type Driver struct {
	log   *slog.Logger
	db    *sql.DB
	idGen *idgen.Generator
	clock clockwork.Clock
}

var _ dap.DAP = (*Driver)(nil)

// Open creates (or opens) the DuckDB file at path and applies schemaDDL.
// Pass ":memory:" for ephemeral use in tests. clock defaults to
// clockwork.NewRealClock when nil.
func Open(ctx context.Context, log *slog.Logger, path string, clock clockwork.Clock) (*Driver, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening duckdb: %v", dap.ErrStoreUnavailable, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: pinging duckdb: %v", dap.ErrStoreUnavailable, err)
	}
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	log.Info("opened embedded duckdb store", "path", path)
	return &Driver{
		log:   log,
		db:    db,
		idGen: idgen.NewGenerator(clock),
		clock: clock,
	}, nil
}

func (d *Driver) Close(ctx context.Context) error {
	return d.db.Close()
}

func (d *Driver) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", dap.ErrStoreUnavailable, err)
	}
	return nil
}

func nullIfEmpty(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
