package lock

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLocker takes a session-level advisory lock keyed by the FNV-1a
// hash of the workspace ID, using pg_advisory_lock/pg_advisory_unlock on a
// single dedicated connection pulled from the pool. It gives genuine
// cross-process mutual exclusion across every ingest worker sharing the
// same Postgres instance.
type PostgresLocker struct {
	pool *pgxpool.Pool
}

// NewPostgresLocker wraps an existing pool. It does not own the pool's
// lifecycle; callers close it themselves.
func NewPostgresLocker(pool *pgxpool.Pool) *PostgresLocker {
	return &PostgresLocker{pool: pool}
}

func workspaceLockKey(workspaceID string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(workspaceID))
	return int64(h.Sum64())
}

// Acquire blocks on a single checked-out connection until
// pg_advisory_lock succeeds or ctx is cancelled. The lock is released, and
// the connection returned to the pool, when release is called.
func (l *PostgresLocker) Acquire(ctx context.Context, workspaceID string) (func(), error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection for workspace lock: %w", err)
	}

	key := workspaceLockKey(workspaceID)
	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", key); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquiring advisory lock for workspace %q: %w", workspaceID, err)
	}

	released := false
	release := func() {
		if released {
			return
		}
		released = true
		_, _ = conn.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", key)
		conn.Release()
	}
	return release, nil
}
