// Package lock provides per-workspace mutual exclusion for the Ingestion
// Engine. A single import run holds the lock for its whole duration so two
// concurrent imports into the same workspace can't interleave writes; the
// system is explicitly single-writer-per-workspace by design, so a narrow
// advisory lock is all the concurrency model needs.
package lock

import "context"

// Locker acquires and releases a workspace-scoped lock. Acquire blocks
// until the lock is held or ctx is cancelled; the returned release func is
// always safe to call exactly once.
type Locker interface {
	Acquire(ctx context.Context, workspaceID string) (release func(), err error)
}
