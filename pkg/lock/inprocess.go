package lock

import (
	"context"
	"sync"
)

// InProcessLocker serializes imports per workspace within a single process,
// using one sync.Mutex per workspace_id. It's the right choice for
// single-writer, single-process deployments where a Postgres dependency
// would be pure overhead.
type InProcessLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewInProcessLocker returns a ready-to-use InProcessLocker.
func NewInProcessLocker() *InProcessLocker {
	return &InProcessLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *InProcessLocker) workspaceLock(workspaceID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[workspaceID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[workspaceID] = m
	}
	return m
}

// Acquire blocks until the workspace's mutex is free or ctx is cancelled.
func (l *InProcessLocker) Acquire(ctx context.Context, workspaceID string) (func(), error) {
	m := l.workspaceLock(workspaceID)

	done := make(chan struct{})
	go func() {
		m.Lock()
		close(done)
	}()

	select {
	case <-done:
		return m.Unlock, nil
	case <-ctx.Done():
		go func() {
			<-done
			m.Unlock()
		}()
		return nil, ctx.Err()
	}
}
