package lock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pgContainer.Terminate(ctx)
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable", host, port.Port())
	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

func TestPostgresLocker_ExcludesConcurrentHolders(t *testing.T) {
	pool := newTestPool(t)
	locker := NewPostgresLocker(pool)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "workspace-a")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		release2, err := locker.Acquire(ctx, "workspace-a")
		require.NoError(t, err)
		close(acquired)
		release2()
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire for the same workspace must block while the first holds the lock")
	case <-time.After(200 * time.Millisecond):
	}

	release()
	select {
	case <-acquired:
	case <-time.After(5 * time.Second):
		t.Fatal("second acquire never succeeded after release")
	}
}

func TestPostgresLocker_DifferentWorkspacesDoNotBlock(t *testing.T) {
	pool := newTestPool(t)
	locker := NewPostgresLocker(pool)
	ctx := context.Background()

	releaseA, err := locker.Acquire(ctx, "workspace-a")
	require.NoError(t, err)
	defer releaseA()

	releaseB, err := locker.Acquire(ctx, "workspace-b")
	require.NoError(t, err)
	releaseB()
}

func TestPostgresLocker_ReleaseIsIdempotent(t *testing.T) {
	pool := newTestPool(t)
	locker := NewPostgresLocker(pool)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "workspace-c")
	require.NoError(t, err)
	release()
	require.NotPanics(t, release)
}

func TestPostgresLocker_SerializesHighContention(t *testing.T) {
	pool := newTestPool(t)
	locker := NewPostgresLocker(pool)
	ctx := context.Background()

	var counter int64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(ctx, "workspace-d")
			require.NoError(t, err)
			defer release()

			cur := atomic.AddInt64(&counter, 1)
			require.Equal(t, int64(1), cur, "only one holder should be inside the critical section at a time")
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt64(&counter, -1)
		}()
	}
	wg.Wait()
}
