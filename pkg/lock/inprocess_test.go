package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInProcessLocker_ExcludesConcurrentHolders(t *testing.T) {
	locker := NewInProcessLocker()
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
	case <-time.After(100 * time.Millisecond):
	}

	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second acquire never succeeded after release")
	}
}

func TestInProcessLocker_DifferentWorkspacesDoNotBlock(t *testing.T) {
	locker := NewInProcessLocker()
	ctx := context.Background()

	releaseA, err := locker.Acquire(ctx, "workspace-a")
	require.NoError(t, err)
	defer releaseA()

	done := make(chan struct{})
	go func() {
		releaseB, err := locker.Acquire(ctx, "workspace-b")
		require.NoError(t, err)
		releaseB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("acquiring a different workspace's lock must not block on workspace-a")
	}
}

func TestInProcessLocker_AcquireRespectsContextCancellation(t *testing.T) {
	locker := NewInProcessLocker()
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "workspace-a")
	require.NoError(t, err)
	defer release()

	cancelCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	_, err = locker.Acquire(cancelCtx, "workspace-a")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInProcessLocker_SerializesHighContention(t *testing.T) {
	locker := NewInProcessLocker()
	ctx := context.Background()

	var counter int64
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(ctx, "workspace-d")
			require.NoError(t, err)
			defer release()

			cur := atomic.AddInt64(&counter, 1)
			require.Equal(t, int64(1), cur, "only one holder should be inside the critical section at a time")
			atomic.AddInt64(&counter, -1)
		}()
	}
	wg.Wait()
}
