package scanning

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedResourceManager_Acquire(t *testing.T) {
	t.Run("successful acquisition", func(t *testing.T) {
		rm := NewFixedResourceManager(5)

		require.NoError(t, rm.Acquire(context.Background(), "probe-1"))
		assert.Equal(t, 1, rm.Active())
		assert.Equal(t, 4, rm.Available())

		rm.Release("probe-1")
		assert.Equal(t, 0, rm.Active())
	})

	t.Run("blocks when full", func(t *testing.T) {
		rm := NewFixedResourceManager(2)
		ctx := context.Background()

		require.NoError(t, rm.Acquire(ctx, "probe-1"))
		require.NoError(t, rm.Acquire(ctx, "probe-2"))

		ctx3, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, rm.Acquire(ctx3, "probe-3"), context.DeadlineExceeded)

		rm.Release("probe-1")
		rm.Release("probe-2")
	})

	t.Run("cancelled context never acquires", func(t *testing.T) {
		rm := NewFixedResourceManager(10)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		for i := 0; i < 20; i++ {
			assert.ErrorIs(t, rm.Acquire(ctx, fmt.Sprintf("probe-%d", i)), context.Canceled)
		}
		assert.Equal(t, 0, rm.Active())
	})

	t.Run("zero capacity falls back to one", func(t *testing.T) {
		rm := NewFixedResourceManager(0)
		assert.Equal(t, 1, rm.Available())
	})
}

func TestFixedResourceManager_Release(t *testing.T) {
	t.Run("release unblocks a waiter", func(t *testing.T) {
		rm := NewFixedResourceManager(1)
		require.NoError(t, rm.Acquire(context.Background(), "probe-1"))

		acquired := make(chan error, 1)
		go func() {
			acquired <- rm.Acquire(context.Background(), "probe-2")
		}()

		select {
		case <-acquired:
			t.Fatal("acquire should block while the only slot is held")
		case <-time.After(50 * time.Millisecond):
		}

		rm.Release("probe-1")
		select {
		case err := <-acquired:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("acquire did not proceed after release")
		}
	})

	t.Run("release unknown probe", func(t *testing.T) {
		rm := NewFixedResourceManager(2)
		rm.Release("unknown")
		assert.Equal(t, 0, rm.Active())
		assert.Equal(t, 2, rm.Available())
	})
}

func TestFixedResourceManager_ConcurrentAccess(t *testing.T) {
	rm := NewFixedResourceManager(10)
	ctx := context.Background()

	const workers = 50
	const probesPerWorker = 5

	var wg sync.WaitGroup
	errs := make(chan error, workers*probesPerWorker)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < probesPerWorker; j++ {
				id := fmt.Sprintf("worker-%d-probe-%d", worker, j)
				if err := rm.Acquire(ctx, id); err != nil {
					errs <- err
					return
				}
				time.Sleep(time.Millisecond)
				rm.Release(id)
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent operation failed: %v", err)
	}
	assert.Equal(t, 0, rm.Active())
	assert.Equal(t, 10, rm.Available())
}

func TestFixedResourceManager_Close(t *testing.T) {
	rm := NewFixedResourceManager(2)
	require.NoError(t, rm.Acquire(context.Background(), "probe-1"))

	require.NoError(t, rm.Close())
	assert.Equal(t, 0, rm.Active())
	assert.Error(t, rm.Acquire(context.Background(), "probe-2"))

	// Closing twice is harmless and late releases are ignored.
	assert.NoError(t, rm.Close())
	rm.Release("probe-1")
}
