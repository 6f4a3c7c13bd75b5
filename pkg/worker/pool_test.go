package worker

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The scanner relies on Close acting as drain-and-join when the work
// queue was populated before the pool started.
func TestWorkerPool_CloseDrainsPrepopulatedQueue(t *testing.T) {
	var mu sync.Mutex
	remaining := 50
	processed := 0

	claim := func() bool {
		mu.Lock()
		defer mu.Unlock()
		if remaining == 0 {
			return false
		}
		remaining--
		processed++
		return true
	}

	pool := NewWorkerPool()
	for i := 0; i < 4; i++ {
		require.NoError(t, pool.PushWorker(NewWorker("test-worker", func(w Worker) (bool, error) {
			return claim(), nil
		})))
	}

	require.NoError(t, pool.Start())
	pool.Close()

	assert.Equal(t, 50, processed)
	assert.Equal(t, 0, remaining)
}

func TestWorkerPool_CannotStartTwice(t *testing.T) {
	pool := NewWorkerPool()
	require.NoError(t, pool.Start())
	assert.Error(t, pool.Start())
	pool.Close()
}

func TestWorkerPool_CannotPushAfterStart(t *testing.T) {
	pool := NewWorkerPool()
	require.NoError(t, pool.Start())
	defer pool.Close()

	assert.Error(t, pool.PushWorker(NewWorker("late", func(w Worker) (bool, error) {
		return false, nil
	})))
}
