package pinger

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_RunsTasks(t *testing.T) {
	t.Parallel()

	p := NewWorkerPool(4, 10)
	var ran atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		require.NoError(t, p.Submit(func() {
			defer wg.Done()
			ran.Add(1)
		}))
	}
	wg.Wait()
	p.Stop()
	assert.Equal(t, int32(10), ran.Load())
}

func TestWorkerPool_RejectsBeyondCapacity(t *testing.T) {
	t.Parallel()

	const workers, depth = 2, 3
	p := NewWorkerPool(workers, depth)
	release := make(chan struct{})

	accepted := 0
	var rejected []error
	for i := 0; i < workers+depth+4; i++ {
		err := p.Submit(func() { <-release })
		if err != nil {
			rejected = append(rejected, err)
			continue
		}
		accepted++
	}
	assert.Equal(t, workers+depth, accepted)
	require.Len(t, rejected, 4)
	for _, err := range rejected {
		assert.ErrorIs(t, err, ErrPoolFull)
	}

	close(release)
	p.Stop()
	assert.ErrorIs(t, p.Submit(func() {}), ErrPoolStopped)
}

func TestWorkerPool_Defaults(t *testing.T) {
	t.Parallel()

	p := NewWorkerPool(0, -1)
	defer p.Stop()
	assert.Equal(t, 1, p.Workers())

	done := make(chan struct{})
	require.NoError(t, p.Submit(func() { close(done) }))
	<-done
}

func TestWorkerPool_StopIsIdempotent(t *testing.T) {
	t.Parallel()

	p := NewWorkerPool(1, 1)
	p.Stop()
	p.Stop()
}
