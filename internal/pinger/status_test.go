package pinger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_AllHealthy(t *testing.T) {
	t.Parallel()

	s := NewStatus()
	assert.True(t, s.AllHealthy(), "empty status is healthy")

	s.Record(PingResult{Host: "a", Success: true})
	assert.True(t, s.AllHealthy())

	s.Record(PingResult{Host: "b", Success: false})
	assert.False(t, s.AllHealthy())
	assert.Equal(t, []string{"b"}, s.Failing())

	s.Record(PingResult{Host: "b", Success: true})
	assert.True(t, s.AllHealthy())
	assert.Empty(t, s.Failing())

	s.Reset()
	_, ok := s.Lookup("a")
	assert.False(t, ok)
	assert.Empty(t, s.Snapshot())
}

func TestStatus_Concurrent(t *testing.T) {
	t.Parallel()

	s := NewStatus()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			s.Record(PingResult{Host: string(rune('a' + i%26)), Success: i%2 == 0})
		}(i)
		go func() {
			defer wg.Done()
			_ = s.AllHealthy()
			_ = s.Snapshot()
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, len(s.Snapshot()), 26)
}
