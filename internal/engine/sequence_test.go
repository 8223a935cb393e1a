package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequence_NewSequence(t *testing.T) {
	s := NewSequence()
	assert.Equal(t, int64(0), s.Current(), "new sequence should start at 0")
}

func TestSequence_NewSequenceAt(t *testing.T) {
	s := NewSequenceAt(100)
	assert.Equal(t, int64(100), s.Current())
	assert.Equal(t, int64(101), s.Next())
}

func TestSequence_ThreadSafe(t *testing.T) {
	s := NewSequence()
	const goroutines = 50
	const callsPerGoroutine = 100

	var mu sync.Mutex
	seen := make(map[int64]bool)

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				v := s.Next()
				mu.Lock()
				seen[v] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, goroutines*callsPerGoroutine)
	assert.Equal(t, int64(goroutines*callsPerGoroutine), s.Current())
}
