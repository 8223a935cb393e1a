package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates request IDs "<prefix>-0001", "<prefix>-0002", ...
//
// Implements engine.IDGenerator. Scenario runs use it so journal traces
// are byte-identical across runs and can be compared against golden files.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator. If prefix is empty, "req" is used.
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "req"
	}
	return &SequentialIDs{prefix: prefix}
}

// Generate returns the next ID.
func (g *SequentialIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
