package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quorum/internal/ledger"
)

func newPending(name string) *pending {
	return &pending{
		req:  Request{Instruction: ledger.InitializeCommunity{Name: name}},
		done: make(chan result, 1),
	}
}

func TestRequestQueue_FIFO(t *testing.T) {
	q := newRequestQueue()
	for _, name := range []string{"A", "B", "C"} {
		require.True(t, q.Enqueue(newPending(name)))
	}

	for _, want := range []string{"A", "B", "C"} {
		p, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, p.req.Instruction.(ledger.InitializeCommunity).Name)
	}

	_, ok := q.TryDequeue()
	assert.False(t, ok)
}

func TestRequestQueue_CloseReturnsLeftovers(t *testing.T) {
	q := newRequestQueue()
	q.Enqueue(newPending("A"))
	q.Enqueue(newPending("B"))

	left := q.Close()
	assert.Len(t, left, 2)
	assert.Equal(t, 0, q.Len())
	assert.False(t, q.Enqueue(newPending("C")), "enqueue after close must fail")
	assert.Nil(t, q.Close(), "second close is a no-op")

	select {
	case _, open := <-q.Wait():
		assert.False(t, open, "signal channel should be closed")
	default:
		t.Fatal("Wait() should not block after Close")
	}
}

func TestRequestQueue_SignalCoalesces(t *testing.T) {
	q := newRequestQueue()
	q.Enqueue(newPending("A"))
	q.Enqueue(newPending("B"))

	<-q.Wait()
	select {
	case <-q.Wait():
		t.Fatal("signals should coalesce into one")
	default:
	}
	assert.Equal(t, 2, q.Len())
}
