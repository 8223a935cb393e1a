package engine

import (
	"sync"

	"github.com/roach88/quorum/internal/ir"
	"github.com/roach88/quorum/internal/ledger"
)

// Request is one transition submitted to the sequencer.
type Request struct {
	// Caller is the verified identity the transition runs as.
	Caller ir.Address

	Instruction ledger.Instruction

	// RequestID correlates the request with its journal entry. When empty
	// the engine assigns one from its IDGenerator.
	RequestID string
}

// Receipt describes how the sequencer handled a request.
type Receipt struct {
	Seq          int64
	RequestID    string
	TransitionID string
	Op           ir.Op
	At           int64

	// Outcome is ir.OutcomeOK or the rejection code.
	Outcome string

	// Result is the address the transition created or mutated; zero when
	// rejected.
	Result ir.Address
}

// Committed reports whether the transition was applied.
func (r Receipt) Committed() bool {
	return r.Outcome == ir.OutcomeOK
}

// pending is a queued request waiting for its result.
type pending struct {
	req  Request
	done chan result // buffered, size 1
}

type result struct {
	receipt Receipt
	err     error
}

// requestQueue is a thread-safe FIFO queue for submitted requests.
//
// Submit may be called from any goroutine (CLI, HTTP handlers) while the
// Engine's Run loop dequeues.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the Run loop (prevents goroutine hangs on context cancellation).
type requestQueue struct {
	mu     sync.Mutex
	items  []*pending
	closed bool
	signal chan struct{} // Signals availability (buffered, size 1)
}

// newRequestQueue creates an empty queue.
func newRequestQueue() *requestQueue {
	return &requestQueue{
		items:  make([]*pending, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds a request to the back of the queue.
// Returns false if the queue is closed.
func (q *requestQueue) Enqueue(p *pending) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.items = append(q.items, p)

	// Non-blocking: the buffer of 1 coalesces multiple signals
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front request without blocking.
// Returns (nil, false) if the queue is empty.
func (q *requestQueue) TryDequeue() (*pending, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}

	p := q.items[0]

	// Nil out the slot so the backing array does not retain the request.
	q.items[0] = nil

	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}

	return p, true
}

// Wait returns a channel that signals when requests may be available.
// The channel is closed when the queue is closed.
func (q *requestQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *requestQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops accepting requests and wakes any waiter.
// Returns the requests still queued so the caller can fail them.
func (q *requestQueue) Close() []*pending {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true
	close(q.signal)

	left := q.items
	q.items = nil
	return left
}
