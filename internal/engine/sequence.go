package engine

import "sync/atomic"

// Sequence is the monotonic logical clock that orders transitions.
//
// Every submitted transition, committed or rejected, is stamped with a
// strictly increasing seq from this counter. Seq order is the order the
// journal records and the order replay re-applies.
//
// Seqs are not contiguous in the journal. A transition whose store unit
// fails has taken its seq but is never journaled, so readers and replay
// must tolerate gaps.
//
// Thread-safety: Sequence is safe for concurrent use (atomic operations).
// However, the Engine's single-writer design means only the Run goroutine
// calls Next().
type Sequence struct {
	seq atomic.Int64
}

// NewSequence creates a sequence starting at 0. The first Next returns 1.
func NewSequence() *Sequence {
	return &Sequence{}
}

// NewSequenceAt creates a sequence that resumes after start.
// Used to continue numbering from the journal's last seq.
func NewSequenceAt(start int64) *Sequence {
	s := &Sequence{}
	s.seq.Store(start)
	return s
}

// Next returns the next sequence number and increments the counter.
func (s *Sequence) Next() int64 {
	return s.seq.Add(1)
}

// Current returns the last issued sequence number without incrementing.
func (s *Sequence) Current() int64 {
	return s.seq.Load()
}
