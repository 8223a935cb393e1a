// Package engine implements the quorum sequencer: the single-writer queue
// that orders transitions in front of the ledger, and the replay verifier.
//
// ARCHITECTURE:
//
// Single-Writer Loop:
// Submit may be called from any goroutine. Requests are queued FIFO and
// applied one at a time by Run, so no two transitions ever observe or write
// the same state concurrently. This is what makes "exactly one of N
// concurrent votes by the same voter succeeds" hold.
//
// Request Flow:
//  1. Submit enqueues the request and waits
//  2. Run dequeues it and stamps the next seq and the wall time
//  3. The ledger applies it inside one store unit
//  4. Committed: the journal entry is appended in that same unit
//  5. Rejected: the unit is discarded and the entry is appended on its own
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// Every transition is stamped with a monotonic seq from Sequence.Next().
// Journal order is seq order. Wall time is recorded but never used to order.
//
// Structural Determinism:
// Replay feeds the journal back through the same ledger.Apply path used
// live, with each entry's recorded wall time. Derived addresses and
// canonical record encoding make the resulting state byte-identical, which
// Replay checks by comparing store digests.
package engine
