// Package ledger enforces the six governance transitions over a record
// store: initialize_community, join_community, approve_membership,
// create_poll, cast_vote, and close_poll.
//
// Every transition runs inside one store unit (store.Tx). Checks happen in
// a fixed order and the first failure rejects the whole transition with a
// coded *Error; nothing it wrote survives. The ledger never spawns
// goroutines; ordering across callers is the sequencer's job
// (internal/engine).
//
// Record addresses are derived from identifying data (internal/ir), so
// uniqueness of communities, memberships, and votes is enforced by the
// store's create-or-fail semantics rather than by lookups.
package ledger
