// Package store provides durable, address-keyed record storage for the
// quorum ledger.
//
// The store holds two things:
//   - Records: encoded Community, Membership, Poll, and Vote records keyed by
//     their derived address
//   - Transitions: an append-only journal of every submitted transition
//
// # Critical Patterns
//
// Create-or-fail
//   - Create inserts with ON CONFLICT(address) DO NOTHING and reports
//     ErrAddressOccupied when no row was inserted
//   - Derived addresses make this the uniqueness constraint for memberships,
//     polls, and votes; no separate "already exists" scan is needed
//
// Atomic units
//   - Update runs a function against a Tx and commits every write it made,
//     or none of them
//   - A committed transition's journal entry is written in the same unit as
//     its records
//
// Shape checking
//   - Every record is validated against the CUE schema (internal/schema) on
//     Create, Save, and Load
//
// Deterministic reads
//   - Journal queries use ORDER BY seq ASC
//   - Digest hashes records in address order
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - Single connection: SQLite has one writer
//
// Memory is an in-process implementation with the same semantics, used by
// tests, scenario runs, and replay verification.
package store
