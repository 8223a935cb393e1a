// Package ir provides the canonical representation of ledger records and
// transitions for quorum.
//
// This package contains types, addressing, and encoding only. All other
// internal packages import ir; ir imports nothing internal. This keeps the
// record layout and address derivation in one foundational layer.
//
// Key design constraints:
//   - NO float types anywhere - counters and timestamps are integers
//   - Timestamps are Unix seconds (int64)
//   - All JSON keys use snake_case
//   - Persisted records are RFC 8785 canonical JSON carrying a kind and
//     version discriminator, so equal records always encode to equal bytes
//   - Record addresses are derived, never allocated (see hash.go)
package ir
