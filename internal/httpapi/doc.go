// Package httpapi exposes the ledger over HTTP.
//
// Every mutating route builds a ledger instruction and submits it to the
// sequencer, so HTTP clients share one total order with every other
// submitter. The caller identity is read from the X-Quorum-Caller header
// (64 hex characters); a fronting layer that verifies request signatures
// is trusted to set it.
//
// Rejections are returned as
//
//	{"error": {"code": "POLL_EXPIRED", "message": "..."}}
//
// with a status derived from the code (see StatusFor).
package httpapi
