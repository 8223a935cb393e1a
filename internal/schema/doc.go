// Package schema validates encoded ledger records against a CUE schema.
//
// The store runs every record through Validate on create, save, and load,
// so a record with the wrong shape can never be persisted or handed to the
// ledger. The schema lives in records.cue and is embedded at build time.
package schema
