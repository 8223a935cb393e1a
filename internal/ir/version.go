package ir

// Version constants for the record layout and ledger.
const (
	// RecordVersion is the persisted record layout version. Decode rejects
	// records carrying any other version.
	RecordVersion = 1

	// LedgerVersion is the quorum ledger version.
	LedgerVersion = "0.1.0"
)
