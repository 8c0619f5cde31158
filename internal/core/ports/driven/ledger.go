package driven

import "github.com/finlight-labs/reportkb-cli/internal/core/domain"

// ProcessingLedger persists which content version of each file was last
// indexed successfully. An entry always reflects a fully committed
// version, never an in-flight one: the orchestrator records only after
// the file's chunks were flushed to the index.
type ProcessingLedger interface {
	// Load reads the persisted ledger. A missing ledger file is an
	// empty ledger, not an error.
	Load() error

	// IsUnchanged reports whether the file can be skipped under the
	// ledger's skip policy. For the default policy this is true iff an
	// entry exists for fileName and its stored hash equals hash.
	IsUnchanged(fileName, hash string) bool

	// Record stores or replaces the entry for fileName in memory.
	Record(fileName string, entry domain.LedgerEntry)

	// Entries returns a snapshot of all known entries by file name.
	Entries() map[string]domain.LedgerEntry

	// Save atomically persists the full ledger. A crash mid-save leaves
	// the previous complete snapshot, never a torn file.
	Save() error
}
