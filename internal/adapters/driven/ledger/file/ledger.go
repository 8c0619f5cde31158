// Package file provides a JSON-file backed processing ledger.
// The ledger is a single JSON object mapping file name to its last
// successfully indexed version, matching the knowledge base's
// processing_history.json on disk.
package file

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/finlight-labs/reportkb-cli/internal/core/domain"
	"github.com/finlight-labs/reportkb-cli/internal/core/ports/driven"
)

// Ensure Ledger implements the interface.
var _ driven.ProcessingLedger = (*Ledger)(nil)

// SkipPolicy selects how IsUnchanged decides to skip a file.
type SkipPolicy string

const (
	// SkipByHash skips when an entry exists for the file name and its
	// stored hash matches. Renamed files are treated as new because
	// metadata extraction depends on the name.
	SkipByHash SkipPolicy = "by-hash"

	// SkipByName skips whenever any entry exists for the file name,
	// regardless of content changes.
	SkipByName SkipPolicy = "by-name"

	// SkipNever reprocesses every file on every run.
	SkipNever SkipPolicy = "never"
)

// DefaultFileName is the ledger file name inside a knowledge base folder.
const DefaultFileName = "processing_history.json"

// Ledger is a file-backed driven.ProcessingLedger. All methods are safe
// for concurrent use.
type Ledger struct {
	mu      sync.Mutex
	path    string
	policy  SkipPolicy
	entries map[string]domain.LedgerEntry
}

// NewLedger creates a ledger persisted at path. An empty policy
// defaults to SkipByHash.
func NewLedger(path string, policy SkipPolicy) *Ledger {
	if policy == "" {
		policy = SkipByHash
	}
	return &Ledger{
		path:    path,
		policy:  policy,
		entries: make(map[string]domain.LedgerEntry),
	}
}

// Load reads the persisted ledger. A missing file leaves the ledger empty.
func (l *Ledger) Load() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			l.entries = make(map[string]domain.LedgerEntry)
			return nil
		}
		return fmt.Errorf("read ledger: %w", err)
	}

	loaded := make(map[string]domain.LedgerEntry)
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("parse ledger %s: %w", l.path, err)
	}

	l.entries = loaded
	return nil
}

// IsUnchanged reports whether the file can be skipped under the policy.
func (l *Ledger) IsUnchanged(fileName, hash string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[fileName]
	switch l.policy {
	case SkipByName:
		return ok
	case SkipNever:
		return false
	default: // SkipByHash
		return ok && entry.Hash == hash
	}
}

// Record stores or replaces the in-memory entry for fileName.
func (l *Ledger) Record(fileName string, entry domain.LedgerEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[fileName] = entry
}

// Entries returns a copy of all known entries.
func (l *Ledger) Entries() map[string]domain.LedgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]domain.LedgerEntry, len(l.entries))
	for name, entry := range l.entries {
		out[name] = entry
	}
	return out
}

// Save writes the whole ledger to a temporary file and renames it into
// place, so a crash mid-save leaves the previous complete snapshot.
func (l *Ledger) Save() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.MarshalIndent(l.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".ledger-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp ledger: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp ledger: %w", err)
	}

	if err := os.Rename(tmpPath, l.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}

// Path returns the ledger file path.
func (l *Ledger) Path() string {
	return l.path
}
