package file

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finlight-labs/reportkb-cli/internal/core/domain"
)

func TestLoad_MissingFile(t *testing.T) {
	l := NewLedger(filepath.Join(t.TempDir(), "processing_history.json"), SkipByHash)

	require.NoError(t, l.Load())
	assert.Empty(t, l.Entries())
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processing_history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	l := NewLedger(path, SkipByHash)
	assert.Error(t, l.Load())
}

func TestSaveAndLoad_Roundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processing_history.json")
	processed := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	l := NewLedger(path, SkipByHash)
	l.Record("Acme_Annual_Report_2023.pdf", domain.LedgerEntry{
		Hash:          "abc123",
		ProcessedDate: processed,
		ChunkCount:    42,
	})
	require.NoError(t, l.Save())

	// The on-disk shape is a flat object keyed by file name.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Contains(t, raw, "Acme_Annual_Report_2023.pdf")
	assert.Equal(t, "abc123", raw["Acme_Annual_Report_2023.pdf"]["hash"])
	assert.EqualValues(t, 42, raw["Acme_Annual_Report_2023.pdf"]["chunk_count"])

	reloaded := NewLedger(path, SkipByHash)
	require.NoError(t, reloaded.Load())

	entry, ok := reloaded.Entries()["Acme_Annual_Report_2023.pdf"]
	require.True(t, ok)
	assert.Equal(t, "abc123", entry.Hash)
	assert.Equal(t, 42, entry.ChunkCount)
	assert.True(t, entry.ProcessedDate.Equal(processed))
}

func TestIsUnchanged_Policies(t *testing.T) {
	entry := domain.LedgerEntry{Hash: "h1", ChunkCount: 3}

	t.Run("by-hash", func(t *testing.T) {
		l := NewLedger("unused.json", SkipByHash)
		l.Record("r.pdf", entry)

		assert.True(t, l.IsUnchanged("r.pdf", "h1"))
		assert.False(t, l.IsUnchanged("r.pdf", "h2"), "content change forces reprocessing")
		assert.False(t, l.IsUnchanged("other.pdf", "h1"), "renamed file is new")
	})

	t.Run("by-name", func(t *testing.T) {
		l := NewLedger("unused.json", SkipByName)
		l.Record("r.pdf", entry)

		assert.True(t, l.IsUnchanged("r.pdf", "h1"))
		assert.True(t, l.IsUnchanged("r.pdf", "h2"), "same name skips even if content changed")
		assert.False(t, l.IsUnchanged("other.pdf", "h1"))
	})

	t.Run("never", func(t *testing.T) {
		l := NewLedger("unused.json", SkipNever)
		l.Record("r.pdf", entry)

		assert.False(t, l.IsUnchanged("r.pdf", "h1"))
	})
}

func TestNewLedger_EmptyPolicyDefaultsToByHash(t *testing.T) {
	l := NewLedger("unused.json", "")
	l.Record("r.pdf", domain.LedgerEntry{Hash: "h1"})

	assert.True(t, l.IsUnchanged("r.pdf", "h1"))
	assert.False(t, l.IsUnchanged("r.pdf", "h2"))
}

func TestSave_ReplacesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processing_history.json")

	l := NewLedger(path, SkipByHash)
	l.Record("one.pdf", domain.LedgerEntry{Hash: "h1"})
	require.NoError(t, l.Save())

	l.Record("two.pdf", domain.LedgerEntry{Hash: "h2"})
	require.NoError(t, l.Save())

	reloaded := NewLedger(path, SkipByHash)
	require.NoError(t, reloaded.Load())
	assert.Len(t, reloaded.Entries(), 2)

	// No stray temp files left behind.
	matches, err := filepath.Glob(filepath.Join(t.TempDir(), ".ledger-*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSave_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "processing_history.json")

	l := NewLedger(path, SkipByHash)
	l.Record("r.pdf", domain.LedgerEntry{Hash: "h1"})
	require.NoError(t, l.Save())

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestEntries_ReturnsCopy(t *testing.T) {
	l := NewLedger("unused.json", SkipByHash)
	l.Record("r.pdf", domain.LedgerEntry{Hash: "h1"})

	entries := l.Entries()
	entries["injected.pdf"] = domain.LedgerEntry{Hash: "x"}

	assert.Len(t, l.Entries(), 1)
}
