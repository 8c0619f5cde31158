package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)

	assert.Equal(t, []string{".pdf"}, cfg.Source.Suffixes)
	assert.Equal(t, 1000, cfg.Chunking.TargetSize)
	assert.Equal(t, 200, cfg.Chunking.Overlap)
	assert.Equal(t, "by-hash", cfg.Ledger.SkipPolicy)
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, "sqlite", cfg.Index.Provider)
	assert.Equal(t, "annual_reports", cfg.Index.Collection)
	assert.Equal(t, 64, cfg.Build.BatchSize)
	assert.Equal(t, 1, cfg.Build.Workers)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[source]
folder = "/data/reports"
suffixes = [".pdf", ".md"]

[chunking]
target_size = 500
overlap = 50

[ledger]
skip_policy = "by-name"

[embedding]
provider = "openai"
model = "text-embedding-3-small"
api_key_env = "OPENAI_API_KEY"
dimensions = 1536
requests_per_second = 2.5

[index]
provider = "qdrant"
url = "http://localhost:6333"
collection = "reports"

[build]
batch_size = 16
workers = 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/reports", cfg.Source.Folder)
	assert.Equal(t, []string{".pdf", ".md"}, cfg.Source.Suffixes)
	assert.Equal(t, 500, cfg.Chunking.TargetSize)
	assert.Equal(t, 50, cfg.Chunking.Overlap)
	assert.Equal(t, "by-name", cfg.Ledger.SkipPolicy)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, 1536, cfg.Embedding.Dimensions)
	assert.InDelta(t, 2.5, cfg.Embedding.RequestsPerSecond, 0.001)
	assert.Equal(t, "qdrant", cfg.Index.Provider)
	assert.Equal(t, "reports", cfg.Index.Collection)
	assert.Equal(t, 16, cfg.Build.BatchSize)
	assert.Equal(t, 4, cfg.Build.Workers)

	// Sections absent from the file keep their defaults.
	assert.Equal(t, "ollama", cfg.Generator.Provider)
	assert.Equal(t, 300, cfg.Converter.TimeoutSecs)
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[source\nbroken"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_FallbacksForZeroedValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[chunking]
target_size = 0

[build]
batch_size = -1
workers = 0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.Chunking.TargetSize)
	assert.Equal(t, 64, cfg.Build.BatchSize)
	assert.Equal(t, 1, cfg.Build.Workers)
}

func TestSaveAndLoad_Roundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Source.Folder = "/reports"
	cfg.Embedding.Provider = "openai"
	require.NoError(t, cfg.Save(path))

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/reports", reloaded.Source.Folder)
	assert.Equal(t, "openai", reloaded.Embedding.Provider)
}
