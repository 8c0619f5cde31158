package domain

import "time"

// SourceDocument identifies one file in the source folder at a specific
// content version. A changed file is a new SourceDocument with a new
// hash, never a mutation of an old one.
type SourceDocument struct {
	// Path is the absolute or folder-relative location on disk.
	Path string

	// Name is the display name (base file name). Metadata extraction
	// and ledger entries key on it.
	Name string

	// Hash is the lowercase hex SHA-256 digest of the file contents.
	Hash string

	// Size is the file size in bytes.
	Size int64
}

// Chunk is a searchable slice of one document's extracted text.
// Chunks are created by the chunker and consumed read-only downstream.
type Chunk struct {
	// ID is the process-unique chunk identifier.
	ID string

	// Source is the display name of the owning document.
	Source string

	// Content is the trimmed chunk text.
	Content string

	// Start and End are the pre-trim character offsets within the
	// extracted source text, so positions remain reconstructable
	// against the original. 0 <= Start < End <= len(source text).
	Start int
	End   int

	// Page is the estimated 1-based page number. 0 means unknown.
	Page int

	// Section is the nearest preceding section title. Empty means unknown.
	Section string

	// Ordinal is the position among the document's chunks.
	Ordinal int

	// Metadata is the merged key/value bundle. Document-level keys
	// carry a "doc_" prefix, chunk-level keys a "chunk_" prefix.
	Metadata map[string]any
}

// ScoredChunk is a chunk returned from similarity search with its score.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// LedgerEntry records the last successfully indexed version of a file.
// It is written only after the file's chunks were flushed to the index.
type LedgerEntry struct {
	Hash          string    `json:"hash"`
	ProcessedDate time.Time `json:"processed_date"`
	ChunkCount    int       `json:"chunk_count"`
}

// IndexStats describes the vector index contents.
type IndexStats struct {
	RowCount  int64 `json:"row_count"`
	Dimension int   `json:"dim"`
}

// KnowledgeBaseStats aggregates ledger and index statistics.
type KnowledgeBaseStats struct {
	TotalDocuments int         `json:"total_documents"`
	TotalChunks    int         `json:"total_chunks"`
	LastProcessed  time.Time   `json:"last_processed"`
	Index          *IndexStats `json:"index,omitempty"`
}
