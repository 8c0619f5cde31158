// Package sqlite provides a local vector index backed by SQLite.
// Vectors are stored as little-endian float32 blobs and searched with
// brute-force cosine similarity, which is fine for the tens of
// thousands of chunks a folder of annual reports produces.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/finlight-labs/reportkb-cli/internal/core/domain"
	"github.com/finlight-labs/reportkb-cli/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// schema creates the chunk table. There is deliberately no uniqueness
// constraint on id: a reprocessed file may insert duplicates, and the
// ledger, not the index, is the source of truth for what is current.
const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	id           TEXT NOT NULL,
	source       TEXT NOT NULL,
	content      TEXT NOT NULL,
	start_offset INTEGER NOT NULL,
	end_offset   INTEGER NOT NULL,
	page     INTEGER NOT NULL DEFAULT 0,
	section  TEXT NOT NULL DEFAULT '',
	ordinal  INTEGER NOT NULL,
	metadata TEXT NOT NULL DEFAULT '{}',
	vector   BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source);
`

// Index is a SQLite-backed driven.VectorIndex.
type Index struct {
	db       *sql.DB
	embedder driven.EmbeddingService
	path     string
}

// NewIndex opens or creates the index database at path. If path is
// empty, defaults to ~/.reportkb/data/index.db.
func NewIndex(path string, embedder driven.EmbeddingService) (*Index, error) {
	if embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, ".reportkb", "data", "index.db")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Index{
		db:       db,
		embedder: embedder,
		path:     path,
	}, nil
}

// Add inserts a batch of chunks inside one transaction, so a failure
// leaves none of the batch behind.
func (x *Index) Add(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	vectors, err := x.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: embed batch: %v", domain.ErrIndexWrite, err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: got %d vectors for %d chunks", domain.ErrIndexWrite, len(vectors), len(chunks))
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", domain.ErrIndexWrite, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, source, content, start_offset, end_offset, page, section, ordinal, metadata, vector)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: prepare insert: %v", domain.ErrIndexWrite, err)
	}
	defer stmt.Close()

	for i, chunk := range chunks {
		metadata, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("%w: encode metadata for chunk %s: %v", domain.ErrIndexWrite, chunk.ID, err)
		}

		_, err = stmt.ExecContext(ctx,
			chunk.ID, chunk.Source, chunk.Content,
			chunk.Start, chunk.End, chunk.Page, chunk.Section, chunk.Ordinal,
			string(metadata), encodeVector(vectors[i]),
		)
		if err != nil {
			return fmt.Errorf("%w: insert chunk %s: %v", domain.ErrIndexWrite, chunk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrIndexWrite, err)
	}
	return nil
}

// Search embeds the query and scans all rows, scoring with cosine
// similarity and keeping the k best matches that satisfy the filter.
func (x *Index) Search(ctx context.Context, query string, k int, filter map[string]any) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}

	queryVec, err := x.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	rows, err := x.db.QueryContext(ctx, `
		SELECT id, source, content, start_offset, end_offset, page, section, ordinal, metadata, vector
		FROM chunks`)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var results []domain.ScoredChunk
	for rows.Next() {
		var chunk domain.Chunk
		var metadata string
		var blob []byte

		err := rows.Scan(&chunk.ID, &chunk.Source, &chunk.Content,
			&chunk.Start, &chunk.End, &chunk.Page, &chunk.Section, &chunk.Ordinal,
			&metadata, &blob)
		if err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}

		if err := json.Unmarshal([]byte(metadata), &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for chunk %s: %w", chunk.ID, err)
		}

		if !matchesFilter(chunk.Metadata, filter) {
			continue
		}

		score := cosineSimilarity(queryVec, decodeVector(blob))
		results = append(results, domain.ScoredChunk{Chunk: chunk, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Stats reports row count and the embedder's vector dimension.
func (x *Index) Stats(ctx context.Context) (*domain.IndexStats, error) {
	var count int64
	if err := x.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count); err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}

	return &domain.IndexStats{
		RowCount:  count,
		Dimension: x.embedder.Dimensions(),
	}, nil
}

// Close closes the database connection.
func (x *Index) Close() error {
	return x.db.Close()
}

// Path returns the database file path.
func (x *Index) Path() string {
	return x.path
}

// matchesFilter reports whether every filter entry equals the
// corresponding metadata value. Values are compared via fmt.Sprint so
// a filter of 2023 matches both the int and the float64 JSON decodes to.
func matchesFilter(metadata, filter map[string]any) bool {
	for key, want := range filter {
		got, ok := metadata[key]
		if !ok {
			return false
		}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

// encodeVector packs a float32 slice as little-endian bytes.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeVector unpacks little-endian bytes into a float32 slice.
func decodeVector(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths or zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
