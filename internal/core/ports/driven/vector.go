package driven

import (
	"context"

	"github.com/finlight-labs/reportkb-cli/internal/core/domain"
)

// VectorIndex stores chunks with their metadata and serves similarity
// search. Implementations embed chunk text through an EmbeddingService.
// The index accepts duplicate inserts without erroring: there is no
// uniqueness constraint on chunk IDs, so a reprocessed file may leave
// duplicate rows behind.
type VectorIndex interface {
	// Add inserts a batch of chunks. The call is all-or-nothing per
	// batch: either every chunk is durably written or none is.
	Add(ctx context.Context, chunks []domain.Chunk) error

	// Search returns the k chunks most similar to the query text,
	// restricted to chunks whose metadata matches every filter entry.
	Search(ctx context.Context, query string, k int, filter map[string]any) ([]domain.ScoredChunk, error)

	// Stats reports row count and vector dimension. Implementations
	// that cannot report return domain.ErrStatsUnsupported, never an
	// empty result.
	Stats(ctx context.Context) (*domain.IndexStats, error)

	// Close releases resources.
	Close() error
}
