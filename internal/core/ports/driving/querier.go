package driving

import (
	"context"

	"github.com/finlight-labs/reportkb-cli/internal/core/domain"
)

// QueryOptions configures retrieval and answering.
type QueryOptions struct {
	// TopK is the number of chunks to retrieve (default: 5).
	TopK int

	// Filters restricts retrieval to chunks whose metadata matches
	// every entry (e.g. doc_company, doc_year).
	Filters map[string]any

	// Template overrides the default prompt template. Placeholders:
	// {context} and {question} (or {input}).
	Template string
}

// KnowledgeBaseQuerier answers questions over the indexed knowledge base.
type KnowledgeBaseQuerier interface {
	// Ask retrieves the most relevant chunks and generates an answer
	// grounded on them.
	Ask(ctx context.Context, question string, opts QueryOptions) (*domain.Answer, error)

	// Context returns just the ranked chunks that would ground an answer.
	Context(ctx context.Context, question string, opts QueryOptions) ([]domain.ScoredChunk, error)
}
