package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finlight-labs/reportkb-cli/internal/core/domain"
	"github.com/finlight-labs/reportkb-cli/internal/core/ports/driven"
	"github.com/finlight-labs/reportkb-cli/internal/core/ports/driving"
)

// searchIndex returns canned results and records the search call.
type searchIndex struct {
	results    []domain.ScoredChunk
	err        error
	lastQuery  string
	lastK      int
	lastFilter map[string]any
}

func (x *searchIndex) Add(ctx context.Context, chunks []domain.Chunk) error { return nil }

func (x *searchIndex) Search(ctx context.Context, query string, k int, filter map[string]any) ([]domain.ScoredChunk, error) {
	x.lastQuery = query
	x.lastK = k
	x.lastFilter = filter
	return x.results, x.err
}

func (x *searchIndex) Stats(ctx context.Context) (*domain.IndexStats, error) {
	return nil, domain.ErrStatsUnsupported
}

func (x *searchIndex) Close() error { return nil }

// captureGenerator records the prompt it was given.
type captureGenerator struct {
	answer     string
	err        error
	lastPrompt string
	lastOpts   driven.GenerateOptions
}

func (g *captureGenerator) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	g.lastPrompt = prompt
	g.lastOpts = opts
	return g.answer, g.err
}

func (g *captureGenerator) ModelName() string              { return "capture" }
func (g *captureGenerator) Ping(ctx context.Context) error { return nil }
func (g *captureGenerator) Close() error                   { return nil }

func sampleResults() []domain.ScoredChunk {
	return []domain.ScoredChunk{
		{
			Chunk: domain.Chunk{
				ID:      "c1",
				Source:  "Acme_Annual_Report_2023.pdf",
				Content: "Revenue grew 12% to $4.1bn.",
				Page:    14,
				Section: "Financial Highlights",
			},
			Score: 0.92,
		},
		{
			Chunk: domain.Chunk{
				ID:      "c2",
				Source:  "Acme_Annual_Report_2022.pdf",
				Content: "Revenue was $3.7bn.",
			},
			Score: 0.85,
		},
	}
}

func TestContext_Defaults(t *testing.T) {
	index := &searchIndex{results: sampleResults()}
	svc := NewQueryService(index, nil, 0, 0)

	results, err := svc.Context(context.Background(), "how did revenue develop?", driving.QueryOptions{})
	require.NoError(t, err)

	assert.Len(t, results, 2)
	assert.Equal(t, "how did revenue develop?", index.lastQuery)
	assert.Equal(t, DefaultTopK, index.lastK)
	assert.Nil(t, index.lastFilter)
}

func TestContext_TopKAndFilters(t *testing.T) {
	index := &searchIndex{}
	svc := NewQueryService(index, nil, 0, 0)

	filters := map[string]any{"doc_company": "Acme", "doc_year": 2023}
	_, err := svc.Context(context.Background(), "question", driving.QueryOptions{TopK: 3, Filters: filters})
	require.NoError(t, err)

	assert.Equal(t, 3, index.lastK)
	assert.Equal(t, filters, index.lastFilter)
}

func TestContext_EmptyQuestion(t *testing.T) {
	svc := NewQueryService(&searchIndex{}, nil, 0, 0)

	_, err := svc.Context(context.Background(), "   ", driving.QueryOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAsk_WithoutGenerator(t *testing.T) {
	svc := NewQueryService(&searchIndex{}, nil, 0, 0)

	_, err := svc.Ask(context.Background(), "question", driving.QueryOptions{})
	assert.ErrorIs(t, err, domain.ErrGeneratorUnavailable)
}

func TestAsk_GroundsPromptOnRetrievedChunks(t *testing.T) {
	index := &searchIndex{results: sampleResults()}
	gen := &captureGenerator{answer: "  Revenue grew 12% in 2023.\n"}
	svc := NewQueryService(index, gen, 512, 0.1)

	answer, err := svc.Ask(context.Background(), "how did revenue develop?", driving.QueryOptions{})
	require.NoError(t, err)

	assert.Equal(t, "Revenue grew 12% in 2023.", answer.Text)
	assert.Equal(t, sampleResults(), answer.Context)

	assert.Contains(t, gen.lastPrompt, "how did revenue develop?")
	assert.Contains(t, gen.lastPrompt, "Revenue grew 12% to $4.1bn.")
	assert.Contains(t, gen.lastPrompt, "Acme_Annual_Report_2023.pdf")
	assert.Contains(t, gen.lastPrompt, "(page 14)")
	assert.Contains(t, gen.lastPrompt, "Financial Highlights")
	assert.NotContains(t, gen.lastPrompt, "{context}")
	assert.NotContains(t, gen.lastPrompt, "{question}")

	assert.Equal(t, 512, gen.lastOpts.MaxTokens)
	assert.InDelta(t, 0.1, gen.lastOpts.Temperature, 0.001)
}

func TestAsk_CustomTemplateWithInputAlias(t *testing.T) {
	index := &searchIndex{results: sampleResults()}
	gen := &captureGenerator{answer: "ok"}
	svc := NewQueryService(index, gen, 0, 0)

	opts := driving.QueryOptions{Template: "Q: {input}\nDocs: {context}"}
	_, err := svc.Ask(context.Background(), "my question", opts)
	require.NoError(t, err)

	assert.Contains(t, gen.lastPrompt, "Q: my question")
	assert.Contains(t, gen.lastPrompt, "Revenue was $3.7bn.")
}

func TestAsk_NoResultsStillAnswers(t *testing.T) {
	index := &searchIndex{}
	gen := &captureGenerator{answer: "I cannot find that in the reports."}
	svc := NewQueryService(index, gen, 0, 0)

	answer, err := svc.Ask(context.Background(), "question", driving.QueryOptions{})
	require.NoError(t, err)

	assert.Contains(t, gen.lastPrompt, "(no matching excerpts found)")
	assert.Empty(t, answer.Context)
}

func TestAsk_SearchErrorPropagates(t *testing.T) {
	index := &searchIndex{err: errors.New("index offline")}
	svc := NewQueryService(index, &captureGenerator{}, 0, 0)

	_, err := svc.Ask(context.Background(), "question", driving.QueryOptions{})
	assert.Error(t, err)
}

func TestAsk_GeneratorErrorPropagates(t *testing.T) {
	index := &searchIndex{results: sampleResults()}
	gen := &captureGenerator{err: errors.New("model overloaded")}
	svc := NewQueryService(index, gen, 0, 0)

	_, err := svc.Ask(context.Background(), "question", driving.QueryOptions{})
	assert.Error(t, err)
}
