package cli

import (
	"context"
	"time"

	"github.com/finlight-labs/reportkb-cli/internal/core/domain"
	"github.com/finlight-labs/reportkb-cli/internal/core/ports/driving"
)

// fakeBuilder records the last Build call and returns canned results.
type fakeBuilder struct {
	report     *domain.BuildReport
	stats      *domain.KnowledgeBaseStats
	err        error
	lastFolder string
	lastOpts   driving.BuildOptions
}

func (b *fakeBuilder) Build(ctx context.Context, folder string, opts driving.BuildOptions) (*domain.BuildReport, error) {
	b.lastFolder = folder
	b.lastOpts = opts
	return b.report, b.err
}

func (b *fakeBuilder) Stats(ctx context.Context) (*domain.KnowledgeBaseStats, error) {
	return b.stats, b.err
}

// fakeQuerier records the last Ask call and returns canned results.
type fakeQuerier struct {
	answer       *domain.Answer
	err          error
	lastQuestion string
	lastOpts     driving.QueryOptions
}

func (q *fakeQuerier) Ask(ctx context.Context, question string, opts driving.QueryOptions) (*domain.Answer, error) {
	q.lastQuestion = question
	q.lastOpts = opts
	return q.answer, q.err
}

func (q *fakeQuerier) Context(ctx context.Context, question string, opts driving.QueryOptions) ([]domain.ScoredChunk, error) {
	if q.answer == nil {
		return nil, q.err
	}
	return q.answer.Context, q.err
}

// setupTestServices installs fakes for the package-level services and
// returns them with a cleanup function.
func setupTestServices() (*fakeBuilder, *fakeQuerier, func()) {
	builder := &fakeBuilder{
		report: &domain.BuildReport{
			Processed:   2,
			Skipped:     1,
			TotalChunks: 40,
			Duration:    1500 * time.Millisecond,
		},
		stats: &domain.KnowledgeBaseStats{
			TotalDocuments: 3,
			TotalChunks:    60,
			LastProcessed:  time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
			Index:          &domain.IndexStats{RowCount: 60, Dimension: 768},
		},
	}
	querier := &fakeQuerier{
		answer: &domain.Answer{
			Text: "Revenue grew 12% in 2023.",
			Context: []domain.ScoredChunk{
				{
					Chunk: domain.Chunk{
						Source:  "Acme_Annual_Report_2023.pdf",
						Content: "Revenue grew 12%.",
						Page:    14,
						Section: "Financial Highlights",
					},
					Score: 0.92,
				},
			},
		},
	}

	builderService = builder
	querierService = querier

	return builder, querier, func() {
		builderService = nil
		querierService = nil
	}
}
