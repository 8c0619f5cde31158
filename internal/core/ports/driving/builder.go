package driving

import (
	"context"
	"time"

	"github.com/finlight-labs/reportkb-cli/internal/core/domain"
)

// BuildOptions configures one build run.
type BuildOptions struct {
	// Suffixes restricts which file names are enumerated (default: .pdf).
	Suffixes []string

	// Workers sets the worker pool size. 1 processes files sequentially.
	Workers int

	// BatchSize bounds how many chunks are flushed to the index per call.
	BatchSize int

	// ConvertTimeout bounds each converter call.
	ConvertTimeout time.Duration
}

// KnowledgeBaseBuilder synchronises a source folder into the knowledge
// base: new and changed documents are converted, chunked and indexed;
// unchanged ones are skipped.
type KnowledgeBaseBuilder interface {
	// Build runs a sync over folder and returns the aggregated report.
	// It fails only when no input files were found or every file failed;
	// individual file failures are isolated and counted.
	Build(ctx context.Context, folder string, opts BuildOptions) (*domain.BuildReport, error)

	// Stats reports ledger and index statistics.
	Stats(ctx context.Context) (*domain.KnowledgeBaseStats, error)
}
