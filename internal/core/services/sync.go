package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/finlight-labs/reportkb-cli/internal/chunker"
	"github.com/finlight-labs/reportkb-cli/internal/core/domain"
	"github.com/finlight-labs/reportkb-cli/internal/core/ports/driven"
	"github.com/finlight-labs/reportkb-cli/internal/core/ports/driving"
	"github.com/finlight-labs/reportkb-cli/internal/fingerprint"
	"github.com/finlight-labs/reportkb-cli/internal/logger"
)

// Ensure SyncService implements the interface.
var _ driving.KnowledgeBaseBuilder = (*SyncService)(nil)

// Default build options.
const (
	DefaultBatchSize      = 64
	DefaultWorkers        = 1
	DefaultConvertTimeout = 5 * time.Minute
)

// DefaultSuffixes are the file extensions enumerated when none are given.
var DefaultSuffixes = []string{".pdf"}

// SyncService synchronises a folder of report files into the knowledge
// base. Each run enumerates the folder, skips files whose recorded
// version is unchanged, and converts, chunks and indexes the rest.
// A file's ledger entry is written only after all of its chunks were
// durably flushed, so a crash can cause re-indexing but never a
// recorded-but-missing document.
type SyncService struct {
	converters []driven.DocumentConverter
	chunker    *chunker.Chunker
	ledger     driven.ProcessingLedger
	index      driven.VectorIndex
}

// NewSyncService creates a sync service. Converters are consulted in
// order; the first one that supports a file handles it.
func NewSyncService(
	converters []driven.DocumentConverter,
	ch *chunker.Chunker,
	ledger driven.ProcessingLedger,
	index driven.VectorIndex,
) *SyncService {
	return &SyncService{
		converters: converters,
		chunker:    ch,
		ledger:     ledger,
		index:      index,
	}
}

// fileState tracks one file's chunks through batched flushing. A file
// is committed (recorded in the ledger) once every one of its chunks
// was part of a successful flush.
type fileState struct {
	name      string
	entry     domain.LedgerEntry
	remaining int
	flushErr  error
	recorded  bool
}

// batcher accumulates chunks across files and flushes them to the index
// in fixed-size batches. All methods are safe for concurrent use.
type batcher struct {
	mu     sync.Mutex
	index  driven.VectorIndex
	ledger driven.ProcessingLedger
	size   int

	chunks []domain.Chunk
	owners []*fileState
}

func newBatcher(index driven.VectorIndex, ledger driven.ProcessingLedger, size int) *batcher {
	return &batcher{
		index:  index,
		ledger: ledger,
		size:   size,
	}
}

// add queues a file's chunks and flushes full batches.
func (b *batcher) add(ctx context.Context, owner *fileState, chunks []domain.Chunk) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, chunk := range chunks {
		b.chunks = append(b.chunks, chunk)
		b.owners = append(b.owners, owner)
	}

	for len(b.chunks) >= b.size {
		b.flushLocked(ctx, b.size)
	}
}

// finish flushes whatever remains in the buffer.
func (b *batcher) finish(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for len(b.chunks) > 0 {
		n := len(b.chunks)
		if n > b.size {
			n = b.size
		}
		b.flushLocked(ctx, n)
	}
}

// flushLocked writes the first n buffered chunks as one batch. On
// success each owner's outstanding count drops; owners that reach zero
// are recorded in the ledger. On failure every owner in the batch is
// marked failed and gets no ledger entry, so the next run retries it.
func (b *batcher) flushLocked(ctx context.Context, n int) {
	batch := b.chunks[:n]
	owners := b.owners[:n]

	err := b.index.Add(ctx, batch)
	if err != nil {
		logger.Warn("batch flush of %d chunks failed: %v", n, err)
		for _, owner := range owners {
			if owner.flushErr == nil {
				owner.flushErr = err
			}
		}
	} else {
		logger.Debug("flushed %d chunks to index", n)
		for _, owner := range owners {
			owner.remaining--
			if owner.remaining == 0 && owner.flushErr == nil && !owner.recorded {
				b.ledger.Record(owner.name, owner.entry)
				owner.recorded = true
			}
		}
	}

	b.chunks = b.chunks[n:]
	b.owners = b.owners[n:]
}

// Build runs one sync over folder.
func (s *SyncService) Build(ctx context.Context, folder string, opts driving.BuildOptions) (*domain.BuildReport, error) {
	start := time.Now()
	applyBuildDefaults(&opts)

	docs, err := enumerate(folder, opts.Suffixes)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no files matching %v in %s", domain.ErrNoInput, opts.Suffixes, folder)
	}
	logger.Section("Building knowledge base")
	logger.Info("found %d candidate files in %s", len(docs), folder)

	if err := s.ledger.Load(); err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	report := &domain.BuildReport{}
	states := make([]*fileState, 0, len(docs))
	b := newBatcher(s.index, s.ledger, opts.BatchSize)

	var mu sync.Mutex
	fail := func(name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		report.Failed++
		report.Failures = append(report.Failures, fmt.Sprintf("%s: %v", name, err))
		logger.Warn("%s: %v", name, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for _, doc := range docs {
		doc := doc
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			hash, err := fingerprint.File(doc.Path)
			if err != nil {
				fail(doc.Name, err)
				return nil
			}
			doc.Hash = hash

			if s.ledger.IsUnchanged(doc.Name, doc.Hash) {
				mu.Lock()
				report.Skipped++
				mu.Unlock()
				logger.Debug("%s unchanged, skipping", doc.Name)
				return nil
			}

			chunks, entry, err := s.processFile(gctx, doc, opts)
			if err != nil {
				fail(doc.Name, err)
				return nil
			}

			state := &fileState{
				name:      doc.Name,
				entry:     entry,
				remaining: len(chunks),
			}
			if len(chunks) == 0 {
				// Nothing to flush; commit directly.
				s.ledger.Record(state.name, state.entry)
				state.recorded = true
			}

			mu.Lock()
			states = append(states, state)
			mu.Unlock()

			b.add(gctx, state, chunks)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// Only context errors propagate out of the group; per-file
		// failures are counted, not returned.
		return nil, err
	}
	b.finish(ctx)

	for _, state := range states {
		if state.recorded {
			report.Processed++
			report.TotalChunks += state.entry.ChunkCount
			logger.Info("%s: indexed %d chunks", state.name, state.entry.ChunkCount)
		} else {
			fail(state.name, state.flushErr)
		}
	}

	if err := s.ledger.Save(); err != nil {
		return nil, fmt.Errorf("save ledger: %w", err)
	}

	report.Duration = time.Since(start)

	if report.Failed == len(docs) {
		return report, fmt.Errorf("%w: %d files", domain.ErrAllFilesFailed, report.Failed)
	}
	return report, nil
}

// processFile converts and chunks one document. The returned chunks
// carry the full merged metadata bundle.
func (s *SyncService) processFile(ctx context.Context, doc domain.SourceDocument, opts driving.BuildOptions) ([]domain.Chunk, domain.LedgerEntry, error) {
	now := time.Now().UTC()

	meta, err := domain.ExtractMetadata(doc.Name, doc.Hash, now)
	if err != nil {
		return nil, domain.LedgerEntry{}, err
	}

	conv := s.converterFor(doc.Path)
	if conv == nil {
		return nil, domain.LedgerEntry{}, fmt.Errorf("%w: no converter supports %s", domain.ErrConversion, doc.Name)
	}

	convCtx, cancel := context.WithTimeout(ctx, opts.ConvertTimeout)
	defer cancel()

	result, err := conv.Convert(convCtx, doc.Path)
	if err != nil {
		return nil, domain.LedgerEntry{}, fmt.Errorf("convert with %s: %w", conv.Name(), err)
	}
	for _, warning := range result.Warnings {
		logger.Warn("%s: %s", doc.Name, warning)
	}

	loc := chunker.NewDocumentLocator(result.Text, result.PageBreaks)
	chunks := s.chunker.Chunk(result.Text, loc)

	bundle := meta.Bundle()
	for i := range chunks {
		chunks[i].Source = doc.Name
		chunks[i].ApplyMetadata(bundle)
	}

	entry := domain.LedgerEntry{
		Hash:          doc.Hash,
		ProcessedDate: now,
		ChunkCount:    len(chunks),
	}
	return chunks, entry, nil
}

// converterFor returns the first converter that supports the path.
func (s *SyncService) converterFor(path string) driven.DocumentConverter {
	for _, conv := range s.converters {
		if conv.Supports(path) {
			return conv
		}
	}
	return nil
}

// Stats reports ledger totals and, when available, index statistics.
func (s *SyncService) Stats(ctx context.Context) (*domain.KnowledgeBaseStats, error) {
	if err := s.ledger.Load(); err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	stats := &domain.KnowledgeBaseStats{}
	for _, entry := range s.ledger.Entries() {
		stats.TotalDocuments++
		stats.TotalChunks += entry.ChunkCount
		if entry.ProcessedDate.After(stats.LastProcessed) {
			stats.LastProcessed = entry.ProcessedDate
		}
	}

	indexStats, err := s.index.Stats(ctx)
	switch {
	case err == nil:
		stats.Index = indexStats
	case errors.Is(err, domain.ErrStatsUnsupported):
		// Leave Index nil.
	default:
		return nil, fmt.Errorf("index stats: %w", err)
	}

	return stats, nil
}

// applyBuildDefaults fills unset options in place.
func applyBuildDefaults(opts *driving.BuildOptions) {
	if len(opts.Suffixes) == 0 {
		opts.Suffixes = DefaultSuffixes
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.ConvertTimeout <= 0 {
		opts.ConvertTimeout = DefaultConvertTimeout
	}
}

// enumerate lists regular files in folder matching any of the suffixes,
// sorted by name for a deterministic processing order.
func enumerate(folder string, suffixes []string) ([]domain.SourceDocument, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("read folder %s: %w", folder, err)
	}

	var docs []domain.SourceDocument
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !hasAnySuffix(name, suffixes) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", name, err)
		}
		docs = append(docs, domain.SourceDocument{
			Path: filepath.Join(folder, name),
			Name: name,
			Size: info.Size(),
		})
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

func hasAnySuffix(name string, suffixes []string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range suffixes {
		if strings.HasSuffix(lower, strings.ToLower(suffix)) {
			return true
		}
	}
	return false
}
