package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoInput indicates the source folder contained no matching files.
	// It is fatal to the whole build run.
	ErrNoInput = errors.New("no input files found")

	// ErrMetadataExtraction indicates a file name does not match the
	// expected report naming pattern. Fatal to that file only.
	ErrMetadataExtraction = errors.New("metadata extraction failed")

	// ErrConversion indicates the external document converter failed or
	// timed out. Fatal to that file only.
	ErrConversion = errors.New("document conversion failed")

	// ErrIndexWrite indicates a batch flush to the vector index failed.
	// None of the batch's files get a ledger entry, so they are
	// reprocessed on the next run.
	ErrIndexWrite = errors.New("vector index write failed")

	// ErrAllFilesFailed indicates every enumerated file failed to
	// process. Fatal to the whole build run.
	ErrAllFilesFailed = errors.New("all input files failed")

	// ErrGeneratorUnavailable indicates the LLM generator is not
	// configured. Retrieval still works; answering does not.
	ErrGeneratorUnavailable = errors.New("generator unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. The vector index cannot operate without it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not configured.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrStatsUnsupported indicates the vector index cannot report
	// statistics. Returned explicitly rather than an empty result.
	ErrStatsUnsupported = errors.New("index statistics unsupported")
)
