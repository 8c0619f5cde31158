// Package chunker splits extracted document text into ordered,
// overlapping chunks with traceable provenance: character offsets,
// estimated page and nearest section title.
package chunker

import (
	"strings"

	"github.com/google/uuid"

	"github.com/finlight-labs/reportkb-cli/internal/core/domain"
)

// DefaultTargetSize is the default number of characters per chunk.
const DefaultTargetSize = 1000

// DefaultOverlap is the default number of overlapping characters.
const DefaultOverlap = 200

// Locator estimates page and section provenance for a character offset
// in the text being chunked. Either lookup may report unknown.
type Locator interface {
	// PageAt returns the 1-based page containing the offset.
	PageAt(offset int) (int, bool)

	// SectionAt returns the nearest section title at or before the offset.
	SectionAt(offset int) (string, bool)
}

// Chunker produces provenance-tagged chunks from document text.
type Chunker struct {
	targetSize int
	overlap    int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithTargetSize sets the nominal chunk size in characters.
func WithTargetSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.targetSize = size
		}
	}
}

// WithOverlap sets the overlap between consecutive chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		targetSize: DefaultTargetSize,
		overlap:    DefaultOverlap,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Overlap must stay below the target size or no forward progress
	// is possible between boundary cuts.
	if c.overlap >= c.targetSize {
		c.overlap = c.targetSize / 4
	}

	return c
}

// Chunk splits text left to right. Each chunk's nominal end is
// start+targetSize; when that falls mid-document the cut is moved to the
// nearest paragraph break within half a target size, else the nearest
// sentence terminator, else it stays a hard cut. Recorded offsets are
// the pre-trim boundaries in source coordinates. loc may be nil.
//
// Empty text yields no chunks; text shorter than the target size yields
// a single chunk spanning the whole trimmed text.
func (c *Chunker) Chunk(text string, loc Locator) []domain.Chunk {
	if text == "" {
		return nil
	}

	estimated := len(text)/(c.targetSize-c.overlap) + 1
	chunks := make([]domain.Chunk, 0, estimated)

	pos := 0
	ordinal := 0
	for pos < len(text) {
		end := c.cutPoint(text, pos)

		trimmed := strings.TrimSpace(text[pos:end])
		if trimmed != "" {
			chunk := domain.Chunk{
				ID:       uuid.New().String(),
				Content:  trimmed,
				Start:    pos,
				End:      end,
				Ordinal:  ordinal,
				Metadata: make(map[string]any),
			}
			if loc != nil {
				if page, ok := loc.PageAt(pos); ok {
					chunk.Page = page
				}
				if section, ok := loc.SectionAt(pos); ok {
					chunk.Section = section
				}
			}
			chunks = append(chunks, chunk)
			ordinal++
		}

		if end >= len(text) {
			break
		}

		// The +1 floor guarantees forward progress even when overlap
		// would otherwise produce a zero or negative advance.
		next := end - c.overlap
		if next < pos+1 {
			next = pos + 1
		}
		pos = next
	}

	return chunks
}

// cutPoint returns the end offset for a chunk starting at pos. The cut
// prefers a paragraph break, then a sentence terminator, within a window
// of half a target size around the nominal end.
func (c *Chunker) cutPoint(text string, pos int) int {
	nominal := pos + c.targetSize
	if nominal >= len(text) {
		return len(text)
	}

	window := c.targetSize / 2
	lo := nominal - window
	if lo <= pos {
		lo = pos + 1
	}
	hi := nominal + window
	if hi > len(text) {
		hi = len(text)
	}

	if cut, ok := nearestCut(text, "\n\n", lo, hi, nominal); ok {
		return cut
	}
	if cut, ok := nearestCut(text, ". ", lo, hi, nominal); ok {
		return cut
	}
	return nominal
}

// nearestCut finds the occurrence of sep inside text[lo:hi] whose start
// is closest to nominal and returns the offset just past it.
func nearestCut(text, sep string, lo, hi, nominal int) (int, bool) {
	best := -1
	bestDist := 0

	from := lo
	for from < hi {
		idx := strings.Index(text[from:hi], sep)
		if idx < 0 {
			break
		}
		at := from + idx

		dist := at - nominal
		if dist < 0 {
			dist = -dist
		}
		if best < 0 || dist < bestDist {
			best = at
			bestDist = dist
		}
		if at >= nominal {
			break // matches only move further away from here on
		}
		from = at + 1
	}

	if best < 0 {
		return 0, false
	}
	return best + len(sep), true
}
