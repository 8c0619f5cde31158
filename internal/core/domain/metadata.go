package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// reportNamePattern matches annual report file names such as
// "Acme_Holdings_Annual_Report_2023.pdf". The stem carries the company
// name and reporting year; pre-extracted .md/.txt files use the same stem.
var reportNamePattern = regexp.MustCompile(`^(.+)_Annual_Report_(\d{4})\.(?:pdf|md|txt)$`)

// Metadata key prefixes. Document-level and chunk-level fields are
// namespaced so they can never collide in a chunk's bundle.
const (
	KeyCompany   = "doc_company"
	KeyYear      = "doc_year"
	KeySource    = "doc_source"
	KeyHash      = "doc_hash"
	KeyProcessed = "doc_processed"

	KeyOrdinal = "chunk_ordinal"
	KeyPage    = "chunk_page"
	KeySection = "chunk_section"
	KeyStart   = "chunk_start"
	KeyEnd     = "chunk_end"
)

// DocumentMetadata is derived from a report's file name and content hash.
type DocumentMetadata struct {
	Company   string
	Year      int
	Source    string
	Hash      string
	Processed time.Time
}

// ExtractMetadata parses document-level metadata from a report file name.
// Returns ErrMetadataExtraction when the name does not match the pattern.
func ExtractMetadata(fileName, hash string, processed time.Time) (*DocumentMetadata, error) {
	m := reportNamePattern.FindStringSubmatch(fileName)
	if m == nil {
		return nil, fmt.Errorf("%w: %q does not match <company>_Annual_Report_<year>", ErrMetadataExtraction, fileName)
	}

	year, err := strconv.Atoi(m[2])
	if err != nil {
		// Unreachable while the pattern requires \d{4}.
		return nil, fmt.Errorf("%w: %q has a non-numeric year", ErrMetadataExtraction, fileName)
	}

	return &DocumentMetadata{
		Company:   m[1],
		Year:      year,
		Source:    fileName,
		Hash:      hash,
		Processed: processed,
	}, nil
}

// Bundle returns the document-level metadata as namespaced keys.
func (m *DocumentMetadata) Bundle() map[string]any {
	return map[string]any{
		KeyCompany:   m.Company,
		KeyYear:      m.Year,
		KeySource:    m.Source,
		KeyHash:      m.Hash,
		KeyProcessed: m.Processed.Format(time.RFC3339),
	}
}

// ApplyMetadata merges the document-level bundle and the chunk's own
// provenance fields into the chunk's metadata bundle.
func (c *Chunk) ApplyMetadata(docBundle map[string]any) {
	if c.Metadata == nil {
		c.Metadata = make(map[string]any, len(docBundle)+5)
	}
	for k, v := range docBundle {
		c.Metadata[k] = v
	}
	c.Metadata[KeyOrdinal] = c.Ordinal
	c.Metadata[KeyStart] = c.Start
	c.Metadata[KeyEnd] = c.End
	if c.Page > 0 {
		c.Metadata[KeyPage] = c.Page
	}
	if c.Section != "" {
		c.Metadata[KeySection] = c.Section
	}
}
