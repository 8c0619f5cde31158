package driven

import "context"

// ConvertResult contains the extracted text of one source document.
type ConvertResult struct {
	// Text is the extracted plain text or markdown.
	Text string

	// PageBreaks holds the character offsets in Text where each page
	// after the first begins. Nil means the converter has no page
	// information; page provenance is then left unknown.
	PageBreaks []int

	// Warnings lists non-fatal extraction problems. A result with
	// warnings is still a success.
	Warnings []string
}

// DocumentConverter turns a source file into extracted text.
// Conversion is an external capability; implementations wrap a local
// reader or a remote conversion service.
type DocumentConverter interface {
	// Supports reports whether this converter handles the given path.
	Supports(path string) bool

	// Convert extracts the document's text. The caller bounds the call
	// with a context deadline; on timeout the file is treated as failed.
	Convert(ctx context.Context, path string) (*ConvertResult, error)

	// Name returns the converter name for logging.
	Name() string
}
