// Package plaintext converts plain text and markdown files.
package plaintext

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/finlight-labs/reportkb-cli/internal/core/ports/driven"
)

// Ensure Converter implements the interface.
var _ driven.DocumentConverter = (*Converter)(nil)

// Converter reads .txt and .md files as-is. Form feed characters are
// treated as page breaks and replaced with newlines so byte offsets
// into the returned text stay stable.
type Converter struct{}

// NewConverter creates a plain text converter.
func NewConverter() *Converter {
	return &Converter{}
}

// Supports reports whether the file extension is handled.
func (c *Converter) Supports(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		return true
	default:
		return false
	}
}

// Convert reads the file and extracts page break offsets.
func (c *Converter) Convert(ctx context.Context, path string) (*driven.ConvertResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	text := string(data)

	// A new page starts right after each form feed.
	var breaks []int
	off := 0
	for {
		i := strings.IndexByte(text[off:], '\f')
		if i < 0 {
			break
		}
		breaks = append(breaks, off+i+1)
		off += i + 1
	}

	if breaks != nil {
		// One-for-one replacement keeps every offset unchanged.
		text = strings.ReplaceAll(text, "\f", "\n")
	}

	return &driven.ConvertResult{
		Text:       text,
		PageBreaks: breaks,
	}, nil
}

// Name identifies the converter.
func (c *Converter) Name() string {
	return "plaintext"
}
