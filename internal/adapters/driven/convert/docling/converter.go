// Package docling converts PDF files to markdown via a docling-serve
// instance. The returned markdown keeps headings, so section provenance
// survives conversion; page offsets are not available from this backend.
package docling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/finlight-labs/reportkb-cli/internal/core/domain"
	"github.com/finlight-labs/reportkb-cli/internal/core/ports/driven"
)

// Ensure Converter implements the interface.
var _ driven.DocumentConverter = (*Converter)(nil)

// Default configuration values.
const (
	DefaultTimeout = 5 * time.Minute
)

// Config holds configuration for the docling converter.
type Config struct {
	// BaseURL is the docling-serve address, e.g. http://localhost:5001.
	BaseURL string

	// Timeout bounds a single conversion request (default: 5m).
	Timeout time.Duration
}

// Converter converts PDFs through docling-serve's synchronous endpoint.
type Converter struct {
	client  *http.Client
	baseURL string
}

// convertResponse is the docling-serve response format, reduced to the
// fields we consume.
type convertResponse struct {
	Document struct {
		MDContent string `json:"md_content"`
	} `json:"document"`
	Status string   `json:"status"`
	Errors []string `json:"errors"`
}

// NewConverter creates a docling converter.
func NewConverter(cfg Config) *Converter {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Converter{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// Supports reports whether the file extension is handled.
func (c *Converter) Supports(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// Convert uploads the file and returns the extracted markdown.
func (c *Converter) Convert(ctx context.Context, path string) (*driven.ConvertResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("files", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("copy file content: %w", err)
	}
	if err := writer.WriteField("to_formats", "md"); err != nil {
		return nil, fmt.Errorf("write form field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/v1alpha/convert/file",
		body,
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConversion, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("%w: docling returned status %d", domain.ErrConversion, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: docling returned status %d: %s", domain.ErrConversion, resp.StatusCode, string(respBody))
	}

	var convResp convertResponse
	if err := json.NewDecoder(resp.Body).Decode(&convResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	switch convResp.Status {
	case "success", "":
	case "partial_success":
		// Keep whatever text was extracted; surface the errors as warnings.
	default:
		return nil, fmt.Errorf("%w: docling status %s: %s",
			domain.ErrConversion, convResp.Status, strings.Join(convResp.Errors, "; "))
	}

	if convResp.Document.MDContent == "" {
		return nil, fmt.Errorf("%w: docling returned no text for %s", domain.ErrConversion, filepath.Base(path))
	}

	return &driven.ConvertResult{
		Text:     convResp.Document.MDContent,
		Warnings: convResp.Errors,
	}, nil
}

// Name identifies the converter.
func (c *Converter) Name() string {
	return "docling"
}

// Ping checks that the docling-serve instance is reachable.
func (c *Converter) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("docling: failed to create ping request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("docling: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("docling: health check returned status %d", resp.StatusCode)
	}
	return nil
}
