package docling

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finlight-labs/reportkb-cli/internal/core/domain"
)

func writePDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Acme_Annual_Report_2023.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 fake"), 0o644))
	return path
}

func newServer(t *testing.T, handler http.HandlerFunc) *Converter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewConverter(Config{BaseURL: srv.URL})
}

func TestSupports(t *testing.T) {
	c := NewConverter(Config{BaseURL: "http://localhost:5001"})

	assert.True(t, c.Supports("report.pdf"))
	assert.True(t, c.Supports("REPORT.PDF"))
	assert.False(t, c.Supports("report.txt"))
}

func TestConvert_Success(t *testing.T) {
	var gotPath string
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path

		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, header, err := r.FormFile("files")
		require.NoError(t, err)
		assert.Equal(t, "Acme_Annual_Report_2023.pdf", header.Filename)
		assert.Equal(t, "md", r.FormValue("to_formats"))

		json.NewEncoder(w).Encode(map[string]any{
			"document": map[string]any{"md_content": "# Overview\n\nRevenue grew."},
			"status":   "success",
		})
	})

	result, err := c.Convert(context.Background(), writePDF(t))
	require.NoError(t, err)

	assert.Equal(t, "/v1alpha/convert/file", gotPath)
	assert.Equal(t, "# Overview\n\nRevenue grew.", result.Text)
	assert.Nil(t, result.PageBreaks)
	assert.Empty(t, result.Warnings)
}

func TestConvert_PartialSuccessKeepsTextWithWarnings(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"document": map[string]any{"md_content": "partial text"},
			"status":   "partial_success",
			"errors":   []string{"page 7: table extraction failed"},
		})
	})

	result, err := c.Convert(context.Background(), writePDF(t))
	require.NoError(t, err)

	assert.Equal(t, "partial text", result.Text)
	assert.Equal(t, []string{"page 7: table extraction failed"}, result.Warnings)
}

func TestConvert_FailureStatus(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status": "failure",
			"errors": []string{"corrupt file"},
		})
	})

	_, err := c.Convert(context.Background(), writePDF(t))
	assert.ErrorIs(t, err, domain.ErrConversion)
	assert.Contains(t, err.Error(), "corrupt file")
}

func TestConvert_EmptyText(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"document": map[string]any{"md_content": ""},
			"status":   "success",
		})
	})

	_, err := c.Convert(context.Background(), writePDF(t))
	assert.ErrorIs(t, err, domain.ErrConversion)
}

func TestConvert_HTTPError(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := c.Convert(context.Background(), writePDF(t))
	assert.ErrorIs(t, err, domain.ErrConversion)
}

func TestConvert_MissingFile(t *testing.T) {
	c := NewConverter(Config{BaseURL: "http://localhost:5001"})

	_, err := c.Convert(context.Background(), filepath.Join(t.TempDir(), "absent.pdf"))
	assert.Error(t, err)
}

func TestPing(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})

	assert.NoError(t, c.Ping(context.Background()))
}
