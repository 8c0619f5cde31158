package plaintext

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSupports(t *testing.T) {
	c := NewConverter()

	assert.True(t, c.Supports("Acme_Annual_Report_2023.txt"))
	assert.True(t, c.Supports("Acme_Annual_Report_2023.md"))
	assert.True(t, c.Supports("UPPER.TXT"))
	assert.False(t, c.Supports("Acme_Annual_Report_2023.pdf"))
	assert.False(t, c.Supports("noext"))
}

func TestConvert_PlainFile(t *testing.T) {
	path := writeFile(t, "report.txt", "Revenue grew strongly in 2023.")

	result, err := NewConverter().Convert(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "Revenue grew strongly in 2023.", result.Text)
	assert.Nil(t, result.PageBreaks, "no page information without form feeds")
	assert.Empty(t, result.Warnings)
}

func TestConvert_FormFeedsBecomePageBreaks(t *testing.T) {
	path := writeFile(t, "report.txt", "page one\fpage two\fpage three")

	result, err := NewConverter().Convert(context.Background(), path)
	require.NoError(t, err)

	// Offsets point at the first byte of each new page.
	assert.Equal(t, []int{9, 18}, result.PageBreaks)
	assert.Equal(t, "page one\npage two\npage three", result.Text)
	assert.Equal(t, "page two", result.Text[9:17])
}

func TestConvert_OffsetsStableAfterReplacement(t *testing.T) {
	content := "alpha\fbeta"
	path := writeFile(t, "report.md", content)

	result, err := NewConverter().Convert(context.Background(), path)
	require.NoError(t, err)

	assert.Len(t, result.Text, len(content))
	assert.Equal(t, []int{6}, result.PageBreaks)
}

func TestConvert_MissingFile(t *testing.T) {
	_, err := NewConverter().Convert(context.Background(), filepath.Join(t.TempDir(), "absent.txt"))
	assert.Error(t, err)
}

func TestConvert_CancelledContext(t *testing.T) {
	path := writeFile(t, "report.txt", "content")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewConverter().Convert(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}
