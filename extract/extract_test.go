package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/docqa/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestExtract_PlainText(t *testing.T) {
	path := writeFile(t, "notes.txt", "alpha beta gamma")

	result, err := NewFileExtractor().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "alpha beta gamma", result.Text)
	assert.Equal(t, core.PageMap{0: {1}}, result.Pages)
}

func TestExtract_Markdown(t *testing.T) {
	path := writeFile(t, "README.MD", "# Title\n\nBody text.")

	result, err := NewFileExtractor().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, result.Text, "Body text.")
}

func TestExtract_MissingFile(t *testing.T) {
	_, err := NewFileExtractor().Extract(context.Background(), filepath.Join(t.TempDir(), "gone.pdf"))
	assert.ErrorIs(t, err, core.ErrExtraction)
	assert.ErrorIs(t, err, core.ErrFileNotFound)
}

func TestExtract_EmptyFile(t *testing.T) {
	path := writeFile(t, "blank.txt", "  \n\t ")

	_, err := NewFileExtractor().Extract(context.Background(), path)
	assert.ErrorIs(t, err, core.ErrExtraction)
	assert.ErrorIs(t, err, core.ErrEmptyText)
}

func TestExtract_Unsupported(t *testing.T) {
	path := writeFile(t, "sheet.xlsx", "binary")

	_, err := NewFileExtractor().Extract(context.Background(), path)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.ErrorIs(t, err, core.ErrExtraction)
}

func TestExtract_InvalidPDF(t *testing.T) {
	path := writeFile(t, "broken.pdf", "this is not a pdf")

	_, err := NewFileExtractor().Extract(context.Background(), path)
	assert.ErrorIs(t, err, core.ErrExtraction)
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("a.pdf"))
	assert.True(t, Supported("A.PDF"))
	assert.True(t, Supported("notes.txt"))
	assert.True(t, Supported("README.md"))
	assert.False(t, Supported("image.png"))
	assert.False(t, Supported("noext"))
}

func TestTitleFromFilename(t *testing.T) {
	assert.Equal(t, "Attention Is All You Need", TitleFromFilename("attention_is_all-you-need.pdf"))
	assert.Equal(t, "Notes", TitleFromFilename("/data/NOTES.txt"))
}
