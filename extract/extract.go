package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/poiesic/docqa/core"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Result is the text of a document and where each part of it came from.
type Result struct {
	Text string

	// Pages maps position buckets to page numbers. For PDFs bucket i is
	// page i+1; plain text is a single page.
	Pages core.PageMap
}

// Extractor reads the text of a stored document.
type Extractor interface {
	// Extract returns the document text. Missing files fail with
	// core.ErrFileNotFound and documents without text with core.ErrEmptyText,
	// both wrapped in core.ErrExtraction.
	Extract(ctx context.Context, path string) (*Result, error)
}

// FileExtractor extracts PDFs and plain text files from the local filesystem.
type FileExtractor struct {
	logger *slog.Logger
}

var _ Extractor = (*FileExtractor)(nil)

// NewFileExtractor creates a FileExtractor.
func NewFileExtractor() *FileExtractor {
	return &FileExtractor{
		logger: slog.Default().With("component", "extractor"),
	}
}

// Supported reports whether path has an extension FileExtractor can read.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".txt", ".md":
		return true
	}
	return false
}

// Extract implements Extractor.
func (e *FileExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrExtraction, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w: %s", core.ErrExtraction, core.ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("%w: %w", core.ErrExtraction, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", core.ErrExtraction, path)
	}

	var result *Result
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pdf":
		result, err = extractPDF(ctx, path)
	case ".txt", ".md":
		result, err = extractText(path)
	default:
		return nil, fmt.Errorf("%w: %w %q", core.ErrExtraction, ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, core.WrapStage(core.ErrExtraction, err)
	}
	if strings.TrimSpace(result.Text) == "" {
		return nil, fmt.Errorf("%w: %w: %s", core.ErrExtraction, core.ErrEmptyText, filepath.Base(path))
	}
	e.logger.Debug("extracted text", "path", path, "chars", len(result.Text), "pages", len(result.Pages))
	return result, nil
}

func extractPDF(ctx context.Context, path string) (*Result, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	numPages := reader.NumPage()
	texts := make([]string, 0, numPages)
	pages := make(core.PageMap, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages[len(texts)] = []int{i}
		texts = append(texts, text)
	}
	return &Result{Text: strings.Join(texts, "\n"), Pages: pages}, nil
}

func extractText(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Result{Text: string(data), Pages: core.PageMap{0: {1}}}, nil
}

// TitleFromFilename derives a display title: extension dropped, underscores
// and dashes turned into spaces, each word capitalized.
func TitleFromFilename(filename string) string {
	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	return cases.Title(language.Und).String(strings.ToLower(name))
}
