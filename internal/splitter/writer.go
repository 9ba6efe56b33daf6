package splitter

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/parcelops/labelsplit/internal/logger"
)

// WriteError wraps a failure to extract or write a single page.
type WriteError struct {
	Page int
	Path string
	Err  error
}

// Error returns the error message.
func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write page %d to %s: %v", e.Page+1, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *WriteError) Unwrap() error {
	return e.Err
}

// PageWriter writes one page of the source document under a chosen name and
// returns the output path.
type PageWriter interface {
	WritePage(inputPath string, pageIndex int, name string) (string, error)
}

// Writer extracts single pages from the source document into named output
// files. Name collisions overwrite: the last page written with a name wins.
type Writer struct {
	logger *logger.Logger
	outDir string
	prefix string
}

// WriterConfig holds configuration for the output writer.
type WriterConfig struct {
	Logger *logger.Logger
	OutDir string
	Prefix string
}

// NewWriter creates a new output writer, creating the output directory if
// needed.
func NewWriter(cfg *WriterConfig) (*Writer, error) {
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	if cfg.OutDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if err := os.MkdirAll(cfg.OutDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Writer{
		logger: log,
		outDir: cfg.OutDir,
		prefix: cfg.Prefix,
	}, nil
}

// WritePage extracts the page at pageIndex (0-based) from inputPath into a
// single-page PDF named after name. It returns the output path.
func (w *Writer) WritePage(inputPath string, pageIndex int, name string) (string, error) {
	filename := w.prefix + SanitizeFilename(name)
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		filename += ".pdf"
	}
	outPath := filepath.Join(w.outDir, filename)

	conf := model.NewDefaultConfiguration()
	pages := []string{strconv.Itoa(pageIndex + 1)}
	if err := api.TrimFile(inputPath, outPath, pages, conf); err != nil {
		return "", &WriteError{Page: pageIndex, Path: outPath, Err: err}
	}

	w.logger.WithPage(pageIndex + 1).WithFields("output", outPath).Debug("Wrote page")
	return outPath, nil
}

// SanitizeFilename keeps letters, digits, '#', '-', '_' and '.'; every other
// rune becomes '_'.
func SanitizeFilename(name string) string {
	var sb strings.Builder
	sb.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == '#' || r == '-' || r == '_' || r == '.':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

// FallbackName is the deterministic page name used when recognition fails.
func FallbackName(pageIndex int) string {
	return fmt.Sprintf("page_%03d", pageIndex+1)
}
