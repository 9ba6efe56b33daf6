// Package render rasterizes single PDF pages to in-memory bitmaps.
package render

import (
	"fmt"
	"image"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/unidoc/unipdf/v3/common"
	unipdf "github.com/unidoc/unipdf/v3/model"
	unirender "github.com/unidoc/unipdf/v3/render"

	"github.com/parcelops/labelsplit/internal/logger"
)

func init() {
	common.SetLogger(common.NewConsoleLogger(common.LogLevelError))
}

// RenderError reports that a page could not be rasterized. It is fatal for
// that page only; sibling pages are unaffected.
type RenderError struct {
	Page int
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("failed to render page %d: %v", e.Page+1, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// PageRenderer rasterizes one page of a PDF document at a given DPI.
// Implementations render on demand; bitmaps are owned by the caller and
// never cached across pages.
type PageRenderer interface {
	// PageCount returns the number of pages in the document.
	PageCount(pdfPath string) (int, error)

	// RenderPage renders the zero-based page index to a bitmap at the given DPI.
	RenderPage(pdfPath string, pageIndex int, dpi int) (image.Image, error)
}

// Renderer renders PDF pages using unipdf's image device. Page counting goes
// through pdfcpu, which is the cheaper read path.
type Renderer struct {
	logger *logger.Logger
}

// Config holds configuration for the renderer
type Config struct {
	Logger *logger.Logger
}

// New creates a new renderer instance
func New(cfg *Config) *Renderer {
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	return &Renderer{
		logger: log,
	}
}

// PageCount returns the number of pages in a PDF file.
func (r *Renderer) PageCount(pdfPath string) (int, error) {
	ctx, err := api.ReadContextFile(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("failed to read PDF: %w", err)
	}
	return ctx.PageCount, nil
}

// RenderPage renders a single page to an image at the specified DPI.
func (r *Renderer) RenderPage(pdfPath string, pageIndex int, dpi int) (image.Image, error) {
	r.logger.WithFields("pdf", pdfPath, "page", pageIndex+1, "dpi", dpi).Debug("Rendering PDF page to image")

	f, err := os.Open(pdfPath)
	if err != nil {
		return nil, &RenderError{Page: pageIndex, Err: err}
	}
	defer f.Close()

	pdfReader, err := unipdf.NewPdfReaderLazy(f)
	if err != nil {
		return nil, &RenderError{Page: pageIndex, Err: fmt.Errorf("failed to create PDF reader: %w", err)}
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return nil, &RenderError{Page: pageIndex, Err: fmt.Errorf("failed to get page count: %w", err)}
	}

	if pageIndex < 0 || pageIndex >= numPages {
		return nil, &RenderError{Page: pageIndex, Err: fmt.Errorf("page index out of range (PDF has %d pages)", numPages)}
	}

	page, err := pdfReader.GetPage(pageIndex + 1)
	if err != nil {
		return nil, &RenderError{Page: pageIndex, Err: fmt.Errorf("failed to get page: %w", err)}
	}

	device := unirender.NewImageDevice()

	mediaBox, err := page.GetMediaBox()
	if err != nil {
		return nil, &RenderError{Page: pageIndex, Err: fmt.Errorf("failed to get media box: %w", err)}
	}

	// PDF points are 1/72 inch; convert to pixels at the target DPI.
	pageWidth := mediaBox.Urx - mediaBox.Llx
	device.OutputWidth = int(float64(pageWidth) * float64(dpi) / 72.0)

	img, err := device.Render(page)
	if err != nil {
		return nil, &RenderError{Page: pageIndex, Err: fmt.Errorf("failed to render page: %w", err)}
	}

	bounds := img.Bounds()
	r.logger.WithFields("width", bounds.Dx(), "height", bounds.Dy()).Debug("Successfully rendered page to image")
	return img, nil
}
