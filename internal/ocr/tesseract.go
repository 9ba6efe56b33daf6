package ocr

import (
	"context"
	"fmt"
	"image"

	"github.com/otiai10/gosseract/v2"

	"github.com/parcelops/labelsplit/internal/imaging"
	"github.com/parcelops/labelsplit/internal/logger"
)

// charWhitelist restricts single-line recognition to the characters that
// appear in carrier order numbers.
const charWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-#"

// TesseractBackend runs the local Tesseract engine in whitelist-restricted
// single-line mode. Clients are per-call, so the backend itself holds no
// engine state and Release is a no-op.
type TesseractBackend struct {
	logger         *logger.Logger
	tessdataPrefix string
	languages      []string
}

// TesseractConfig holds configuration for the Tesseract backend.
type TesseractConfig struct {
	Logger         *logger.Logger
	TessdataPrefix string
	Languages      []string
}

// NewTesseractBackend creates a new Tesseract backend.
func NewTesseractBackend(cfg *TesseractConfig) *TesseractBackend {
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	languages := cfg.Languages
	if len(languages) == 0 {
		languages = []string{"eng"}
	}

	return &TesseractBackend{
		logger:         log,
		tessdataPrefix: cfg.TessdataPrefix,
		languages:      languages,
	}
}

// Name returns the backend name.
func (t *TesseractBackend) Name() string { return string(EngineTesseract) }

// Recognize performs single-line OCR on the cropped region. When opts
// requests preprocessing, the enhancement pass runs first.
func (t *TesseractBackend) Recognize(ctx context.Context, img image.Image, opts Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if opts.Preprocess {
		img = imaging.Enhance(img, imaging.EnhanceMedium)
	}

	data, err := imaging.EncodePNG(img)
	if err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if t.tessdataPrefix != "" {
		if err := client.SetTessdataPrefix(t.tessdataPrefix); err != nil {
			return "", fmt.Errorf("failed to set tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(t.languages...); err != nil {
		return "", fmt.Errorf("failed to set OCR language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		return "", fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if err := client.SetWhitelist(charWhitelist); err != nil {
		return "", fmt.Errorf("failed to set character whitelist: %w", err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("failed to set image data: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract recognition failed: %w", err)
	}

	t.logger.WithFields("backend", t.Name(), "raw_len", len(text)).Debug("Recognition completed")
	return text, nil
}

// Release is a no-op; Tesseract clients are created and closed per call.
func (t *TesseractBackend) Release() {}
