// Package ocr provides the pluggable recognition backends used to read
// order numbers from label regions. All backends return raw recognized
// text; validation and correction happen in the extract package.
package ocr

import (
	"context"
	"fmt"
	"image"
	"runtime"

	"github.com/parcelops/labelsplit/internal/logger"
)

// Options carries per-call recognition settings.
type Options struct {
	// Preprocess enables the image enhancement pass before recognition.
	// Only the Tesseract backend honors it; the neural engines run their
	// own internal normalization.
	Preprocess bool
}

// Backend is one interchangeable OCR implementation. Recognize returns the
// raw recognized string; an empty string means nothing was read. Release
// frees any engine instance the backend holds and is called once per run,
// not per page.
type Backend interface {
	// Name returns the backend name for logging.
	Name() string

	// Recognize performs best-effort text recognition on a cropped bitmap.
	Recognize(ctx context.Context, img image.Image, opts Options) (string, error)

	// Release frees any lazily-constructed engine resources.
	Release()
}

// Engine identifies a backend variant. Selection happens at configuration
// time; there is no runtime string dispatch inside the pipeline.
type Engine string

const (
	EngineTesseract Engine = "tesseract"
	EnginePaddle    Engine = "paddle"
	EngineRapid     Engine = "rapid"
	EngineRemote    Engine = "remote"
	EngineVision    Engine = "vision"
)

// ParseEngine validates an engine name from configuration.
func ParseEngine(s string) (Engine, error) {
	switch Engine(s) {
	case EngineTesseract, EnginePaddle, EngineRapid, EngineRemote, EngineVision:
		return Engine(s), nil
	default:
		return "", fmt.Errorf("unsupported OCR engine %q (supported: tesseract, paddle, rapid, remote, vision)", s)
	}
}

// WorkerLimit returns the page-worker bound for an engine. The neural
// engines serialize through the singleton lock, so extra workers would only
// contend for render resources and pile up page bitmaps.
func (e Engine) WorkerLimit() int {
	switch e {
	case EnginePaddle, EngineRapid:
		return 2
	default:
		limit := runtime.NumCPU()
		if limit > 8 {
			limit = 8
		}
		if limit < 1 {
			limit = 1
		}
		return limit
	}
}

// Config holds configuration for backend construction.
type Config struct {
	Engine Engine
	Logger *logger.Logger

	// TessdataPrefix overrides the Tesseract data directory (Tesseract only).
	TessdataPrefix string

	// Languages are Tesseract language codes (default: eng).
	Languages []string

	// EnginePath overrides the neural engine executable (paddle/rapid only).
	EnginePath string

	// RemoteEndpoint is the local OCR service URL (remote only).
	RemoteEndpoint string

	// APIKey and Model configure the vision backend.
	APIKey string
	Model  string
}

// New constructs the backend selected by cfg.Engine.
func New(cfg *Config) (Backend, error) {
	if cfg == nil {
		return nil, fmt.Errorf("ocr config cannot be nil")
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	switch cfg.Engine {
	case EngineTesseract:
		return NewTesseractBackend(&TesseractConfig{
			Logger:         log,
			TessdataPrefix: cfg.TessdataPrefix,
			Languages:      cfg.Languages,
		}), nil

	case EnginePaddle, EngineRapid:
		return NewNeuralBackend(&NeuralConfig{
			Logger:     log,
			Engine:     cfg.Engine,
			BinaryPath: cfg.EnginePath,
		}), nil

	case EngineRemote:
		return NewRemoteBackend(&RemoteConfig{
			Logger:   log,
			Endpoint: cfg.RemoteEndpoint,
		}), nil

	case EngineVision:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("vision backend requires an API key (set OPENAI_API_KEY)")
		}
		return NewVisionBackend(&VisionConfig{
			Logger: log,
			APIKey: cfg.APIKey,
			Model:  cfg.Model,
		}), nil

	default:
		return nil, fmt.Errorf("unsupported OCR engine %q", cfg.Engine)
	}
}
