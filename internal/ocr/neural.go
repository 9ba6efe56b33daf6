package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/parcelops/labelsplit/internal/imaging"
	"github.com/parcelops/labelsplit/internal/logger"
)

// maxInferenceSide caps the longest image side before inference. Label
// regions do not need more resolution than this, and the neural engines
// allocate proportionally to pixel count.
const maxInferenceSide = 1200

// neuralBinaries maps each engine variant to its default executable name.
var neuralBinaries = map[Engine]string{
	EnginePaddle: "paddleocr",
	EngineRapid:  "rapidocr",
}

// NeuralBackend drives one of the deep-learning OCR engines through its
// command-line front end. The engine handle is constructed lazily on first
// use and guarded by a mutex: the underlying engines are not reentrant, so
// concurrent calls serialize here rather than crash inside the engine.
type NeuralBackend struct {
	mu     sync.Mutex
	logger *logger.Logger
	engine Engine
	binary string
	handle *engineHandle
}

// engineHandle is the lazily-constructed singleton engine state: the
// resolved executable and a private workspace for inference images.
type engineHandle struct {
	binaryPath   string
	workspaceDir string
}

// NeuralConfig holds configuration for a neural backend.
type NeuralConfig struct {
	Logger *logger.Logger
	Engine Engine

	// BinaryPath overrides the engine executable lookup.
	BinaryPath string
}

// NewNeuralBackend creates a new neural engine backend.
func NewNeuralBackend(cfg *NeuralConfig) *NeuralBackend {
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	binary := cfg.BinaryPath
	if binary == "" {
		binary = neuralBinaries[cfg.Engine]
	}

	return &NeuralBackend{
		logger: log,
		engine: cfg.Engine,
		binary: binary,
	}
}

// Name returns the backend name.
func (n *NeuralBackend) Name() string { return string(n.engine) }

// Recognize downscales the region to the inference bound, hands it to the
// engine and returns its raw text output. Calls serialize on the engine
// lock; callers must not assume concurrent recognitions run simultaneously.
func (n *NeuralBackend) Recognize(ctx context.Context, img image.Image, _ Options) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	handle, err := n.ensureHandle()
	if err != nil {
		return "", err
	}

	img = imaging.DownscaleMax(img, maxInferenceSide)
	data, err := imaging.EncodePNG(img)
	if err != nil {
		return "", err
	}

	imagePath := filepath.Join(handle.workspaceDir, "region.png")
	if err := os.WriteFile(imagePath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write inference image: %w", err)
	}
	defer os.Remove(imagePath)

	var args []string
	switch n.engine {
	case EnginePaddle:
		args = []string{"--image_dir", imagePath, "--use_angle_cls", "false", "--lang", "en"}
	default:
		args = []string{"-img", imagePath}
	}

	cmd := exec.CommandContext(ctx, handle.binaryPath, args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = nil

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s inference failed: %w", n.engine, err)
	}

	text := stdout.String()
	n.logger.WithFields("backend", n.Name(), "raw_len", len(text)).Debug("Recognition completed")
	return text, nil
}

// ensureHandle lazily constructs the engine handle. Callers hold the lock.
func (n *NeuralBackend) ensureHandle() (*engineHandle, error) {
	if n.handle != nil {
		return n.handle, nil
	}

	binaryPath, err := exec.LookPath(n.binary)
	if err != nil {
		return nil, fmt.Errorf("%s engine not available: %w", n.engine, err)
	}

	workspaceDir, err := os.MkdirTemp("", fmt.Sprintf("labelsplit-%s-*", n.engine))
	if err != nil {
		return nil, fmt.Errorf("failed to create engine workspace: %w", err)
	}

	n.logger.WithFields("backend", n.Name(), "binary", binaryPath).Info("Initialized OCR engine")
	n.handle = &engineHandle{
		binaryPath:   binaryPath,
		workspaceDir: workspaceDir,
	}
	return n.handle, nil
}

// Release frees the engine handle. The orchestrator calls this once per
// document run and follows it with a memory reclamation pass.
func (n *NeuralBackend) Release() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.handle == nil {
		return
	}

	_ = os.RemoveAll(n.handle.workspaceDir)
	n.handle = nil
	n.logger.WithFields("backend", n.Name()).Info("Released OCR engine")
}
