package ocr

import (
	"context"
	"image"
	"strings"

	"github.com/parcelops/labelsplit/internal/extract"
	"github.com/parcelops/labelsplit/internal/logger"
)

// Service couples a recognition backend with the shared extraction policy.
// Backends only produce raw strings; every caller goes through the same
// cleanup, correction and pattern validation here.
type Service struct {
	backend Backend
	policy  *extract.Policy
	logger  *logger.Logger
}

// NewService creates a recognition service around a backend.
func NewService(backend Backend, policy *extract.Policy, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Get()
	}
	if policy == nil {
		policy = extract.NewPolicy()
	}
	return &Service{
		backend: backend,
		policy:  policy,
		logger:  log,
	}
}

// Backend returns the underlying backend.
func (s *Service) Backend() Backend { return s.backend }

// OrderNumber recognizes the region and extracts the first pattern match.
// Backend errors are recognition failures, not pipeline errors: they are
// logged and reported as an empty result so the page falls back to its
// deterministic name.
func (s *Service) OrderNumber(ctx context.Context, img image.Image, pattern string, opts Options) string {
	raw, err := s.backend.Recognize(ctx, img, opts)
	if err != nil {
		s.logger.WithFields("backend", s.backend.Name(), "error", err).Warn("Recognition failed")
		return ""
	}
	return s.policy.OrderNumber(raw, pattern)
}

// PlainText recognizes the region without preprocessing and returns its
// whitespace-normalized text. Used by region-probing classification modes.
func (s *Service) PlainText(ctx context.Context, img image.Image) string {
	raw, err := s.backend.Recognize(ctx, img, Options{})
	if err != nil {
		s.logger.WithFields("backend", s.backend.Name(), "error", err).Warn("Recognition failed")
		return ""
	}
	return strings.Join(strings.Fields(raw), " ")
}

// Release frees the backend's engine resources. Safe to call on backends
// that hold none.
func (s *Service) Release() {
	s.backend.Release()
}
