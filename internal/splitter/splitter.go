// Package splitter orchestrates the page pipeline: render, classify,
// recognize, name and write one output PDF per page.
package splitter

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/parcelops/labelsplit/internal/classify"
	"github.com/parcelops/labelsplit/internal/logger"
	"github.com/parcelops/labelsplit/internal/ocr"
	"github.com/parcelops/labelsplit/internal/render"
)

// DefaultDPI is the render resolution used when none is configured.
const DefaultDPI = 300

// ProgressFunc receives one call per finished page task. completed counts
// strictly up to total; status describes the page that just finished.
type ProgressFunc func(completed, total int, status string)

// Orchestrator coordinates the complete split workflow.
type Orchestrator struct {
	logger     *logger.Logger
	renderer   render.PageRenderer
	classifier *classify.Classifier
	service    *ocr.Service
	writer     PageWriter
	dpi        int
	workers    int
	progress   ProgressFunc
}

// Config holds configuration for the split orchestrator.
type Config struct {
	Logger     *logger.Logger
	Renderer   render.PageRenderer
	Classifier *classify.Classifier
	Service    *ocr.Service
	Writer     PageWriter

	// DPI is the page render resolution.
	DPI int

	// Workers overrides the engine-derived worker count when positive.
	Workers int

	// Progress is invoked once per finished page task. Optional.
	Progress ProgressFunc
}

// New creates a new split orchestrator.
func New(cfg *Config) (*Orchestrator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Renderer == nil {
		return nil, fmt.Errorf("renderer is required")
	}
	if cfg.Classifier == nil {
		return nil, fmt.Errorf("classifier is required")
	}
	if cfg.Service == nil {
		return nil, fmt.Errorf("recognition service is required")
	}
	if cfg.Writer == nil {
		return nil, fmt.Errorf("writer is required")
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	dpi := cfg.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = ocr.Engine(cfg.Service.Backend().Name()).WorkerLimit()
	}

	return &Orchestrator{
		logger:     log,
		renderer:   cfg.Renderer,
		classifier: cfg.Classifier,
		service:    cfg.Service,
		writer:     cfg.Writer,
		dpi:        dpi,
		workers:    workers,
		progress:   cfg.Progress,
	}, nil
}

// pageOutcome carries one finished page task back to the collector.
type pageOutcome struct {
	index int
	page  PageResult
	err   error
}

// Split runs the full pipeline over every page of the document. It returns
// an error only when the document itself cannot be opened; individual page
// failures are recorded in the result and do not stop sibling pages.
func (o *Orchestrator) Split(ctx context.Context, inputPath string) (*Result, error) {
	o.logger.WithFields("input", inputPath, "workers", o.workers).Info("Starting split workflow")
	startTime := time.Now()

	total, err := o.renderer.PageCount(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}

	result := NewResult()
	result.TotalPages = total

	workers := o.workers
	if workers > total {
		workers = total
	}
	if workers < 1 {
		workers = 1
	}

	tasks := make(chan int)
	outcomes := make(chan pageOutcome)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range tasks {
				outcomes <- o.processPage(ctx, inputPath, idx)
			}
		}()
	}

	go func() {
		for idx := 0; idx < total; idx++ {
			tasks <- idx
		}
		close(tasks)
		wg.Wait()
		close(outcomes)
	}()

	// Single collector: progress fires exactly once per finished task and
	// completed only ever increases.
	completed := 0
	for outcome := range outcomes {
		completed++

		var status string
		if outcome.err != nil {
			result.AddError(outcome.index+1, outcome.err)
			status = fmt.Sprintf("page %d failed: %v", outcome.index+1, outcome.err)
			o.logger.WithPage(outcome.index + 1).WithError(outcome.err).Error("Page processing failed")
		} else {
			result.AddPage(outcome.page)
			status = fmt.Sprintf("page %d -> %s", outcome.index+1, outcome.page.OutputPath)
		}

		if o.progress != nil {
			o.progress(completed, total, status)
		}
	}

	// The engine is released once per run, after the pool has drained.
	o.service.Release()
	debug.FreeOSMemory()

	result.ProcessedPages = completed
	result.Duration = time.Since(startTime)
	result.Finalize()

	o.logger.WithFields(
		"total", result.TotalPages,
		"named", result.SuccessCount,
		"fallback", result.FallbackCount,
		"failed", result.FailureCount,
		"duration", result.Duration,
	).Info("Split workflow completed")

	return result, nil
}

// processPage runs one page through render, classify, recognize and write.
func (o *Orchestrator) processPage(ctx context.Context, inputPath string, pageIndex int) pageOutcome {
	pageStart := time.Now()

	img, err := o.renderer.RenderPage(inputPath, pageIndex, o.dpi)
	if err != nil {
		return pageOutcome{index: pageIndex, err: err}
	}

	carrier, order := o.classifier.OrderNumber(ctx, img)

	name := order
	fallback := false
	if name == "" {
		name = FallbackName(pageIndex)
		fallback = true
		o.logger.WithPage(pageIndex + 1).Warn("Recognition failed, using fallback name")
	}

	outPath, err := o.writer.WritePage(inputPath, pageIndex, name)
	if err != nil {
		return pageOutcome{index: pageIndex, err: err}
	}

	return pageOutcome{
		index: pageIndex,
		page: PageResult{
			Page:        pageIndex + 1,
			Carrier:     carrier,
			OrderNumber: order,
			OutputPath:  outPath,
			Fallback:    fallback,
			Duration:    time.Since(pageStart),
		},
	}
}
