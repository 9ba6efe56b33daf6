package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/parcelops/labelsplit/internal/classify"
	"github.com/parcelops/labelsplit/internal/config"
	"github.com/parcelops/labelsplit/internal/extract"
	"github.com/parcelops/labelsplit/internal/logger"
	"github.com/parcelops/labelsplit/internal/match"
	"github.com/parcelops/labelsplit/internal/ocr"
	"github.com/parcelops/labelsplit/internal/render"
	"github.com/parcelops/labelsplit/internal/splitter"
)

// splitCmd represents the split command
var splitCmd = &cobra.Command{
	Use:   "split [input.pdf]",
	Short: "Split a merged label PDF into one named file per page",
	Long: `Split a merged shipping-label PDF into single-page PDFs, naming each
output after the tracking number recognized on that page.

Pages whose number cannot be read are written as page_NNN.pdf. A page
that fails to render or write is reported and skipped; the remaining
pages are still processed.

Examples:
  # Split with Tesseract and a single crop region
  labelsplit split labels.pdf --bbox 40,60,520,140 --out-dir ./out

  # Template classification with carrier templates
  labelsplit split labels.pdf --mode template \
    --template-usps usps.png --template-gofo gofo.png --bbox 40,60,520,140

  # Three-region smart mode with the PaddleOCR engine
  labelsplit split labels.pdf --mode smart --engine paddle \
    --bbox 40,60,520,140 --bbox2 40,220,520,140 --bbox3 40,380,520,140`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSplit,
}

func init() {
	rootCmd.AddCommand(splitCmd)

	flags := splitCmd.Flags()
	flags.String("input", "", "merged label PDF to split")
	flags.String("out-dir", "labels", "output directory for single-page PDFs")
	flags.Int("dpi", splitter.DefaultDPI, "page render resolution")
	flags.String("bbox", "", "primary crop region as x,y,w,h in rendered pixels")
	flags.String("bbox2", "", "secondary crop region (uni and smart modes)")
	flags.String("bbox3", "", "tertiary crop region (smart mode)")
	flags.String("mode", "single", "classification mode (single, template, uni, smart)")
	flags.String("regex", extract.DefaultPattern, "generic extraction pattern")
	flags.String("prefix", "", "output filename prefix")
	flags.Int("workers", 0, "page worker count (0 = automatic)")
	flags.Bool("correction", true, "enable look-alike character correction")
	flags.String("engine", string(ocr.EngineTesseract), "OCR engine (tesseract, paddle, rapid, remote, vision)")
	flags.String("tessdata-prefix", "", "Tesseract traineddata directory")
	flags.String("languages", "eng", "Tesseract languages (e.g. eng, eng+chi_sim)")
	flags.String("engine-path", "", "paddle/rapid executable override")
	flags.String("remote-endpoint", ocr.DefaultRemoteEndpoint, "remote OCR service URL")
	flags.String("api-key", "", "vision engine API key (or OPENAI_API_KEY)")
	flags.String("vision-model", ocr.DefaultVisionModel, "vision engine model")
	flags.String("template-usps", "", "USPS template image path")
	flags.String("template-gofo", "", "GOFO template image path")
	flags.String("template-uni", "", "UniUni template image path")
	flags.String("template-mode", "diff", "template scoring mode (diff, ncc)")
	flags.Float64("template-threshold", 0, "template match threshold (0 = mode default)")

	_ = viper.BindPFlags(flags)
}

func runSplit(cmd *cobra.Command, args []string) error {
	log, err := logger.New(&logger.Config{
		Level:  viper.GetString("log-level"),
		Format: "console",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := config.Load(nil, cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if len(args) > 0 {
		cfg.Input = args[0]
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log.WithFields("input", cfg.Input, "out_dir", cfg.OutDir, "engine", cfg.OCR.Engine, "mode", cfg.Mode).
		Info("Starting split")

	backend, err := ocr.New(&ocr.Config{
		Engine:         ocr.Engine(cfg.OCR.Engine),
		Logger:         log,
		TessdataPrefix: cfg.OCR.TessdataPrefix,
		Languages:      strings.Split(cfg.OCR.Languages, "+"),
		EnginePath:     cfg.OCR.EnginePath,
		RemoteEndpoint: cfg.OCR.RemoteEndpoint,
		APIKey:         cfg.OCR.APIKey,
		Model:          cfg.OCR.Model,
	})
	if err != nil {
		return fmt.Errorf("failed to create OCR backend: %w", err)
	}

	policy := &extract.Policy{CorrectionEnabled: cfg.CorrectionEnabled}
	service := ocr.NewService(backend, policy, log)

	regions, err := cfg.Regions()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	classifier, err := classify.New(&classify.Config{
		Logger:         log,
		Service:        service,
		Mode:           classify.Mode(cfg.Mode),
		Regions:        regions,
		Templates:      loadTemplates(log, &cfg.Template),
		GenericPattern: cfg.Regex,
	})
	if err != nil {
		return fmt.Errorf("failed to create classifier: %w", err)
	}

	writer, err := splitter.NewWriter(&splitter.WriterConfig{
		Logger: log,
		OutDir: cfg.OutDir,
		Prefix: cfg.Prefix,
	})
	if err != nil {
		return fmt.Errorf("failed to create writer: %w", err)
	}

	orch, err := splitter.New(&splitter.Config{
		Logger:     log,
		Renderer:   render.New(&render.Config{Logger: log}),
		Classifier: classifier,
		Service:    service,
		Writer:     writer,
		DPI:        cfg.DPI,
		Workers:    cfg.Workers,
		Progress: func(completed, total int, status string) {
			fmt.Printf("[%d/%d] %s\n", completed, total, status)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	result, err := orch.Split(ctx, cfg.Input)
	if err != nil {
		return fmt.Errorf("split failed: %w", err)
	}

	// Page-level failures are reported in the summary but do not fail the
	// command; only an unreadable document or bad configuration does.
	fmt.Println()
	fmt.Print(result.Summary())
	return nil
}

// loadTemplates loads the configured carrier templates. A template that
// fails to load is logged and skipped, which downgrades that carrier to
// no-match rather than failing the run.
func loadTemplates(log *logger.Logger, cfg *config.TemplateConfig) map[string]*match.Template {
	paths := map[string]string{
		classify.CarrierUSPS: cfg.USPS,
		classify.CarrierGOFO: cfg.GOFO,
		classify.CarrierUni:  cfg.Uni,
	}

	templates := make(map[string]*match.Template)
	for carrier, path := range paths {
		if path == "" {
			continue
		}
		tpl, err := match.LoadTemplate(path, carrier, match.Mode(cfg.Mode), cfg.Threshold)
		if err != nil {
			log.WithFields("carrier", carrier, "path", path, "error", err).
				Warn("Failed to load template, carrier disabled")
			continue
		}
		templates[carrier] = tpl
	}
	return templates
}
