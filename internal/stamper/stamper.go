// Package stamper adds a SKU quantity footer to every page of a shipping
// label PDF, so warehouse staff can read packing counts off the printed
// label.
package stamper

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/parcelops/labelsplit/internal/logger"
)

// labelSpecPattern parses label specs of the form "{sku}-{x}单{y}个": x
// orders of y units each.
var labelSpecPattern = regexp.MustCompile(`^(.+?)-(\d+)\s*单\s*(\d+)\s*个$`)

// LabelSpec is a parsed shipping label spec.
type LabelSpec struct {
	SKU    string
	Orders int
	Units  int
}

// ParseLabelSpec parses a "{sku}-{x}单{y}个" spec string.
func ParseLabelSpec(s string) (*LabelSpec, error) {
	m := labelSpecPattern.FindStringSubmatch(s)
	if m == nil {
		return nil, fmt.Errorf("invalid label spec %q: expected {sku}-{x}单{y}个", s)
	}

	orders, err := strconv.Atoi(m[2])
	if err != nil {
		return nil, fmt.Errorf("invalid order count in label spec %q: %w", s, err)
	}
	units, err := strconv.Atoi(m[3])
	if err != nil {
		return nil, fmt.Errorf("invalid unit count in label spec %q: %w", s, err)
	}
	if orders <= 0 || units <= 0 {
		return nil, fmt.Errorf("label spec %q: counts must be positive", s)
	}

	return &LabelSpec{SKU: m[1], Orders: orders, Units: units}, nil
}

// FooterText renders the spec as the footer string: the units-per-order
// ratio reduced to lowest terms, with the multiplier hidden when it is 1.
// Examples: "SKU1", "SKU1*3", "SKU1*3/2".
func (ls *LabelSpec) FooterText() string {
	g := gcd(ls.Units, ls.Orders)
	num := ls.Units / g
	den := ls.Orders / g

	if den == 1 {
		if num == 1 {
			return ls.SKU
		}
		return fmt.Sprintf("%s*%d", ls.SKU, num)
	}
	return fmt.Sprintf("%s*%d/%d", ls.SKU, num, den)
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// Stamper writes footer text onto PDF pages.
type Stamper struct {
	logger *logger.Logger
}

// Config holds configuration for the stamper
type Config struct {
	Logger *logger.Logger
}

// New creates a new stamper instance
func New(cfg *Config) *Stamper {
	if cfg == nil {
		cfg = &Config{}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}
	return &Stamper{logger: log}
}

// Stamp parses the label spec and stamps its footer text bottom-center on
// every page of inputPath, writing the result to outputPath.
func (s *Stamper) Stamp(inputPath, outputPath, labelSpec string) error {
	spec, err := ParseLabelSpec(labelSpec)
	if err != nil {
		return err
	}
	return s.StampText(inputPath, outputPath, spec.FooterText())
}

// StampText stamps the given text bottom-center on every page.
func (s *Stamper) StampText(inputPath, outputPath, text string) error {
	s.logger.WithFields("input", inputPath, "output", outputPath, "text", text).Info("Stamping footer")

	conf := model.NewDefaultConfiguration()
	desc := "points:12, pos:bc, off:0 12, scale:1 abs, rot:0, fillcolor:#000000, opacity:1"

	if err := api.AddTextWatermarksFile(inputPath, outputPath, nil, true, text, desc, conf); err != nil {
		return fmt.Errorf("failed to stamp footer: %w", err)
	}

	if err := api.ValidateFile(outputPath, conf); err != nil {
		return fmt.Errorf("stamped PDF failed validation: %w", err)
	}
	return nil
}
