package classify

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/parcelops/labelsplit/internal/imaging"
	"github.com/parcelops/labelsplit/internal/logger"
	"github.com/parcelops/labelsplit/internal/match"
	"github.com/parcelops/labelsplit/internal/ocr"
)

// Mode selects the classification strategy for a page.
type Mode string

const (
	// ModeSingle recognizes the primary region with the generic pattern.
	ModeSingle Mode = "single"

	// ModeTemplate matches carrier templates against the full page.
	ModeTemplate Mode = "template"

	// ModeUni probes region 1 for a UniUni marker and falls through to
	// region 2 otherwise.
	ModeUni Mode = "uni"

	// ModeSmart recognizes all configured regions with carrier patterns and
	// takes the first candidate passing its carrier rule.
	ModeSmart Mode = "smart"
)

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeSingle, "":
		return ModeSingle, nil
	case ModeTemplate:
		return ModeTemplate, nil
	case ModeUni:
		return ModeUni, nil
	case ModeSmart:
		return ModeSmart, nil
	default:
		return "", fmt.Errorf("unknown classification mode: %q", s)
	}
}

// uniMarker is the substring probed for in region 1 under ModeUni.
const uniMarker = "UUS"

// Decision is the outcome of classifying a page: the region to recognize,
// the pattern to extract with and whether preprocessing should run.
type Decision struct {
	Carrier    string
	Box        imaging.Box
	Pattern    string
	Preprocess bool
}

// Config holds classifier configuration.
type Config struct {
	Logger  *logger.Logger
	Matcher *match.Matcher
	Service *ocr.Service

	// Mode selects the classification strategy.
	Mode Mode

	// Regions are the crop boxes, in carrier priority order. At least one
	// region is required; missing later regions fall back to the first.
	Regions []imaging.Box

	// Templates maps carrier names to their reference bitmaps. A missing or
	// nil entry means the carrier cannot match in ModeTemplate; a template
	// that failed to load is represented the same way.
	Templates map[string]*match.Template

	// GenericPattern is the fallback extraction pattern.
	GenericPattern string
}

// Classifier decides which region and pattern drive recognition for each
// page, then runs the recognition itself through the OCR service.
type Classifier struct {
	logger   *logger.Logger
	matcher  *match.Matcher
	service  *ocr.Service
	mode     Mode
	regions  []imaging.Box
	tpls     map[string]*match.Template
	generic  string
	carriers []Carrier
}

// New creates a new classifier instance.
func New(cfg *Config) (*Classifier, error) {
	if cfg == nil {
		return nil, fmt.Errorf("classifier config is required")
	}
	if len(cfg.Regions) == 0 {
		return nil, fmt.Errorf("at least one region is required")
	}
	if cfg.Service == nil {
		return nil, fmt.Errorf("recognition service is required")
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	matcher := cfg.Matcher
	if matcher == nil {
		matcher = match.New(nil)
	}

	mode := cfg.Mode
	if mode == "" {
		mode = ModeSingle
	}

	return &Classifier{
		logger:   log,
		matcher:  matcher,
		service:  cfg.Service,
		mode:     mode,
		regions:  cfg.Regions,
		tpls:     cfg.Templates,
		generic:  cfg.GenericPattern,
		carriers: Carriers(),
	}, nil
}

// OrderNumber classifies the page and recognizes its order number. The
// second return is empty when recognition fails; the first names the carrier
// that won classification, or "" when no carrier did.
func (c *Classifier) OrderNumber(ctx context.Context, page image.Image) (string, string) {
	switch c.mode {
	case ModeTemplate:
		d := c.byTemplate(page)
		return d.Carrier, c.recognize(ctx, page, d)
	case ModeUni:
		d := c.byProbe(ctx, page)
		return d.Carrier, c.recognize(ctx, page, d)
	case ModeSmart:
		return c.byVote(ctx, page)
	default:
		d := c.primary()
		return d.Carrier, c.recognize(ctx, page, d)
	}
}

// Decide returns the region decision for the page without recognizing it.
// ModeSmart has no single region decision and reports the primary fallback.
func (c *Classifier) Decide(ctx context.Context, page image.Image) Decision {
	switch c.mode {
	case ModeTemplate:
		return c.byTemplate(page)
	case ModeUni:
		return c.byProbe(ctx, page)
	default:
		return c.primary()
	}
}

// primary is the fallback decision: first region, generic pattern.
func (c *Classifier) primary() Decision {
	return Decision{
		Box:        c.regions[0],
		Pattern:    c.generic,
		Preprocess: true,
	}
}

// regionFor returns the region configured for carrier index i, falling back
// to the primary region when fewer boxes were configured.
func (c *Classifier) regionFor(i int) imaging.Box {
	if i < len(c.regions) {
		return c.regions[i]
	}
	return c.regions[0]
}

// recognize crops the decided region and extracts the order number.
func (c *Classifier) recognize(ctx context.Context, page image.Image, d Decision) string {
	region := imaging.Crop(page, d.Box)
	return c.service.OrderNumber(ctx, region, d.Pattern, ocr.Options{Preprocess: d.Preprocess})
}

// byTemplate matches carrier templates against the page in priority order.
// The first matching template supplies the region and pattern; no match
// falls back to the primary decision, never to an unclassified error.
func (c *Classifier) byTemplate(page image.Image) Decision {
	for i, carrier := range c.carriers {
		tpl := c.tpls[carrier.Name]
		if tpl == nil {
			continue
		}
		if c.matcher.Present(page, tpl) {
			c.logger.WithCarrier(carrier.Name).Debug("Template matched")
			return Decision{
				Carrier:    carrier.Name,
				Box:        c.regionFor(i),
				Pattern:    carrier.TemplatePattern,
				Preprocess: carrier.Preprocess,
			}
		}
	}
	return c.primary()
}

// byProbe recognizes region 1 as plain text and keeps it when the UniUni
// marker is present or no second region was configured; otherwise the second
// region carries the number.
func (c *Classifier) byProbe(ctx context.Context, page image.Image) Decision {
	if len(c.regions) < 2 {
		return c.primary()
	}

	// The marker check is case sensitive: a lowercase "uus" read is noise,
	// not a UniUni header.
	probe := c.service.PlainText(ctx, imaging.Crop(page, c.regions[0]))
	if strings.Contains(probe, uniMarker) {
		return Decision{
			Carrier:    CarrierUni,
			Box:        c.regions[0],
			Pattern:    c.generic,
			Preprocess: true,
		}
	}

	return Decision{
		Box:        c.regions[1],
		Pattern:    c.generic,
		Preprocess: true,
	}
}

// byVote recognizes each carrier's own band in priority order and accepts
// the first candidate passing its carrier rule. A candidate failing its rule
// is dropped even when it was the only non-empty result. When every carrier
// fails, the primary region is recognized with the generic pattern.
func (c *Classifier) byVote(ctx context.Context, page image.Image) (string, string) {
	for _, carrier := range c.carriers {
		region := imaging.Crop(page, c.regionFor(carrier.VoteRegion))
		candidate := c.service.OrderNumber(ctx, region, carrier.Pattern, ocr.Options{Preprocess: carrier.Preprocess})
		accepted := carrier.Accept(candidate)
		if accepted != "" {
			c.logger.WithCarrier(carrier.Name).Debug("Carrier rule accepted candidate")
			return carrier.Name, accepted
		}
		if candidate != "" {
			c.logger.WithCarrier(carrier.Name).WithFields("candidate", candidate).Debug("Carrier rule rejected candidate")
		}
	}

	return "", c.recognize(ctx, page, c.primary())
}
