// Package match implements sliding-window template matching over downscaled
// grayscale bitmaps. It is used to decide which carrier's label layout is
// present on a rendered page.
package match

import (
	"fmt"
	"image"
	"math"
	"os"

	_ "image/jpeg"
	_ "image/png"

	"github.com/parcelops/labelsplit/internal/imaging"
)

// Mode selects the window scoring function.
type Mode string

const (
	// ModeDiff scores windows by mean absolute pixel difference (lower is better).
	ModeDiff Mode = "diff"

	// ModeNCC scores windows by normalized cross-correlation (higher is better).
	ModeNCC Mode = "ncc"
)

// Default search parameters. Page and template are resized to fixed working
// widths before matching so the search cost does not depend on the render DPI.
const (
	DefaultStep          = 12
	DefaultPageWidth     = 900
	DefaultTemplateWidth = 180
	DefaultDiffThreshold = 18.0
	DefaultNCCThreshold  = 0.75
)

// WorstDiffScore and WorstNCCScore are the scores reported when no window
// can be evaluated (e.g. the template is larger than the page).
const (
	WorstDiffScore = 255.0
	WorstNCCScore  = -1.0
)

// Template is a small reference bitmap with an identifying label and a match
// threshold. Templates are loaded once and reused read-only across pages.
type Template struct {
	Label     string
	Image     image.Image
	Mode      Mode
	Threshold float64
}

// LoadTemplate reads a template image from disk.
func LoadTemplate(path, label string, mode Mode, threshold float64) (*Template, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open template %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode template %s: %w", path, err)
	}

	if threshold == 0 {
		threshold = DefaultDiffThreshold
		if mode == ModeNCC {
			threshold = DefaultNCCThreshold
		}
	}

	return &Template{
		Label:     label,
		Image:     img,
		Mode:      mode,
		Threshold: threshold,
	}, nil
}

// Matches reports whether a window score satisfies the template's threshold.
func (t *Template) Matches(score float64) bool {
	if t.Mode == ModeNCC {
		return score >= t.Threshold
	}
	return score <= t.Threshold
}

// Matcher runs the sliding-window search. The zero value is not usable;
// construct with New.
type Matcher struct {
	step          int
	pageWidth     int
	templateWidth int
}

// Config holds matcher search parameters; zero values fall back to defaults.
type Config struct {
	Step          int
	PageWidth     int
	TemplateWidth int
}

// New creates a new matcher instance
func New(cfg *Config) *Matcher {
	if cfg == nil {
		cfg = &Config{}
	}
	m := &Matcher{
		step:          cfg.Step,
		pageWidth:     cfg.PageWidth,
		templateWidth: cfg.TemplateWidth,
	}
	if m.step <= 0 {
		m.step = DefaultStep
	}
	if m.pageWidth <= 0 {
		m.pageWidth = DefaultPageWidth
	}
	if m.templateWidth <= 0 {
		m.templateWidth = DefaultTemplateWidth
	}
	return m
}

// Present reports whether the template matches anywhere on the page. It
// returns as soon as a window satisfies the threshold, so it is the fast
// entry point used during classification.
func (m *Matcher) Present(page image.Image, tpl *Template) bool {
	p, t, ok := m.prepare(page, tpl)
	if !ok {
		return false
	}

	switch tpl.Mode {
	case ModeNCC:
		best := WorstNCCScore
		m.scan(p, t, func(score float64) bool {
			if score > best {
				best = score
			}
			return best >= tpl.Threshold
		}, nccWindowScorer(t))
		return best >= tpl.Threshold
	default:
		best := WorstDiffScore
		m.scan(p, t, func(score float64) bool {
			if score < best {
				best = score
			}
			return best <= tpl.Threshold
		}, diffWindowScorer(t))
		return best <= tpl.Threshold
	}
}

// BestScore returns the best window score over the whole stepped grid. The
// search is exhaustive; this is the diagnostic entry point. Ties keep the
// first best score in scan order.
func (m *Matcher) BestScore(page image.Image, tpl *Template) float64 {
	p, t, ok := m.prepare(page, tpl)
	if !ok {
		if tpl.Mode == ModeNCC {
			return WorstNCCScore
		}
		return WorstDiffScore
	}

	switch tpl.Mode {
	case ModeNCC:
		best := WorstNCCScore
		m.scan(p, t, func(score float64) bool {
			if score > best {
				best = score
			}
			return false
		}, nccWindowScorer(t))
		return best
	default:
		best := WorstDiffScore
		m.scan(p, t, func(score float64) bool {
			if score < best {
				best = score
			}
			return false
		}, diffWindowScorer(t))
		return best
	}
}

// prepare normalizes both bitmaps to grayscale working widths. A template
// larger than the page cannot match.
func (m *Matcher) prepare(page image.Image, tpl *Template) (*image.Gray, *image.Gray, bool) {
	p := imaging.GrayResizeToWidth(page, m.pageWidth)
	t := imaging.GrayResizeToWidth(tpl.Image, m.templateWidth)
	if t.Bounds().Dx() > p.Bounds().Dx() || t.Bounds().Dy() > p.Bounds().Dy() {
		return nil, nil, false
	}
	return p, t, true
}

// scan walks the stepped window grid in scan order, scoring each window and
// reporting scores to update. update returns true to stop the search early.
func (m *Matcher) scan(p, t *image.Gray, update func(float64) bool, score func(p *image.Gray, x, y int) float64) {
	pw := p.Bounds().Dx()
	ph := p.Bounds().Dy()
	tw := t.Bounds().Dx()
	th := t.Bounds().Dy()

	for y := 0; y+th <= ph; y += m.step {
		for x := 0; x+tw <= pw; x += m.step {
			if update(score(p, x, y)) {
				return
			}
		}
	}
}

// diffWindowScorer computes the mean absolute pixel difference between the
// template and the window anchored at (x, y).
func diffWindowScorer(t *image.Gray) func(p *image.Gray, x, y int) float64 {
	tw := t.Bounds().Dx()
	th := t.Bounds().Dy()

	return func(p *image.Gray, x, y int) float64 {
		var sum int
		for ty := 0; ty < th; ty++ {
			pRow := p.Pix[(y+ty)*p.Stride+x:]
			tRow := t.Pix[ty*t.Stride:]
			for tx := 0; tx < tw; tx++ {
				d := int(pRow[tx]) - int(tRow[tx])
				if d < 0 {
					d = -d
				}
				sum += d
			}
		}
		return float64(sum) / float64(tw*th)
	}
}

// nccWindowScorer computes normalized cross-correlation between the template
// and the window anchored at (x, y) over flattened pixel values. Template
// statistics are hoisted out of the per-window loop.
func nccWindowScorer(t *image.Gray) func(p *image.Gray, x, y int) float64 {
	tw := t.Bounds().Dx()
	th := t.Bounds().Dy()
	n := float64(tw * th)

	var sumT, sumT2 float64
	for ty := 0; ty < th; ty++ {
		row := t.Pix[ty*t.Stride:]
		for tx := 0; tx < tw; tx++ {
			v := float64(row[tx])
			sumT += v
			sumT2 += v * v
		}
	}

	return func(p *image.Gray, x, y int) float64 {
		var sumP, sumP2, sumPT float64
		for ty := 0; ty < th; ty++ {
			pRow := p.Pix[(y+ty)*p.Stride+x:]
			tRow := t.Pix[ty*t.Stride:]
			for tx := 0; tx < tw; tx++ {
				pv := float64(pRow[tx])
				tv := float64(tRow[tx])
				sumP += pv
				sumP2 += pv * pv
				sumPT += pv * tv
			}
		}

		denom := math.Sqrt((n*sumP2 - sumP*sumP) * (n*sumT2 - sumT*sumT))
		if denom <= 1e-9 {
			return WorstNCCScore
		}
		return (n*sumPT - sumP*sumT) / denom
	}
}
