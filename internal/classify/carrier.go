// Package classify decides which carrier's label layout governs a page and
// therefore which region and pattern drive the OCR step.
package classify

import (
	"regexp"
	"strings"
)

// Carrier names used across classification and logging.
const (
	CarrierUSPS = "USPS"
	CarrierGOFO = "GOFO"
	CarrierUni  = "Uni"
)

// gofoStrict is the strict re-validation pattern applied after GOFO's
// look-alike fix: a literal GFUS prefix followed by exactly 14 digits.
var gofoStrict = regexp.MustCompile(`^GFUS\d{14}$`)

// Carrier describes one label format: the OCR pattern for its region, the
// looser pattern used when the page was classified by template, the leading
// character its numbers must start with, and whether the Tesseract
// preprocessing pass helps or hurts for its label stock.
type Carrier struct {
	Name string

	// Pattern is the region OCR pattern in regex-driven modes.
	Pattern string

	// TemplatePattern is the pattern used after a template match.
	TemplatePattern string

	// Lead is the required first character (upper-cased) of a candidate.
	Lead byte

	// VoteRegion indexes the configured crop box OCR'd for this carrier in
	// smart mode. The boxes are configured primary, Uni band, GOFO band, so
	// the Uni and GOFO indices are swapped relative to priority order.
	VoteRegion int

	// Preprocess enables image enhancement before recognition.
	Preprocess bool

	// fix applies the carrier's post-correction; returning "" discards the
	// candidate.
	fix func(string) string
}

// Accept checks a candidate order number against the carrier's rule and
// applies its post-fix. It returns the (possibly corrected) number, or ""
// when the candidate fails the rule. A failing candidate is discarded, not
// accepted at lower confidence.
func (c Carrier) Accept(candidate string) string {
	if candidate == "" {
		return ""
	}
	if c.Lead != 0 && strings.ToUpper(candidate[:1])[0] != c.Lead {
		return ""
	}
	if c.fix != nil {
		return c.fix(candidate)
	}
	return candidate
}

// Carriers returns the supported carriers in classification priority order.
func Carriers() []Carrier {
	return []Carrier{
		{
			// USPS tracking: 22 digits starting with 9.
			Name:            CarrierUSPS,
			Pattern:         `9\d{21}`,
			TemplatePattern: `9\d{21}`,
			Lead:            '9',
			VoteRegion:      0,
			Preprocess:      true,
		},
		{
			// GOFO: GFUS prefix plus 14 digits. The region pattern tolerates
			// O for 0; the fix forces the digits and re-validates strictly.
			// Preprocessing is disabled: thresholding injects noise into the
			// small GFUS glyphs.
			Name:            CarrierGOFO,
			Pattern:         `GFUS[0-9O]{14}`,
			TemplatePattern: `GFUS\d{14,15}`,
			Lead:            'G',
			VoteRegion:      2,
			Preprocess:      false,
			fix: func(candidate string) string {
				fixed := strings.NewReplacer("O", "0", "o", "0").Replace(candidate)
				if !gofoStrict.MatchString(fixed) {
					return ""
				}
				return fixed
			},
		},
		{
			// UniUni: UUS prefix plus 16 alphanumerics.
			Name:            CarrierUni,
			Pattern:         `UUS[A-Za-z0-9]{16}`,
			TemplatePattern: `UUS[A-Za-z0-9]{16}`,
			Lead:            'U',
			VoteRegion:      1,
			Preprocess:      true,
		},
	}
}
