// Package extract turns raw OCR output into validated order numbers. It
// hosts the whitespace cleanup, the look-alike character correction and the
// per-carrier pattern rules shared by every OCR backend.
package extract

import (
	"regexp"
	"strings"
	"unicode"
)

// DefaultPattern matches a generic order number when no carrier-specific
// pattern applies.
const DefaultPattern = `[A-Za-z0-9#-]{6,32}`

// numericContextRatio is the digit fraction above which a cleaned string is
// treated as numeric context for the correction step.
const numericContextRatio = 0.7

// Context describes the character mix assumed during confusion correction.
type Context string

const (
	// ContextNumeric restricts corrections to characters between two digits.
	ContextNumeric Context = "numeric"

	// ContextMixed also corrects characters with at least one digit neighbor.
	ContextMixed Context = "mixed"
)

// confusions maps characters Tesseract and the neural engines routinely
// misread for digits on label stock.
var confusions = map[rune]rune{
	'O': '0',
	'o': '0',
	'I': '1',
	'l': '1',
	'Z': '2',
	'B': '8',
}

// Policy applies the shared cleanup/correction/validation steps.
type Policy struct {
	// CorrectionEnabled toggles the look-alike character correction step.
	CorrectionEnabled bool
}

// NewPolicy returns a policy with correction enabled, the production default.
func NewPolicy() *Policy {
	return &Policy{CorrectionEnabled: true}
}

// Clean removes all whitespace from raw OCR output.
func Clean(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if !unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CorrectConfusion rewrites look-alike characters to digits based on their
// neighborhood. In numeric context a candidate is corrected only when it
// sits between two digits; in mixed context one digit neighbor suffices.
func CorrectConfusion(text string, ctx Context) string {
	if text == "" {
		return text
	}

	runes := []rune(text)
	out := make([]rune, len(runes))
	for i, r := range runes {
		out[i] = r

		repl, confusable := confusions[r]
		if !confusable {
			continue
		}

		var prev, next rune
		if i > 0 {
			prev = runes[i-1]
		}
		if i < len(runes)-1 {
			next = runes[i+1]
		}

		if unicode.IsDigit(prev) && unicode.IsDigit(next) {
			out[i] = repl
		} else if ctx == ContextMixed && (unicode.IsDigit(prev) || unicode.IsDigit(next)) {
			out[i] = repl
		}
	}
	return string(out)
}

// contextFor classifies a cleaned string as numeric or mixed context by its
// digit fraction.
func contextFor(cleaned string) Context {
	if cleaned == "" {
		return ContextMixed
	}
	digits := 0
	runes := []rune(cleaned)
	for _, r := range runes {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	if float64(digits)/float64(len(runes)) > numericContextRatio {
		return ContextNumeric
	}
	return ContextMixed
}

// OrderNumber cleans raw OCR output, applies confusion correction when
// enabled, and returns the first match of pattern. It returns "" when the
// pattern does not match; that is a recognition failure, not an error.
// Applying OrderNumber to its own output yields the same result.
func (p *Policy) OrderNumber(raw, pattern string) string {
	cleaned := Clean(raw)

	if p.CorrectionEnabled && cleaned != "" {
		cleaned = CorrectConfusion(cleaned, contextFor(cleaned))
	}

	if pattern == "" {
		pattern = DefaultPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return ""
	}
	return re.FindString(cleaned)
}
