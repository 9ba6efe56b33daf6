package splitter

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Result contains the results of a complete split run.
type Result struct {
	TotalPages     int
	ProcessedPages int
	SuccessCount   int
	FallbackCount  int
	FailureCount   int
	Duration       time.Duration
	Pages          []PageResult
	Failures       []PageFailure
}

// PageResult contains the outcome of splitting a single page.
type PageResult struct {
	Page        int
	Carrier     string
	OrderNumber string
	OutputPath  string
	Fallback    bool
	Duration    time.Duration
}

// PageFailure contains information about a page that could not be written.
type PageFailure struct {
	Page  int
	Error error
}

// NewResult creates a new split result.
func NewResult() *Result {
	return &Result{
		Pages:    make([]PageResult, 0),
		Failures: make([]PageFailure, 0),
	}
}

// AddPage records a finished page.
func (r *Result) AddPage(page PageResult) {
	r.Pages = append(r.Pages, page)
	if page.Fallback {
		r.FallbackCount++
	} else {
		r.SuccessCount++
	}
}

// AddError records a failed page.
func (r *Result) AddError(page int, err error) {
	r.Failures = append(r.Failures, PageFailure{Page: page, Error: err})
	r.FailureCount++
}

// HasFailures returns true if any page failed.
func (r *Result) HasFailures() bool {
	return r.FailureCount > 0
}

// Finalize sorts per-page outcomes by page number. Workers complete out of
// order; reports should not.
func (r *Result) Finalize() {
	sort.Slice(r.Pages, func(i, j int) bool { return r.Pages[i].Page < r.Pages[j].Page })
	sort.Slice(r.Failures, func(i, j int) bool { return r.Failures[i].Page < r.Failures[j].Page })
}

// Summary returns a human-readable summary of the split result.
func (r *Result) Summary() string {
	var sb strings.Builder

	sb.WriteString("Split Summary:\n")
	sb.WriteString(fmt.Sprintf("  Total Pages: %d\n", r.TotalPages))
	sb.WriteString(fmt.Sprintf("  Processed: %d\n", r.ProcessedPages))
	sb.WriteString(fmt.Sprintf("  Named by OCR: %d\n", r.SuccessCount))
	sb.WriteString(fmt.Sprintf("  Fallback names: %d\n", r.FallbackCount))
	sb.WriteString(fmt.Sprintf("  Failed: %d\n", r.FailureCount))
	sb.WriteString(fmt.Sprintf("  Duration: %v\n", r.Duration))

	if r.HasFailures() {
		sb.WriteString("\nFailures:\n")
		for _, failure := range r.Failures {
			sb.WriteString(fmt.Sprintf("  - page %d: %v\n", failure.Page, failure.Error))
		}
	}

	return sb.String()
}

// String returns a string representation of the split result.
func (r *Result) String() string {
	return r.Summary()
}
