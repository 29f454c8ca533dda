// internal/crawl/summary.go
package crawl

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/valpere/FormScrapexter/internal/scraper"
)

// Summary describes one run
type Summary struct {
	Total          int           `json:"total"`
	Skipped        int           `json:"skipped"`
	Processed      int           `json:"processed"`
	Captchas       int           `json:"captchas"`
	WithAdditional int           `json:"with_additional"`
	Errors         int           `json:"errors"`
	Interrupted    bool          `json:"interrupted"`
	Duration       time.Duration `json:"duration"`

	Results []*scraper.PageResult `json:"-"`
}

func (s *Summary) finish(results []*scraper.PageResult, start time.Time) *Summary {
	s.Results = results
	s.Processed = len(results)
	s.Captchas, s.WithAdditional, s.Errors = 0, 0, 0
	for _, r := range results {
		if r.HasCaptcha {
			s.Captchas++
		}
		if r.HasAdditionalFields() {
			s.WithAdditional++
		}
		if r.Error != "" {
			s.Errors++
		}
	}
	s.Duration = time.Since(start)
	return s
}

// Write prints the summary block shown at the end of a run
func (s *Summary) Write(w io.Writer, destination string) {
	rule := strings.Repeat("=", 50)
	fmt.Fprintf(w, "\n%s\nSCRAPING SUMMARY\n%s\n", rule, rule)
	fmt.Fprintf(w, "Total URLs processed: %d\n", s.Processed)
	if s.Skipped > 0 {
		fmt.Fprintf(w, "Skipped (checkpoint): %d\n", s.Skipped)
	}
	fmt.Fprintf(w, "Forms with CAPTCHAs: %d\n", s.Captchas)
	fmt.Fprintf(w, "Forms with additional fields: %d\n", s.WithAdditional)
	fmt.Fprintf(w, "Errors encountered: %d\n", s.Errors)
	if destination != "" {
		fmt.Fprintf(w, "Results saved to: %s\n", destination)
	}
	fmt.Fprintf(w, "Duration: %s\n", s.Duration.Round(time.Millisecond))
	fmt.Fprintln(w, rule)
	if s.Interrupted {
		fmt.Fprintln(w, "\nOperation interrupted by user. Partial results saved.")
	}
}
