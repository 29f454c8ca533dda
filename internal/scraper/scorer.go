// internal/scraper/scorer.go
package scraper

import (
	"regexp"
	"strings"

	"github.com/valpere/FormScrapexter/internal/dom"
)

const (
	typeAffinityScore = 50
	substringScore    = 30
	boundaryScore     = 50
	nameSegmentScore  = 100
)

var (
	scoredAttributes = []string{"name", "id", "placeholder", "aria-label"}
	nameAttributes   = []string{"name", "id", "placeholder"}
	nameSegment      = regexp.MustCompile(`(?:^|_|-)(first|last)(?:_|-|$|name)`)
)

// CandidateScorer ranks elements as candidates for one canonical field
type CandidateScorer struct {
	patterns *PatternTable
}

// NewCandidateScorer creates a scorer over the given pattern table
func NewCandidateScorer(patterns *PatternTable) *CandidateScorer {
	if patterns == nil {
		patterns = DefaultPatterns()
	}
	return &CandidateScorer{patterns: patterns}
}

// Score returns the heuristic score of el for field. Hidden inputs and
// elements whose attributes cannot be read score zero.
func (s *CandidateScorer) Score(page dom.Page, el *dom.Element, field Field) (score int) {
	defer func() {
		if recover() != nil {
			score = 0
		}
	}()

	elementType, err := ElementType(page, el)
	if err != nil || elementType == "hidden" {
		return 0
	}

	if (field == Email && elementType == "email") || (field == Phone && elementType == "tel") {
		score += typeAffinityScore
	}

	patterns := s.patterns.Patterns(field)
	for _, attr := range scoredAttributes {
		value := lowerAttr(page, el, attr)
		if value == "" {
			continue
		}
		for _, p := range patterns {
			if p.Contains(value) {
				score += substringScore
			}
			if p.Bounded(value) {
				score += boundaryScore
			}
		}
		if field == FirstName || field == LastName {
			if m := nameSegment.FindStringSubmatch(value); m != nil {
				if (field == FirstName && m[1] == "first") || (field == LastName && m[1] == "last") {
					score += nameSegmentScore
				}
			}
		}
	}
	return score
}

// Best returns the highest scoring element for field, or nil. Ties keep
// the first element encountered.
func (s *CandidateScorer) Best(page dom.Page, elements []*dom.Element, field Field) *dom.Element {
	var best *dom.Element
	bestScore := 0
	for _, el := range elements {
		if score := s.Score(page, el, field); score > bestScore {
			best, bestScore = el, score
		}
	}
	if best != nil || (field != FirstName && field != LastName) {
		return best
	}

	names := ambiguousNameFields(page, elements)
	if len(names) != 2 {
		return nil
	}
	if field == FirstName {
		return names[0]
	}
	return names[1]
}

// ambiguousNameFields lists text inputs that mention "name" without saying
// which part of the name they hold
func ambiguousNameFields(page dom.Page, elements []*dom.Element) []*dom.Element {
	var out []*dom.Element
	for _, el := range elements {
		if isAmbiguousName(page, el) {
			out = append(out, el)
		}
	}
	return out
}

func isAmbiguousName(page dom.Page, el *dom.Element) (ambiguous bool) {
	defer func() {
		if recover() != nil {
			ambiguous = false
		}
	}()

	elementType, err := ElementType(page, el)
	if err != nil || !isTextual(elementType) {
		return false
	}
	for _, attr := range nameAttributes {
		v := lowerAttr(page, el, attr)
		if strings.Contains(v, "name") && !strings.Contains(v, "first") && !strings.Contains(v, "last") {
			return true
		}
	}
	return false
}
