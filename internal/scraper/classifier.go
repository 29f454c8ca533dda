// internal/scraper/classifier.go
package scraper

import "strings"

// consentIndicators mark checkbox and radio hints as consent boxes even when
// no Privacy pattern appears
var consentIndicators = []string{
	"i agree", "agree to", "accept", "consent", "subscribe", "sign up",
	"opt in", "permission", "can contact", "may contact", "receive",
}

type fieldTerms struct {
	field Field
	terms []string
}

// addressRules run before the generic table so an address block is not
// read as an organization or a title
var addressRules = []fieldTerms{
	{Street, []string{"address line", "street address", "address1", "billing address", "shipping address"}},
	{City, []string{"city", "town"}},
	{State, []string{"state", "province", "region"}},
	{Zipcode, []string{"zip", "postal", "post code"}},
	{Country, []string{"country", "nation"}},
}

// addressFragments catch name/id style hints the generic table misses
var addressFragments = []fieldTerms{
	{Street, []string{"addr", "address1", "line1", "street", "thoroughfare"}},
	{City, []string{"city", "town", "locality"}},
	{State, []string{"state", "province", "region", "territory"}},
	{Zipcode, []string{"zip", "postal", "postcode", "postalcode"}},
	{Country, []string{"country", "nation", "countries"}},
}

var (
	confirmTerms = []string{"confirm", "verify", "repeat"}
	actionVerbs  = []string{"submit", "send", "continue", "next", "go", "register"}
)

// Classifier maps an element hint and type to a canonical field
type Classifier struct {
	patterns *PatternTable
}

// NewClassifier creates a classifier over the given pattern table
func NewClassifier(patterns *PatternTable) *Classifier {
	if patterns == nil {
		patterns = DefaultPatterns()
	}
	return &Classifier{patterns: patterns}
}

// Classify returns the canonical field for a hint, or false when the
// element is an additional field. The first rule that fires wins.
func (c *Classifier) Classify(hint, elementType string) (Field, bool) {
	hint = strings.ToLower(hint)
	if strings.TrimSpace(hint) == "" {
		return 0, false
	}
	elementType = strings.ToLower(elementType)

	if elementType == "checkbox" || elementType == "radio" {
		for _, p := range c.patterns.Patterns(Privacy) {
			if p.Contains(hint) {
				return Privacy, true
			}
		}
		if containsAny(hint, consentIndicators) {
			return Privacy, true
		}
	}

	if f, ok := matchTerms(hint, addressRules); ok {
		return f, true
	}

	switch elementType {
	case "email":
		if containsAny(hint, confirmTerms) {
			return ConfirmEmail, true
		}
		return Email, true
	case "tel":
		return Phone, true
	case "submit", "button":
		if containsAny(hint, actionVerbs) {
			return Submit, true
		}
	}

	if f, ok := c.patterns.Match(hint); ok {
		return f, true
	}

	return matchTerms(hint, addressFragments)
}

func matchTerms(hint string, rules []fieldTerms) (Field, bool) {
	for _, rule := range rules {
		if containsAny(hint, rule.terms) {
			return rule.field, true
		}
	}
	return 0, false
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
