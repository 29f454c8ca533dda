// internal/scraper/privacy.go
package scraper

import (
	"strings"

	"github.com/valpere/FormScrapexter/internal/dom"
)

var privacyTerms = []string{"privacy", "terms", "policy", "agree", "consent", "gdpr"}

var privacyAttributes = []string{"name", "id", "aria-label"}

func isChoice(elementType string) bool {
	return elementType == "checkbox" || elementType == "radio"
}

// FindPrivacyCheckbox returns the first checkbox or radio whose attributes,
// parent text or associated label mention a privacy term.
func FindPrivacyCheckbox(page dom.Page, elements []*dom.Element) *dom.Element {
	for _, el := range elements {
		if isPrivacyChoice(page, el) {
			return el
		}
	}
	return nil
}

func isPrivacyChoice(page dom.Page, el *dom.Element) (matched bool) {
	defer func() {
		if recover() != nil {
			matched = false
		}
	}()

	elementType, err := ElementType(page, el)
	if err != nil || !isChoice(elementType) {
		return false
	}
	for _, attr := range privacyAttributes {
		if containsAny(lowerAttr(page, el, attr), privacyTerms) {
			return true
		}
	}
	if parent, err := page.Parent(el); err == nil && parent != nil {
		if text, err := page.Text(parent); err == nil && containsAny(strings.ToLower(text), privacyTerms) {
			return true
		}
	}
	return labelMentionsPrivacy(page, el)
}

func labelMentionsPrivacy(page dom.Page, el *dom.Element) bool {
	id, err := page.Attribute(el, "id")
	if err != nil || id == "" {
		return false
	}
	labels, err := page.Find("label", nil)
	if err != nil {
		return false
	}
	for _, label := range labels {
		if f, err := page.Attribute(label, "for"); err != nil || f != id {
			continue
		}
		if text, err := page.Text(label); err == nil && containsAny(strings.ToLower(text), privacyTerms) {
			return true
		}
	}
	return false
}
