// internal/scraper/submit.go
package scraper

import (
	"strings"

	"github.com/valpere/FormScrapexter/internal/dom"
)

// SubmitSelectors are tried from most to least specific
var SubmitSelectors = []string{
	"input[type='submit']",
	"button[type='submit']",
	".submit-button",
	"button.submit",
	"input.submit",
	".btn-primary",
	"button",
}

var submitTerms = []string{"submit", "send", "register", "sign up"}

// isSubmitLabelled reports whether the element's text or value names a submit action
func isSubmitLabelled(page dom.Page, el *dom.Element) bool {
	text, err := page.Text(el)
	if err != nil {
		text = ""
	}
	text = strings.ToLower(text)
	value := lowerAttr(page, el, "value")
	for _, term := range submitTerms {
		if strings.Contains(text, term) || strings.Contains(value, term) {
			return true
		}
	}
	return false
}

// FindSubmitButtons searches the whole page tier by tier. Within the first
// tier that has visible buttons, a submit-labelled button is returned alone;
// otherwise every visible button of that tier is returned.
func FindSubmitButtons(page dom.Page) []*dom.Element {
	for _, selector := range SubmitSelectors {
		buttons, err := page.Find(selector, nil)
		if err != nil {
			continue
		}
		var shown []*dom.Element
		for _, b := range buttons {
			if visible(page, b) {
				shown = append(shown, b)
			}
		}
		for _, b := range shown {
			if isSubmitLabelled(page, b) {
				return []*dom.Element{b}
			}
		}
		if len(shown) > 0 {
			return shown
		}
	}
	return nil
}
