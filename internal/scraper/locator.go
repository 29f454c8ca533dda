// internal/scraper/locator.go
package scraper

import (
	"strings"

	"github.com/valpere/FormScrapexter/internal/dom"
)

// ElementSelectors collect the interactive elements of a container, in order
var ElementSelectors = []string{
	"input:not([type='hidden'])",
	"select",
	"textarea",
	"button",
	"div[role='button']",
	"span[role='button']",
}

var commonFieldFragments = []string{"email", "name", "first", "last", "phone", "address"}

const (
	minFormInputs   = 2
	minElements     = 3
	inputWeight     = 10
	commonWeight    = 20
	submitBonus     = 30
	inputSelector   = "input:not([type='hidden']), select, textarea"
	submitSelectors = "input[type='submit'], button[type='submit']"
)

// FormLocator picks the most promising form on a page
type FormLocator struct{}

// NewFormLocator creates a form locator
func NewFormLocator() *FormLocator {
	return &FormLocator{}
}

type formCandidate struct {
	form   *dom.Element
	score  int
	inputs int
}

// Locate returns the chosen container and its visible interactive
// elements. A nil container means the page has no usable form.
func (l *FormLocator) Locate(page dom.Page) (*dom.Element, []*dom.Element) {
	forms, err := page.Find("form", nil)
	if err != nil {
		return nil, nil
	}

	var container *dom.Element
	if len(forms) == 0 {
		inputs, err := page.Find("input", nil)
		if err != nil || len(inputs) == 0 {
			return nil, nil
		}
		bodies, err := page.Find("body", nil)
		if err != nil || len(bodies) == 0 {
			return nil, nil
		}
		container = bodies[0]
	} else {
		container = l.bestForm(page, forms)
	}

	seen := make(map[*dom.Element]bool)
	elements := collect(page, container, seen, nil)
	if len(elements) < minElements {
		for _, form := range forms {
			if form != container {
				elements = collect(page, form, seen, elements)
			}
		}
		if len(elements) < minElements {
			elements = collect(page, nil, seen, elements)
		}
	}
	return container, elements
}

func (l *FormLocator) bestForm(page dom.Page, forms []*dom.Element) *dom.Element {
	var best, fallback *formCandidate
	for _, form := range forms {
		c := l.score(page, form)
		if fallback == nil || c.score > fallback.score {
			fallback = c
		}
		if c.inputs >= minFormInputs && (best == nil || c.score > best.score) {
			best = c
		}
	}
	if best != nil {
		return best.form
	}
	return fallback.form
}

func (l *FormLocator) score(page dom.Page, form *dom.Element) *formCandidate {
	c := &formCandidate{form: form}

	if inputs, err := page.Find(inputSelector, form); err == nil {
		for _, in := range inputs {
			if visible(page, in) {
				c.inputs++
			}
		}
	}
	c.score = c.inputs * inputWeight

	if inputs, err := page.Find("input", form); err == nil {
		for _, fragment := range commonFieldFragments {
			for _, in := range inputs {
				if strings.Contains(lowerAttr(page, in, "name"), fragment) ||
					strings.Contains(lowerAttr(page, in, "id"), fragment) {
					c.score += commonWeight
					break
				}
			}
		}
	}

	if submits, err := page.Find(submitSelectors, form); err == nil && len(submits) > 0 {
		c.score += submitBonus
	}
	return c
}

// collect appends the visible elements under scope that were not seen yet
func collect(page dom.Page, scope *dom.Element, seen map[*dom.Element]bool, out []*dom.Element) []*dom.Element {
	for _, selector := range ElementSelectors {
		found, err := page.Find(selector, scope)
		if err != nil {
			continue
		}
		for _, el := range found {
			if seen[el] || !visible(page, el) {
				continue
			}
			seen[el] = true
			out = append(out, el)
		}
	}
	return out
}
