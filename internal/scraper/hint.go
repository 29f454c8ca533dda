// internal/scraper/hint.go
package scraper

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/valpere/FormScrapexter/internal/dom"
)

var (
	hintAttributes = []string{"name", "id", "placeholder", "aria-label", "title", "data-label"}
	labelLikeTags  = map[string]bool{"label": true, "span": true, "div": true, "p": true}
	separators     = strings.NewReplacer("-", " ", "_", " ")
)

// HintExtractor derives a free-text guess of an element's purpose from its
// attributes, labels, nearby text and address containers.
type HintExtractor struct {
	MaxPreceding  int
	MaxFollowing  int
	MaxAncestors  int
	MaxTextLength int
}

// NewHintExtractor returns an extractor with the standard traversal limits
func NewHintExtractor() *HintExtractor {
	return &HintExtractor{
		MaxPreceding:  10,
		MaxFollowing:  2,
		MaxAncestors:  8,
		MaxTextLength: 50,
	}
}

type hintList struct {
	caser cases.Caser
	seen  map[string]bool
	out   []string
}

func (h *hintList) add(s string) {
	s = strings.Join(strings.Fields(separators.Replace(h.caser.String(s))), " ")
	if s == "" || h.seen[s] {
		return
	}
	h.seen[s] = true
	h.out = append(h.out, s)
}

// Extract returns the normalized hint, or UnknownHint. Lookup failures of
// single sources are skipped.
func (x *HintExtractor) Extract(page dom.Page, el *dom.Element) string {
	hints := &hintList{caser: cases.Lower(language.Und), seen: make(map[string]bool)}

	for _, name := range hintAttributes {
		v, err := page.Attribute(el, name)
		if err != nil {
			continue
		}
		if v = strings.TrimSpace(separators.Replace(v)); len(v) > 1 {
			hints.add(v)
		}
	}

	if id, err := page.Attribute(el, "id"); err == nil && id != "" {
		if labels, err := page.Find("label", nil); err == nil {
			for _, label := range labels {
				if f, err := page.Attribute(label, "for"); err != nil || f != id {
					continue
				}
				if text, err := page.Text(label); err == nil {
					hints.add(text)
				}
			}
		}
	}

	if parent, err := page.Parent(el); err == nil && parent != nil {
		if tag, err := page.TagName(parent); err == nil && tag == "label" {
			if text, err := page.Text(parent); err == nil {
				hints.add(text)
			}
		}
	}

	if prev, err := page.PrecedingSiblings(el, x.MaxPreceding); err == nil {
		for _, sib := range prev {
			x.addShortText(page, sib, hints)
		}
	}

	x.addAddressContainer(page, el, hints)

	if next, err := page.FollowingSiblings(el, x.MaxFollowing); err == nil {
		for _, sib := range next {
			x.addShortText(page, sib, hints)
		}
	}

	if len(hints.out) == 0 {
		return UnknownHint
	}
	return strings.Join(hints.out, " ")
}

func (x *HintExtractor) addShortText(page dom.Page, el *dom.Element, hints *hintList) {
	tag, err := page.TagName(el)
	if err != nil || !labelLikeTags[tag] {
		return
	}
	text, err := page.Text(el)
	if err != nil {
		return
	}
	if text = strings.TrimSpace(text); text != "" && len(text) < x.MaxTextLength {
		hints.add(text)
	}
}

var addressClasses = []string{"address", "shipping", "billing"}

// addAddressContainer contributes "address field" and any section headings
// when the element sits inside an address block.
func (x *HintExtractor) addAddressContainer(page dom.Page, el *dom.Element, hints *hintList) {
	ancestors, err := page.Ancestors(el, x.MaxAncestors)
	if err != nil {
		return
	}

	var container *dom.Element
	for _, class := range addressClasses {
		for _, a := range ancestors {
			if tag, err := page.TagName(a); err != nil || tag != "div" {
				continue
			}
			if strings.Contains(lowerAttr(page, a, "class"), class) {
				container = a
				break
			}
		}
		if container != nil {
			break
		}
	}
	if container == nil {
		for _, a := range ancestors {
			if tag, err := page.TagName(a); err != nil || tag != "fieldset" {
				continue
			}
			legends, err := page.Find("legend", a)
			if err != nil {
				continue
			}
			for _, legend := range legends {
				if text, err := page.Text(legend); err == nil && strings.Contains(strings.ToLower(text), "address") {
					container = a
					break
				}
			}
			if container != nil {
				break
			}
		}
	}
	if container == nil {
		return
	}

	hints.add("address field")
	headers, err := page.Find("legend, h3, h4, label[class*='heading']", container)
	if err != nil {
		return
	}
	for _, h := range headers {
		if text, err := page.Text(h); err == nil {
			hints.add(text)
		}
	}
}
