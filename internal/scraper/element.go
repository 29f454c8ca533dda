// internal/scraper/element.go
package scraper

import (
	"strings"

	"github.com/valpere/FormScrapexter/internal/dom"
)

// ElementType returns the lower-cased type of an element the way a browser
// reports it: the type attribute when set, "text" for inputs, "submit" for
// buttons, else the tag name.
func ElementType(page dom.Page, el *dom.Element) (string, error) {
	t, err := page.Attribute(el, "type")
	if err != nil {
		return "", err
	}
	if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
		return t, nil
	}
	tag, err := page.TagName(el)
	if err != nil {
		return "", err
	}
	switch tag {
	case "input":
		return "text", nil
	case "button":
		return "submit", nil
	}
	return tag, nil
}

// IsRequired reports the required attribute, aria-required, or a class
// containing "required". Lookup failures count as not required.
func IsRequired(page dom.Page, el *dom.Element) bool {
	if v, err := page.Attribute(el, "required"); err == nil && strings.EqualFold(v, "true") {
		return true
	}
	if v, err := page.Attribute(el, "aria-required"); err == nil && strings.EqualFold(v, "true") {
		return true
	}
	if v, err := page.Attribute(el, "class"); err == nil && strings.Contains(v, "required") {
		return true
	}
	return false
}

func visible(page dom.Page, el *dom.Element) bool {
	ok, err := page.IsVisible(el)
	return err == nil && ok
}

func lowerAttr(page dom.Page, el *dom.Element, name string) string {
	v, err := page.Attribute(el, name)
	if err != nil {
		return ""
	}
	return strings.ToLower(v)
}

func isTextual(elementType string) bool {
	return elementType == "text"
}
