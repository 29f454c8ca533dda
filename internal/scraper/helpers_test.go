// internal/scraper/helpers_test.go
package scraper

import (
	"errors"
	"testing"

	"github.com/valpere/FormScrapexter/internal/dom"
)

var errStale = errors.New("stale element reference")

func mustPage(t *testing.T, html string) *dom.Document {
	t.Helper()
	doc, err := dom.ParseString(html)
	if err != nil {
		t.Fatalf("Failed to parse fixture: %v", err)
	}
	return doc
}

func findOne(t *testing.T, page dom.Page, selector string) *dom.Element {
	t.Helper()
	els, err := page.Find(selector, nil)
	if err != nil {
		t.Fatalf("Find(%s) failed: %v", selector, err)
	}
	if len(els) == 0 {
		t.Fatalf("Find(%s) matched nothing", selector)
	}
	return els[0]
}

// faultPage wraps a page and fails selected collaborator calls
type faultPage struct {
	dom.Page
	failAttrs   map[string]bool
	failXPathID string
	failAllAttr bool
}

func (p *faultPage) Attribute(el *dom.Element, name string) (string, error) {
	if p.failAllAttr || p.failAttrs[name] {
		return "", errStale
	}
	return p.Page.Attribute(el, name)
}

func (p *faultPage) XPath(el *dom.Element) (string, error) {
	if p.failXPathID != "" {
		if id, _ := p.Page.Attribute(el, "id"); id == p.failXPathID {
			return "", errStale
		}
	}
	return p.Page.XPath(el)
}

// invisiblePage fails every visibility check
type invisiblePage struct {
	faultPage
}

func (p *invisiblePage) IsVisible(el *dom.Element) (bool, error) {
	return false, errStale
}

// panickyPage panics when one attribute of the element with panicID is read
type panickyPage struct {
	dom.Page
	panicID   string
	panicAttr string
}

func (p *panickyPage) Attribute(el *dom.Element, name string) (string, error) {
	if name == p.panicAttr {
		if id, _ := p.Page.Attribute(el, "id"); id == p.panicID {
			panic(errStale)
		}
	}
	return p.Page.Attribute(el, name)
}
