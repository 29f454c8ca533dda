// internal/dom/document.go
package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// VisibleAttr is set by AnnotateScript on every interactive element of a
// live page so that a static snapshot still knows what the browser rendered.
const VisibleAttr = "data-fs-visible"

var booleanAttrs = map[string]bool{
	"required": true,
	"disabled": true,
	"checked":  true,
	"readonly": true,
	"multiple": true,
	"hidden":   true,
	"selected": true,
}

// Document implements Page over a parsed HTML snapshot
type Document struct {
	doc *goquery.Document

	mu        sync.Mutex
	elements  map[*html.Node]*Element
	selectors map[string]cascadia.Selector
}

// Parse builds a Document from an HTML stream
func Parse(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return NewDocument(doc), nil
}

// ParseString builds a Document from an HTML string
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// NewDocument wraps an existing goquery document
func NewDocument(doc *goquery.Document) *Document {
	return &Document{
		doc:       doc,
		elements:  make(map[*html.Node]*Element),
		selectors: make(map[string]cascadia.Selector),
	}
}

func (d *Document) wrap(n *html.Node) *Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	if el, ok := d.elements[n]; ok {
		return el
	}
	el := &Element{node: n}
	d.elements[n] = el
	return el
}

func (d *Document) wrapAll(nodes []*html.Node) []*Element {
	out := make([]*Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, d.wrap(n))
	}
	return out
}

func (d *Document) node(el *Element) (*html.Node, error) {
	if el == nil || el.node == nil {
		return nil, ErrNoElement
	}
	d.mu.Lock()
	owned := d.elements[el.node] == el
	d.mu.Unlock()
	if !owned {
		return nil, ErrNoElement
	}
	return el.node, nil
}

func (d *Document) compile(selector string) (cascadia.Selector, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if sel, ok := d.selectors[selector]; ok {
		return sel, nil
	}
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	d.selectors[selector] = sel
	return sel, nil
}

// Find implements Page
func (d *Document) Find(selector string, scope *Element) ([]*Element, error) {
	sel, err := d.compile(selector)
	if err != nil {
		return nil, err
	}
	root := d.doc.Selection
	if scope != nil {
		n, err := d.node(scope)
		if err != nil {
			return nil, err
		}
		root = d.doc.FindNodes(n)
	}
	return d.wrapAll(root.FindMatcher(sel).Nodes), nil
}

// Attribute implements Page. Boolean attributes that are present report "true".
func (d *Document) Attribute(el *Element, name string) (string, error) {
	n, err := d.node(el)
	if err != nil {
		return "", err
	}
	name = strings.ToLower(name)
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			if a.Val == "" && booleanAttrs[name] {
				return "true", nil
			}
			return a.Val, nil
		}
	}
	return "", nil
}

// TagName implements Page
func (d *Document) TagName(el *Element) (string, error) {
	n, err := d.node(el)
	if err != nil {
		return "", err
	}
	return strings.ToLower(n.Data), nil
}

// Text implements Page
func (d *Document) Text(el *Element) (string, error) {
	n, err := d.node(el)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(d.doc.FindNodes(n).Text()), nil
}

// OwnText implements Page
func (d *Document) OwnText(el *Element) (string, error) {
	n, err := d.node(el)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return strings.TrimSpace(b.String()), nil
}

// IsVisible implements Page
func (d *Document) IsVisible(el *Element) (bool, error) {
	n, err := d.node(el)
	if err != nil {
		return false, err
	}
	return visible(n), nil
}

// Parent implements Page
func (d *Document) Parent(el *Element) (*Element, error) {
	n, err := d.node(el)
	if err != nil {
		return nil, err
	}
	if n.Parent == nil || n.Parent.Type != html.ElementNode {
		return nil, nil
	}
	return d.wrap(n.Parent), nil
}

// PrecedingSiblings implements Page
func (d *Document) PrecedingSiblings(el *Element, limit int) ([]*Element, error) {
	n, err := d.node(el)
	if err != nil {
		return nil, err
	}
	var nodes []*html.Node
	for s := n.PrevSibling; s != nil && len(nodes) < limit; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			nodes = append(nodes, s)
		}
	}
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}
	return d.wrapAll(nodes), nil
}

// FollowingSiblings implements Page
func (d *Document) FollowingSiblings(el *Element, limit int) ([]*Element, error) {
	n, err := d.node(el)
	if err != nil {
		return nil, err
	}
	var nodes []*html.Node
	for s := n.NextSibling; s != nil && len(nodes) < limit; s = s.NextSibling {
		if s.Type == html.ElementNode {
			nodes = append(nodes, s)
		}
	}
	return d.wrapAll(nodes), nil
}

// Ancestors implements Page
func (d *Document) Ancestors(el *Element, limit int) ([]*Element, error) {
	n, err := d.node(el)
	if err != nil {
		return nil, err
	}
	var nodes []*html.Node
	for p := n.Parent; p != nil && p.Type == html.ElementNode && len(nodes) < limit; p = p.Parent {
		nodes = append(nodes, p)
	}
	return d.wrapAll(nodes), nil
}

// XPath implements Page
func (d *Document) XPath(el *Element) (string, error) {
	n, err := d.node(el)
	if err != nil {
		return "", err
	}
	return xpathOf(n), nil
}

// Source implements Page
func (d *Document) Source() (string, error) {
	var buf bytes.Buffer
	for _, n := range d.doc.Nodes {
		if err := html.Render(&buf, n); err != nil {
			return "", fmt.Errorf("failed to render page source: %w", err)
		}
	}
	return buf.String(), nil
}

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}
