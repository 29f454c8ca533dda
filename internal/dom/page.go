// internal/dom/page.go
package dom

import (
	"errors"

	"golang.org/x/net/html"
)

// ErrNoElement is returned when an operation receives a nil or foreign element handle
var ErrNoElement = errors.New("element handle is not valid for this page")

// Element is an opaque handle into a page snapshot. Two handles refer to
// the same DOM node only if they are the same pointer.
type Element struct {
	node *html.Node
}

// Page is the DOM collaborator consumed by the field extraction core.
// Every query may fail independently; callers decide the fallback.
type Page interface {
	// Find returns elements matching a CSS selector in document order.
	// A nil scope searches the whole document.
	Find(selector string, scope *Element) ([]*Element, error)
	Attribute(el *Element, name string) (string, error)
	TagName(el *Element) (string, error)
	Text(el *Element) (string, error)
	OwnText(el *Element) (string, error)
	IsVisible(el *Element) (bool, error)
	// Parent returns nil without error for the document root.
	Parent(el *Element) (*Element, error)
	// PrecedingSiblings returns up to limit element siblings before el, nearest last.
	PrecedingSiblings(el *Element, limit int) ([]*Element, error)
	// FollowingSiblings returns up to limit element siblings after el, nearest first.
	FollowingSiblings(el *Element, limit int) ([]*Element, error)
	// Ancestors returns up to limit ancestors of el, nearest first.
	Ancestors(el *Element, limit int) ([]*Element, error)
	XPath(el *Element) (string, error)
	Source() (string, error)
}
