// internal/dom/visibility.go
package dom

import (
	"strings"

	"golang.org/x/net/html"
)

var invisibleTags = map[string]bool{
	"head":     true,
	"script":   true,
	"style":    true,
	"template": true,
	"noscript": true,
}

// visible prefers the browser's verdict recorded by AnnotateScript and
// falls back to markup heuristics for snapshots that were never rendered.
func visible(n *html.Node) bool {
	if v, ok := attr(n, VisibleAttr); ok {
		return v == "true"
	}
	if n.Data == "input" {
		if t, _ := attr(n, "type"); strings.EqualFold(strings.TrimSpace(t), "hidden") {
			return false
		}
	}
	for p := n; p != nil && p.Type == html.ElementNode; p = p.Parent {
		if invisibleTags[p.Data] {
			return false
		}
		if _, ok := attr(p, "hidden"); ok {
			return false
		}
		if hiddenStyle(p) {
			return false
		}
	}
	return true
}

func hiddenStyle(n *html.Node) bool {
	style, ok := attr(n, "style")
	if !ok {
		return false
	}
	style = strings.ToLower(strings.ReplaceAll(style, " ", ""))
	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}
