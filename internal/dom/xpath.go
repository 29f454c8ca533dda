// internal/dom/xpath.go
package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// xpathOf prefers an id locator, then a name locator for form controls,
// then a positional path from the document root.
func xpathOf(n *html.Node) string {
	if id, ok := attr(n, "id"); ok && id != "" {
		return fmt.Sprintf("//*[@id=%s]", quote(id))
	}
	switch n.Data {
	case "input", "select", "textarea":
		if name, ok := attr(n, "name"); ok && name != "" {
			return fmt.Sprintf("//%s[@name=%s]", n.Data, quote(name))
		}
	}

	var steps []string
	for cur := n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		index := 1
		for s := cur.PrevSibling; s != nil; s = s.PrevSibling {
			if s.Type == html.ElementNode && s.Data == cur.Data {
				index++
			}
		}
		steps = append(steps, fmt.Sprintf("%s[%d]", cur.Data, index))
	}
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	return "/" + strings.Join(steps, "/")
}

func quote(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	return "concat('" + strings.Join(parts, `', "'", '`) + "')"
}
