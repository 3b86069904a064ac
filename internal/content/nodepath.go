package content

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// nodePath renders a selection's first node as a tag:nth-child selector
// chain rooted at the document element, e.g.
// "html > body > ul:nth-child(1) > li:nth-child(2)". The page resolves the
// path with querySelector, so it stays valid as long as the element's
// position does; a stale path simply misses, which callers treat as a no-op.
func nodePath(sel *goquery.Selection) string {
	if len(sel.Nodes) == 0 {
		return ""
	}
	var segments []string
	for node := sel.Nodes[0]; node != nil && node.Type == html.ElementNode; node = node.Parent {
		if node.Parent == nil || node.Parent.Type != html.ElementNode {
			segments = append(segments, node.Data)
			break
		}
		position := 1
		for sibling := node.PrevSibling; sibling != nil; sibling = sibling.PrevSibling {
			if sibling.Type == html.ElementNode {
				position++
			}
		}
		segments = append(segments, fmt.Sprintf("%s:nth-child(%d)", node.Data, position))
	}
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return strings.Join(segments, " > ")
}
