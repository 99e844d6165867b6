package slide

import (
	"strings"

	"golang.org/x/net/html"
)

// Lines flattens the text under root into display lines. Block elements
// start a new line, list items get a bullet. Nodes for which hide returns
// true are skipped along with their children.
func Lines(root *html.Node, hide func(*html.Node) bool) []string {
	var (
		lines []string
		cur   strings.Builder
	)
	flush := func() {
		t := strings.Join(strings.Fields(cur.String()), " ")
		if t != "" {
			lines = append(lines, t)
		}
		cur.Reset()
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if hide != nil && hide(n) {
			return
		}
		switch n.Type {
		case html.TextNode:
			cur.WriteString(n.Data)
			cur.WriteByte(' ')
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "template":
				return
			case "br":
				flush()
				return
			}
		}

		block := n.Type == html.ElementNode && isBlock(n.Data)
		if block {
			flush()
			if n.Data == "li" {
				cur.WriteString("• ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			flush()
		}
	}
	walk(root)
	flush()

	// A bullet with nothing after it comes from an item whose content was hidden.
	out := lines[:0]
	for _, l := range lines {
		if l != "•" {
			out = append(out, l)
		}
	}
	return out
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "section", "article", "header", "footer", "aside",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"ul", "ol", "li", "dl", "dt", "dd",
		"pre", "blockquote", "table", "tr", "figure", "figcaption", "hr":
		return true
	}
	return false
}
