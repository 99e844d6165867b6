package notes

import (
	"fmt"

	"github.com/dgallion1/stepdeck/internal/slide"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a built notes document loaded for display.
type Document struct {
	root *html.Node
}

// Parse loads the HTML produced by AnimateSteps.
func Parse(doc string) (*Document, error) {
	nodes, err := parseFragment(doc)
	if err != nil {
		return nil, fmt.Errorf("parse notes: %w", err)
	}
	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return &Document{root: root}, nil
}

// Lines returns the text of the notes shown while current is on screen.
// Untagged content before the first heading is always shown, matching the
// stylesheet.
func (d *Document) Lines(current int) []string {
	return slide.Lines(d.root, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		s, ok := SlideOf(n)
		return ok && s != current
	})
}
