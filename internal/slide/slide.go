// Package slide parses slide HTML fragments into immutable slides whose
// animated elements are tagged with step specs.
package slide

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgallion1/stepdeck/internal/steps"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Class names applied to animated elements when rendering a step.
const (
	ActiveClass   = "active-in-slide-step"
	InactiveClass = "inactive-in-slide-step"
)

// ErrEmpty is returned for fragments without any element.
var ErrEmpty = errors.New("slide has no elements")

// Slide is a parsed slide. The node tree is never handed out; renders work on
// copies.
type Slide struct {
	root     *html.Node
	elements map[*html.Node]steps.Spec
	numSteps int
	raw      string
}

// Parse parses an HTML fragment into a Slide.
func Parse(fragment string) (*Slide, error) {
	bodyCtx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(strings.TrimSpace(fragment)), bodyCtx)
	if err != nil {
		return nil, fmt.Errorf("parse slide html: %w", err)
	}

	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	hasElement := false
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			hasElement = true
		}
		root.AppendChild(n)
	}
	if !hasElement {
		return nil, ErrEmpty
	}

	s := &Slide{
		root:     root,
		elements: make(map[*html.Node]steps.Spec),
		raw:      fragment,
	}

	lastStep := 0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if v, ok := attr(n, steps.Attribute); ok {
				spec := steps.Parse(v)
				s.elements[n] = spec
				lastStep = max(lastStep, spec.LastKnownStep())
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	s.numSteps = max(1, lastStep)
	return s, nil
}

// NumSteps is the number of steps of the slide, at least 1.
func (s *Slide) NumSteps() int {
	return s.numSteps
}

// AnimatedCount returns how many elements carry a step spec.
func (s *Slide) AnimatedCount() int {
	return len(s.elements)
}

// Raw returns the fragment the slide was parsed from.
func (s *Slide) Raw() string {
	return s.raw
}

// Render returns the slide HTML for step, with every animated element marked
// active or inactive.
func (s *Slide) Render(step int) (string, error) {
	var buf strings.Builder
	for c := s.root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, s.annotatedCopy(c, step)); err != nil {
			return "", fmt.Errorf("render slide: %w", err)
		}
	}
	return buf.String(), nil
}

func (s *Slide) annotatedCopy(n *html.Node, step int) *html.Node {
	cp := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	if spec, ok := s.elements[n]; ok {
		extra := InactiveClass
		if spec.IsVisible(step) {
			extra = ActiveClass
		}
		setClass(cp, extra)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		cp.AppendChild(s.annotatedCopy(c, step))
	}
	return cp
}

// Lines returns the visible text of the slide at step, one block per line.
// Animated elements hidden at step are skipped with their subtree.
func (s *Slide) Lines(step int) []string {
	return Lines(s.root, func(n *html.Node) bool {
		spec, ok := s.elements[n]
		return ok && !spec.IsVisible(step)
	})
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setClass(n *html.Node, extra string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == "class" {
			v := strings.TrimSpace(a.Val)
			if v != "" {
				v += " "
			}
			n.Attr[i].Val = v + extra
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: extra})
}
