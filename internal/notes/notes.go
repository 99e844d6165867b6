// Package notes turns a markdown speaker-notes document into the annotated
// HTML and stylesheet that the deck is built from.
//
// Every h2 or h3 starts a new slide and every list item starts a new step
// within it. Elements are tagged with slide-N and slide-step-M classes so the
// split stage and the notes view can tell which slide they belong to.
package notes

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	// SlideClassPrefix marks the slide an element belongs to.
	SlideClassPrefix = "slide-"
	// StepClassPrefix marks the step an element belongs to.
	StepClassPrefix = "slide-step-"
)

// Notes holds a notes document through the build.
type Notes struct {
	html   string
	css    string
	slides int
}

// FromMarkdown renders src to HTML inside a single container div. Raw HTML in
// the source is kept so authors can add data-slide-steps by hand.
func FromMarkdown(src []byte) (*Notes, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)
	var buf bytes.Buffer
	buf.WriteString("<div>")
	if err := md.Convert(src, &buf); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	buf.WriteString("</div>")
	return &Notes{html: buf.String()}, nil
}

// AnimateSteps tags every element with its slide and step and generates the
// stylesheet that shows only the current slide's notes.
func (n *Notes) AnimateSteps() error {
	nodes, err := parseFragment(n.html)
	if err != nil {
		return fmt.Errorf("animate steps: %w", err)
	}

	var slide, step int
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode {
			switch node.DataAtom {
			case atom.H2, atom.H3:
				slide++
				step = 0
			case atom.Li:
				step++
			}
			if slide > 0 {
				classes := SlideClassPrefix + strconv.Itoa(slide)
				if step > 0 {
					classes += " " + StepClassPrefix + strconv.Itoa(step)
				}
				addClass(node, classes)
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	var out strings.Builder
	for _, node := range nodes {
		walk(node)
		if err := html.Render(&out, node); err != nil {
			return fmt.Errorf("animate steps: %w", err)
		}
	}

	n.html = out.String()
	n.slides = slide
	n.css = Stylesheet(slide)
	return nil
}

// HTML returns the notes document.
func (n *Notes) HTML() string { return n.html }

// CSS returns the stylesheet produced by AnimateSteps.
func (n *Notes) CSS() string { return n.css }

// SlideCount is the number of headings seen by AnimateSteps.
func (n *Notes) SlideCount() int { return n.slides }

// Stylesheet hides the notes of every slide except the current one, where the
// current slide is selected by a current-slide-N class on an enclosing div.
func Stylesheet(slides int) string {
	var b strings.Builder
	for i := 1; i <= slides; i++ {
		for j := 1; j <= slides; j++ {
			if i != j {
				fmt.Fprintf(&b, "div.current-slide-%d .slide-%d { display: none; }\n", i, j)
			}
		}
	}
	return b.String()
}

// SlideOf returns the slide an element was tagged with by AnimateSteps.
func SlideOf(n *html.Node) (int, bool) {
	return classNumber(n, SlideClassPrefix, StepClassPrefix)
}

// StepOf returns the step an element was tagged with by AnimateSteps.
func StepOf(n *html.Node) (int, bool) {
	return classNumber(n, StepClassPrefix, "")
}

func classNumber(n *html.Node, prefix, exclude string) (int, bool) {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if !strings.HasPrefix(c, prefix) || (exclude != "" && strings.HasPrefix(c, exclude)) {
				continue
			}
			if v, err := strconv.Atoi(c[len(prefix):]); err == nil {
				return v, true
			}
		}
	}
	return 0, false
}

func addClass(n *html.Node, classes string) {
	for i, a := range n.Attr {
		if a.Key == "class" {
			n.Attr[i].Val = a.Val + " " + classes
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: classes})
}

func parseFragment(s string) ([]*html.Node, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	return html.ParseFragment(strings.NewReader(s), body)
}
