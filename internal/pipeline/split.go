package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/stepdeck/internal/notes"
	"github.com/dgallion1/stepdeck/internal/steps"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Slides holds the HTML of each slide; index 0 is slide 1.
type Slides []string

const emptySlide = "<div></div>"

// SplitSlides cuts an annotated notes document into slides. Every top-level
// element of the notes container tagged slide-N is appended to slide N, and
// elements tagged slide-step-M are shown from step M onwards unless they
// already carry their own step spec.
func SplitSlides(notesHTML string) (Slides, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(notesHTML), body)
	if err != nil {
		return nil, fmt.Errorf("parse notes: %w", err)
	}

	var container *html.Node
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			container = n
			break
		}
	}
	if container == nil {
		return Slides{}, nil
	}

	parts := make(map[int]*strings.Builder)
	count := 0
	for c := container.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		n, ok := notes.SlideOf(c)
		if !ok || n < 1 {
			continue
		}
		markSteps(c)
		b, ok := parts[n]
		if !ok {
			b = &strings.Builder{}
			parts[n] = b
		}
		if err := html.Render(b, c); err != nil {
			return nil, fmt.Errorf("render slide %d: %w", n, err)
		}
		count = max(count, n)
	}

	slides := make(Slides, count)
	for i := range slides {
		if b, ok := parts[i+1]; ok {
			slides[i] = "<div>" + b.String() + "</div>"
		} else {
			slides[i] = emptySlide
		}
	}
	return slides, nil
}

func markSteps(n *html.Node) {
	if n.Type == html.ElementNode {
		if step, ok := notes.StepOf(n); ok && !hasAttr(n, steps.Attribute) {
			n.Attr = append(n.Attr, html.Attribute{Key: steps.Attribute, Val: strconv.Itoa(step) + "-"})
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		markSteps(c)
	}
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

// WithOverrides replaces slides with hand-written files named <N>.html from
// dir, growing the deck when N is past its end. A missing dir is not an
// error.
func (s Slides) WithOverrides(dir string) (Slides, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read slides directory: %w", err)
	}

	out := append(Slides{}, s...)
	for _, e := range entries {
		n, ok := slideNumber(e.Name())
		if !ok || e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read slide %d: %w", n, err)
		}
		for len(out) < n {
			out = append(out, emptySlide)
		}
		out[n-1] = string(data)
	}
	return out, nil
}

// Write stores slide N as dir/N.html and removes numbered slides left over
// from a longer deck.
func (s Slides) Write(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create slides directory: %w", err)
	}
	for i, body := range s {
		if err := writeFileAtomic(filepath.Join(dir, strconv.Itoa(i+1)+".html"), []byte(body)); err != nil {
			return fmt.Errorf("write slide %d: %w", i+1, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read slides directory: %w", err)
	}
	for _, e := range entries {
		if n, ok := slideNumber(e.Name()); ok && n > len(s) {
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
				return fmt.Errorf("remove stale slide %d: %w", n, err)
			}
		}
	}
	return nil
}

func slideNumber(name string) (int, bool) {
	stem, ok := strings.CutSuffix(name, ".html")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(stem)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// writeFileAtomic replaces path so readers never see a partial slide.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
