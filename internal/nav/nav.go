// Package nav tracks the presentation position as a (slide, step) pair.
package nav

import (
	"fmt"
	"math"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// SentinelLast stands for "the last step of this slide" while the slide's
// step count is still unknown.
const SentinelLast = math.MaxInt

// DefaultStepCacheSize bounds how many slide step counts are remembered.
const DefaultStepCacheSize = 50

// Position is a 1-based slide and step.
type Position struct {
	Slide int
	Step  int
}

// Unresolved reports whether Step is still SentinelLast.
func (p Position) Unresolved() bool {
	return p.Step == SentinelLast
}

func (p Position) String() string {
	if p.Unresolved() {
		return fmt.Sprintf("%d:last", p.Slide)
	}
	return fmt.Sprintf("%d:%d", p.Slide, p.Step)
}

// Navigator owns the current position and the known step counts. It is not
// safe for concurrent use.
type Navigator struct {
	pos        Position
	stepCounts *simplelru.LRU[int, int]
}

// New returns a Navigator at (1, 1) remembering up to stepCacheSize step counts.
func New(stepCacheSize int) *Navigator {
	if stepCacheSize <= 0 {
		stepCacheSize = DefaultStepCacheSize
	}
	counts, _ := simplelru.NewLRU[int, int](stepCacheSize, nil)
	return &Navigator{
		pos:        Position{Slide: 1, Step: 1},
		stepCounts: counts,
	}
}

// Position returns the current position.
func (n *Navigator) Position() Position {
	return n.pos
}

// StepCount returns the known step count of slide.
func (n *Navigator) StepCount(slide int) (int, bool) {
	return n.stepCounts.Peek(slide)
}

// FirstSlide moves to (1, 1).
func (n *Navigator) FirstSlide() {
	n.pos = Position{Slide: 1, Step: 1}
}

// PreviousSlide moves to step 1 of the previous slide, staying on slide 1.
func (n *Navigator) PreviousSlide() {
	n.pos = Position{Slide: max(1, n.pos.Slide-1), Step: 1}
}

// NextSlide moves to step 1 of the next slide.
func (n *Navigator) NextSlide() {
	n.pos = Position{Slide: n.pos.Slide + 1, Step: 1}
}

// PreviousStep moves back one step, landing on the last step of the previous
// slide when already at step 1. An unresolved last step stays put until the
// slide's count is known.
func (n *Navigator) PreviousStep() {
	switch {
	case n.pos.Step == SentinelLast:
	case n.pos.Step > 1:
		n.pos.Step--
	case n.pos.Slide > 1:
		n.pos.Slide--
		if count, ok := n.stepCounts.Peek(n.pos.Slide); ok {
			n.pos.Step = count
		} else {
			n.pos.Step = SentinelLast
		}
	}
}

// NextStep advances one step, moving to the next slide after the last step.
// Without a known step count the slide is treated as endless.
func (n *Navigator) NextStep() {
	last := SentinelLast
	if count, ok := n.stepCounts.Peek(n.pos.Slide); ok {
		last = count
	}
	if n.pos.Step < last {
		n.pos.Step++
		return
	}
	n.pos = Position{Slide: n.pos.Slide + 1, Step: 1}
}

// SlideLoaded records the step count of slide and resolves a pending
// SentinelLast on it.
func (n *Navigator) SlideLoaded(slide, numSteps int) {
	numSteps = max(1, numSteps)
	n.stepCounts.Add(slide, numSteps)
	if slide == n.pos.Slide && n.pos.Step == SentinelLast {
		n.pos.Step = numSteps
	}
}

// GoTo sets the position unconditionally. Values below 1 are raised to 1.
// A SentinelLast step resolves at once if the slide's count is known.
func (n *Navigator) GoTo(slide, step int) {
	n.pos = Position{Slide: max(1, slide), Step: max(1, step)}
	if n.pos.Step == SentinelLast {
		if count, ok := n.stepCounts.Peek(n.pos.Slide); ok {
			n.pos.Step = count
		}
	}
}
