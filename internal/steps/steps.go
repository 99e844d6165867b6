// Package steps implements the step range algebra used by animated slide
// elements. A spec such as "2,5-7,9-" names the presentation steps at which an
// element is visible.
package steps

import (
	"strconv"
	"strings"
)

// Attribute is the HTML attribute carrying a step spec.
const Attribute = "data-slide-steps"

// Range is a closed, inclusive interval of steps.
type Range struct {
	Start int
	End   int
}

// Spec is the reduced form of a step specification string.
type Spec struct {
	ranges        []Range
	visibleFrom   int
	hasFrom       bool
	lastKnownStep int
}

// Parse reduces a comma-separated step spec. It never fails: sub-ranges that
// don't parse contribute nothing.
//
// Accepted forms per sub-range: "N", "N-M", "-M" (1-M), "N-" (N onward) and
// "-" (1 onward).
//
// A reversed range such as "5-2" is dropped whole: it neither shows the
// element nor raises LastKnownStep.
func Parse(spec string) Spec {
	var s Spec
	for _, tok := range strings.Split(strings.TrimSpace(spec), ",") {
		s.add(strings.TrimSpace(tok))
	}
	return s
}

func (s *Spec) add(tok string) {
	if tok == "" {
		return
	}
	if tok == "-" {
		s.openFrom(1)
		return
	}

	first, last, found := strings.Cut(tok, "-")
	if !found {
		n, ok := parseStep(tok)
		if !ok {
			return
		}
		s.closed(n, n)
		return
	}

	switch {
	case first == "":
		end, ok := parseStep(last)
		if !ok {
			return
		}
		s.closed(1, end)
	case last == "":
		start, ok := parseStep(first)
		if !ok {
			return
		}
		s.openFrom(start)
	default:
		start, ok1 := parseStep(first)
		end, ok2 := parseStep(last)
		if !ok1 || !ok2 || start > end {
			return
		}
		s.closed(start, end)
	}
}

func (s *Spec) closed(start, end int) {
	if start <= end {
		s.ranges = append(s.ranges, Range{Start: start, End: end})
	}
	s.lastKnownStep = max(s.lastKnownStep, end)
}

func (s *Spec) openFrom(start int) {
	if !s.hasFrom || start < s.visibleFrom {
		s.visibleFrom = start
		s.hasFrom = true
	}
	s.lastKnownStep = max(s.lastKnownStep, start)
}

// parseStep accepts unsigned decimal numbers only; "+3" and "3.0" are rejected.
func parseStep(s string) (int, bool) {
	n, err := strconv.ParseUint(s, 10, 31)
	if err != nil {
		return 0, false
	}
	return int(n), true
}

// IsVisible reports whether an element with this spec is shown at step.
func (s Spec) IsVisible(step int) bool {
	if s.hasFrom && step >= s.visibleFrom {
		return true
	}
	for _, r := range s.ranges {
		if step >= r.Start && step <= r.End {
			return true
		}
	}
	return false
}

// LastKnownStep is the largest explicit boundary seen: the end of closed
// ranges and the start of open ones. It sizes the slide, it doesn't bound
// visibility.
func (s Spec) LastKnownStep() int {
	return s.lastKnownStep
}

// VisibleFrom returns the smallest open-ended start, if any.
func (s Spec) VisibleFrom() (int, bool) {
	return s.visibleFrom, s.hasFrom
}

// Ranges returns a copy of the closed ranges in spec order.
func (s Spec) Ranges() []Range {
	out := make([]Range, len(s.ranges))
	copy(out, s.ranges)
	return out
}
