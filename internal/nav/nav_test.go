package nav

import (
	"testing"

	"pgregory.net/rapid"
)

func TestFirstSlide_FromAnywhere(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := New(10)
		n.GoTo(rapid.IntRange(-5, 500).Draw(t, "slide"), rapid.IntRange(-5, 500).Draw(t, "step"))
		n.FirstSlide()
		if got := n.Position(); got != (Position{1, 1}) {
			t.Fatalf("expected (1,1), got %v", got)
		}
	})
}

func TestPreviousSlide_StaysOnFirst(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := New(10)
		n.GoTo(1, rapid.IntRange(1, 100).Draw(t, "step"))
		n.PreviousSlide()
		if got := n.Position(); got != (Position{1, 1}) {
			t.Fatalf("expected (1,1), got %v", got)
		}
	})
}

func TestTransitions(t *testing.T) {
	tests := []struct {
		name   string
		start  Position
		counts map[int]int
		op     func(*Navigator)
		want   Position
	}{
		{"next slide", Position{2, 3}, nil, (*Navigator).NextSlide, Position{3, 1}},
		{"previous slide", Position{4, 2}, nil, (*Navigator).PreviousSlide, Position{3, 1}},
		{"previous step within slide", Position{4, 3}, nil, (*Navigator).PreviousStep, Position{4, 2}},
		{"previous step at first position", Position{1, 1}, nil, (*Navigator).PreviousStep, Position{1, 1}},
		{"previous step into known slide", Position{5, 1}, map[int]int{4: 7}, (*Navigator).PreviousStep, Position{4, 7}},
		{"previous step into unknown slide", Position{5, 1}, nil, (*Navigator).PreviousStep, Position{4, SentinelLast}},
		{"previous step while unresolved", Position{4, SentinelLast}, nil, (*Navigator).PreviousStep, Position{4, SentinelLast}},
		{"next step within known slide", Position{2, 1}, map[int]int{2: 3}, (*Navigator).NextStep, Position{2, 2}},
		{"next step past known last", Position{2, 3}, map[int]int{2: 3}, (*Navigator).NextStep, Position{3, 1}},
		{"next step on unknown slide", Position{2, 40}, nil, (*Navigator).NextStep, Position{2, 41}},
		{"next step from unresolved last", Position{2, SentinelLast}, nil, (*Navigator).NextStep, Position{3, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := New(10)
			for slide, count := range tt.counts {
				n.SlideLoaded(slide, count)
			}
			n.pos = tt.start
			tt.op(n)
			if got := n.Position(); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSentinelResolution(t *testing.T) {
	n := New(10)
	n.GoTo(5, 1)
	n.PreviousStep()
	if got := n.Position(); got != (Position{4, SentinelLast}) {
		t.Fatalf("expected (4, last), got %v", got)
	}

	// Loads of other slides must not resolve it.
	n.SlideLoaded(5, 2)
	if !n.Position().Unresolved() {
		t.Fatalf("expected position to stay unresolved, got %v", n.Position())
	}

	n.SlideLoaded(4, 7)
	if got := n.Position(); got != (Position{4, 7}) {
		t.Errorf("expected (4,7), got %v", got)
	}
}

func TestSlideLoaded_ClampsStepCount(t *testing.T) {
	n := New(10)
	n.GoTo(3, SentinelLast)
	n.SlideLoaded(3, 0)
	if got := n.Position(); got != (Position{3, 1}) {
		t.Errorf("expected (3,1), got %v", got)
	}
	if c, _ := n.StepCount(3); c != 1 {
		t.Errorf("expected clamped count 1, got %d", c)
	}
}

func TestGoTo(t *testing.T) {
	n := New(10)
	n.GoTo(3, 2)
	if got := n.Position(); got != (Position{3, 2}) {
		t.Errorf("expected (3,2), got %v", got)
	}

	n.GoTo(0, 0)
	if got := n.Position(); got != (Position{1, 1}) {
		t.Errorf("expected values below 1 to clamp, got %v", got)
	}

	n.SlideLoaded(6, 4)
	n.GoTo(6, SentinelLast)
	if got := n.Position(); got != (Position{6, 4}) {
		t.Errorf("expected known last step to resolve, got %v", got)
	}
}

func TestStepCounts_Bounded(t *testing.T) {
	n := New(2)
	n.SlideLoaded(1, 3)
	n.SlideLoaded(2, 3)
	n.SlideLoaded(3, 3)
	if _, ok := n.StepCount(1); ok {
		t.Error("expected oldest step count to be evicted")
	}
}
