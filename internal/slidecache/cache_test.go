package slidecache

import (
	"errors"
	"fmt"
	"testing"
)

const okBody = `<div><p data-slide-steps="1-3">hello</p></div>`

func complete(t *testing.T, c *Cache, tk Ticket, body string, err error) {
	t.Helper()
	if !c.Complete(Result{Ticket: tk, Body: body, Err: err}) {
		t.Fatalf("expected result for slide %d (gen %d) to be accepted", tk.Index, tk.Generation)
	}
}

func TestRequest_Idempotent(t *testing.T) {
	c := New(10)

	tk, ok := c.Request(1)
	if !ok {
		t.Fatal("expected first request to issue a fetch")
	}
	if _, ok := c.Request(1); ok {
		t.Error("expected no new fetch while loading")
	}

	complete(t, c, tk, okBody, nil)
	if _, ok := c.Request(1); ok {
		t.Error("expected no new fetch for a ready entry")
	}

	e, _ := c.Peek(1)
	if e.State != Ready || e.Slide.NumSteps() != 3 {
		t.Errorf("expected ready entry with 3 steps, got %v", e.State)
	}
}

func TestRequest_ErrorIsRetryable(t *testing.T) {
	c := New(10)
	tk, _ := c.Request(2)
	complete(t, c, tk, "", errors.New("status 500"))

	e, _ := c.Peek(2)
	if e.State != Error {
		t.Fatalf("expected error entry, got %v", e.State)
	}
	if e.Description != "Failed to download slide" || e.Cause != "status 500" {
		t.Errorf("unexpected error details: %q / %q", e.Description, e.Cause)
	}

	if _, ok := c.Request(2); !ok {
		t.Error("expected error entry to be re-fetched")
	}
}

func TestRequest_RejectsNonPositiveIndex(t *testing.T) {
	c := New(10)
	for _, idx := range []int{0, -3} {
		if _, ok := c.Request(idx); ok {
			t.Errorf("expected no fetch for index %d", idx)
		}
	}
}

func TestComplete_ParseFailureKeepsContents(t *testing.T) {
	c := New(10)
	tk, _ := c.Request(1)
	complete(t, c, tk, "plain text only", nil)

	e, _ := c.Peek(1)
	if e.State != Error {
		t.Fatalf("expected error entry, got %v", e.State)
	}
	if e.Description != "Slide is not valid HTML" {
		t.Errorf("unexpected description %q", e.Description)
	}
	if e.Contents != "plain text only" {
		t.Errorf("expected raw contents to be kept, got %q", e.Contents)
	}
}

func TestComplete_StaleGenerationIgnored(t *testing.T) {
	c := New(10)
	first, _ := c.Request(3)
	complete(t, c, first, "", errors.New("timeout"))

	second, ok := c.Request(3)
	if !ok {
		t.Fatal("expected retry fetch")
	}
	if c.Complete(Result{Ticket: first, Body: okBody}) {
		t.Error("expected stale result to be rejected")
	}
	if e, _ := c.Peek(3); e.State != Loading {
		t.Errorf("expected entry to stay loading, got %v", e.State)
	}
	complete(t, c, second, okBody, nil)
}

func TestComplete_EvictedWhileLoading(t *testing.T) {
	c := New(1, WithPrefetch(0, 0))
	tk, _ := c.Request(1)
	c.Request(2)
	if c.Complete(Result{Ticket: tk, Body: okBody}) {
		t.Error("expected result for evicted entry to be dropped")
	}
}

func TestEviction_LeastRecentlyUsed(t *testing.T) {
	c := New(3)
	tickets := map[int]Ticket{}
	for i := 1; i <= 3; i++ {
		tk, _ := c.Request(i)
		tickets[i] = tk
		complete(t, c, tk, okBody, nil)
	}

	c.Get(1)
	c.Request(4)

	if _, ok := c.Peek(2); ok {
		t.Error("expected slide 2 to be evicted")
	}
	for _, idx := range []int{1, 3, 4} {
		if _, ok := c.Peek(idx); !ok {
			t.Errorf("expected slide %d to be cached", idx)
		}
	}
}

func TestEviction_RefetchExactlyOnce(t *testing.T) {
	c := New(2)
	tk, _ := c.Request(1)
	complete(t, c, tk, okBody, nil)
	c.Request(2)
	c.Request(3)

	fetches := 0
	for n := 0; n < 3; n++ {
		if _, ok := c.Request(1); ok {
			fetches++
		}
	}
	if fetches != 1 {
		t.Errorf("expected exactly one refetch of evicted slide, got %d", fetches)
	}
}

func TestShow_PrefetchWindow(t *testing.T) {
	c := New(10)
	got := fmt.Sprint(indexes(c.Show(5)))
	if got != "[5 4 6 7]" {
		t.Errorf("expected tickets [5 4 6 7], got %s", got)
	}

	got = fmt.Sprint(indexes(c.Show(6)))
	if got != "[8]" {
		t.Errorf("expected only slide 8 to be fetched, got %s", got)
	}

	c2 := New(10)
	got = fmt.Sprint(indexes(c2.Show(1)))
	if got != "[1 2 3]" {
		t.Errorf("expected tickets [1 2 3], got %s", got)
	}
}

func TestShow_FailedNeighboursNotRefetched(t *testing.T) {
	c := New(10, WithPrefetch(0, 2))
	for _, tk := range c.Show(4) {
		var err error
		body := okBody
		if tk.Index > 4 {
			body, err = "", errors.New("status 404")
		}
		complete(t, c, tk, body, err)
	}

	// Moving within the deck does not retry the missing slides behind the end.
	c.Show(3)
	if got := fmt.Sprint(indexes(c.Show(4))); got != "[]" {
		t.Errorf("expected no fetches, got %s", got)
	}

	// Showing a failed slide retries it; failed slide 6 in its window is left alone.
	if got := fmt.Sprint(indexes(c.Show(5))); got != "[5 7]" {
		t.Errorf("expected tickets [5 7], got %s", got)
	}
}

func TestShow_CurrentIsMostRecent(t *testing.T) {
	c := New(4)
	c.Show(5)
	keys := c.Indexes()
	if keys[len(keys)-1] != 5 {
		t.Errorf("expected shown slide to be most recent, got order %v", keys)
	}
}

func TestOnLoaded_Notifications(t *testing.T) {
	type loaded struct{ index, steps int }
	var calls []loaded
	c := New(10, WithPrefetch(0, 0), WithOnLoaded(func(index, numSteps int) {
		calls = append(calls, loaded{index, numSteps})
	}))

	tickets := c.Show(4)
	complete(t, c, tickets[0], okBody, nil)
	if len(calls) != 1 || calls[0] != (loaded{4, 3}) {
		t.Fatalf("expected one notification for slide 4, got %v", calls)
	}

	c.Show(5)
	c.Show(4)
	if len(calls) != 2 || calls[1] != (loaded{4, 3}) {
		t.Errorf("expected re-notification when showing a ready slide, got %v", calls)
	}
}

func indexes(ts []Ticket) []int {
	out := make([]int, len(ts))
	for i, t := range ts {
		out[i] = t.Index
	}
	return out
}
