package present

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dgallion1/stepdeck/internal/hub"
	"github.com/dgallion1/stepdeck/internal/nav"
	"github.com/dgallion1/stepdeck/internal/session"
)

var deck = map[int]string{
	1: `<div><h2>Intro</h2><p data-slide-steps="2-">Reveal</p><p data-slide-steps="3-">More</p></div>`,
	2: `<div><h2>Second</h2></div>`,
	3: `<div><h2>Third</h2><p data-slide-steps="2">Only two</p></div>`,
}

const notesHTML = `<h2 class="slide-1">Intro</h2><p class="slide-1">say hi</p>` +
	`<h2 class="slide-2">Second</h2><p class="slide-2">say bye</p>`

type fakeFetcher struct {
	slides map[int]string
	notes  string
	calls  map[int]int
}

func (f *fakeFetcher) FetchSlide(_ context.Context, n int) (string, error) {
	f.calls[n]++
	body, ok := f.slides[n]
	if !ok {
		return "", errors.New("status 404")
	}
	return body, nil
}

func (f *fakeFetcher) FetchNotes(context.Context) (string, error) {
	if f.notes == "" {
		return "", errors.New("status 404")
	}
	return f.notes, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newModel(t *testing.T, syncURL string, behind, ahead int) (*Model, *fakeFetcher) {
	t.Helper()
	f := &fakeFetcher{slides: deck, notes: notesHTML, calls: map[int]int{}}
	n := nav.New(nav.DefaultStepCacheSize)
	sess := session.New(testLogger(), syncURL, n)
	m := New(testLogger(), n, NewCache(n, 10, behind, ahead), sess, f)
	t.Cleanup(m.Close)
	return m, f
}

// settle runs cmd and every command produced by feeding its messages back
// into m. Session listeners are never produced here, so this terminates.
func settle(m *Model, cmd tea.Cmd) {
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case nil:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			_, next := m.Update(msg)
			queue = append(queue, next)
		}
	}
}

func press(m *Model, k tea.KeyMsg) {
	_, cmd := m.Update(k)
	settle(m, cmd)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestShow_FetchesSlideAndPrefetchWindow(t *testing.T) {
	m, f := newModel(t, "ws://127.0.0.1:1/sync", 1, 2)
	settle(m, m.show())

	for _, i := range []int{1, 2, 3} {
		if f.calls[i] != 1 {
			t.Errorf("expected one fetch of slide %d, got %d", i, f.calls[i])
		}
	}
	if f.calls[0] != 0 {
		t.Error("expected no fetch before slide 1")
	}

	view := m.View()
	if !strings.Contains(view, "Intro") {
		t.Errorf("expected slide 1 title in view, got:\n%s", view)
	}
	if strings.Contains(view, "Reveal") {
		t.Errorf("expected step 2 element hidden at step 1, got:\n%s", view)
	}
	if !strings.Contains(view, "step 1/3") {
		t.Errorf("expected resolved step count in status, got:\n%s", view)
	}
}

func TestKeys_StepThroughSlides(t *testing.T) {
	m, f := newModel(t, "ws://127.0.0.1:1/sync", 1, 2)
	settle(m, m.show())

	press(m, tea.KeyMsg{Type: tea.KeyRight})
	if got := m.nav.Position(); got != (nav.Position{Slide: 1, Step: 2}) {
		t.Fatalf("expected (1,2), got %v", got)
	}
	if !strings.Contains(m.View(), "Reveal") {
		t.Error("expected step 2 element visible")
	}

	press(m, tea.KeyMsg{Type: tea.KeyPgDown})
	press(m, tea.KeyMsg{Type: tea.KeyPgDown})
	if got := m.nav.Position(); got != (nav.Position{Slide: 2, Step: 1}) {
		t.Fatalf("expected (2,1) after last step, got %v", got)
	}

	press(m, tea.KeyMsg{Type: tea.KeyDown})
	press(m, tea.KeyMsg{Type: tea.KeyUp})
	if got := m.nav.Position(); got != (nav.Position{Slide: 2, Step: 1}) {
		t.Errorf("expected (2,1), got %v", got)
	}

	press(m, tea.KeyMsg{Type: tea.KeyHome})
	if got := m.nav.Position(); got != (nav.Position{Slide: 1, Step: 1}) {
		t.Errorf("expected (1,1), got %v", got)
	}

	// Loaded slides stay cached, so none of them is fetched twice.
	for _, i := range []int{1, 2, 3} {
		if f.calls[i] != 1 {
			t.Errorf("expected slide %d fetched once, got %d", i, f.calls[i])
		}
	}
}

func TestPreviousStep_ResolvesLastStepOnLoad(t *testing.T) {
	m, f := newModel(t, "ws://127.0.0.1:1/sync", 0, 0)
	m.nav.GoTo(2, 1)
	settle(m, m.show())
	if f.calls[1] != 0 {
		t.Fatal("expected slide 1 not fetched without prefetch")
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	if !m.nav.Position().Unresolved() {
		t.Fatalf("expected unresolved last step, got %v", m.nav.Position())
	}
	if !strings.Contains(m.View(), "step last") {
		t.Errorf("expected status to show last step, got:\n%s", m.View())
	}

	settle(m, cmd)
	if got := m.nav.Position(); got != (nav.Position{Slide: 1, Step: 3}) {
		t.Errorf("expected (1,3) after load, got %v", got)
	}
	if !strings.Contains(m.View(), "More") {
		t.Error("expected every element visible on the last step")
	}
}

func TestMissingSlide_ShowsDiagnostic(t *testing.T) {
	m, _ := newModel(t, "ws://127.0.0.1:1/sync", 0, 0)
	m.nav.GoTo(9, 1)
	settle(m, m.show())

	view := m.View()
	if !strings.Contains(view, "Failed to download slide") || !strings.Contains(view, "status 404") {
		t.Errorf("expected download diagnostic, got:\n%s", view)
	}

	// Navigation keeps working past the error.
	press(m, tea.KeyMsg{Type: tea.KeyDown})
	if got := m.nav.Position(); got != (nav.Position{Slide: 10, Step: 1}) {
		t.Errorf("expected (10,1), got %v", got)
	}
}

func TestUnrecognisedKey_IsNoop(t *testing.T) {
	m, f := newModel(t, "ws://127.0.0.1:1/sync", 1, 2)
	settle(m, m.show())
	before := len(f.calls)

	_, cmd := m.Update(runes("x"))
	if cmd != nil {
		t.Error("expected no command for unknown key")
	}
	if got := m.nav.Position(); got != (nav.Position{Slide: 1, Step: 1}) {
		t.Errorf("expected position unchanged, got %v", got)
	}
	if len(f.calls) != before {
		t.Error("expected no fetches for unknown key")
	}
}

func TestQuit(t *testing.T) {
	m, _ := newModel(t, "ws://127.0.0.1:1/sync", 1, 2)
	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestNotes_FilteredToCurrentSlide(t *testing.T) {
	m, _ := newModel(t, "ws://127.0.0.1:1/sync", 0, 0)
	settle(m, m.show())

	press(m, runes("n"))
	view := m.View()
	if !strings.Contains(view, "say hi") || strings.Contains(view, "say bye") {
		t.Errorf("expected slide 1 notes only, got:\n%s", view)
	}

	press(m, tea.KeyMsg{Type: tea.KeyDown})
	view = m.View()
	if !strings.Contains(view, "say bye") || strings.Contains(view, "say hi") {
		t.Errorf("expected slide 2 notes only, got:\n%s", view)
	}

	press(m, runes("n"))
	if strings.Contains(m.View(), "say bye") {
		t.Error("expected notes hidden after second toggle")
	}
}

func TestNotes_FailureIsRetried(t *testing.T) {
	m, f := newModel(t, "ws://127.0.0.1:1/sync", 0, 0)
	f.notes = ""

	press(m, runes("n"))
	if !strings.Contains(m.View(), "Failed to load notes") {
		t.Errorf("expected notes diagnostic, got:\n%s", m.View())
	}

	f.notes = notesHTML
	press(m, runes("n"))
	press(m, runes("n"))
	if !strings.Contains(m.View(), "say hi") {
		t.Errorf("expected notes after retry, got:\n%s", m.View())
	}
}

func startHub(t *testing.T) string {
	t.Helper()
	h := hub.New(testLogger(), hub.Options{PingInterval: time.Second, WriteTimeout: time.Second})
	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		h.Shutdown()
		srv.Close()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// pump feeds session events into m until cond holds. Commands returned for
// session messages only re-listen and are dropped.
func pump(t *testing.T, m *Model, cond func() bool) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for !cond() {
		select {
		case ev := <-m.session.Events():
			m.Update(sessionMsg{ev: ev})
		case <-deadline:
			t.Fatalf("condition not reached; sync=%s", m.syncLabel())
		}
	}
}

func TestFollower_AppliesRemotePosition(t *testing.T) {
	url := startHub(t)

	follower, _ := newModel(t, url, 0, 0)
	press(follower, runes("f"))
	pump(t, follower, func() bool { return follower.session.State() == session.Syncing })

	presenter, _ := newModel(t, url, 0, 0)
	press(presenter, runes("p"))
	pump(t, presenter, func() bool { return presenter.session.State() == session.Presenting })

	press(presenter, tea.KeyMsg{Type: tea.KeyDown})
	press(presenter, tea.KeyMsg{Type: tea.KeyDown})
	press(presenter, tea.KeyMsg{Type: tea.KeyRight})

	want := nav.Position{Slide: 3, Step: 2}
	pump(t, follower, func() bool { return follower.nav.Position() == want })
	if follower.cache.Current() != 3 {
		t.Errorf("expected follower to show slide 3, got %d", follower.cache.Current())
	}
	if !strings.Contains(follower.View(), "syncing") {
		t.Errorf("expected sync state in status, got:\n%s", follower.View())
	}
}
