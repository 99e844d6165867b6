// Package present is the terminal host for a deck: it owns the navigator,
// the slide cache and the sync session and drives them from one bubbletea
// update loop.
package present

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dgallion1/stepdeck/internal/nav"
	"github.com/dgallion1/stepdeck/internal/notes"
	"github.com/dgallion1/stepdeck/internal/session"
	"github.com/dgallion1/stepdeck/internal/slidecache"
)

// Fetcher loads deck content.
type Fetcher interface {
	FetchSlide(ctx context.Context, n int) (string, error)
	FetchNotes(ctx context.Context) (string, error)
}

type slideFetchedMsg struct {
	result slidecache.Result
}

type notesFetchedMsg struct {
	doc *notes.Document
	err error
}

type sessionMsg struct {
	ev session.Event
}

type notesState int

const (
	notesIdle notesState = iota
	notesLoading
	notesReady
	notesFailed
)

// Model is the bubbletea model of a presentation.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    *slog.Logger

	nav     *nav.Navigator
	cache   *slidecache.Cache
	session *session.Session
	fetcher Fetcher

	showNotes  bool
	notesState notesState
	notesDoc   *notes.Document
	notesErr   error

	syncErr error
	width   int
	help    help.Model
}

// New creates a model. The cache's loaded callback is expected to feed n;
// NewCache builds one wired that way.
func New(log *slog.Logger, n *nav.Navigator, cache *slidecache.Cache, sess *session.Session, f Fetcher) *Model {
	ctx, cancel := context.WithCancel(context.Background())
	return &Model{
		ctx:     ctx,
		cancel:  cancel,
		log:     log,
		nav:     n,
		cache:   cache,
		session: sess,
		fetcher: f,
		help:    help.New(),
	}
}

// NewCache returns a slide cache that reports loaded step counts to n.
func NewCache(n *nav.Navigator, capacity, behind, ahead int) *slidecache.Cache {
	return slidecache.New(capacity,
		slidecache.WithPrefetch(behind, ahead),
		slidecache.WithOnLoaded(n.SlideLoaded),
	)
}

// Close cancels outstanding fetches and drops the sync connection.
func (m *Model) Close() {
	m.cancel()
	m.session.Close()
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.show(), m.listen())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case slideFetchedMsg:
		if !m.cache.Complete(msg.result) {
			m.log.Debug("dropped stale slide", "slide", msg.result.Index)
		}

	case notesFetchedMsg:
		if msg.err != nil {
			m.log.Error("notes unavailable", "error", msg.err)
			m.notesState = notesFailed
			m.notesErr = msg.err
			break
		}
		m.notesState = notesReady
		m.notesDoc = msg.doc

	case sessionMsg:
		moved, err := m.session.Handle(msg.ev)
		if err != nil {
			m.log.Error("sync stopped", "error", err)
			m.syncErr = err
		}
		if moved {
			return m, tea.Batch(m.show(), m.listen())
		}
		return m, m.listen()
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Quit):
		return tea.Quit
	case key.Matches(msg, keys.PrevStep):
		m.nav.PreviousStep()
	case key.Matches(msg, keys.NextStep):
		m.nav.NextStep()
	case key.Matches(msg, keys.PrevSlide):
		m.nav.PreviousSlide()
	case key.Matches(msg, keys.NextSlide):
		m.nav.NextSlide()
	case key.Matches(msg, keys.First):
		m.nav.FirstSlide()
	case key.Matches(msg, keys.Notes):
		m.showNotes = !m.showNotes
		return m.loadNotes()
	case key.Matches(msg, keys.Present):
		m.syncErr = nil
		m.session.TogglePresenting()
		return nil
	case key.Matches(msg, keys.Follow):
		m.syncErr = nil
		m.session.ToggleFollow()
		return nil
	default:
		return nil
	}

	cmd := m.show()
	m.session.PositionChanged()
	return cmd
}

// show displays the navigator's slide and returns the fetches it needs.
func (m *Model) show() tea.Cmd {
	tickets := m.cache.Show(m.nav.Position().Slide)
	if len(tickets) == 0 {
		return nil
	}
	cmds := make([]tea.Cmd, 0, len(tickets))
	for _, t := range tickets {
		cmds = append(cmds, m.fetchSlide(t))
	}
	return tea.Batch(cmds...)
}

func (m *Model) fetchSlide(t slidecache.Ticket) tea.Cmd {
	ctx, f := m.ctx, m.fetcher
	return func() tea.Msg {
		body, err := f.FetchSlide(ctx, t.Index)
		return slideFetchedMsg{result: slidecache.Result{Ticket: t, Body: body, Err: err}}
	}
}

// loadNotes fetches the notes the first time they are shown, and again after
// a failure.
func (m *Model) loadNotes() tea.Cmd {
	if !m.showNotes || m.notesState == notesLoading || m.notesState == notesReady {
		return nil
	}
	m.notesState = notesLoading
	ctx, f := m.ctx, m.fetcher
	return func() tea.Msg {
		body, err := f.FetchNotes(ctx)
		if err != nil {
			return notesFetchedMsg{err: err}
		}
		doc, err := notes.Parse(body)
		return notesFetchedMsg{doc: doc, err: err}
	}
}

func (m *Model) listen() tea.Cmd {
	events := m.session.Events()
	return func() tea.Msg {
		return sessionMsg{ev: <-events}
	}
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.statusLine())
	b.WriteString("\n\n")
	b.WriteString(slideStyle.Render(m.slideView()))
	b.WriteString("\n")

	if m.showNotes {
		b.WriteString(notesStyle.Render(m.notesView()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(keys))
	return b.String()
}

func (m *Model) statusLine() string {
	pos := m.nav.Position()
	step := fmt.Sprintf("%d", pos.Step)
	if pos.Unresolved() {
		step = "last"
	}
	if n, ok := m.nav.StepCount(pos.Slide); ok && !pos.Unresolved() {
		step = fmt.Sprintf("%d/%d", pos.Step, n)
	}

	label := m.syncLabel()
	line := statusStyle.Render(fmt.Sprintf("slide %d  step %s", pos.Slide, step)) +
		"  " + syncStyle(label).Render(label)
	if m.syncErr != nil {
		line += "  " + errorStyle.Render(m.syncErr.Error())
	}
	return line
}

func (m *Model) syncLabel() string {
	if m.session.Connecting() {
		return "connecting"
	}
	return m.session.State().String()
}

func (m *Model) slideView() string {
	pos := m.nav.Position()
	e, ok := m.cache.Peek(pos.Slide)
	if !ok || e.State == slidecache.Loading {
		return mutedStyle.Render(fmt.Sprintf("Loading slide %d...", pos.Slide))
	}
	if e.State == slidecache.Error {
		out := errorStyle.Render(e.Description) + "\n" + mutedStyle.Render(e.Cause)
		if e.Contents != "" {
			out += "\n\n" + e.Contents
		}
		return out
	}
	return strings.Join(e.Slide.Lines(pos.Step), "\n")
}

func (m *Model) notesView() string {
	switch m.notesState {
	case notesReady:
		lines := m.notesDoc.Lines(m.nav.Position().Slide)
		if len(lines) == 0 {
			return "(no notes for this slide)"
		}
		return strings.Join(lines, "\n")
	case notesFailed:
		return errorStyle.Render("Failed to load notes") + "\n" + m.notesErr.Error()
	}
	return "Loading notes..."
}
