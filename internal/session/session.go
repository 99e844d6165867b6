// Package session keeps a client's position in step with the sync hub.
//
// A Session is not safe for concurrent use. Network activity happens on
// background goroutines which report back through Events; the owner feeds
// each event to Handle on the same goroutine that calls every other method.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/dgallion1/stepdeck/internal/nav"
	"github.com/dgallion1/stepdeck/internal/wire"
)

// DefaultReconnectAttempts bounds the dials made for one outage.
const DefaultReconnectAttempts = 10

// DefaultStableAfter is how long a connection must last before the attempt
// count starts over.
const DefaultStableAfter = 5 * time.Second

// ErrSyncUnavailable is returned by Handle when every reconnect attempt for
// an outage has failed. The session is Offline afterwards.
var ErrSyncUnavailable = errors.New("sync unavailable")

// State is the live sync state of a session.
type State int

const (
	Offline State = iota
	Syncing
	Presenting
)

func (s State) String() string {
	switch s {
	case Syncing:
		return "syncing"
	case Presenting:
		return "presenting"
	}
	return "offline"
}

// Session is the client side of position sync.
type Session struct {
	log         *slog.Logger
	dialer      Dialer
	url         string
	nav         *nav.Navigator
	maxAttempts int

	ctx    context.Context
	cancel context.CancelFunc
	events chan Event

	state    State
	desired  State
	gen      uint64
	link     *link
	dialing  bool
	attempts int

	connectedAt time.Time
	stableAfter time.Duration
}

// Option configures a Session.
type Option func(*Session)

// WithReconnectAttempts sets the number of dials made per outage.
func WithReconnectAttempts(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithStableAfter sets how long a connection must stay up before losing it
// no longer counts as a failed attempt.
func WithStableAfter(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.stableAfter = d
		}
	}
}

// WithDialer replaces the WebSocket dialer.
func WithDialer(d Dialer) Option {
	return func(s *Session) { s.dialer = d }
}

// New creates an Offline session that will connect to syncURL and apply
// inbound positions to n.
func New(log *slog.Logger, syncURL string, n *nav.Navigator, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		log:         log,
		dialer:      NewWebsocketDialer(),
		url:         syncURL,
		nav:         n,
		maxAttempts: DefaultReconnectAttempts,
		stableAfter: DefaultStableAfter,
		ctx:         ctx,
		cancel:      cancel,
		events:      make(chan Event, 16),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Events delivers results of background network activity.
func (s *Session) Events() <-chan Event { return s.events }

// State reports the live state. It is Offline while a connection is being
// established.
func (s *Session) State() State { return s.state }

// Desired reports the mode the session is trying to be in.
func (s *Session) Desired() State { return s.desired }

// Connecting reports whether a dial is in flight.
func (s *Session) Connecting() bool { return s.dialing }

// ToggleFollow switches between Offline and a synchronized mode. Turning
// follow off from Presenting also goes Offline.
func (s *Session) ToggleFollow() {
	if s.desired == Offline {
		s.desired = Syncing
		s.attempts = 0
		s.connect()
		return
	}
	s.desired = Offline
	s.disconnect()
}

// SetPresenting enables or disables publishing of local positions. Enabling
// it while Offline opens a connection directly into Presenting; disabling it
// keeps the connection and falls back to Syncing.
func (s *Session) SetPresenting(on bool) {
	if on {
		if s.desired == Presenting {
			return
		}
		s.desired = Presenting
		switch {
		case s.link != nil:
			s.state = Presenting
			s.publish()
		case !s.dialing:
			s.attempts = 0
			s.connect()
		}
		return
	}

	if s.desired != Presenting {
		return
	}
	s.desired = Syncing
	if s.state == Presenting {
		s.state = Syncing
	}
}

// TogglePresenting flips presenting mode.
func (s *Session) TogglePresenting() {
	s.SetPresenting(s.desired != Presenting)
}

// PositionChanged publishes the navigator's position when presenting. Call it
// after local navigation only.
func (s *Session) PositionChanged() {
	if s.state == Presenting {
		s.publish()
	}
}

// Handle applies an event from Events. It reports whether the navigator's
// position was moved by a remote presenter. A non-nil error means sync has
// been given up.
func (s *Session) Handle(ev Event) (bool, error) {
	switch ev := ev.(type) {
	case dialResult:
		return false, s.handleDial(ev)
	case positionReceived:
		return s.handlePosition(ev), nil
	case connectionLost:
		return false, s.handleLost(ev)
	}
	return false, nil
}

// Close drops the connection and stops background goroutines.
func (s *Session) Close() {
	s.desired = Offline
	s.disconnect()
	s.cancel()
}

func (s *Session) connect() {
	s.gen++
	s.dialing = true
	s.attempts++
	gen := s.gen
	s.log.Debug("dialing sync hub", "url", s.url, "attempt", s.attempts)
	go func() {
		conn, err := s.dialer.Dial(s.ctx, s.url)
		s.post(dialResult{gen: gen, conn: conn, err: err})
	}()
}

func (s *Session) disconnect() {
	s.gen++
	s.dialing = false
	if s.link != nil {
		s.link.close()
		s.link = nil
	}
	s.state = Offline
}

func (s *Session) handleDial(ev dialResult) error {
	if ev.gen != s.gen {
		if ev.conn != nil {
			ev.conn.Close()
		}
		return nil
	}
	s.dialing = false

	if ev.err != nil {
		s.log.Warn("sync connection failed", "url", s.url, "attempt", s.attempts, "error", ev.err)
		if s.attempts >= s.maxAttempts {
			s.desired = Offline
			s.state = Offline
			return fmt.Errorf("%w after %d attempts: %v", ErrSyncUnavailable, s.attempts, ev.err)
		}
		s.connect()
		return nil
	}

	s.link = startLink(s.ctx, ev.conn, s.gen, s.post)
	s.connectedAt = time.Now()
	s.state = s.desired
	s.log.Info("sync connected", "url", s.url, "state", s.state.String())
	if s.state == Presenting {
		s.publish()
	}
	return nil
}

func (s *Session) handlePosition(ev positionReceived) bool {
	if ev.gen != s.gen || s.state == Offline {
		return false
	}
	// A relayed frame proves the link works end to end.
	s.attempts = 0
	step := ev.step
	if step >= wire.MaxValue {
		step = nav.SentinelLast
	}
	before := s.nav.Position()
	s.nav.GoTo(ev.slide, step)
	return s.nav.Position() != before
}

func (s *Session) handleLost(ev connectionLost) error {
	if ev.gen != s.gen {
		return nil
	}
	s.log.Warn("sync connection lost", "error", ev.err, "attempt", s.attempts)
	desired := s.desired
	s.disconnect()
	if desired == Offline {
		return nil
	}

	// Connections dropped before they were stable count against the same
	// budget as failed dials.
	if time.Since(s.connectedAt) >= s.stableAfter {
		s.attempts = 0
	}
	if s.attempts >= s.maxAttempts {
		s.desired = Offline
		return fmt.Errorf("%w after %d attempts: %v", ErrSyncUnavailable, s.attempts, ev.err)
	}
	s.desired = desired
	s.connect()
	return nil
}

func (s *Session) publish() {
	if s.link == nil {
		return
	}
	p := s.nav.Position()
	s.link.send(wire.Encode(p.Slide, p.Step))
}

func (s *Session) post(ev Event) {
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
	}
}

// SyncURL derives the WebSocket URL of the hub from the deck's base URL.
func SyncURL(base, path string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}
