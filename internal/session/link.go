package session

import (
	"context"
	"sync"
	"time"

	"github.com/dgallion1/stepdeck/internal/wire"
	"github.com/gorilla/websocket"
)

// Event is a message produced by a session's background goroutines.
type Event interface {
	sessionEvent()
}

type dialResult struct {
	gen  uint64
	conn Conn
	err  error
}

type positionReceived struct {
	gen         uint64
	slide, step int
}

type connectionLost struct {
	gen uint64
	err error
}

func (dialResult) sessionEvent()       {}
func (positionReceived) sessionEvent() {}
func (connectionLost) sessionEvent()   {}

// Conn is the subset of *websocket.Conn a session uses.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens connections to the hub.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// WebsocketDialer dials with gorilla/websocket.
type WebsocketDialer struct {
	d *websocket.Dialer
}

// NewWebsocketDialer returns a dialer with a bounded handshake.
func NewWebsocketDialer() *WebsocketDialer {
	return &WebsocketDialer{d: &websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		ReadBufferSize:   64,
		WriteBufferSize:  64,
	}}
}

func (w *WebsocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, resp, err := w.d.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// link owns one live connection: a reader goroutine and a writer goroutine
// fed through a latest-wins outbox.
type link struct {
	conn      Conn
	outbox    chan wire.Frame
	done      chan struct{}
	closeOnce sync.Once
}

func startLink(ctx context.Context, conn Conn, gen uint64, post func(Event)) *link {
	l := &link{
		conn:   conn,
		outbox: make(chan wire.Frame, 1),
		done:   make(chan struct{}),
	}

	var lostOnce sync.Once
	lost := func(err error) {
		lostOnce.Do(func() {
			select {
			case <-l.done:
				// Closed locally; nobody is waiting for this.
			default:
				post(connectionLost{gen: gen, err: err})
			}
		})
	}

	go l.readLoop(gen, post, lost)
	go l.writeLoop(ctx, lost)
	return l
}

func (l *link) readLoop(gen uint64, post func(Event), lost func(error)) {
	for {
		mt, data, err := l.conn.ReadMessage()
		if err != nil {
			lost(err)
			return
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		slide, step, err := wire.Decode(data)
		if err != nil {
			continue
		}
		post(positionReceived{gen: gen, slide: slide, step: step})
	}
}

func (l *link) writeLoop(ctx context.Context, lost func(error)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.done:
			return
		case f := <-l.outbox:
			if err := l.conn.WriteMessage(websocket.BinaryMessage, f[:]); err != nil {
				lost(err)
				return
			}
		}
	}
}

func (l *link) send(f wire.Frame) {
	select {
	case <-l.outbox:
	default:
	}
	select {
	case l.outbox <- f:
	default:
	}
}

func (l *link) close() {
	l.closeOnce.Do(func() {
		close(l.done)
		l.conn.Close()
	})
}
