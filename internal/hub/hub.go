// Package hub relays position frames between WebSocket clients. Every client
// gets the latest position published by any other client; intermediate
// updates are dropped for clients that fall behind.
package hub

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgallion1/stepdeck/internal/wire"
	"github.com/gorilla/websocket"
)

const (
	// maxMessageSize bounds inbound messages; anything up to it that isn't a
	// position frame is ignored, anything larger ends the connection.
	maxMessageSize = 1024

	defaultPingInterval = 30 * time.Second
	defaultWriteTimeout = 10 * time.Second
)

// Options configures a Hub.
type Options struct {
	PingInterval time.Duration
	WriteTimeout time.Duration
}

// Stats is a snapshot of hub counters.
type Stats struct {
	Connections     int64 `json:"connections"`
	FramesReceived  int64 `json:"frames_received"`
	FramesForwarded int64 `json:"frames_forwarded"`
	FramesCoalesced int64 `json:"frames_coalesced"`
	FramesIgnored   int64 `json:"frames_ignored"`
}

type update struct {
	from  uint64
	frame wire.Frame
}

type subscriber struct {
	id      uint64
	updates chan update
	conn    *websocket.Conn
}

// Hub is the server side of position sync. It performs no authentication
// and no role arbitration: any client may publish.
type Hub struct {
	log      *slog.Logger
	opts     Options
	upgrader websocket.Upgrader

	mu     sync.RWMutex
	subs   map[uint64]*subscriber
	closed bool
	nextID atomic.Uint64
	wg     sync.WaitGroup

	received  atomic.Int64
	forwarded atomic.Int64
	coalesced atomic.Int64
	ignored   atomic.Int64
}

// New creates a Hub.
func New(log *slog.Logger, opts Options) *Hub {
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	return &Hub{
		log:  log,
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  maxMessageSize,
			WriteBufferSize: maxMessageSize,
			// Followers open the deck from any host the presenter shares.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		subs: make(map[uint64]*subscriber),
	}
}

// ServeHTTP upgrades the request and runs the relay for that connection until
// either side closes it.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Subscribe before upgrading so that a client whose handshake has
	// completed is already receiving updates.
	sub, err := h.subscribe()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.unsubscribe(sub.id)
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	sub.conn = conn
	h.wg.Add(1)
	h.mu.Unlock()

	defer h.wg.Done()
	h.serve(sub, conn)
}

// ErrClosed is returned once the hub has been shut down.
var ErrClosed = errors.New("hub is closed")

func (h *Hub) subscribe() (*subscriber, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}
	sub := &subscriber{
		id:      h.nextID.Add(1),
		updates: make(chan update, 1),
	}
	h.subs[sub.id] = sub
	return sub, nil
}

func (h *Hub) unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
}

// Publish offers frame to every subscriber except the sender. A subscriber
// that hasn't consumed its previous update has it replaced.
func (h *Hub) Publish(from uint64, frame wire.Frame) {
	h.received.Add(1)
	u := update{from: from, frame: frame}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, sub := range h.subs {
		if id == from {
			continue
		}
		select {
		case sub.updates <- u:
			continue
		default:
		}
		select {
		case <-sub.updates:
			h.coalesced.Add(1)
		default:
		}
		select {
		case sub.updates <- u:
		default:
			// Another publisher refilled the slot first; its update is as
			// recent as ours.
			h.coalesced.Add(1)
		}
	}
}

// Stats returns current counters.
func (h *Hub) Stats() Stats {
	h.mu.RLock()
	conns := int64(len(h.subs))
	h.mu.RUnlock()
	return Stats{
		Connections:     conns,
		FramesReceived:  h.received.Load(),
		FramesForwarded: h.forwarded.Load(),
		FramesCoalesced: h.coalesced.Load(),
		FramesIgnored:   h.ignored.Load(),
	}
}

// Shutdown closes every connection and waits for relays to finish. New
// connections are refused afterwards.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	h.closed = true
	for _, sub := range h.subs {
		if sub.conn != nil {
			sub.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			sub.conn.Close()
		}
	}
	h.mu.Unlock()
	h.wg.Wait()
}
