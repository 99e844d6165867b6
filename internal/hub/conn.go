package hub

import (
	"context"
	"log/slog"
	"time"

	"github.com/dgallion1/stepdeck/internal/wire"
	"github.com/gorilla/websocket"
)

// serve runs the read loop on the calling goroutine and the write loop on
// another. Either loop ending closes the connection, which ends the other.
func (h *Hub) serve(sub *subscriber, conn *websocket.Conn) {
	log := h.log.With("conn_id", sub.id, "remote", conn.RemoteAddr().String())
	log.Info("client connected")

	done := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(sub, conn, done, log)
	}()

	h.readLoop(sub, conn, log)

	close(done)
	h.unsubscribe(sub.id)
	conn.Close()
	<-writerDone
}

func (h *Hub) readLoop(sub *subscriber, conn *websocket.Conn, log *slog.Logger) {
	pongWait := h.opts.PingInterval * 2
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				log.Info("client disconnected")
			} else {
				log.Error("failed to receive position from client", "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		if mt != websocket.BinaryMessage {
			h.ignored.Add(1)
			continue
		}
		slide, step, err := wire.Decode(data)
		if err != nil {
			h.ignored.Add(1)
			log.Debug("dropping malformed frame", "error", err)
			continue
		}
		log.Debug("received position", "slide", slide, "step", step)
		h.Publish(sub.id, wire.Encode(slide, step))
	}
}

func (h *Hub) writeLoop(sub *subscriber, conn *websocket.Conn, done <-chan struct{}, log *slog.Logger) {
	ticker := time.NewTicker(h.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case u := <-sub.updates:
			conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
			if err := conn.WriteMessage(websocket.BinaryMessage, u.frame[:]); err != nil {
				log.Error("failed to send position to client", "error", err)
				conn.Close()
				return
			}
			h.forwarded.Add(1)
			if log.Enabled(context.Background(), slog.LevelDebug) {
				slide, step := u.frame.Positions()
				log.Debug("sent position", "slide", slide, "step", step, "from", u.from)
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Warn("ping failed", "error", err)
				conn.Close()
				return
			}
		}
	}
}
