package server

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bokbank/server/internal/broadcast"
)

var upgrader = websocket.Upgrader{
	// The demo client connects from arbitrary origins.
	CheckOrigin: func(*http.Request) bool { return true },
}

// sync upgrades the request to a websocket and streams ledger changes for
// the caller's tenant until the client disconnects or the stream fails.
func (s *Server) sync(w http.ResponseWriter, r *http.Request) {
	st, ok := s.partition(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		log.Printf("sync: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Clients send nothing on this channel; the read loop only exists to
	// notice the connection closing.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	writer := &websocketEventWriter{conn: conn}
	if err := broadcast.New(st).Run(ctx, writer); err != nil {
		log.Printf("sync: stream for tenant %q failed: %v", st.Tenant(), err)
		// Surface the failure to the client before closing, without
		// leaking internal detail.
		message := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "sync stream failed")
		_ = conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(time.Second))
	}
}

// websocketEventWriter serializes broadcast events onto one websocket.
type websocketEventWriter struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (w *websocketEventWriter) WriteEvent(_ context.Context, event broadcast.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(event)
}
