package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/amadeus-agent/amadeus/internal/transport"
)

const (
	wsWriteTimeout = 10 * time.Second
	// wsSendBuffer is the per-client outbound queue; slow clients are
	// disconnected rather than allowed to stall the hub.
	wsSendBuffer = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The chat page is served from this same process; same-origin
	// checking is left to the default policy.
}

// chatHub fans the loop's transport events out to every connected chat
// WebSocket client, and funnels client text back into the transport.
type chatHub struct {
	tr     *transport.Transport
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan transport.Event
}

func newChatHub(tr *transport.Transport, logger *slog.Logger) *chatHub {
	return &chatHub{
		tr:      tr,
		logger:  logger,
		clients: make(map[*wsClient]struct{}),
	}
}

// run consumes the transport's outbound channel until ctx is done.
func (h *chatHub) run(ctx context.Context) {
	if h.tr == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-h.tr.Out:
			h.broadcast(e)
		}
	}
}

func (h *chatHub) broadcast(e transport.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- e:
		default:
			// Client is not draining; drop it.
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *chatHub) add(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *chatHub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *chatHub) clientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// handleChatWS upgrades to a WebSocket carrying the chat stream:
// inbound text messages become loop inputs, outbound JSON frames are
// transport events.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("chat websocket upgrade failed", "error", err)
		return
	}

	client := &wsClient{conn: conn, send: make(chan transport.Event, wsSendBuffer)}
	s.hub.add(client)
	s.logger.Debug("chat client connected", "remote", r.RemoteAddr)

	// Writer.
	go func() {
		for e := range client.send {
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(e); err != nil {
				break
			}
		}
		conn.Close()
	}()

	// Reader: every text frame is one user input.
	defer func() {
		s.hub.remove(client)
		conn.Close()
		s.logger.Debug("chat client disconnected", "remote", r.RemoteAddr)
	}()
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		select {
		case s.hub.tr.In <- string(data):
		case <-r.Context().Done():
			return
		}
	}
}

// handleEventsWS streams the operational event bus as JSON frames.
// Read-only; anything the client sends is ignored.
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	if s.bus == nil {
		httpError(w, http.StatusNotFound, "event bus not enabled", s.logger)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("events websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sub := s.bus.Subscribe(64)
	defer s.bus.Unsubscribe(sub)

	// Drain inbound frames so pings and closes are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				conn.Close()
				return
			}
		}
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-sub:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		}
	}
}
