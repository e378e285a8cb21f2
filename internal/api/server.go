// Package api implements the HTTP surface: synchronous chat, history,
// stats, and the WebSocket bridges for the chat page and the ops event
// stream.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/amadeus-agent/amadeus/internal/agent"
	"github.com/amadeus-agent/amadeus/internal/buildinfo"
	"github.com/amadeus-agent/amadeus/internal/conversation"
	"github.com/amadeus-agent/amadeus/internal/events"
	"github.com/amadeus-agent/amadeus/internal/transport"
	"github.com/amadeus-agent/amadeus/internal/web"
)

// writeJSON encodes v as JSON to w, logging any errors at debug level.
// Errors here typically mean the client disconnected mid-response.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

func httpError(w http.ResponseWriter, status int, msg string, logger *slog.Logger) {
	w.WriteHeader(status)
	writeJSON(w, map[string]string{"error": msg}, logger)
}

// Server is the HTTP API server.
type Server struct {
	listen    string
	publicURL string
	model     string
	started   time.Time

	loop   *agent.Loop
	store  conversation.Store
	bus    *events.Bus
	hub    *chatHub
	logger *slog.Logger
	server *http.Server
}

// Options configures a Server.
type Options struct {
	// Listen is the host:port to bind.
	Listen string
	// PublicURL is the externally reachable base URL, used by /qr.
	// Defaults to http://<Listen>.
	PublicURL string
	// Model is reported by /v1/stats.
	Model string

	Loop      *agent.Loop
	Store     conversation.Store
	Transport *transport.Transport
	Bus       *events.Bus
	Logger    *slog.Logger
}

// NewServer creates the API server. It takes ownership of the
// transport's outbound channel: all loop events are fanned out to
// connected chat WebSocket clients.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	publicURL := opts.PublicURL
	if publicURL == "" {
		publicURL = "http://" + opts.Listen
	}
	return &Server{
		listen:    opts.Listen,
		publicURL: publicURL,
		model:     opts.Model,
		started:   time.Now(),
		loop:      opts.Loop,
		store:     opts.Store,
		bus:       opts.Bus,
		hub:       newChatHub(opts.Transport, opts.Logger),
		logger:    opts.Logger,
	}
}

// routes builds the request handler.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/chat", s.handleChat)
	mux.HandleFunc("POST /v1/reset", s.handleReset)
	mux.HandleFunc("GET /v1/history", s.handleHistory)
	mux.HandleFunc("GET /v1/stats", s.handleStats)
	mux.HandleFunc("GET /v1/version", s.handleVersion)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /qr", s.handleQR)

	mux.HandleFunc("GET /ws/chat", s.handleChatWS)
	mux.HandleFunc("GET /ws/events", s.handleEventsWS)

	web.RegisterRoutes(mux)
	return s.withLogging(mux)
}

// Start begins serving HTTP requests. Blocks until the listener fails
// or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	go s.hub.run(ctx)

	s.server = &http.Server{
		Addr:        s.listen,
		Handler:     s.routes(),
		ReadTimeout: 30 * time.Second,
		// No write timeout: WebSocket connections are long-lived.
	}

	s.logger.Info("starting API server", "listen", s.listen)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body", s.logger)
		return
	}
	if req.Message == "" {
		httpError(w, http.StatusBadRequest, "message is required", s.logger)
		return
	}

	reply, err := s.loop.Ask(r.Context(), req.Message)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error(), s.logger)
		return
	}
	writeJSON(w, chatResponse{Response: reply}, s.logger)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	notice, err := s.loop.Ask(r.Context(), transport.ResetSentinel)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error(), s.logger)
		return
	}
	writeJSON(w, map[string]string{"status": "reset", "notice": notice}, s.logger)
}

type historyMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	HTML      string    `json:"html,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httpError(w, http.StatusBadRequest, "limit must be a positive integer", s.logger)
			return
		}
		limit = n
	}
	asHTML := r.URL.Query().Get("format") == "html"

	msgs, err := s.store.Recent(limit)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error(), s.logger)
		return
	}

	out := make([]historyMessage, len(msgs))
	for i, m := range msgs {
		out[i] = historyMessage{Role: m.Role, Content: m.Content, Timestamp: m.Timestamp}
		if asHTML && m.Role == conversation.RoleAssistant {
			html, err := renderMarkdown(m.Content)
			if err != nil {
				s.logger.Warn("markdown render failed", "error", err)
				continue
			}
			out[i].HTML = html
		}
	}
	writeJSON(w, map[string]any{"messages": out}, s.logger)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.Count()
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error(), s.logger)
		return
	}
	writeJSON(w, map[string]any{
		"model":             s.model,
		"degraded":          s.loop.Degraded(),
		"message_count":     count,
		"uptime":            buildinfo.Uptime().String(),
		"chat_clients":      s.hub.clientCount(),
		"event_subscribers": s.bus.SubscriberCount(),
	}, s.logger)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, buildinfo.Info(), s.logger)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if s.loop.Degraded() {
		status = "degraded"
	}
	writeJSON(w, map[string]string{"status": status}, s.logger)
}
