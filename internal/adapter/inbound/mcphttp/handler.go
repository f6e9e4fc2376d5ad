package mcphttp

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/i2y/mcptime/internal/adapter/inbound/dispatch"
)

// Default transport settings used when Options leaves a field zero.
const (
	DefaultKeepAliveInterval = 15 * time.Second
	DefaultQueueSize         = 32
	maxMessageBytes          = 1 << 20
)

// SessionIDHeader carries the session id when the query parameter is absent.
const SessionIDHeader = "Mcp-Session-Id"

// Options configures the SSE transport.
type Options struct {
	Name              string        // Reported by /version
	Version           string        // Reported by /version
	AuthToken         string        // Bearer token; empty disables auth
	KeepAliveInterval time.Duration // Interval between ": ping" comments
	QueueSize         int           // Inbound messages buffered per session
}

// Handlers serves the MCP SSE transport plus health and version endpoints.
type Handlers struct {
	dispatcher *dispatch.Dispatcher
	opts       Options
	logger     *slog.Logger
	startTime  time.Time

	mu       sync.RWMutex
	streams  map[string]*stream
	shutdown chan struct{}
	closed   bool
}

// NewHandlers creates a new Handlers struct.
func NewHandlers(dispatcher *dispatch.Dispatcher, opts Options, logger *slog.Logger) *Handlers {
	if opts.KeepAliveInterval <= 0 {
		opts.KeepAliveInterval = DefaultKeepAliveInterval
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	return &Handlers{
		dispatcher: dispatcher,
		opts:       opts,
		logger:     logger.With("component", "mcphttp_handler"),
		startTime:  time.Now(),
		streams:    make(map[string]*stream),
		shutdown:   make(chan struct{}),
	}
}

// Router returns a chi router with every route and the standard middleware.
func (h *Handlers) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes sets up the HTTP routes on r.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.handleHealth)
	r.Get("/version", h.handleVersion)

	r.Group(func(r chi.Router) {
		if h.opts.AuthToken != "" {
			r.Use(bearerAuth(h.opts.AuthToken, h.logger))
		}
		r.Get("/mcp", h.handleStream)
		r.Get("/sse", h.handleStream)
		r.Post("/mcp", h.handleMessage)
		r.Post("/mcp/messages", h.handleMessage)
		r.Post("/mcp/messages/", h.handleMessage)
		r.Post("/messages", h.handleMessage)
	})
}

// SessionCount reports the number of open streams.
func (h *Handlers) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.streams)
}

// Shutdown ends every open stream. Call it before http.Server.Shutdown,
// which otherwise waits on streams that never go idle.
func (h *Handlers) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	close(h.shutdown)
	h.logger.Info("Closing open streams", slog.Int("sessions", len(h.streams)))
}

// handleMessage implements POST /mcp/messages: it queues one envelope for
// the stream that owns the session.
func (h *Handlers) handleMessage(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session_id")
	if id == "" {
		id = r.Header.Get(SessionIDHeader)
	}
	log := h.logger.With(slog.String("session_id", id), slog.String("request_id", middleware.GetReqID(r.Context())))

	if id == "" {
		log.Warn("Message without session id")
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	s := h.lookup(id)
	if s == nil {
		log.Warn("Message for unknown session")
		http.Error(w, "Could not find session", http.StatusNotFound)
		return
	}

	body, err := readBody(w, r)
	if err != nil {
		log.Warn("Failed to read message body", slog.Any("error", err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	switch s.enqueue(body) {
	case enqueued:
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("Accepted"))
	case streamGone:
		log.Warn("Message for closed session")
		http.Error(w, "Could not find session", http.StatusNotFound)
	case queueFull:
		log.Warn("Session queue full", slog.Int("queue_size", h.opts.QueueSize))
		http.Error(w, "Session queue full", http.StatusServiceUnavailable)
	}
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":         "healthy",
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
		"sessions":       h.SessionCount(),
	})
}

func (h *Handlers) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"name":        h.opts.Name,
		"version":     h.opts.Version,
		"mcp_version": mcp.LATEST_PROTOCOL_VERSION,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// bearerAuth rejects requests without the expected "Authorization: Bearer" token.
func bearerAuth(token string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const bearerPrefix = "Bearer "
			header := r.Header.Get("Authorization")
			if header == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="MCP Server"`)
				http.Error(w, "Authorization required", http.StatusUnauthorized)
				return
			}
			if !strings.HasPrefix(header, bearerPrefix) {
				logger.Warn("Invalid authorization format", slog.String("remote_addr", r.RemoteAddr))
				http.Error(w, "Invalid authorization format", http.StatusUnauthorized)
				return
			}
			if subtle.ConstantTimeCompare([]byte(strings.TrimPrefix(header, bearerPrefix)), []byte(token)) != 1 {
				logger.Warn("Invalid bearer token", slog.String("remote_addr", r.RemoteAddr))
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
