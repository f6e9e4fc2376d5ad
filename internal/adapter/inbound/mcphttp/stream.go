package mcphttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/i2y/mcptime/internal/adapter/inbound/dispatch"
)

// messagesPath is advertised to clients in the endpoint event.
const messagesPath = "/mcp/messages"

// stream couples a protocol session with the inbound queue drained by its
// GET handler.
type stream struct {
	session *dispatch.Session
	inbox   chan []byte
	done    chan struct{}
}

type enqueueResult int

const (
	enqueued enqueueResult = iota
	streamGone
	queueFull
)

func (s *stream) enqueue(msg []byte) enqueueResult {
	select {
	case <-s.done:
		return streamGone
	default:
	}
	select {
	case s.inbox <- msg:
		return enqueued
	case <-s.done:
		return streamGone
	default:
		return queueFull
	}
}

func (h *Handlers) lookup(id string) *stream {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.streams[id]
}

func (h *Handlers) register(s *stream) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.streams[s.session.ID()] = s
	return true
}

func (h *Handlers) unregister(s *stream) {
	h.mu.Lock()
	delete(h.streams, s.session.ID())
	h.mu.Unlock()
	close(s.done)
	s.session.Close()
}

// handleStream implements GET /mcp: it opens an SSE stream, announces the
// message endpoint and then handles queued messages one at a time until the
// client goes away or the server shuts down.
func (h *Handlers) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("Streaming unsupported by response writer")
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	s := &stream{
		session: h.dispatcher.NewSession(uuid.NewString()),
		inbox:   make(chan []byte, h.opts.QueueSize),
		done:    make(chan struct{}),
	}
	log := h.logger.With(
		slog.String("session_id", s.session.ID()),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("remote_addr", r.RemoteAddr),
	)

	if !h.register(s) {
		http.Error(w, "Server shutting down", http.StatusServiceUnavailable)
		return
	}
	defer h.unregister(s)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set(SessionIDHeader, s.session.ID())
	w.WriteHeader(http.StatusOK)

	endpoint := fmt.Sprintf("%s?session_id=%s", messagesPath, s.session.ID())
	if err := writeEvent(w, "endpoint", []byte(endpoint)); err != nil {
		log.Warn("Failed to write endpoint event", slog.Any("error", err))
		return
	}
	flusher.Flush()
	log.Info("Stream opened")

	ticker := time.NewTicker(h.opts.KeepAliveInterval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			log.Info("Stream closed by client")
			return

		case <-h.shutdown:
			log.Info("Stream closed by server shutdown")
			return

		case <-ticker.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				log.Info("Stream closed during keep-alive", slog.Any("error", err))
				return
			}
			flusher.Flush()

		case msg := <-s.inbox:
			resp, ok := s.session.Handle(ctx, msg)
			if !ok {
				continue
			}
			data, err := json.Marshal(resp)
			if err != nil {
				log.Error("Failed to encode response", slog.Any("error", err))
				continue
			}
			if err := writeEvent(w, "message", data); err != nil {
				log.Info("Stream closed while writing response", slog.Any("error", err))
				return
			}
			flusher.Flush()
		}
	}
}

// writeEvent writes one SSE event. data must not contain newlines.
func writeEvent(w io.Writer, event string, data []byte) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMessageBytes))
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, errors.New("empty body")
	}
	return body, nil
}
