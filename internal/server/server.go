package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Errors
var (
	ErrNotJSON  = errors.New("frame is not a JSON object")
	ErrNoTarget = errors.New("frame names no target")
)

// Config configures the demo server.
type Config struct {
	SocketPath     string
	HealthPath     string
	WriteTimeout   time.Duration
	FallbackTarget string // Element id used when a frame has no HX-Target
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		SocketPath:   "/ws",
		HealthPath:   "/health",
		WriteTimeout: 5 * time.Second,
	}
}

// Stats counts server activity.
type Stats struct {
	Active   int64 `json:"active"`
	Sessions int64 `json:"sessions"`
	Frames   int64 `json:"frames"`
	Replies  int64 `json:"replies"`
}

// Server answers extension frames with out-of-band fragments.
type Server struct {
	cfg      Config
	upgrader websocket.Upgrader
	logger   *slog.Logger

	active   atomic.Int64
	sessions atomic.Int64
	frames   atomic.Int64
	replies  atomic.Int64
}

// New creates a demo server.
func New(cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Handler returns the HTTP handler serving the socket and health paths.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.SocketPath, s.serveSocket)
	mux.HandleFunc(s.cfg.HealthPath, s.serveHealth)
	return mux
}

// Stats returns current statistics.
func (s *Server) Stats() Stats {
	return Stats{
		Active:   s.active.Load(),
		Sessions: s.sessions.Load(),
		Frames:   s.frames.Load(),
		Replies:  s.replies.Load(),
	}
}

func (s *Server) serveSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	id := uuid.New()
	logger := s.logger.With("session", id, "remote", r.RemoteAddr)
	s.sessions.Add(1)
	s.active.Add(1)
	defer s.active.Add(-1)

	logger.Info("session opened")

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("session read error", "error", err)
			}
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		s.frames.Add(1)

		reply, err := Reply(data, s.cfg.FallbackTarget)
		if err != nil {
			logger.Debug("frame not answered", "error", err)
			continue
		}

		if s.cfg.WriteTimeout > 0 {
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
		}
		if err := conn.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
			logger.Warn("reply failed", "error", err)
			break
		}
		s.replies.Add(1)
	}

	logger.Info("session closed")
}

func (s *Server) serveHealth(w http.ResponseWriter, r *http.Request) {
	health := struct {
		Status string `json:"status"`
		Stats  Stats  `json:"stats"`
	}{
		Status: "healthy",
		Stats:  s.Stats(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// Reply builds the fragment answering one frame: the frame's fields,
// escaped and sorted by name, appended to its HX-Target element.
func Reply(frame []byte, fallbackTarget string) (string, error) {
	var payload map[string]any
	if err := json.Unmarshal(frame, &payload); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotJSON, err)
	}

	target := fallbackTarget
	if headers, ok := payload["HEADERS"].(map[string]any); ok {
		if t, _ := headers["HX-Target"].(string); t != "" {
			target = t
		}
	}
	if target == "" {
		return "", ErrNoTarget
	}
	delete(payload, "HEADERS")

	names := make([]string, 0, len(payload))
	for k := range payload {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, `<div id="%s" hx-swap-oob="beforeend"><p>`, html.EscapeString(target))
	for i, k := range names {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%s=%s", html.EscapeString(k), html.EscapeString(fmt.Sprint(payload[k])))
	}
	b.WriteString("</p></div>")
	return b.String(), nil
}
