// Package realtime exposes the fanout hub over websockets.
package realtime

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"feedbacktriage/internal/fanout"
)

// Path is the websocket endpoint for new-record events.
const Path = "/ws/feedbacks"

const (
	maxMessageSize = 4096
	writeWait      = 10 * time.Second
)

// Conn is one websocket client registered with the hub.
type Conn struct {
	id string
	ws *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func newConn(ws *websocket.Conn) *Conn {
	return &Conn{id: uuid.NewString(), ws: ws}
}

// ID returns the connection id.
func (c *Conn) ID() string { return c.id }

// Send writes ev as a JSON text frame. The context deadline, if any,
// becomes the write deadline.
func (c *Conn) Send(ctx context.Context, ev fanout.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(writeWait)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.ws.WriteJSON(ev)
}

// Close closes the underlying connection once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}

// Handler upgrades requests and keeps each connection registered with
// the hub until the client goes away.
type Handler struct {
	hub      *fanout.Hub
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a Handler. An empty origins list accepts any origin.
func NewHandler(hub *fanout.Hub, logger *zap.Logger, origins []string) *Handler {
	h := &Handler{hub: hub, logger: logger}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(origins),
	}
	return h
}

func originChecker(origins []string) func(*http.Request) bool {
	if len(origins) == 0 {
		return func(*http.Request) bool { return true }
	}
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[strings.TrimSuffix(strings.TrimSpace(o), "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}

// ServeHTTP handles one websocket client. Every inbound message is
// answered with a pong event; the payload is ignored.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	ws.SetReadLimit(maxMessageSize)

	conn := newConn(ws)
	h.hub.Register(conn)
	defer func() {
		h.hub.Deregister(conn)
		_ = conn.Close()
	}()

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket read failed", zap.String("subscriber_id", conn.ID()), zap.Error(err))
			}
			return
		}
		if err := conn.Send(r.Context(), fanout.Event{Type: "pong"}); err != nil {
			h.logger.Debug("websocket pong failed", zap.String("subscriber_id", conn.ID()), zap.Error(err))
			return
		}
	}
}

// NewServer returns the realtime listener serving Path.
func NewServer(addr string, handler http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(Path, handler)
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
