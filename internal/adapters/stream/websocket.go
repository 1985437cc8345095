package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/aclguard/internal/adapters/store"
	"github.com/okian/aclguard/internal/domain/model"
	"github.com/okian/aclguard/pkg/logger"
	"github.com/okian/aclguard/pkg/metrics"
)

const (
	defaultReadLimit   = 64 << 10
	defaultIdleTimeout = 60 * time.Second
	writeWait          = 5 * time.Second
)

// wsTransport adapts a websocket connection to Transport.
type wsTransport struct {
	conn   *websocket.Conn
	idle   time.Duration
	once   sync.Once
	closed atomic.Bool
}

// NewWebSocketTransport wraps conn. A positive idle duration bounds the
// wait for each inbound message.
func NewWebSocketTransport(conn *websocket.Conn, idle time.Duration) Transport {
	return &wsTransport{conn: conn, idle: idle}
}

func (t *wsTransport) Receive(context.Context) ([]byte, error) {
	if t.idle > 0 {
		if err := t.conn.SetReadDeadline(time.Now().Add(t.idle)); err != nil {
			return nil, fmt.Errorf("set read deadline: %w", err)
		}
	}
	_, data, err := t.conn.ReadMessage()
	if err == nil {
		return data, nil
	}
	if t.closed.Load() || websocket.IsCloseError(err,
		websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
		return nil, model.ErrTransportClosed
	}
	return nil, fmt.Errorf("read message: %w", err)
}

func (t *wsTransport) Send(_ context.Context, f Frame) error {
	if err := t.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := t.conn.WriteJSON(f); err != nil {
		return fmt.Errorf("write %s frame: %w", f.Kind(), err)
	}
	return nil
}

func (t *wsTransport) Close() error {
	var err error
	t.once.Do(func() {
		t.closed.Store(true)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		err = t.conn.Close()
	})
	return err
}

// Handler upgrades requests on /ws/biomechanics/{session_id} to lanes.
type Handler struct {
	sessions    store.SessionStore
	upgrader    websocket.Upgrader
	readLimit   int64
	idleTimeout time.Duration
	laneOpts    []LaneOption
	logger      logger.Logger

	mu       sync.Mutex
	draining bool
	active   sync.WaitGroup
}

// NewHandler creates a websocket lane handler backed by sessions.
func NewHandler(sessions store.SessionStore, opts ...HandlerOption) *Handler {
	h := &Handler{
		sessions:    sessions,
		readLimit:   defaultReadLimit,
		idleTimeout: defaultIdleTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Callers are authorized upstream.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logger.Get().Named("stream")
	}
	return h
}

// ServeHTTP resolves the session, acquires the lane's writer, upgrades the
// connection and runs the lane until it closes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := r.PathValue("session_id")

	if !h.acquire() {
		h.logger.Warn(ctx, "lane refused", logger.String("session_id", sessionID), logger.Error(ErrDraining))
		http.Error(w, ErrDraining.Error(), http.StatusServiceUnavailable)
		return
	}
	defer h.active.Done()

	info, err := h.sessions.LoadSession(ctx, sessionID)
	if err != nil {
		h.refuse(ctx, w, sessionID, err)
		return
	}
	stored, err := h.sessions.LoadSessionSamples(ctx, sessionID)
	if err != nil {
		h.refuse(ctx, w, sessionID, err)
		return
	}
	writer, err := h.sessions.OpenSampleWriter(ctx, sessionID)
	if err != nil {
		h.refuse(ctx, w, sessionID, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		_ = writer.Close()
		metrics.RecordError("stream", "upgrade")
		h.logger.Warn(ctx, "websocket upgrade failed", logger.String("session_id", sessionID), logger.Error(err))
		return
	}
	conn.SetReadLimit(h.readLimit)

	prior := make([]model.Sample, len(stored))
	for i, s := range stored {
		prior[i] = s.Sample
	}
	opts := append([]LaneOption{WithLogger(h.logger), WithPriorSamples(prior)}, h.laneOpts...)
	lane := NewLane(info, NewWebSocketTransport(conn, h.idleTimeout), writer, opts...)
	if err := lane.Run(ctx); err != nil {
		h.logger.Debug(ctx, "lane ended with error", logger.String("session_id", sessionID), logger.Error(err))
	}
}

func (h *Handler) acquire() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.draining {
		return false
	}
	h.active.Add(1)
	return true
}

// Drain stops accepting lanes and waits until every open lane has finished,
// close hooks included. http.Server.Shutdown does not track hijacked
// connections, so callers drain before releasing what lanes persist to.
func (h *Handler) Drain(ctx context.Context) error {
	h.mu.Lock()
	h.draining = true
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.active.Wait()
		close(done)
	}()
	select {
	case <-done:
		h.logger.Info(ctx, "lanes drained")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain lanes: %w", ctx.Err())
	}
}

func (h *Handler) refuse(ctx context.Context, w http.ResponseWriter, sessionID string, err error) {
	status := http.StatusBadGateway
	if errors.Is(err, model.ErrNotFound) {
		status = http.StatusNotFound
	}
	h.logger.Warn(ctx, "lane refused", logger.String("session_id", sessionID), logger.Error(err))
	http.Error(w, err.Error(), status)
}
