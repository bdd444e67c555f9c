package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-ohbot/internal/log"
)

// WebSocketConfig configures a remote agent connection.
type WebSocketConfig struct {
	URL              string
	Header           http.Header
	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration // 0 disables read deadlines
}

// WebSocket follows a remote dialogue engine's event stream.
type WebSocket struct {
	state

	cfg    WebSocketConfig
	logger *slog.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	cancel  context.CancelFunc
	done    chan struct{}
	onError func(error)
}

// NewWebSocket creates a websocket agent. Nothing is dialled until Connect.
func NewWebSocket(cfg WebSocketConfig, logger *slog.Logger) *WebSocket {
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = log.Component("agent")
	}
	return &WebSocket{cfg: cfg, logger: logger}
}

// OnError registers a callback for read failures after Connect.
func (w *WebSocket) OnError(fn func(error)) {
	w.mu.Lock()
	w.onError = fn
	w.mu.Unlock()
}

// Connect dials the engine and starts reading events.
func (w *WebSocket) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn != nil {
		return ErrAlreadyConnected
	}

	dialer := websocket.Dialer{HandshakeTimeout: w.cfg.HandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, w.cfg.URL, w.cfg.Header)
	if err != nil {
		if resp != nil {
			return &ConnectionError{Reason: fmt.Sprintf("dial failed with status %d", resp.StatusCode), Cause: err}
		}
		return &ConnectionError{Reason: "dial failed", Cause: err}
	}

	readCtx, cancel := context.WithCancel(context.Background())
	w.conn = conn
	w.cancel = cancel
	w.done = make(chan struct{})

	go w.readLoop(readCtx, conn, w.done)

	w.logger.Info("connected to dialogue engine", "url", w.cfg.URL)
	return nil
}

// Done is closed when the read loop exits.
func (w *WebSocket) Done() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return w.done
}

// Close sends a close frame and tears down the connection.
func (w *WebSocket) Close() error {
	w.mu.Lock()
	conn, cancel, done := w.conn, w.cancel, w.done
	w.conn, w.cancel = nil, nil
	w.mu.Unlock()

	if conn == nil {
		return nil
	}

	cancel()
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	err := conn.Close()
	<-done

	w.logger.Info("disconnected from dialogue engine")
	return err
}

func (w *WebSocket) readLoop(ctx context.Context, conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	for {
		if ctx.Err() != nil {
			return
		}
		if w.cfg.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(w.cfg.ReadTimeout))
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				w.logger.Info("connection closed")
				return
			}
			w.logger.Error("read error", "error", err)
			w.emitError(&ConnectionError{Reason: "read failed", Cause: err})
			return
		}

		if err := w.handle(data); err != nil {
			w.logger.Warn("ignoring event", "error", err)
		}
	}
}

// handle applies one raw event.
func (w *WebSocket) handle(data []byte) error {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	switch ev.Type {
	case EventResponse:
		w.setResponse(ev.Text)
	case EventSpeaking:
		w.emitSpeaking(ev.Speaking)
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, ev.Type)
	}
	return nil
}

func (w *WebSocket) emitError(err error) {
	w.mu.Lock()
	fn := w.onError
	w.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}
