package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-puppet/pkg/protocol"
)

const (
	// writeWait is how long to wait for a write to complete
	writeWait = 10 * time.Second

	// closeWait bounds the close handshake
	closeWait = time.Second
)

// WebSocket is a session over a websocket connection to the host. Each
// protocol message is one text frame.
type WebSocket struct {
	*session

	conn *websocket.Conn
	wmu  sync.Mutex // gorilla allows one concurrent writer
}

// DialWebSocket connects to the host at url and starts reading.
func DialWebSocket(ctx context.Context, url string, logger *slog.Logger) (*WebSocket, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", url, err)
	}
	return newWebSocket(conn, logger), nil
}

func newWebSocket(conn *websocket.Conn, logger *slog.Logger) *WebSocket {
	w := &WebSocket{conn: conn}
	w.session = newSession("websocket", logger, w.writeMessage)
	go w.readPump()
	return w
}

// readPump reads until the connection fails or is closed.
func (w *WebSocket) readPump() {
	w.conn.SetReadLimit(maxMessageSize)
	for {
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			if w.IsRunning() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				w.logger.Warn("websocket read failed", "error", err)
			}
			w.stop("connection closed")
			return
		}
		w.dispatch(context.Background(), data)
	}
}

func (w *WebSocket) writeMessage(ctx context.Context, msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	w.wmu.Lock()
	defer w.wmu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	w.conn.SetWriteDeadline(deadline)
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a close frame and shuts the connection.
func (w *WebSocket) Close() error {
	w.stop("closed")

	// WriteControl may run alongside WriteMessage.
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWait))
	return w.conn.Close()
}
