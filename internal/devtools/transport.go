// Package devtools implements a DevTools protocol client: request/response
// correlation over a WebSocket and session state derived from events.
package devtools

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Transport carries whole protocol frames.
type Transport interface {
	// Send writes one frame.
	Send(data []byte) error

	// Receive blocks until the next frame arrives.
	Receive() ([]byte, error)

	// Close closes the transport.
	Close() error
}

// MaxFrameSize bounds a single inbound frame (heap snapshot chunks and
// large property listings stay well below this).
const MaxFrameSize = 64 * 1024 * 1024

// WebSocketTransport implements Transport over a gorilla/websocket connection.
type WebSocketTransport struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Dial opens a WebSocket to a debuggee's inspector endpoint.
func Dial(ctx context.Context, url string) (*WebSocketTransport, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, &TransportError{Op: "open", Err: fmt.Errorf("dial %s: %w", url, err)}
	}
	conn.SetReadLimit(MaxFrameSize)

	return NewWebSocketTransport(conn), nil
}

// NewWebSocketTransport wraps an established connection.
func NewWebSocketTransport(conn *websocket.Conn) *WebSocketTransport {
	return &WebSocketTransport{conn: conn}
}

// Send writes a text frame. Gorilla allows one concurrent writer.
func (t *WebSocketTransport) Send(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.conn.WriteMessage(websocket.TextMessage, data)
}

// Receive returns the next text or binary frame's payload.
func (t *WebSocketTransport) Receive() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	return data, err
}

// Close sends a close frame and closes the socket.
func (t *WebSocketTransport) Close() error {
	t.mu.Lock()
	deadline := time.Now().Add(time.Second)
	_ = t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	t.mu.Unlock()

	return t.conn.Close()
}
