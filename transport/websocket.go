package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// subprotocol is the WebSocket subprotocol AMQP-over-WebSocket peers
// negotiate, per the binding's registered value.
const subprotocol = "amqp"

// wsCarrier adapts a message-oriented *websocket.Conn to the byte-stream
// Carrier shape: reads drain the current inbound message and fetch the
// next one once exhausted, writes send one binary message per call.
type wsCarrier struct {
	conn *websocket.Conn

	mu      sync.Mutex
	pending []byte
}

// DialWebSocket opens a WebSocket carrier at addr (an ws:// or wss://
// URL), negotiating the "amqp" subprotocol. A positive maxFrameSize
// becomes the underlying connection's read limit, so an inbound WebSocket
// message larger than that fails the read. Writes are not limited: each
// Write goes out as one binary message whatever its length.
func DialWebSocket(ctx context.Context, addr string, tlsConf *tls.Config, maxFrameSize int) (Carrier, error) {
	dialer := websocket.Dialer{
		TLSClientConfig:  tlsConf,
		Subprotocols:     []string{subprotocol},
		HandshakeTimeout: 10 * time.Second,
	}
	conn, resp, err := dialer.DialContext(ctx, addr, http.Header{})
	if err != nil {
		return nil, fmt.Errorf("transport: dial websocket: %w", err)
	}
	if resp != nil {
		defer resp.Body.Close()
	}
	if maxFrameSize > 0 {
		conn.SetReadLimit(int64(maxFrameSize))
	}
	return &wsCarrier{conn: conn}, nil
}

func (w *wsCarrier) Read(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for len(w.pending) == 0 {
		typ, msg, err := w.conn.ReadMessage()
		if err != nil {
			return 0, fmt.Errorf("transport: websocket read: %w", err)
		}
		if typ != websocket.BinaryMessage {
			continue
		}
		w.pending = msg
	}
	n := copy(p, w.pending)
	w.pending = w.pending[n:]
	return n, nil
}

func (w *wsCarrier) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, fmt.Errorf("transport: websocket write: %w", err)
	}
	return len(p), nil
}

func (w *wsCarrier) SetReadDeadline(t time.Time) error  { return w.conn.SetReadDeadline(t) }
func (w *wsCarrier) SetWriteDeadline(t time.Time) error { return w.conn.SetWriteDeadline(t) }
func (w *wsCarrier) Close() error                       { return w.conn.Close() }
