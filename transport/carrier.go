// Package transport drives an engine.Connection over a real socket: it
// reads bytes off a Carrier, feeds them to the frame parser and engine,
// and flushes whatever the engine queued back onto the Carrier. The
// engine itself never touches net.Conn.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"
)

// Carrier is the minimal byte-stream shape the driver needs; TCP, TLS,
// and WebSocket connections all present it identically once dialed.
type Carrier interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// DialTCP opens a plain TCP carrier.
func DialTCP(ctx context.Context, addr string) (Carrier, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial tcp: %w", err)
	}
	return conn, nil
}

// DialTLS opens a TLS carrier, performing the handshake before it
// returns so the first bytes the driver reads are already AMQP.
func DialTLS(ctx context.Context, addr string, conf *tls.Config) (Carrier, error) {
	d := tls.Dialer{Config: conf}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial tls: %w", err)
	}
	return conn, nil
}
