package client

import (
	"crypto/tls"
	"log/slog"
	"time"

	"github.com/lanternmq/amqp1/sasl"
)

// Option configures a Conn before Dial performs the handshake.
type Option func(c *Conn)

// WithContainerID overrides the default (a fresh random uuid).
func WithContainerID(id string) Option {
	return func(c *Conn) { c.containerID = id }
}

// WithHostname sets the hostname field of the open performative, used
// for virtual-hosting proxies in front of the actual broker.
func WithHostname(h string) Option {
	return func(c *Conn) { c.hostname = h }
}

// WithSASL selects the mechanism the client offers, in preference
// order, and the selector used to pick among what the server offers.
func WithSASL(selector sasl.Selector) Option {
	return func(c *Conn) { c.saslSelector = selector }
}

// WithMaxFrameSize sets the max-frame-size this client advertises in its
// open performative; once open is exchanged, inbound frames larger than
// the negotiated size are rejected. Outbound transfers are not split to
// fit it.
func WithMaxFrameSize(n uint32) Option {
	return func(c *Conn) { c.maxFrameSize = n }
}

// WithIdleTimeout sets the idle-timeout this client advertises in its
// open performative.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Conn) { c.idleTimeout = d }
}

// WithLogger overrides the default (slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(c *Conn) { c.l = l }
}

// WithTracing enables span creation around façade operations.
func WithTracing(enabled bool) Option {
	return func(c *Conn) { c.tracing = enabled }
}

// WithTLS dials over TLS using conf; mutually exclusive with
// WithWebSocket (the last one applied wins).
func WithTLS(conf *tls.Config) Option {
	return func(c *Conn) { c.kind = "tls"; c.tlsConf = conf }
}

// WithWebSocket dials over a WebSocket carrier (subprotocol "amqp")
// instead of a raw TCP/TLS byte stream.
func WithWebSocket(conf *tls.Config) Option {
	return func(c *Conn) { c.kind = "websocket"; c.tlsConf = conf }
}

// WithDialTimeout bounds how long Dial waits for the transport dial
// plus the open-performative exchange before returning ErrDialTimeout.
func WithDialTimeout(d time.Duration) Option {
	return func(c *Conn) { c.dialTimeout = d }
}

// WithReceiverCredit sets the default credit a Receiver grants its
// link on creation; receivers can still call SetCredit explicitly.
func WithReceiverCredit(n uint32) Option {
	return func(c *Conn) { c.receiverCredit = n }
}
