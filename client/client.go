// Package client is the user-facing façade over engine and transport: a
// Dial call wires a Carrier to an engine.Connection, runs the transport
// driver on its own goroutine, and gives every other goroutine a safe way
// to reach the connection through Conn's methods rather than touching
// the engine directly.
package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/lanternmq/amqp1/amqptype"
	"github.com/lanternmq/amqp1/engine"
	"github.com/lanternmq/amqp1/observability"
	"github.com/lanternmq/amqp1/performative"
	"github.com/lanternmq/amqp1/sasl"
	"github.com/lanternmq/amqp1/transport"
)

// Conn is one AMQP 1.0 connection, opened by Dial and safe to use from
// any number of goroutines: every method that touches the engine routes
// through the driver's Exec so the engine itself only ever sees calls
// from the single goroutine that also feeds it bytes.
type Conn struct {
	containerID    string
	hostname       string
	saslSelector   sasl.Selector
	maxFrameSize   uint32
	idleTimeout    time.Duration
	l              *slog.Logger
	tracing        bool
	kind           string
	tlsConf        *tls.Config
	dialTimeout    time.Duration
	receiverCredit uint32

	carrier transport.Carrier
	eng     *engine.Connection
	driver  *transport.Driver

	cancel  context.CancelFunc
	runErr  chan error
	closed  atomic.Bool
}

func defaultConn() *Conn {
	return &Conn{
		containerID:    uuid.NewString(),
		maxFrameSize:   65536,
		idleTimeout:    60 * time.Second,
		l:              slog.Default(),
		kind:           "tcp",
		dialTimeout:    10 * time.Second,
		receiverCredit: 64,
	}
}

// Dial opens a transport to addr, optionally negotiates SASL, and
// exchanges AMQP open performatives, returning once the connection
// reaches engine.ConnOpenExchanged or ctx/the dial timeout expires.
func Dial(ctx context.Context, addr string, opts ...Option) (*Conn, error) {
	c := defaultConn()
	for _, opt := range opts {
		opt(c)
	}

	dialCtx, cancelDial := context.WithTimeout(ctx, c.dialTimeout)
	defer cancelDial()

	if c.tracing {
		var span trace.Span
		dialCtx, span = observability.Tracer().Start(dialCtx, "amqp10.dial")
		defer span.End()
	}

	carrier, err := c.dialCarrier(dialCtx, addr)
	if err != nil {
		return nil, err
	}
	c.carrier = carrier

	if c.saslSelector != nil {
		if err := transport.NegotiateSASL(carrier, registry(), c.saslSelector); err != nil {
			_ = carrier.Close()
			return nil, fmt.Errorf("amqp10: sasl negotiation: %w", err)
		}
	}

	ready := make(chan struct{})
	fail := make(chan error, 1)
	var readyClosed atomic.Bool

	hooks := engine.Hooks{
		OnPerformative: func(_ uint16, v any) {
			observability.IncFrameReceived(fmt.Sprintf("%T", v))
			if _, ok := v.(performative.Open); ok {
				if readyClosed.CompareAndSwap(false, true) {
					close(ready)
				}
			}
		},
		OnEmit: func(_ uint16, v any) {
			observability.IncFrameSent(fmt.Sprintf("%T", v))
		},
		OnFailure: func(err error) {
			select {
			case fail <- err:
			default:
			}
		},
	}

	cfg := engine.Config{
		ContainerID:  c.containerID,
		Hostname:     c.hostname,
		MaxFrameSize: c.maxFrameSize,
		IdleTimeout:  uint32(c.idleTimeout / time.Millisecond),
	}
	c.eng = engine.New(cfg, registry(), hooks)
	c.driver = transport.New(carrier, c.eng, c.l)

	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.runErr = make(chan error, 1)
	go func() {
		c.runErr <- c.driver.Run(runCtx)
	}()

	select {
	case <-ready:
		return c, nil
	case err := <-fail:
		cancel()
		<-c.runErr
		_ = carrier.Close()
		return nil, fmt.Errorf("amqp10: %w", err)
	case err := <-c.runErr:
		cancel()
		_ = carrier.Close()
		if err != nil {
			return nil, fmt.Errorf("amqp10: %w", err)
		}
		return nil, ErrClosed
	case <-dialCtx.Done():
		cancel()
		<-c.runErr
		_ = carrier.Close()
		return nil, ErrDialTimeout
	}
}

func (c *Conn) dialCarrier(ctx context.Context, addr string) (transport.Carrier, error) {
	switch c.kind {
	case "tls":
		return transport.DialTLS(ctx, addr, c.tlsConf)
	case "websocket":
		return transport.DialWebSocket(ctx, addr, c.tlsConf, int(c.maxFrameSize))
	default:
		return transport.DialTCP(ctx, addr)
	}
}

// Close ends the connection: it stops the driver, which closes the
// carrier and unblocks any in-flight read.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	_ = c.driver.Exec(func() error {
		return c.eng.Close(nil)
	})
	c.cancel()
	<-c.runErr
	return nil
}

// NewSession opens a new AMQP session on this connection.
func (c *Conn) NewSession() (*Session, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	var sess *engine.Session
	err := c.driver.Exec(func() error {
		s, err := c.eng.OpenSession()
		if err != nil {
			return err
		}
		sess = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return newSession(c, sess), nil
}

func registry() *amqptype.Registry {
	reg := amqptype.NewRegistry()
	performative.RegisterAll(reg)
	return reg
}
