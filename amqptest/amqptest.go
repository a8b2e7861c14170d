// Package amqptest is a scripted test harness for the engine's
// connection state machine: canned peer byte sequences go in through
// Feed, and every performative the engine emits comes back out through
// a recorded log, the way test/test.go's Default...TestConfig helpers
// stand up a server and bench_test.go stages canned byte streams
// against it. Not a public API: only _test.go files import it.
package amqptest

import (
	"github.com/lanternmq/amqp1/amqptype"
	"github.com/lanternmq/amqp1/buffer"
	"github.com/lanternmq/amqp1/engine"
	"github.com/lanternmq/amqp1/frame"
	"github.com/lanternmq/amqp1/performative"
)

// Emitted is one performative the engine wrote to its outbound buffer.
type Emitted struct {
	Channel uint16
	Value   any
}

// NewRegistry returns a registry with every performative the engine
// needs to decode already registered.
func NewRegistry() *amqptype.Registry {
	reg := amqptype.NewRegistry()
	performative.RegisterAll(reg)
	return reg
}

// DefaultConfig is a ready engine.Config for tests that don't care
// about its specific values.
var DefaultConfig = engine.Config{
	ContainerID:  "amqptest",
	MaxFrameSize: 4096,
}

// Harness wraps an engine.Connection, recording everything it emits so
// tests can assert on it without reaching into engine internals.
type Harness struct {
	Conn *engine.Connection

	HeaderSent bool
	Emitted    []Emitted
	Failures   []error

	reg *amqptype.Registry
}

// New builds a Harness around a fresh connection configured with cfg.
func New(cfg engine.Config) *Harness {
	h := &Harness{reg: NewRegistry()}
	h.Conn = engine.New(cfg, h.reg, engine.Hooks{
		OnHeader: func() { h.HeaderSent = true },
		OnEmit: func(channel uint16, v any) {
			h.Emitted = append(h.Emitted, Emitted{Channel: channel, Value: v})
		},
		OnFailure: func(err error) {
			h.Failures = append(h.Failures, err)
		},
	})
	return h
}

// FeedHeader feeds the default AMQP protocol header, as a peer's
// opening bytes would arrive over a real transport.
func (h *Harness) FeedHeader() error {
	hdr := frame.DefaultProtocolHeader().Bytes()
	return h.Conn.Feed(hdr[:])
}

// FeedPerformative encodes v as a frame on channel and feeds it to the
// connection, as if a peer had sent it.
func (h *Harness) FeedPerformative(channel uint16, v amqptype.Describer) error {
	return h.Conn.Feed(EncodeFrame(channel, v))
}

// EncodeFrame encodes v as a complete AMQP frame on channel: the
// scripted byte-stream building block canned peer sequences are
// assembled from.
func EncodeFrame(channel uint16, v amqptype.Describer) []byte {
	body := buffer.New()
	if err := amqptype.Encode(body, v); err != nil {
		panic(err)
	}
	out := buffer.New()
	if err := frame.EncodeFrame(out, amqptype.FrameTypeAMQP, channel, body.Bytes()); err != nil {
		panic(err)
	}
	return out.Bytes()
}

// Drain reads and clears everything the connection has queued to
// send, mirroring what a transport driver would write out next.
func (h *Harness) Drain() []byte {
	out := h.Conn.Outbound()
	b, err := out.Read(out.Readable())
	if err != nil {
		panic(err)
	}
	return b
}

// LastEmitted returns the most recently emitted performative, or nil
// if nothing has been emitted yet.
func (h *Harness) LastEmitted() any {
	if len(h.Emitted) == 0 {
		return nil
	}
	return h.Emitted[len(h.Emitted)-1].Value
}
