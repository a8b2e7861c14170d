// Package engine implements the connection/session/link/delivery state
// machines that drive an AMQP 1.0 connection: decoding inbound frames
// into performatives, mutating state, and queuing outbound performatives
// for the driver to write to the transport. The engine touches no
// sockets; it is fed frame bytes and it produces frame bytes.
package engine

import (
	"github.com/lanternmq/amqp1/amqptype"
	"github.com/lanternmq/amqp1/buffer"
	"github.com/lanternmq/amqp1/frame"
	"github.com/lanternmq/amqp1/performative"
)

// ConnectionState is one node of the connection state machine (§3 of the
// protocol's data model).
type ConnectionState int

const (
	ConnStart ConnectionState = iota
	ConnHeaderSent
	ConnHeaderReceived
	ConnHeaderExchanged
	ConnOpenSent
	ConnOpenReceived
	ConnOpenExchanged
	ConnCloseSent
	ConnCloseReceived
	ConnClosed
	ConnFailed
)

// Hooks lets a driver or test harness observe engine events without the
// engine depending on anything above it.
type Hooks struct {
	OnHeader      func()
	OnPerformative func(channel uint16, v any)
	OnEmit        func(channel uint16, v any)
	OnFailure     func(err error)
}

// Config is the subset of negotiable connection parameters the engine
// needs; the façade's richer option set maps onto this.
type Config struct {
	ContainerID  string
	Hostname     string
	MaxFrameSize uint32
	ChannelMax   uint16
	IdleTimeout  uint32
}

// Connection owns every session on one transport connection and the
// outbound byte queue the driver drains.
type Connection struct {
	cfg      Config
	state    ConnectionState
	registry *amqptype.Registry
	parser   *frame.Parser
	hooks    Hooks

	localMaxFrameSize  uint32
	remoteMaxFrameSize uint32
	channelMax         uint16
	idleTimeoutMillis  uint32

	sessions    map[uint16]*Session // by local (outgoing) channel
	remoteIndex map[uint16]*Session // by remote (incoming) channel
	nextChannel uint16

	out *buffer.Buffer
	in  *buffer.Buffer
	err error

	lastReceivedAt int64
	lastSentAt     int64
	tickNow        int64
}

// New builds a connection in its start state.
func New(cfg Config, registry *amqptype.Registry, hooks Hooks) *Connection {
	if cfg.MaxFrameSize == 0 {
		cfg.MaxFrameSize = 4096
	}
	return &Connection{
		cfg:                cfg,
		state:              ConnStart,
		registry:           registry,
		parser:             frame.NewParser(0),
		hooks:              hooks,
		localMaxFrameSize:  cfg.MaxFrameSize,
		remoteMaxFrameSize: cfg.MaxFrameSize,
		channelMax:         cfg.ChannelMax,
		idleTimeoutMillis:  cfg.IdleTimeout,
		sessions:           make(map[uint16]*Session),
		remoteIndex:        make(map[uint16]*Session),
		out:                buffer.New(),
		in:                 buffer.New(),
	}
}

// Feed appends bytes the driver read off the transport and drives the
// connection forward as far as the buffered bytes allow: the protocol
// header first, then as many complete frames as are available. It
// returns once no further progress can be made without more input.
func (c *Connection) Feed(data []byte) error {
	if err := c.in.Write(data); err != nil {
		return err
	}
	c.in.Compact()

	if c.state == ConnStart || c.state == ConnHeaderSent {
		if c.in.Readable() < frame.ProtocolHeaderSize {
			return nil
		}
		hdr, err := c.in.Read(frame.ProtocolHeaderSize)
		if err != nil {
			return err
		}
		if err := c.IngestHeader(hdr); err != nil {
			return err
		}
		c.in.Compact()
	}

	for {
		f, err := c.parser.Next(c.in)
		if err != nil {
			return c.fail(&DecodeError{Cause: err})
		}
		if f == nil {
			c.in.Compact()
			return nil
		}
		if err := c.IngestFrame(f); err != nil {
			return err
		}
	}
}

// State returns the current connection state.
func (c *Connection) State() ConnectionState { return c.state }

// Err returns the failure reason once State is ConnFailed.
func (c *Connection) Err() error { return c.err }

// Outbound returns the buffer of bytes queued for the transport. The
// caller (driver) is responsible for draining and resetting it after
// writing its contents out.
func (c *Connection) Outbound() *buffer.Buffer { return c.out }

// Start emits the AMQP protocol header, the first thing a client writes.
func (c *Connection) Start() error {
	if c.state != ConnStart {
		return c.protocolError("connection", "start called outside ConnStart")
	}
	hdr := frame.DefaultProtocolHeader().Bytes()
	if err := c.out.Write(hdr[:]); err != nil {
		return err
	}
	c.state = ConnHeaderSent
	return nil
}

// IngestHeader processes 8 bytes believed to be the peer's protocol
// header, echoing ours back if we have not sent one yet.
func (c *Connection) IngestHeader(b []byte) error {
	if _, err := frame.ParseProtocolHeader(b); err != nil {
		return c.fail(&ProtocolError{Condition: "amqp:decode-error", Message: "bad protocol header"})
	}
	if c.hooks.OnHeader != nil {
		c.hooks.OnHeader()
	}
	switch c.state {
	case ConnStart:
		hdr := frame.DefaultProtocolHeader().Bytes()
		if err := c.out.Write(hdr[:]); err != nil {
			return err
		}
		c.state = ConnHeaderExchanged
		return c.emitOpen()
	case ConnHeaderSent:
		c.state = ConnHeaderExchanged
		return c.emitOpen()
	default:
		return c.protocolError("connection", "unexpected protocol header")
	}
}

func (c *Connection) emitOpen() error {
	open := performative.Open{
		ContainerID:  c.cfg.ContainerID,
		Hostname:     c.cfg.Hostname,
		MaxFrameSize: c.localMaxFrameSize,
		ChannelMax:   c.channelMax,
		IdleTimeout:  c.idleTimeoutMillis,
	}
	if err := c.emit(0, open); err != nil {
		return err
	}
	c.state = ConnOpenSent
	return nil
}

// IngestFrame processes one already-framed unit: an AMQP frame whose
// body is a described performative (TYPE must already have been routed
// to the AMQP channel by the caller; SASL frames are the sasl package's
// concern).
func (c *Connection) IngestFrame(f *frame.Frame) error {
	c.lastReceivedAt = c.now()
	if len(f.Body) == 0 {
		return nil // empty frame: keepalive
	}
	b := buffer.Wrap(f.Body)
	v, err := amqptype.Decode(b, c.registry)
	if err != nil {
		return c.fail(&DecodeError{Cause: err})
	}
	if c.hooks.OnPerformative != nil {
		c.hooks.OnPerformative(f.Header.Channel, v)
	}

	switch p := v.(type) {
	case performative.Open:
		return c.handleOpen(p)
	case performative.Close:
		return c.handleClose(p)
	case performative.Transfer:
		return c.routeTransfer(f.Header.Channel, p, b.Bytes())
	default:
		return c.routeToSession(f.Header.Channel, v)
	}
}

func (c *Connection) routeTransfer(channel uint16, t performative.Transfer, payload []byte) error {
	sess, ok := c.remoteIndex[channel]
	if !ok {
		return c.protocolError("connection", "frame on unmapped channel")
	}
	return sess.handleTransfer(t, payload)
}

func (c *Connection) handleOpen(o performative.Open) error {
	if c.state != ConnOpenSent && c.state != ConnHeaderExchanged {
		return c.protocolError("connection", "open received in wrong state")
	}
	if o.MaxFrameSize != 0 && o.MaxFrameSize < c.remoteMaxFrameSize {
		c.remoteMaxFrameSize = o.MaxFrameSize
	}
	effective := c.localMaxFrameSize
	if o.MaxFrameSize != 0 && o.MaxFrameSize < effective {
		effective = o.MaxFrameSize
	}
	c.localMaxFrameSize = effective
	c.parser.SetMaxFrameSize(effective)

	if o.ChannelMax != 0 && o.ChannelMax < c.channelMax {
		c.channelMax = o.ChannelMax
	}
	if o.IdleTimeout != 0 {
		c.idleTimeoutMillis = o.IdleTimeout
	}

	if c.state == ConnHeaderExchanged {
		c.state = ConnOpenReceived
		return nil
	}
	c.state = ConnOpenExchanged
	return nil
}

func (c *Connection) handleClose(cl performative.Close) error {
	if cl.Error != nil {
		c.state = ConnFailed
		c.err = &RemoteError{Scope: "connection", Condition: string(cl.Error.Condition), Message: cl.Error.Description}
		c.failAllSessions(c.err)
		if c.hooks.OnFailure != nil {
			c.hooks.OnFailure(c.err)
		}
		return c.err
	}
	if c.state == ConnCloseSent {
		c.state = ConnClosed
		return nil
	}
	c.state = ConnCloseReceived
	return c.emitClose(nil)
}

// Close starts a graceful shutdown, emitting a close performative.
func (c *Connection) Close(reason *performative.Error) error {
	if err := c.emitClose(reason); err != nil {
		return err
	}
	if c.state == ConnCloseReceived {
		c.state = ConnClosed
	} else {
		c.state = ConnCloseSent
	}
	return nil
}

func (c *Connection) emitClose(reason *performative.Error) error {
	return c.emit(0, performative.Close{Error: reason})
}

func (c *Connection) routeToSession(channel uint16, v any) error {
	if begin, ok := v.(performative.Begin); ok {
		return c.handleBegin(channel, begin)
	}
	sess, ok := c.remoteIndex[channel]
	if !ok {
		return c.protocolError("connection", "frame on unmapped channel")
	}
	return sess.ingest(v)
}

func (c *Connection) handleBegin(remoteChannel uint16, b performative.Begin) error {
	if b.RemoteChannel != nil {
		// Peer is answering a begin we sent; find it by our channel.
		sess, ok := c.sessions[*b.RemoteChannel]
		if !ok {
			return c.protocolError("connection", "begin answers unknown channel")
		}
		if _, busy := c.remoteIndex[remoteChannel]; busy {
			return c.protocolError("connection", "session-busy")
		}
		c.remoteIndex[remoteChannel] = sess
		sess.remoteChannel = remoteChannel
		sess.handleBeginReply(b)
		return nil
	}
	// Peer-initiated session: not modeled for a client-only engine.
	return c.protocolError("connection", "peer-initiated begin unsupported")
}

// OpenSession allocates and begins a new session on the next free
// channel.
func (c *Connection) OpenSession() (*Session, error) {
	if c.state != ConnOpenExchanged && c.state != ConnOpenSent {
		return nil, c.protocolError("connection", "session opened before connection active")
	}
	ch := c.nextChannel
	c.nextChannel++
	s := newSession(c, ch)
	c.sessions[ch] = s
	if err := s.emitBegin(); err != nil {
		return nil, err
	}
	return s, nil
}

func (c *Connection) emit(channel uint16, v amqptype.Describer) error {
	b := buffer.New()
	if err := amqptype.Encode(b, v); err != nil {
		return err
	}
	if err := frame.EncodeFrame(c.out, amqptype.FrameTypeAMQP, channel, b.Bytes()); err != nil {
		return err
	}
	c.lastSentAt = c.now()
	if c.hooks.OnEmit != nil {
		c.hooks.OnEmit(channel, v)
	}
	return nil
}

// emitTransfer encodes a transfer performative followed by its raw
// message bytes in the same frame body, the one performative whose frame
// carries a payload beyond its own fields.
func (c *Connection) emitTransfer(channel uint16, t performative.Transfer, payload []byte) ([]byte, error) {
	b := buffer.New()
	if err := amqptype.Encode(b, t); err != nil {
		return nil, err
	}
	if err := b.Write(payload); err != nil {
		return nil, err
	}
	if err := frame.EncodeFrame(c.out, amqptype.FrameTypeAMQP, channel, b.Bytes()); err != nil {
		return nil, err
	}
	c.lastSentAt = c.now()
	if c.hooks.OnEmit != nil {
		c.hooks.OnEmit(channel, t)
	}
	return b.Bytes(), nil
}

func (c *Connection) protocolError(condition, msg string) error {
	return c.fail(&ProtocolError{Condition: condition, Message: msg})
}

func (c *Connection) fail(err error) error {
	c.state = ConnFailed
	c.err = err
	c.failAllSessions(err)
	if c.hooks.OnFailure != nil {
		c.hooks.OnFailure(err)
	}
	return err
}

func (c *Connection) failAllSessions(err error) {
	for _, s := range c.sessions {
		s.onConnectionFailure(err)
	}
}

// Tick advances the connection's notion of the current time, driving
// idle-timeout enforcement. now is milliseconds on any monotonic scale
// the caller chooses; the engine never reads a wall clock itself.
func (c *Connection) Tick(now int64) (nextDeadline int64, err error) {
	c.tickNow = now
	for _, s := range c.sessions {
		if err := s.flushPendingDisposition(); err != nil {
			return 0, err
		}
	}
	if c.idleTimeoutMillis == 0 || c.state != ConnOpenExchanged {
		return 0, nil
	}
	sinceRecv := now - c.lastReceivedAt
	if sinceRecv > int64(c.idleTimeoutMillis)*2 {
		return 0, c.fail(&ProtocolError{Condition: "amqp:resource-limit-exceeded", Message: "idle timeout exceeded"})
	}
	sinceSent := now - c.lastSentAt
	half := int64(c.idleTimeoutMillis) / 2
	if sinceSent >= half {
		if err := c.emitKeepalive(); err != nil {
			return 0, err
		}
	}
	return now + half, nil
}

func (c *Connection) emitKeepalive() error {
	if err := frame.EncodeFrame(c.out, amqptype.FrameTypeAMQP, 0, nil); err != nil {
		return err
	}
	c.lastSentAt = c.tickNow
	return nil
}

// now is the clock last observed via Tick; used to timestamp emitted
// and received frames for idle-timeout bookkeeping.
func (c *Connection) now() int64 { return c.tickNow }
