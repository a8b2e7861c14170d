package engine

import (
	"reflect"

	"github.com/lanternmq/amqp1/amqptype"
	"github.com/lanternmq/amqp1/performative"
)

// SessionState mirrors the connection's state machine one layer down.
type SessionState int

const (
	SessionUnmapped SessionState = iota
	SessionBeginSent
	SessionMapped
	SessionEndSent
	SessionEnded
)

// Session owns a dense per-direction handle table and the session-level
// flow-control windows described in the protocol's connection design.
type Session struct {
	conn          *Connection
	localChannel  uint16
	remoteChannel uint16
	state         SessionState

	nextOutgoingID       uint32
	outgoingWindow       uint32
	nextIncomingID       uint32
	incomingWindow       uint32
	remoteIncomingWindow uint32
	remoteOutgoingWindow uint32

	handleMax    uint32
	nextHandle   uint32
	byLocalHandle  map[uint32]*Link
	byRemoteHandle map[uint32]*Link

	outgoingDeliveries map[uint32]*Delivery
	incomingDeliveries map[uint32]*Delivery

	// pendingDisp buffers the most recent outbound disposition so a run
	// of settles sharing (role, settled, state) on adjacent delivery-ids
	// coalesces into one (first,last) range instead of one frame per id.
	pendingDisp *pendingDisposition

	err error

	// stalled holds transfers withheld because the peer's incoming
	// window (as tracked via remoteIncomingWindow) is exhausted; they are
	// flushed once a flow performative advances it.
	stalled []func() error
}

const defaultWindow = 64

// pendingDisposition is an outbound disposition range not yet written
// to the connection's outbound buffer.
type pendingDisposition struct {
	role    performative.Role
	first   uint32
	last    uint32
	settled bool
	state   any
}

func newSession(conn *Connection, localChannel uint16) *Session {
	return &Session{
		conn:               conn,
		localChannel:       localChannel,
		state:              SessionUnmapped,
		outgoingWindow:     defaultWindow,
		incomingWindow:     defaultWindow,
		handleMax:          0xffffffff,
		byLocalHandle:      make(map[uint32]*Link),
		byRemoteHandle:     make(map[uint32]*Link),
		outgoingDeliveries: make(map[uint32]*Delivery),
		incomingDeliveries: make(map[uint32]*Delivery),
	}
}

// State returns the current session state.
func (s *Session) State() SessionState { return s.state }

// Err returns the failure reason once the session has ended in error.
func (s *Session) Err() error { return s.err }

func (s *Session) emitBegin() error {
	b := performative.Begin{
		NextOutgoingID: s.nextOutgoingID,
		IncomingWindow: s.incomingWindow,
		OutgoingWindow: s.outgoingWindow,
		HandleMax:      s.handleMax,
	}
	if err := s.conn.emit(s.localChannel, b); err != nil {
		return err
	}
	s.state = SessionBeginSent
	return nil
}

func (s *Session) handleBeginReply(b performative.Begin) {
	s.remoteIncomingWindow = b.IncomingWindow
	s.remoteOutgoingWindow = b.OutgoingWindow
	s.nextIncomingID = b.NextOutgoingID
	if b.HandleMax < s.handleMax {
		s.handleMax = b.HandleMax
	}
	s.state = SessionMapped
}

// ingest dispatches a decoded performative that carries a channel routed
// to this session.
func (s *Session) ingest(v any) error {
	switch p := v.(type) {
	case performative.Begin:
		s.handleBeginReply(p)
		return nil
	case performative.Attach:
		return s.handleAttach(p)
	case performative.Flow:
		return s.handleFlow(p)
	case performative.Disposition:
		return s.handleDisposition(p)
	case performative.Detach:
		return s.handleDetach(p)
	case performative.End:
		return s.handleEnd(p)
	default:
		return s.protocolError("unexpected performative on session")
	}
}

// OpenLink allocates the next dense local handle and sends attach.
func (s *Session) OpenLink(name string, role performative.Role, source *performative.Source, target *performative.Target) (*Link, error) {
	if s.state != SessionMapped && s.state != SessionBeginSent {
		return nil, s.protocolError("link opened before session mapped")
	}
	handle := s.nextHandle
	if uint32(handle) > s.handleMax {
		return nil, &ResourceError{Resource: "handle-max"}
	}
	s.nextHandle++
	l := newLink(s, name, handle, role, source, target)
	s.byLocalHandle[handle] = l
	if err := l.emitAttach(); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Session) handleAttach(a performative.Attach) error {
	l, ok := s.linkByName(a.Name)
	if !ok {
		return s.protocolError("attach for unknown link name")
	}
	if _, busy := s.byRemoteHandle[a.Handle]; busy {
		return s.protocolError("unattached-handle")
	}
	l.remoteHandle = a.Handle
	s.byRemoteHandle[a.Handle] = l
	l.onRemoteAttach(a)
	return nil
}

func (s *Session) linkByName(name string) (*Link, bool) {
	for _, l := range s.byLocalHandle {
		if l.name == name {
			return l, true
		}
	}
	return nil, false
}

func (s *Session) handleFlow(f performative.Flow) error {
	if f.NextIncomingID != nil {
		s.remoteOutgoingWindow = f.OutgoingWindow
		received := s.nextOutgoingID - *f.NextIncomingID
		if received > f.IncomingWindow {
			s.remoteIncomingWindow = 0
		} else {
			s.remoteIncomingWindow = f.IncomingWindow - received
		}
	} else {
		s.remoteIncomingWindow = f.IncomingWindow
	}
	s.flushStalled()

	if f.Handle != nil {
		l, ok := s.byRemoteHandle[*f.Handle]
		if !ok {
			return s.protocolError("unattached-handle")
		}
		return l.onRemoteFlow(f)
	}
	return nil
}

func (s *Session) flushStalled() {
	for len(s.stalled) > 0 && s.remoteIncomingWindow > 0 {
		next := s.stalled[0]
		s.stalled = s.stalled[1:]
		_ = next()
	}
}

func (s *Session) handleTransfer(t performative.Transfer, payload []byte) error {
	l, ok := s.byRemoteHandle[t.Handle]
	if !ok {
		return s.protocolError("unattached-handle")
	}
	s.incomingWindow--
	s.nextIncomingID++
	return l.onRemoteTransfer(t, payload)
}

func (s *Session) handleDisposition(d performative.Disposition) error {
	last := d.First
	if d.Last != nil {
		last = *d.Last
	}
	if last < d.First {
		return s.protocolError("disposition first > last")
	}
	// A disposition names the role of whoever sent it. A receiver's
	// disposition settles deliveries we sent; a sender's disposition
	// settles deliveries we received.
	weAreSender := d.Role == performative.RoleReceiver
	table := s.incomingDeliveries
	if weAreSender {
		table = s.outgoingDeliveries
	}
	for id := d.First; id <= last; id++ {
		if dl, ok := table[id]; ok {
			dl.applyRemoteDisposition(d)
			if weAreSender && d.Settled {
				// A sending link has no separate settlement step of its
				// own beyond seeing the receiver's outcome.
				dl.locallySettled = true
			}
			if dl.locallySettled && dl.remotelySettled {
				delete(table, id)
				if dl.Link != nil && dl.Link.hooks.OnSettled != nil {
					dl.Link.hooks.OnSettled(dl)
				}
			}
		}
	}
	return nil
}

// queueDisposition buffers one delivery's settlement, extending the
// pending range when id is adjacent to it and shares (role, settled,
// state), or flushing the previous range first when it isn't.
func (s *Session) queueDisposition(role performative.Role, id uint32, settled bool, state any) error {
	if p := s.pendingDisp; p != nil && p.role == role && p.settled == settled &&
		reflect.DeepEqual(p.state, state) && id == p.last+1 {
		p.last = id
		return nil
	}
	if err := s.flushPendingDisposition(); err != nil {
		return err
	}
	s.pendingDisp = &pendingDisposition{role: role, first: id, last: id, settled: settled, state: state}
	return nil
}

// flushPendingDisposition emits whatever disposition range is buffered,
// if any. Call before anything that depends on every settle so far
// having actually been written out: detaching the owning link, ending
// the session, or an idle tick.
func (s *Session) flushPendingDisposition() error {
	p := s.pendingDisp
	if p == nil {
		return nil
	}
	s.pendingDisp = nil
	disp := performative.Disposition{Role: p.role, First: p.first, Settled: p.settled, State: p.state}
	if p.last != p.first {
		last := p.last
		disp.Last = &last
	}
	return s.conn.emit(s.localChannel, disp)
}

func (s *Session) handleDetach(d performative.Detach) error {
	l, ok := s.byRemoteHandle[d.Handle]
	if !ok {
		return s.protocolError("unattached-handle")
	}
	return l.onRemoteDetach(d)
}

func (s *Session) handleEnd(e performative.End) error {
	if e.Error != nil {
		s.err = &RemoteError{Scope: "session", Condition: string(e.Error.Condition), Message: e.Error.Description}
	}
	if s.state == SessionEndSent {
		s.state = SessionEnded
		return nil
	}
	s.state = SessionEnded
	return s.End(nil)
}

// End sends an end performative, optionally carrying an error.
func (s *Session) End(reason *performative.Error) error {
	if err := s.flushPendingDisposition(); err != nil {
		return err
	}
	if err := s.conn.emit(s.localChannel, performative.End{Error: reason}); err != nil {
		return err
	}
	if s.state != SessionEnded {
		s.state = SessionEndSent
	}
	return nil
}

func (s *Session) onConnectionFailure(err error) {
	s.err = err
	s.state = SessionEnded
	for _, l := range s.byLocalHandle {
		l.onConnectionFailure(err)
	}
}

func (s *Session) protocolError(msg string) error {
	err := &ProtocolError{Condition: "amqp:session:" + msg, Message: msg}
	s.err = err
	s.state = SessionEnded
	_ = s.End(&performative.Error{Condition: amqptype.Symbol(err.Condition), Description: msg})
	return err
}
