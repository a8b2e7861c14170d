package engine

import "github.com/lanternmq/amqp1/performative"

// LinkState is the attach/detach state machine for one link endpoint.
type LinkState int

const (
	LinkDetached LinkState = iota
	LinkAttachSent
	LinkAttached
	LinkDetachSent
)

// LinkHooks lets a façade observe link-level events: inbound messages,
// credit changes, and detachment.
type LinkHooks struct {
	OnMessage func(*Delivery)
	OnCredit  func()
	OnDetach  func(err error)
	OnSettled func(*Delivery)
}

// Link is one attached sender or receiver within a session, tracking its
// own credit window and the in-flight deliveries it has not yet settled.
type Link struct {
	session *Session
	name    string

	localHandle  uint32
	remoteHandle uint32
	role         performative.Role

	source *performative.Source
	target *performative.Target

	sndSettleMode performative.SenderSettleMode
	rcvSettleMode performative.ReceiverSettleMode

	state LinkState
	err   error

	// Sender-side credit accounting.
	deliveryCount uint32
	linkCredit    uint32

	// Receiver-side credit accounting (what we grant to the peer).
	grantedCredit uint32
	drain         bool

	nextDeliveryTag uint64
	incoming        *Delivery // partially-received multi-frame delivery, if any

	hooks LinkHooks
}

func newLink(s *Session, name string, handle uint32, role performative.Role, source *performative.Source, target *performative.Target) *Link {
	return &Link{
		session: s,
		name:    name,
		localHandle: handle,
		role:    role,
		source:  source,
		target:  target,
	}
}

// SetHooks installs the façade's callbacks for this link.
func (l *Link) SetHooks(h LinkHooks) { l.hooks = h }

// Name, Handle, Role, State expose the link's identity and lifecycle.
func (l *Link) Name() string          { return l.name }
func (l *Link) Handle() uint32        { return l.localHandle }
func (l *Link) Role() performative.Role { return l.role }
func (l *Link) State() LinkState      { return l.state }
func (l *Link) Err() error            { return l.err }

func (l *Link) emitAttach() error {
	a := performative.Attach{
		Name:          l.name,
		Handle:        l.localHandle,
		Role:          l.role,
		SndSettleMode: l.sndSettleMode,
		RcvSettleMode: l.rcvSettleMode,
		Source:        l.source,
		Target:        l.target,
	}
	if err := l.session.conn.emit(l.session.localChannel, a); err != nil {
		return err
	}
	l.state = LinkAttachSent
	return nil
}

func (l *Link) onRemoteAttach(a performative.Attach) {
	if a.Source != nil {
		l.source = a.Source
	}
	if a.Target != nil {
		l.target = a.Target
	}
	l.deliveryCount = a.InitialDeliveryCount
	l.state = LinkAttached
}

// SetCredit grants the peer (when we are the receiver) linkCredit
// deliveries before asking again, emitting a flow performative.
func (l *Link) SetCredit(credit uint32, drain bool) error {
	l.grantedCredit = credit
	l.drain = drain
	return l.emitFlow()
}

func (l *Link) emitFlow() error {
	s := l.session
	handle := l.localHandle
	deliveryCount := l.deliveryCount
	f := performative.Flow{
		NextIncomingID: optionalU32(s.nextIncomingID, s.state == SessionMapped),
		IncomingWindow: s.incomingWindow,
		NextOutgoingID: s.nextOutgoingID,
		OutgoingWindow: s.outgoingWindow,
		Handle:         &handle,
		DeliveryCount:  &deliveryCount,
		LinkCredit:     &l.grantedCredit,
		Drain:          l.drain,
	}
	return s.conn.emit(s.localChannel, f)
}

func optionalU32(v uint32, ok bool) *uint32 {
	if !ok {
		return nil
	}
	return &v
}

func (l *Link) onRemoteFlow(f performative.Flow) error {
	if f.DeliveryCount != nil {
		l.deliveryCount = *f.DeliveryCount
	}
	if f.LinkCredit != nil {
		l.linkCredit = *f.LinkCredit
	}
	if f.Echo {
		return l.emitFlow()
	}
	if l.hooks.OnCredit != nil {
		l.hooks.OnCredit()
	}
	return nil
}

// Send transfers a message on a sending link. It emits a single transfer
// carrying the whole payload with more=false; payloads are not split
// across frames, so a payload larger than the negotiated max-frame-size
// goes out as one oversized frame.
func (l *Link) Send(payload []byte, settled bool) (*Delivery, error) {
	if l.role != performative.RoleSender {
		return nil, &ProtocolError{Condition: "amqp:link:role", Message: "send on a receiving link"}
	}
	if l.linkCredit == 0 {
		return nil, &ResourceError{Resource: "link-credit"}
	}
	s := l.session
	id := s.nextOutgoingID
	tag := make([]byte, 8)
	putUint64(tag, l.nextDeliveryTag)
	l.nextDeliveryTag++

	d := &Delivery{ID: id, Tag: tag, Link: l}

	send := func() error {
		t := performative.Transfer{
			Handle:      l.localHandle,
			DeliveryID:  &id,
			DeliveryTag: tag,
			Settled:     settled,
		}
		if _, err := s.conn.emitTransfer(s.localChannel, t, payload); err != nil {
			return err
		}
		s.nextOutgoingID++
		s.remoteIncomingWindow--
		l.linkCredit--
		l.deliveryCount++
		d.locallySettled = settled
		if !settled {
			s.outgoingDeliveries[id] = d
		}
		return nil
	}

	if s.remoteIncomingWindow == 0 {
		s.stalled = append(s.stalled, send)
		return d, nil
	}
	if err := send(); err != nil {
		return nil, err
	}
	return d, nil
}

func (l *Link) onRemoteTransfer(t performative.Transfer, payload []byte) error {
	var d *Delivery
	if l.incoming != nil {
		d = l.incoming
	} else {
		id := l.session.nextIncomingID
		if t.DeliveryID != nil {
			id = *t.DeliveryID
		}
		d = &Delivery{ID: id, Tag: t.DeliveryTag, Link: l, Format: t.MessageFormat}
		l.session.incomingDeliveries[id] = d
	}

	if t.Aborted {
		d.aborted = true
		d.err = &AbortedError{DeliveryID: d.ID}
		l.incoming = nil
		delete(l.session.incomingDeliveries, d.ID)
		if l.hooks.OnMessage != nil {
			l.hooks.OnMessage(d)
		}
		return nil
	}

	d.appendFrame(payload)

	if t.More {
		l.incoming = d
		return nil
	}
	l.incoming = nil
	l.deliveryCount++
	if !t.Settled {
		// unsettled per the receiver's settlement mode; caller decides
		// the outcome and calls Accept/Reject explicitly.
	} else {
		d.remotelySettled = true
	}
	if l.hooks.OnMessage != nil {
		l.hooks.OnMessage(d)
	}
	return nil
}

// Accept settles an incoming delivery with an accepted outcome and queues
// a settled disposition for it, whatever the receiver settlement mode.
func (l *Link) Accept(d *Delivery) error {
	return l.settle(d, performative.Accepted{})
}

// Reject settles an incoming delivery with a rejected outcome.
func (l *Link) Reject(d *Delivery, reason *performative.Error) error {
	return l.settle(d, performative.Rejected{Error: reason})
}

func (l *Link) settle(d *Delivery, state any) error {
	d.settleLocally(state)
	s := l.session
	if err := s.queueDisposition(performative.RoleReceiver, d.ID, true, state); err != nil {
		return err
	}
	delete(s.incomingDeliveries, d.ID)
	return nil
}

func (l *Link) onRemoteDetach(d performative.Detach) error {
	if d.Error != nil {
		l.err = &RemoteError{Scope: "link", Condition: string(d.Error.Condition), Message: d.Error.Description}
	}
	if l.state == LinkDetachSent {
		l.state = LinkDetached
	} else {
		l.state = LinkDetached
		_ = l.Detach(nil)
	}
	if l.hooks.OnDetach != nil {
		l.hooks.OnDetach(l.err)
	}
	return nil
}

// Detach sends a detach performative, optionally carrying an error.
func (l *Link) Detach(reason *performative.Error) error {
	s := l.session
	if err := s.flushPendingDisposition(); err != nil {
		return err
	}
	d := performative.Detach{Handle: l.localHandle, Closed: true, Error: reason}
	if err := s.conn.emit(s.localChannel, d); err != nil {
		return err
	}
	if l.state != LinkDetached {
		l.state = LinkDetachSent
	}
	return nil
}

func (l *Link) onConnectionFailure(err error) {
	l.err = err
	l.state = LinkDetached
	if l.hooks.OnDetach != nil {
		l.hooks.OnDetach(err)
	}
}

func putUint64(b []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}
