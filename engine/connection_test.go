package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lanternmq/amqp1/amqptype"
	"github.com/lanternmq/amqp1/buffer"
	"github.com/lanternmq/amqp1/frame"
	"github.com/lanternmq/amqp1/performative"
)

func newTestRegistry() *amqptype.Registry {
	reg := amqptype.NewRegistry()
	performative.RegisterAll(reg)
	return reg
}

func inject(t *testing.T, c *Connection, channel uint16, v amqptype.Describer, payload []byte) {
	t.Helper()
	b := buffer.New()
	require.NoError(t, amqptype.Encode(b, v))
	body := append([]byte{}, b.Bytes()...)
	body = append(body, payload...)
	require.NoError(t, c.IngestFrame(&frame.Frame{Header: frame.Header{Channel: channel}, Body: body}))
}

// drainFrames decodes every frame currently queued in the connection's
// outbound buffer, consuming them.
func drainFrames(t *testing.T, c *Connection, reg *amqptype.Registry) []any {
	t.Helper()
	p := frame.NewParser(1 << 20)
	var out []any
	for {
		f, err := p.Next(c.Outbound())
		require.NoError(t, err)
		if f == nil {
			break
		}
		if len(f.Body) == 0 {
			continue
		}
		v, err := amqptype.Decode(buffer.Wrap(f.Body), reg)
		require.NoError(t, err)
		out = append(out, v)
	}
	return out
}

func establishedConnection(t *testing.T) (*Connection, *amqptype.Registry) {
	t.Helper()
	reg := newTestRegistry()
	c := New(Config{ContainerID: "test"}, reg, Hooks{})
	require.NoError(t, c.Start())
	hdr := frame.DefaultProtocolHeader().Bytes()
	require.NoError(t, c.IngestHeader(hdr[:]))
	inject(t, c, 0, performative.Open{ContainerID: "peer", MaxFrameSize: 4096}, nil)
	require.Equal(t, ConnOpenExchanged, c.State())
	require.NoError(t, c.Outbound().Skip(frame.ProtocolHeaderSize)) // our own protocol header
	drainFrames(t, c, reg)                                          // discard our own open
	return c, reg
}

func TestAnonymousOpenClose(t *testing.T) {
	c, reg := establishedConnection(t)

	require.NoError(t, c.Close(nil))
	require.Equal(t, ConnCloseSent, c.State())

	inject(t, c, 0, performative.Close{}, nil)
	require.Equal(t, ConnClosed, c.State())
	_ = drainFrames(t, c, reg)
}

func attachedSender(t *testing.T, c *Connection) (*Session, *Link) {
	t.Helper()
	sess, err := c.OpenSession()
	require.NoError(t, err)
	inject(t, c, 1, performative.Begin{RemoteChannel: ptrU16(sess.localChannel), NextOutgoingID: 0, IncomingWindow: 64, OutgoingWindow: 64, HandleMax: 0xffffffff}, nil)
	require.Equal(t, SessionMapped, sess.State())

	link, err := sess.OpenLink("sender-link", performative.RoleSender, nil, &performative.Target{Address: "q1"})
	require.NoError(t, err)
	inject(t, c, sess.remoteChannel, performative.Attach{Name: "sender-link", Handle: 0, Role: performative.RoleReceiver}, nil)
	require.Equal(t, LinkAttached, link.State())

	credit := uint32(10)
	inject(t, c, sess.remoteChannel, performative.Flow{Handle: ptrU32(0), LinkCredit: &credit, IncomingWindow: 100, OutgoingWindow: 100}, nil)
	return sess, link
}

func ptrU16(v uint16) *uint16 { return &v }
func ptrU32(v uint32) *uint32 { return &v }

func TestAttachSenderAndSendOneSettledMessage(t *testing.T) {
	c, reg := establishedConnection(t)
	sess, link := attachedSender(t, c)

	d, err := link.Send([]byte("hello"), true)
	require.NoError(t, err)
	require.True(t, d.locallySettled)
	require.Equal(t, uint32(1), sess.nextOutgoingID)
	require.Empty(t, sess.outgoingDeliveries)

	frames := drainFrames(t, c, reg)
	var sawTransfer bool
	for _, f := range frames {
		if _, ok := f.(performative.Transfer); ok {
			sawTransfer = true
		}
	}
	require.True(t, sawTransfer)
}

func attachedReceiver(t *testing.T, c *Connection) (*Session, *Link) {
	t.Helper()
	sess, err := c.OpenSession()
	require.NoError(t, err)
	inject(t, c, 1, performative.Begin{RemoteChannel: ptrU16(sess.localChannel), NextOutgoingID: 0, IncomingWindow: 64, OutgoingWindow: 64, HandleMax: 0xffffffff}, nil)

	link, err := sess.OpenLink("receiver-link", performative.RoleReceiver, &performative.Source{Address: "q1"}, nil)
	require.NoError(t, err)
	inject(t, c, sess.remoteChannel, performative.Attach{Name: "receiver-link", Handle: 0, Role: performative.RoleSender}, nil)
	require.Equal(t, LinkAttached, link.State())

	require.NoError(t, link.SetCredit(10, false))
	return sess, link
}

func TestUnsettledReceiveThenAccept(t *testing.T) {
	c, _ := establishedConnection(t)
	sess, link := attachedReceiver(t, c)

	var got *Delivery
	link.SetHooks(LinkHooks{OnMessage: func(d *Delivery) { got = d }})

	deliveryID := uint32(0)
	inject(t, c, sess.remoteChannel, performative.Transfer{
		Handle: 0, DeliveryID: &deliveryID, DeliveryTag: []byte{1},
	}, []byte("payload"))

	require.NotNil(t, got)
	require.Equal(t, []byte("payload"), got.Payload())
	require.False(t, got.remotelySettled)

	require.NoError(t, link.Accept(got))
	require.True(t, got.locallySettled)
	require.Empty(t, sess.incomingDeliveries)
}

func TestMultiFrameTransferReassembly(t *testing.T) {
	c, _ := establishedConnection(t)
	sess, link := attachedReceiver(t, c)

	var got *Delivery
	link.SetHooks(LinkHooks{OnMessage: func(d *Delivery) { got = d }})

	id := uint32(0)
	inject(t, c, sess.remoteChannel, performative.Transfer{Handle: 0, DeliveryID: &id, DeliveryTag: []byte{1}, More: true}, []byte("hel"))
	require.Nil(t, got)
	inject(t, c, sess.remoteChannel, performative.Transfer{Handle: 0, More: false}, []byte("lo"))

	require.NotNil(t, got)
	require.Equal(t, []byte("hello"), got.Payload())
}

func TestAbortedDelivery(t *testing.T) {
	c, _ := establishedConnection(t)
	sess, link := attachedReceiver(t, c)

	var got *Delivery
	link.SetHooks(LinkHooks{OnMessage: func(d *Delivery) { got = d }})

	id := uint32(0)
	inject(t, c, sess.remoteChannel, performative.Transfer{Handle: 0, DeliveryID: &id, DeliveryTag: []byte{1}, More: true}, []byte("partial"))
	inject(t, c, sess.remoteChannel, performative.Transfer{Handle: 0, Aborted: true}, nil)

	require.NotNil(t, got)
	require.True(t, got.Aborted())
	require.Error(t, got.Err())
	require.Empty(t, sess.incomingDeliveries)
}

func TestAdjacentAcceptsCoalesceIntoOneDisposition(t *testing.T) {
	c, reg := establishedConnection(t)
	sess, link := attachedReceiver(t, c)

	var deliveries []*Delivery
	link.SetHooks(LinkHooks{OnMessage: func(d *Delivery) { deliveries = append(deliveries, d) }})

	for i := uint32(0); i < 3; i++ {
		id := i
		inject(t, c, sess.remoteChannel, performative.Transfer{
			Handle: 0, DeliveryID: &id, DeliveryTag: []byte{byte(i)},
		}, []byte("payload"))
	}
	require.Len(t, deliveries, 3)

	for _, d := range deliveries {
		require.NoError(t, link.Accept(d))
	}
	require.Empty(t, sess.incomingDeliveries)

	_, err := c.Tick(0) // flushes the coalesced range still buffered on the session
	require.NoError(t, err)

	frames := drainFrames(t, c, reg)
	var dispositions []performative.Disposition
	for _, f := range frames {
		if d, ok := f.(performative.Disposition); ok {
			dispositions = append(dispositions, d)
		}
	}
	require.Len(t, dispositions, 1)
	require.Equal(t, uint32(0), dispositions[0].First)
	require.NotNil(t, dispositions[0].Last)
	require.Equal(t, uint32(2), *dispositions[0].Last)
	require.True(t, dispositions[0].Settled)
}

func TestRejectDoesNotCoalesceWithAdjacentAccept(t *testing.T) {
	c, reg := establishedConnection(t)
	sess, link := attachedReceiver(t, c)

	var deliveries []*Delivery
	link.SetHooks(LinkHooks{OnMessage: func(d *Delivery) { deliveries = append(deliveries, d) }})

	for i := uint32(0); i < 2; i++ {
		id := i
		inject(t, c, sess.remoteChannel, performative.Transfer{
			Handle: 0, DeliveryID: &id, DeliveryTag: []byte{byte(i)},
		}, []byte("payload"))
	}
	require.Len(t, deliveries, 2)

	require.NoError(t, link.Accept(deliveries[0]))
	require.NoError(t, link.Reject(deliveries[1], nil))

	_, err := c.Tick(0)
	require.NoError(t, err)

	frames := drainFrames(t, c, reg)
	var dispositions []performative.Disposition
	for _, f := range frames {
		if d, ok := f.(performative.Disposition); ok {
			dispositions = append(dispositions, d)
		}
	}
	require.Len(t, dispositions, 2)
	require.IsType(t, performative.Accepted{}, dispositions[0].State)
	require.IsType(t, performative.Rejected{}, dispositions[1].State)
}

func TestSessionWindowStallAndResume(t *testing.T) {
	c, _ := establishedConnection(t)
	sess, link := attachedSender(t, c)

	sess.remoteIncomingWindow = 1
	_, err := link.Send([]byte("one"), true)
	require.NoError(t, err)
	require.Equal(t, uint32(0), sess.remoteIncomingWindow)

	d2, err := link.Send([]byte("two"), true)
	require.NoError(t, err)
	require.Len(t, sess.stalled, 1)
	require.False(t, d2.locallySettled) // not yet sent, still queued

	nextIncoming := sess.nextOutgoingID
	inject(t, c, sess.remoteChannel, performative.Flow{
		NextIncomingID: &nextIncoming, IncomingWindow: 100, OutgoingWindow: 100,
	}, nil)

	require.Empty(t, sess.stalled)
}
