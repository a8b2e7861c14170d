package client

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lanternmq/amqp1/amqptype"
	"github.com/lanternmq/amqp1/buffer"
	"github.com/lanternmq/amqp1/frame"
	"github.com/lanternmq/amqp1/performative"
)

// fakePeer plays the remote side of an AMQP 1.0 connection by hand over
// a real TCP socket, so Dial exercises its full dial/negotiate/open path
// against something other than itself.
type fakePeer struct {
	t    *testing.T
	conn net.Conn
	buf  []byte
	reg  *amqptype.Registry
}

func newFakePeer(t *testing.T, conn net.Conn) *fakePeer {
	return &fakePeer{t: t, conn: conn, reg: registry()}
}

func (p *fakePeer) fill(n int) {
	for len(p.buf) < n {
		tmp := make([]byte, 4096)
		k, err := p.conn.Read(tmp)
		require.NoError(p.t, err)
		p.buf = append(p.buf, tmp[:k]...)
	}
}

func (p *fakePeer) readHeader() {
	p.fill(frame.ProtocolHeaderSize)
	hdr := p.buf[:frame.ProtocolHeaderSize]
	p.buf = p.buf[frame.ProtocolHeaderSize:]
	_, err := frame.ParseProtocolHeader(hdr)
	require.NoError(p.t, err)
}

func (p *fakePeer) writeHeader() {
	hdr := frame.DefaultProtocolHeader().Bytes()
	_, err := p.conn.Write(hdr[:])
	require.NoError(p.t, err)
}

func (p *fakePeer) readPerformative() any {
	parser := frame.NewParser(1 << 20)
	for {
		f, err := parser.Next(p)
		require.NoError(p.t, err)
		if f != nil {
			v, err := amqptype.Decode(buffer.Wrap(f.Body), p.reg)
			require.NoError(p.t, err)
			return v
		}
		p.fill(p.Readable() + 1)
	}
}

func (p *fakePeer) Peek(n int) ([]byte, error) {
	p.fill(n)
	return p.buf[:n], nil
}

func (p *fakePeer) Read(n int) ([]byte, error) {
	p.fill(n)
	out := p.buf[:n]
	p.buf = p.buf[n:]
	return out, nil
}

func (p *fakePeer) Readable() int { return len(p.buf) }

func (p *fakePeer) write(v amqptype.Describer) {
	body := buffer.New()
	require.NoError(p.t, amqptype.Encode(body, v))
	out := buffer.New()
	require.NoError(p.t, frame.EncodeFrame(out, amqptype.FrameTypeAMQP, 0, body.Bytes()))
	_, err := p.conn.Write(out.Bytes())
	require.NoError(p.t, err)
}

// TestDialSessionSenderRoundTrip drives Dial, NewSession, and NewSender
// against a hand-simulated peer, checking that a sent delivery resolves
// once the peer's disposition names it accepted.
func TestDialSessionSenderRoundTrip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	peerDone := make(chan struct{})
	go func() {
		defer close(peerDone)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		p := newFakePeer(t, conn)

		p.readHeader()
		p.writeHeader()

		openAny := p.readPerformative()
		_, ok := openAny.(performative.Open)
		require.True(t, ok)
		p.write(performative.Open{ContainerID: "peer", MaxFrameSize: 65536})

		beginAny := p.readPerformative()
		_, ok = beginAny.(performative.Begin)
		require.True(t, ok)
		remoteChannel := uint16(0)
		p.write(performative.Begin{
			RemoteChannel:  &remoteChannel,
			NextOutgoingID: 0,
			IncomingWindow: 100,
			OutgoingWindow: 100,
			HandleMax:      1000,
		})

		attachAny := p.readPerformative()
		attach, ok := attachAny.(performative.Attach)
		require.True(t, ok)
		require.Equal(t, performative.RoleSender, attach.Role)
		p.write(performative.Attach{
			Name:   attach.Name,
			Handle: 0,
			Role:   performative.RoleReceiver,
			Target: attach.Target,
		})

		handle := uint32(0)
		credit := uint32(10)
		p.write(performative.Flow{
			IncomingWindow: 100,
			OutgoingWindow: 100,
			Handle:         &handle,
			LinkCredit:     &credit,
		})

		transferAny := p.readPerformative()
		transfer, ok := transferAny.(performative.Transfer)
		require.True(t, ok)
		require.NotNil(t, transfer.DeliveryID)

		p.write(performative.Disposition{
			Role:    performative.RoleReceiver,
			First:   *transfer.DeliveryID,
			Settled: true,
			State:   performative.Accepted{},
		})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := Dial(ctx, ln.Addr().String(), WithContainerID("test-client"))
	require.NoError(t, err)
	defer conn.Close()

	sess, err := conn.NewSession()
	require.NoError(t, err)

	sender, err := sess.NewSender(ctx, "queue.test")
	require.NoError(t, err)

	err = sender.Send(ctx, []byte("hello"))
	require.NoError(t, err)

	select {
	case <-peerDone:
	case <-time.After(5 * time.Second):
		t.Fatal("fake peer never finished")
	}
}
