package transport

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lanternmq/amqp1/amqptype"
	"github.com/lanternmq/amqp1/buffer"
	"github.com/lanternmq/amqp1/engine"
	"github.com/lanternmq/amqp1/frame"
	"github.com/lanternmq/amqp1/performative"
)

func newTestRegistry() *amqptype.Registry {
	reg := amqptype.NewRegistry()
	performative.RegisterAll(reg)
	return reg
}

// TestDriverHandshake drives a real engine.Connection over a net.Pipe
// carrier and plays the peer side by hand, checking that bytes the
// driver reads off the pipe reach the connection and that whatever the
// connection queues makes it back onto the wire.
func TestDriverHandshake(t *testing.T) {
	clientSide, peerSide := net.Pipe()
	defer peerSide.Close()

	reg := newTestRegistry()
	conn := engine.New(engine.Config{ContainerID: "client"}, reg, engine.Hooks{})
	drv := New(clientSide, conn, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- drv.Run(ctx) }()

	hdr := make([]byte, frame.ProtocolHeaderSize)
	_, err := readFull(peerSide, hdr)
	require.NoError(t, err)
	require.Equal(t, "AMQP", string(hdr[:4]))

	_, err = peerSide.Write(hdr)
	require.NoError(t, err)

	p := frame.NewParser(1 << 20)
	src := &pipeSource{r: peerSide}
	f, err := readFrameBlocking(t, p, src)
	require.NoError(t, err)
	open, err := amqptype.Decode(buffer.Wrap(f.Body), reg)
	require.NoError(t, err)
	_, ok := open.(performative.Open)
	require.True(t, ok)

	reply := performative.Open{ContainerID: "peer", MaxFrameSize: 4096}
	payload := buffer.New()
	require.NoError(t, amqptype.Encode(payload, reply))
	out := buffer.New()
	require.NoError(t, frame.EncodeFrame(out, amqptype.FrameTypeAMQP, 0, payload.Bytes()))
	_, err = peerSide.Write(out.Bytes())
	require.NoError(t, err)

	deadline := time.Now().Add(2 * time.Second)
	for conn.State() != engine.ConnOpenExchanged {
		if time.Now().After(deadline) {
			t.Fatalf("connection never reached ConnOpenExchanged, state=%v", conn.State())
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-runErr:
		require.Error(t, err)
	case <-time.After(4 * time.Second):
		t.Fatal("driver did not stop after cancel")
	}
}

// TestDriverExecRunsOnDriverGoroutine checks that a closure submitted
// through Exec actually mutates the connection: OpenSession only
// succeeds once the connection has exchanged opens, so a session handed
// back by Exec after the handshake below proves Exec ran after (not
// concurrently with) the driver's own Feed calls.
func TestDriverExecRunsOnDriverGoroutine(t *testing.T) {
	clientSide, peerSide := net.Pipe()
	defer peerSide.Close()

	reg := newTestRegistry()
	conn := engine.New(engine.Config{ContainerID: "client"}, reg, engine.Hooks{})
	drv := New(clientSide, conn, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- drv.Run(ctx) }()

	hdr := make([]byte, frame.ProtocolHeaderSize)
	_, err := readFull(peerSide, hdr)
	require.NoError(t, err)
	_, err = peerSide.Write(hdr)
	require.NoError(t, err)

	p := frame.NewParser(1 << 20)
	src := &pipeSource{r: peerSide}
	_, err = readFrameBlocking(t, p, src)
	require.NoError(t, err)

	reply := performative.Open{ContainerID: "peer", MaxFrameSize: 4096}
	payload := buffer.New()
	require.NoError(t, amqptype.Encode(payload, reply))
	out := buffer.New()
	require.NoError(t, frame.EncodeFrame(out, amqptype.FrameTypeAMQP, 0, payload.Bytes()))
	_, err = peerSide.Write(out.Bytes())
	require.NoError(t, err)

	go func() { _, _ = io.Copy(io.Discard, peerSide) }()

	waitDeadline := time.Now().Add(2 * time.Second)
	for conn.State() != engine.ConnOpenExchanged {
		if time.Now().After(waitDeadline) {
			t.Fatalf("connection never reached ConnOpenExchanged, state=%v", conn.State())
		}
		time.Sleep(5 * time.Millisecond)
	}

	var sess *engine.Session
	execErr := drv.Exec(func() error {
		s, err := conn.OpenSession()
		if err != nil {
			return err
		}
		sess = s
		return nil
	})
	require.NoError(t, execErr)
	require.NotNil(t, sess)

	cancel()
	select {
	case <-runErr:
	case <-time.After(4 * time.Second):
		t.Fatal("driver did not stop after cancel")
	}
}

// TestDriverExecAfterStopReturnsErrStopped checks that a caller blocked
// on Exec is released once the driver stops, instead of deadlocking.
func TestDriverExecAfterStopReturnsErrStopped(t *testing.T) {
	clientSide, peerSide := net.Pipe()
	defer peerSide.Close()
	go func() { _, _ = io.Copy(io.Discard, peerSide) }()

	reg := newTestRegistry()
	conn := engine.New(engine.Config{ContainerID: "client"}, reg, engine.Hooks{})
	drv := New(clientSide, conn, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = drv.Run(ctx) }()
	cancel()

	deadline := time.After(4 * time.Second)
	for {
		err := drv.Exec(func() error { return nil })
		if err == ErrStopped {
			return
		}
		select {
		case <-deadline:
			t.Fatal("Exec never observed the driver stopping")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// pipeSource adapts an io.Reader to frame.Source for the test's manual
// parse loop, buffering whatever it reads in excess of one frame.
type pipeSource struct {
	r   net.Conn
	buf []byte
}

func (s *pipeSource) fill(n int) error {
	for len(s.buf) < n {
		tmp := make([]byte, 4096)
		k, err := s.r.Read(tmp)
		if err != nil {
			return err
		}
		s.buf = append(s.buf, tmp[:k]...)
	}
	return nil
}

func (s *pipeSource) Peek(n int) ([]byte, error) {
	if err := s.fill(n); err != nil {
		return nil, err
	}
	return s.buf[:n], nil
}

func (s *pipeSource) Read(n int) ([]byte, error) {
	if err := s.fill(n); err != nil {
		return nil, err
	}
	out := s.buf[:n]
	s.buf = s.buf[n:]
	return out, nil
}

func (s *pipeSource) Readable() int { return len(s.buf) }

func readFrameBlocking(t *testing.T, p *frame.Parser, src *pipeSource) (*frame.Frame, error) {
	t.Helper()
	for {
		f, err := p.Next(src)
		if err != nil {
			return nil, err
		}
		if f != nil {
			return f, nil
		}
		if err := src.fill(src.Readable() + 1); err != nil {
			return nil, err
		}
	}
}

func readFull(r net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
