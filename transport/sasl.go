package transport

import (
	"fmt"

	"github.com/lanternmq/amqp1/amqptype"
	"github.com/lanternmq/amqp1/buffer"
	"github.com/lanternmq/amqp1/frame"
	"github.com/lanternmq/amqp1/performative"
	"github.com/lanternmq/amqp1/sasl"
)

// blockingSource adapts a Carrier to frame.Source for the SASL
// handshake, which runs before any engine.Connection exists to drive
// reads through Feed: it blocks on the carrier directly, buffering
// whatever arrives past the frame it is currently waiting for.
type blockingSource struct {
	r   Carrier
	buf []byte
}

func (s *blockingSource) fill(n int) error {
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

func (s *blockingSource) Peek(n int) ([]byte, error) {
	if err := s.fill(n); err != nil {
		return nil, err
	}
	return s.buf[:n], nil
}

func (s *blockingSource) Read(n int) ([]byte, error) {
	if err := s.fill(n); err != nil {
		return nil, err
	}
	out := s.buf[:n]
	s.buf = s.buf[n:]
	return out, nil
}

func (s *blockingSource) Readable() int { return len(s.buf) }

func (s *blockingSource) nextFrame(p *frame.Parser) (*frame.Frame, error) {
	for {
		f, err := p.Next(s)
		if err != nil {
			return nil, err
		}
		if f != nil {
			return f, nil
		}
		if err := s.fill(s.Readable() + 1); err != nil {
			return nil, err
		}
	}
}

// NegotiateSASL drives the client side of SASL negotiation directly
// over carrier, before any engine.Connection exists: it exchanges the
// SASL protocol header, then mechanisms/init/challenge-response/outcome
// frames, blocking until the outcome arrives. Call it before Start-ing
// an engine.Connection over the same carrier when the façade is
// configured for anything other than an implicit ANONYMOUS/no-SASL
// dial.
func NegotiateSASL(carrier Carrier, reg *amqptype.Registry, selector sasl.Selector) error {
	hdr := frame.SASLProtocolHeader().Bytes()
	if _, err := carrier.Write(hdr[:]); err != nil {
		return fmt.Errorf("transport: write sasl header: %w", err)
	}

	src := &blockingSource{r: carrier}
	peerHdr, err := src.Read(frame.ProtocolHeaderSize)
	if err != nil {
		return fmt.Errorf("transport: read sasl header: %w", err)
	}
	if _, err := frame.ParseProtocolHeader(peerHdr); err != nil {
		return fmt.Errorf("transport: bad sasl header: %w", err)
	}

	machine := sasl.NewClientMachine(selector)
	if err := machine.HeaderSent(); err != nil {
		return err
	}

	p := frame.NewParser(0)
	for {
		f, err := src.nextFrame(p)
		if err != nil {
			return fmt.Errorf("transport: read sasl frame: %w", err)
		}
		v, err := amqptype.Decode(buffer.Wrap(f.Body), reg)
		if err != nil {
			return fmt.Errorf("transport: decode sasl frame: %w", err)
		}

		switch perf := v.(type) {
		case performative.SASLMechanisms:
			init, err := machine.Mechanisms(perf)
			if err != nil {
				return err
			}
			if err := writeSASLFrame(carrier, init); err != nil {
				return err
			}
		case performative.SASLChallenge:
			resp, err := machine.Challenge(perf)
			if err != nil {
				return err
			}
			if err := writeSASLFrame(carrier, resp); err != nil {
				return err
			}
		case performative.SASLOutcome:
			return machine.Outcome(perf)
		default:
			return fmt.Errorf("transport: unexpected sasl frame %T", v)
		}
	}
}

func writeSASLFrame(carrier Carrier, v amqptype.Describer) error {
	body := buffer.New()
	if err := amqptype.Encode(body, v); err != nil {
		return err
	}
	out := buffer.New()
	if err := frame.EncodeFrame(out, amqptype.FrameTypeSASL, 0, body.Bytes()); err != nil {
		return err
	}
	_, err := carrier.Write(out.Bytes())
	return err
}
