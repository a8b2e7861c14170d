package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/lanternmq/amqp1/engine"
	"github.com/lanternmq/amqp1/observability"
	"github.com/lanternmq/amqp1/performative"
)

// Sender is a façade over an attached sending link. Send blocks until the
// remote settles the delivery (or ctx expires), using the engine's
// OnSettled hook to resolve the matching future.
type Sender struct {
	conn *Conn
	link *engine.Link

	mu      sync.Mutex
	pending map[*engine.Delivery]chan error

	creditSignal chan struct{}
}

func newSender(conn *Conn, link *engine.Link) *Sender {
	s := &Sender{
		conn:         conn,
		link:         link,
		pending:      make(map[*engine.Delivery]chan error),
		creditSignal: make(chan struct{}, 1),
	}
	link.SetHooks(engine.LinkHooks{
		OnSettled: s.onSettled,
		OnDetach:  s.onDetach,
		OnCredit:  s.onCredit,
	})
	return s
}

func (s *Sender) onCredit() {
	select {
	case s.creditSignal <- struct{}{}:
	default:
	}
}

func (s *Sender) onSettled(d *engine.Delivery) {
	s.mu.Lock()
	ch, ok := s.pending[d]
	delete(s.pending, d)
	s.mu.Unlock()
	if !ok {
		return
	}
	switch state := d.RemoteState().(type) {
	case performative.Rejected:
		observability.IncDeliverySettled("sender", "rejected")
		ch <- fmt.Errorf("%w: %v", ErrRejected, state.Error)
	case performative.Released:
		observability.IncDeliverySettled("sender", "released")
		ch <- ErrReleased
	default:
		observability.IncDeliverySettled("sender", "accepted")
		ch <- nil
	}
}

func (s *Sender) onDetach(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for d, ch := range s.pending {
		delete(s.pending, d)
		if err == nil {
			err = ErrClosed
		}
		ch <- err
	}
}

// Send transfers payload unsettled and blocks until the remote disposes
// of it, returning the outcome's error (nil on accepted). It waits for
// link credit to become available rather than failing immediately, the
// way a sender with a full send queue would.
func (s *Sender) Send(ctx context.Context, payload []byte) error {
	if s.conn.tracing {
		var span trace.Span
		ctx, span = observability.Tracer().Start(ctx, "amqp10.send")
		defer span.End()
	}

	start := time.Now()
	result := make(chan error, 1)

	var d *engine.Delivery
	for {
		err := s.conn.driver.Exec(func() error {
			del, err := s.link.Send(payload, false)
			if err != nil {
				return err
			}
			d = del
			s.mu.Lock()
			s.pending[d] = result
			s.mu.Unlock()
			return nil
		})
		if err == nil {
			break
		}
		var resErr *engine.ResourceError
		if !errors.As(err, &resErr) || resErr.Resource != "link-credit" {
			return err
		}
		select {
		case <-s.creditSignal:
		case <-ctx.Done():
			return ErrSendTimeout
		}
	}
	observability.ObserveSendLatency(s.link.Name(), time.Since(start))

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		s.mu.Lock()
		delete(s.pending, d)
		s.mu.Unlock()
		return ErrSendTimeout
	}
}

// SendSettled transfers payload pre-settled, firing and forgetting: the
// remote is never asked to acknowledge it.
func (s *Sender) SendSettled(payload []byte) error {
	return s.conn.driver.Exec(func() error {
		_, err := s.link.Send(payload, true)
		return err
	})
}

// Close detaches the link.
func (s *Sender) Close() error {
	return s.conn.driver.Exec(func() error {
		return s.link.Detach(nil)
	})
}
