package client

import (
	"context"

	"github.com/lanternmq/amqp1/amqptype"
	"github.com/lanternmq/amqp1/engine"
	"github.com/lanternmq/amqp1/observability"
	"github.com/lanternmq/amqp1/performative"
)

func newLinkError(condition, description string) *performative.Error {
	return &performative.Error{Condition: amqptype.Symbol(condition), Description: description}
}

// Receiver is a façade over an attached receiving link: incoming
// deliveries queue on a channel fed by the engine's OnMessage hook.
type Receiver struct {
	conn *Conn
	link *engine.Link

	messages chan *engine.Delivery
	detached chan error
}

func newReceiver(conn *Conn, link *engine.Link) *Receiver {
	r := &Receiver{
		conn:     conn,
		link:     link,
		messages: make(chan *engine.Delivery, 256),
		detached: make(chan error, 1),
	}
	link.SetHooks(engine.LinkHooks{
		OnMessage: r.onMessage,
		OnDetach:  r.onDetach,
	})
	return r
}

func (r *Receiver) onMessage(d *engine.Delivery) {
	if d.Aborted() {
		return
	}
	select {
	case r.messages <- d:
	default:
		// receiver isn't keeping up; drop rather than block the driver
		// goroutine, matching the credit window's own backpressure.
	}
}

func (r *Receiver) onDetach(err error) {
	select {
	case r.detached <- err:
	default:
	}
	close(r.messages)
}

// Receive blocks for the next delivery, or returns ctx's error once it
// is done, or the link's detach error once the link has detached.
func (r *Receiver) Receive(ctx context.Context) (*engine.Delivery, error) {
	select {
	case d, ok := <-r.messages:
		if !ok {
			select {
			case err := <-r.detached:
				if err != nil {
					return nil, err
				}
			default:
			}
			return nil, ErrClosed
		}
		return d, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Accept settles d as accepted.
func (r *Receiver) Accept(d *engine.Delivery) error {
	err := r.conn.driver.Exec(func() error {
		return r.link.Accept(d)
	})
	if err == nil {
		observability.IncDeliverySettled("receiver", "accepted")
	}
	return err
}

// Reject settles d as rejected with the given error condition.
func (r *Receiver) Reject(d *engine.Delivery, condition, description string) error {
	err := r.conn.driver.Exec(func() error {
		return r.link.Reject(d, newLinkError(condition, description))
	})
	if err == nil {
		observability.IncDeliverySettled("receiver", "rejected")
	}
	return err
}

// SetCredit sets the link credit granted to the peer to credit (an
// absolute value, not an increment) and sends a flow.
func (r *Receiver) SetCredit(credit uint32, drain bool) error {
	return r.conn.driver.Exec(func() error {
		return r.link.SetCredit(credit, drain)
	})
}

// Close detaches the link.
func (r *Receiver) Close() error {
	return r.conn.driver.Exec(func() error {
		return r.link.Detach(nil)
	})
}
