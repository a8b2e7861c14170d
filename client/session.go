package client

import (
	"context"
	"fmt"
	"time"

	"github.com/lanternmq/amqp1/engine"
	"github.com/lanternmq/amqp1/performative"
)

// Session wraps an engine.Session, routing every mutation through the
// owning Conn's driver so callers never touch the engine directly.
type Session struct {
	conn *Conn
	eng  *engine.Session
}

func newSession(conn *Conn, eng *engine.Session) *Session {
	return &Session{conn: conn, eng: eng}
}

// waitUntil polls cond through the driver's Exec until it reports true,
// ctx is done, or an Exec call itself fails.
func (s *Session) waitUntil(ctx context.Context, cond func() bool) error {
	for {
		var done bool
		if err := s.conn.driver.Exec(func() error {
			done = cond()
			return nil
		}); err != nil {
			return err
		}
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// NewSender attaches a sending link targeting addr and blocks until the
// remote answers the attach (or ctx expires).
func (s *Session) NewSender(ctx context.Context, addr string) (*Sender, error) {
	var l *engine.Link
	err := s.conn.driver.Exec(func() error {
		link, err := s.eng.OpenLink(addr, performative.RoleSender, nil, &performative.Target{Address: addr})
		if err != nil {
			return err
		}
		l = link
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("amqp10: attach sender %q: %w", addr, err)
	}
	if err := s.waitUntil(ctx, func() bool { return l.State() == engine.LinkAttached || l.Err() != nil }); err != nil {
		return nil, err
	}
	if l.Err() != nil {
		return nil, l.Err()
	}
	return newSender(s.conn, l), nil
}

// NewReceiver attaches a receiving link sourcing from addr, grants it
// credit credit (or the Conn's default if zero), and blocks until the
// remote answers the attach (or ctx expires).
func (s *Session) NewReceiver(ctx context.Context, addr string, credit uint32) (*Receiver, error) {
	if credit == 0 {
		credit = s.conn.receiverCredit
	}
	var l *engine.Link
	err := s.conn.driver.Exec(func() error {
		link, err := s.eng.OpenLink(addr, performative.RoleReceiver, &performative.Source{Address: addr}, nil)
		if err != nil {
			return err
		}
		l = link
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("amqp10: attach receiver %q: %w", addr, err)
	}
	if err := s.waitUntil(ctx, func() bool { return l.State() == engine.LinkAttached || l.Err() != nil }); err != nil {
		return nil, err
	}
	if l.Err() != nil {
		return nil, l.Err()
	}
	r := newReceiver(s.conn, l)
	if err := s.conn.driver.Exec(func() error {
		return l.SetCredit(credit, false)
	}); err != nil {
		return nil, err
	}
	return r, nil
}

// End closes the session, ending every link attached to it.
func (s *Session) End() error {
	return s.conn.driver.Exec(func() error {
		return s.eng.End(nil)
	})
}
