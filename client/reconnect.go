package client

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Reconnector redials addr with exponential backoff whenever the
// connection it hands to the caller fails, until ctx is canceled.
type Reconnector struct {
	addr string
	opts []Option
	l    *slog.Logger
}

// NewReconnector builds a Reconnector that dials addr with opts on every
// attempt.
func NewReconnector(addr string, opts ...Option) *Reconnector {
	return &Reconnector{addr: addr, opts: opts, l: slog.Default()}
}

// ErrStopped is returned by Run's onConnect callback to stop
// reconnecting without it being treated as a transient failure.
var ErrStopped = errors.New("amqp10: reconnector stopped")

// Run dials, invokes onConnect with the live Conn, and waits for
// onConnect to return. If onConnect returns ErrStopped, Run returns nil.
// Any other error (including a dial failure or the connection dying
// under onConnect) triggers a backoff-delayed redial, until ctx is
// canceled.
func (r *Reconnector) Run(ctx context.Context, onConnect func(*Conn) error) error {
	attempt := func() (struct{}, error) {
		conn, err := Dial(ctx, r.addr, r.opts...)
		if err != nil {
			r.l.Warn("amqp10: dial failed, retrying", "addr", r.addr, "error", err)
			return struct{}{}, err
		}
		defer conn.Close()

		err = onConnect(conn)
		if errors.Is(err, ErrStopped) {
			return struct{}{}, nil
		}
		if err != nil {
			r.l.Warn("amqp10: connection lost, reconnecting", "addr", r.addr, "error", err)
			return struct{}{}, err
		}
		return struct{}{}, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 30 * time.Second

	_, err := backoff.Retry(ctx, attempt, backoff.WithBackOff(b))
	return err
}
