package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lanternmq/amqp1/engine"
)

// ErrStopped is returned by Exec once the driver's Run loop has
// returned, so a façade call racing a connection failure fails fast
// instead of blocking forever on a loop that will never pick it up.
var ErrStopped = errors.New("transport: driver stopped")

// Driver pumps bytes between a Carrier and an I/O-free engine.Connection
// and is the only goroutine that ever touches either: reads off the
// carrier arrive over an internal channel, and Exec lets other
// goroutines (the client façade) run a closure against the connection
// on this same goroutine, the way Session.stalled queues sends to run
// later on the goroutine that owns the connection's state.
type Driver struct {
	carrier Carrier
	conn    *engine.Connection
	log     *slog.Logger

	cmd   chan func()
	reads chan readResult

	closed    chan struct{}
	closeOnce sync.Once
}

type readResult struct {
	buf []byte
	n   int
	err error
}

// New builds a driver over an already-dialed carrier.
func New(carrier Carrier, conn *engine.Connection, log *slog.Logger) *Driver {
	if log == nil {
		log = slog.Default()
	}
	return &Driver{
		carrier: carrier,
		conn:    conn,
		log:     log,
		cmd:     make(chan func()),
		reads:   make(chan readResult),
		closed:  make(chan struct{}),
	}
}

// Run starts the connection and blocks, pumping bytes and running
// queued Exec closures until ctx is canceled, the carrier errs, or the
// engine fails. It runs the byte pump and the read loop as a pair of
// goroutines joined by an errgroup, rather than a bare
// sync.WaitGroup, so the first of the two to fail is the error Run
// returns and Run does not return until readLoop has actually
// unblocked and exited.
func (d *Driver) Run(ctx context.Context) error {
	if err := d.conn.Start(); err != nil {
		return fmt.Errorf("transport: start connection: %w", err)
	}
	if err := d.flush(); err != nil {
		d.close()
		return err
	}

	var g errgroup.Group
	g.Go(func() error {
		d.readLoop()
		return nil
	})
	g.Go(func() error {
		return d.pump(ctx)
	})
	return g.Wait()
}

func (d *Driver) pump(ctx context.Context) error {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.close()
			return ctx.Err()

		case r := <-d.reads:
			if r.err != nil {
				d.close()
				return fmt.Errorf("transport: read: %w", r.err)
			}
			if err := d.conn.Feed(r.buf[:r.n]); err != nil {
				d.close()
				return fmt.Errorf("transport: feed: %w", err)
			}
			if err := d.flush(); err != nil {
				d.close()
				return err
			}

		case now := <-ticker.C:
			if _, err := d.conn.Tick(now.UnixMilli()); err != nil {
				d.close()
				return err
			}
			if err := d.flush(); err != nil {
				d.close()
				return err
			}

		case fn := <-d.cmd:
			fn()
			if err := d.flush(); err != nil {
				d.close()
				return err
			}
		}
	}
}

// readLoop blocks on the carrier and forwards whatever it reads to
// Run's select loop. It exits once Run closes the carrier (unblocking
// a pending Read with an error) or d.closed is already closed.
func (d *Driver) readLoop() {
	for {
		buf := make([]byte, 32*1024)
		n, err := d.carrier.Read(buf)
		select {
		case d.reads <- readResult{buf: buf, n: n, err: err}:
		case <-d.closed:
			return
		}
		if err != nil {
			return
		}
	}
}

// Exec runs fn on the driver's goroutine and returns its result,
// serializing it with frame ingestion/emission the same way a command
// queue would. It fails with ErrStopped if the driver has already
// stopped.
func (d *Driver) Exec(fn func() error) error {
	result := make(chan error, 1)
	select {
	case d.cmd <- func() { result <- fn() }:
	case <-d.closed:
		return ErrStopped
	}
	select {
	case err := <-result:
		return err
	case <-d.closed:
		return ErrStopped
	}
}

func (d *Driver) flush() error {
	out := d.conn.Outbound()
	if out.Readable() == 0 {
		return nil
	}
	b, err := out.Read(out.Readable())
	if err != nil {
		return err
	}
	_, werr := d.carrier.Write(b)
	out.Reset()
	if werr != nil {
		return fmt.Errorf("transport: write: %w", werr)
	}
	return nil
}

func (d *Driver) close() {
	d.closeOnce.Do(func() {
		close(d.closed)
		_ = d.carrier.Close()
	})
}

// Close stops the driver by closing the underlying carrier, unblocking
// any in-flight read and causing Run to return.
func (d *Driver) Close() error {
	d.close()
	return nil
}
