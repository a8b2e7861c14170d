package engine

import "github.com/lanternmq/amqp1/performative"

// Delivery tracks one message transfer through its settlement lifecycle,
// keyed within its session by the delivery-id the sender assigned.
type Delivery struct {
	ID     uint32
	Tag    []byte
	Link   *Link
	Format uint32

	payload []byte
	aborted bool

	localState  any
	remoteState any

	locallySettled  bool
	remotelySettled bool

	err error
}

// Payload returns the reassembled message bytes accumulated across
// however many transfer frames carried this delivery.
func (d *Delivery) Payload() []byte { return d.payload }

// Aborted reports whether the remote ended this delivery mid-transfer.
func (d *Delivery) Aborted() bool { return d.aborted }

// Err returns the failure, if any, recorded against this delivery (for
// example an AbortedError once the remote aborts mid-transfer).
func (d *Delivery) Err() error { return d.err }

// Settled reports whether both sides have settled this delivery.
func (d *Delivery) Settled() bool { return d.locallySettled && d.remotelySettled }

// RemoteState returns the outcome the remote recorded against this
// delivery (performative.Accepted, Rejected, Released, or Modified),
// nil until a disposition names one.
func (d *Delivery) RemoteState() any { return d.remoteState }

func (d *Delivery) appendFrame(payload []byte) {
	d.payload = append(d.payload, payload...)
}

// applyRemoteDisposition folds a disposition frame's outcome into this
// delivery's remote-side state.
func (d *Delivery) applyRemoteDisposition(disp performative.Disposition) {
	d.remoteState = disp.State
	if disp.Settled {
		d.remotelySettled = true
	}
}

// settleLocally marks this delivery as settled on our side, the final
// step before it is dropped from its session's unsettled table.
func (d *Delivery) settleLocally(state any) {
	d.localState = state
	d.locallySettled = true
}
