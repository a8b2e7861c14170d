package engine

import "fmt"

// ProtocolError marks a malformed frame, a forbidden state transition,
// or a broken invariant. A session-level one ends the session with an
// end performative carrying this condition. A connection-level one moves
// the connection to ConnFailed and fails its sessions and links; no close
// performative is emitted. Link.Send returns one for a send on a
// receiving link and leaves the link attached.
type ProtocolError struct {
	Condition string
	Message   string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error [%s]: %s", e.Condition, e.Message)
}

// DecodeError is a codec-level failure: a bad constructor or a
// truncated body. It is always fatal to the connection.
type DecodeError struct {
	Cause error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode error: %v", e.Cause) }
func (e *DecodeError) Unwrap() error { return e.Cause }

// TimeoutError is surfaced on a façade completion when its deadline
// passes; engine state is unchanged unless the timed-out operation was
// open/close itself.
type TimeoutError struct {
	Operation string
}

func (e *TimeoutError) Error() string { return fmt.Sprintf("timeout waiting for %s", e.Operation) }

// RemoteError wraps a peer-supplied error condition surfaced to pending
// completions for the affected scope (link, session, or connection).
type RemoteError struct {
	Scope     string
	Condition string
	Message   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote closed %s [%s]: %s", e.Scope, e.Condition, e.Message)
}

// ResourceError marks a local resource limit hit: buffer capacity,
// handle-max, or a window. The operation fails; engine state is
// unchanged.
type ResourceError struct {
	Resource string
}

func (e *ResourceError) Error() string { return fmt.Sprintf("resource exhausted: %s", e.Resource) }

// AbortedError is surfaced on a delivery's read/receive completion when
// the remote sets aborted=true mid-transfer.
type AbortedError struct {
	DeliveryID uint32
}

func (e *AbortedError) Error() string {
	return fmt.Sprintf("delivery %d aborted by remote", e.DeliveryID)
}
