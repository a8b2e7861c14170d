package sasl

import "errors"

var (
	// ErrNoMechanism is returned when none of the server's offered
	// mechanisms are acceptable to the configured selector.
	ErrNoMechanism = errors.New("sasl: no acceptable mechanism offered")

	// ErrUnexpectedFrame is returned when a SASL performative arrives
	// that is not valid in the state machine's current state.
	ErrUnexpectedFrame = errors.New("sasl: unexpected frame for current state")

	// ErrOutcomeFailed is returned when the server's outcome code is
	// anything other than ok; the outcome carries the reason.
	ErrOutcomeFailed = errors.New("sasl: authentication failed")

	// ErrUnknownOutcomeCode is returned for an outcome code the client
	// does not recognize. Per design note, this fails fast rather than
	// retrying.
	ErrUnknownOutcomeCode = errors.New("sasl: unknown outcome code")
)
