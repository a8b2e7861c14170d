package sasl

import (
	"fmt"

	"github.com/lanternmq/amqp1/performative"
)

// State is a client-side SASL negotiation state.
type State int

const (
	StateIdle State = iota
	StateHeaderSent
	StateMechanismsReceived
	StateInitSent
	StateChallengeReceived
	StateResponseSent
	StateOutcomeReceived
	StateAuthenticated
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateHeaderSent:
		return "HEADER_SENT"
	case StateMechanismsReceived:
		return "MECHANISMS_RECEIVED"
	case StateInitSent:
		return "INIT_SENT"
	case StateChallengeReceived:
		return "CHALLENGE_RCVD"
	case StateResponseSent:
		return "RESPONSE_SENT"
	case StateOutcomeReceived:
		return "OUTCOME_RCVD"
	case StateAuthenticated:
		return "AUTHENTICATED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// ClientMachine drives the client side of SASL negotiation. It is fed
// received performatives and a protocol-header-sent signal, and it
// produces outbound performatives through the returned values; it never
// touches a socket.
type ClientMachine struct {
	selector Selector
	chosen   Mechanism
	state    State
	err      error
}

// NewClientMachine builds a machine that will pick a mechanism from the
// server's offer using selector.
func NewClientMachine(selector Selector) *ClientMachine {
	return &ClientMachine{selector: selector, state: StateIdle}
}

// State returns the current negotiation state.
func (m *ClientMachine) State() State { return m.state }

// Err returns the failure reason once State is StateFailed.
func (m *ClientMachine) Err() error { return m.err }

// HeaderSent transitions IDLE -> HEADER_SENT once the SASL protocol
// header has gone out on the wire.
func (m *ClientMachine) HeaderSent() error {
	if m.state != StateIdle {
		return m.protoErr("header sent")
	}
	m.state = StateHeaderSent
	return nil
}

// Mechanisms handles a received sasl-mechanisms and returns the
// sasl-init to send in response.
func (m *ClientMachine) Mechanisms(frame performative.SASLMechanisms) (performative.SASLInit, error) {
	if m.state != StateHeaderSent {
		return performative.SASLInit{}, m.protoErr("mechanisms")
	}
	chosen, err := m.selector(frame.Mechanisms)
	if err != nil {
		m.fail(err)
		return performative.SASLInit{}, err
	}
	m.chosen = chosen
	m.state = StateMechanismsReceived
	init := performative.SASLInit{Mechanism: chosen.Name(), InitialResponse: chosen.Start()}
	m.state = StateInitSent
	return init, nil
}

// Challenge handles a received sasl-challenge and returns the
// sasl-response to send.
func (m *ClientMachine) Challenge(frame performative.SASLChallenge) (performative.SASLResponse, error) {
	if m.state != StateInitSent && m.state != StateResponseSent {
		return performative.SASLResponse{}, m.protoErr("challenge")
	}
	m.state = StateChallengeReceived
	resp, err := m.chosen.Step(frame.Challenge)
	if err != nil {
		m.fail(err)
		return performative.SASLResponse{}, err
	}
	m.state = StateResponseSent
	return performative.SASLResponse{Response: resp}, nil
}

// Outcome handles a received sasl-outcome, completing the negotiation.
func (m *ClientMachine) Outcome(frame performative.SASLOutcome) error {
	if m.state != StateInitSent && m.state != StateResponseSent {
		return m.protoErr("outcome")
	}
	m.state = StateOutcomeReceived
	switch frame.Code {
	case performative.SASLCodeOK:
		m.state = StateAuthenticated
		return nil
	case performative.SASLCodeAuth, performative.SASLCodeSys,
		performative.SASLCodeSysPermanent, performative.SASLCodeSysTemporary:
		m.fail(ErrOutcomeFailed)
		return ErrOutcomeFailed
	default:
		m.fail(ErrUnknownOutcomeCode)
		return ErrUnknownOutcomeCode
	}
}

func (m *ClientMachine) protoErr(step string) error {
	err := fmt.Errorf("%w: %s in state %s", ErrUnexpectedFrame, step, m.state)
	m.fail(err)
	return err
}

func (m *ClientMachine) fail(err error) {
	m.state = StateFailed
	m.err = err
}
