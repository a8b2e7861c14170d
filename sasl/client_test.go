package sasl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanternmq/amqp1/amqptype"
	"github.com/lanternmq/amqp1/performative"
)

func TestAnonymousHappyPath(t *testing.T) {
	m := NewClientMachine(PreferenceOrder(Anonymous{}))
	require.NoError(t, m.HeaderSent())

	init, err := m.Mechanisms(performative.SASLMechanisms{Mechanisms: []amqptype.Symbol{"ANONYMOUS", "PLAIN"}})
	require.NoError(t, err)
	assert.Equal(t, amqptype.Symbol("ANONYMOUS"), init.Mechanism)
	assert.Equal(t, StateInitSent, m.State())

	require.NoError(t, m.Outcome(performative.SASLOutcome{Code: performative.SASLCodeOK}))
	assert.Equal(t, StateAuthenticated, m.State())
}

func TestPlainEncodesInitialResponse(t *testing.T) {
	m := NewClientMachine(PreferenceOrder(Plain{Username: "u", Password: "p"}))
	require.NoError(t, m.HeaderSent())

	init, err := m.Mechanisms(performative.SASLMechanisms{Mechanisms: []amqptype.Symbol{"PLAIN"}})
	require.NoError(t, err)
	assert.Equal(t, []byte("\x00u\x00p"), init.InitialResponse)
}

func TestNoAcceptableMechanismFails(t *testing.T) {
	m := NewClientMachine(PreferenceOrder(Plain{Username: "u", Password: "p"}))
	require.NoError(t, m.HeaderSent())

	_, err := m.Mechanisms(performative.SASLMechanisms{Mechanisms: []amqptype.Symbol{"GSSAPI"}})
	assert.ErrorIs(t, err, ErrNoMechanism)
	assert.Equal(t, StateFailed, m.State())
}

func TestOutcomeAuthFails(t *testing.T) {
	m := NewClientMachine(PreferenceOrder(Anonymous{}))
	require.NoError(t, m.HeaderSent())
	_, err := m.Mechanisms(performative.SASLMechanisms{Mechanisms: []amqptype.Symbol{"ANONYMOUS"}})
	require.NoError(t, err)

	err = m.Outcome(performative.SASLOutcome{Code: performative.SASLCodeAuth})
	assert.ErrorIs(t, err, ErrOutcomeFailed)
	assert.Equal(t, StateFailed, m.State())
}

func TestUnknownOutcomeCodeFailsFast(t *testing.T) {
	m := NewClientMachine(PreferenceOrder(Anonymous{}))
	require.NoError(t, m.HeaderSent())
	_, err := m.Mechanisms(performative.SASLMechanisms{Mechanisms: []amqptype.Symbol{"ANONYMOUS"}})
	require.NoError(t, err)

	err = m.Outcome(performative.SASLOutcome{Code: performative.SASLCode(99)})
	assert.ErrorIs(t, err, ErrUnknownOutcomeCode)
}

func TestOutOfOrderFrameIsProtocolError(t *testing.T) {
	m := NewClientMachine(PreferenceOrder(Anonymous{}))
	_, err := m.Mechanisms(performative.SASLMechanisms{Mechanisms: []amqptype.Symbol{"ANONYMOUS"}})
	assert.ErrorIs(t, err, ErrUnexpectedFrame)
}
