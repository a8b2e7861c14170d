package performative

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanternmq/amqp1/amqptype"
	"github.com/lanternmq/amqp1/buffer"
)

func decodeRoundTrip(t *testing.T, v amqptype.Describer) any {
	t.Helper()
	reg := amqptype.NewRegistry()
	RegisterAll(reg)

	b := buffer.New()
	require.NoError(t, amqptype.Encode(b, v))

	got, err := amqptype.Decode(b, reg)
	require.NoError(t, err)
	return got
}

func TestOpenRoundTrip(t *testing.T) {
	o := Open{ContainerID: "c1", Hostname: "broker.example", MaxFrameSize: 4096, ChannelMax: 10}
	got := decodeRoundTrip(t, o)
	assert.Equal(t, o, got)
}

func TestBeginRoundTrip(t *testing.T) {
	b := Begin{NextOutgoingID: 0, IncomingWindow: 10, OutgoingWindow: 10, HandleMax: 16}
	got := decodeRoundTrip(t, b)
	assert.Equal(t, b, got)
}

func TestAttachRoundTripWithSourceAndTarget(t *testing.T) {
	a := Attach{
		Name:   "L1",
		Handle: 0,
		Role:   RoleSender,
		Source: &Source{Address: "q1"},
		Target: &Target{Address: "q2"},
	}
	got := decodeRoundTrip(t, a).(Attach)
	assert.Equal(t, a.Name, got.Name)
	assert.Equal(t, a.Handle, got.Handle)
	require.NotNil(t, got.Source)
	assert.Equal(t, "q1", got.Source.Address)
	require.NotNil(t, got.Target)
	assert.Equal(t, "q2", got.Target.Address)
}

func TestFlowRoundTrip(t *testing.T) {
	credit := uint32(1)
	f := Flow{IncomingWindow: 1, NextOutgoingID: 0, OutgoingWindow: 1, LinkCredit: &credit}
	got := decodeRoundTrip(t, f).(Flow)
	require.NotNil(t, got.LinkCredit)
	assert.Equal(t, uint32(1), *got.LinkCredit)
}

func TestTransferRoundTrip(t *testing.T) {
	did := uint32(0)
	tr := Transfer{Handle: 0, DeliveryID: &did, DeliveryTag: []byte{1}, Settled: true, More: false}
	got := decodeRoundTrip(t, tr).(Transfer)
	assert.Equal(t, tr.Handle, got.Handle)
	require.NotNil(t, got.DeliveryID)
	assert.Equal(t, uint32(0), *got.DeliveryID)
	assert.True(t, got.Settled)
	assert.False(t, got.More)
}

func TestDispositionRoundTripDefaultsLastToFirst(t *testing.T) {
	d := Disposition{Role: RoleReceiver, First: 7, Settled: true, State: Accepted{}}
	got := decodeRoundTrip(t, d).(Disposition)
	require.NotNil(t, got.Last)
	assert.Equal(t, uint32(7), *got.Last)
	assert.Equal(t, Accepted{}, got.State)
}

func TestCloseRoundTripWithError(t *testing.T) {
	c := Close{Error: &Error{Condition: "amqp:internal-error", Description: "boom"}}
	got := decodeRoundTrip(t, c).(Close)
	require.NotNil(t, got.Error)
	assert.Equal(t, amqptype.Symbol("amqp:internal-error"), got.Error.Condition)
	assert.Equal(t, "boom", got.Error.Description)
}

func TestSASLMechanismsRoundTrip(t *testing.T) {
	m := SASLMechanisms{Mechanisms: []amqptype.Symbol{"ANONYMOUS", "PLAIN"}}
	got := decodeRoundTrip(t, m).(SASLMechanisms)
	assert.Equal(t, m.Mechanisms, got.Mechanisms)
}

func TestSASLOutcomeRoundTrip(t *testing.T) {
	o := SASLOutcome{Code: SASLCodeOK}
	got := decodeRoundTrip(t, o).(SASLOutcome)
	assert.Equal(t, SASLCodeOK, got.Code)
}
