package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanternmq/amqp1/amqptype"
	"github.com/lanternmq/amqp1/buffer"
)

func TestProtocolHeaderRoundTrip(t *testing.T) {
	h := DefaultProtocolHeader()
	b := h.Bytes()
	assert.Equal(t, "AMQP", string(b[:4]))

	parsed, err := ParseProtocolHeader(b[:])
	require.NoError(t, err)
	assert.Equal(t, h, parsed)
}

func TestParseProtocolHeaderRejectsBadMagic(t *testing.T) {
	_, err := ParseProtocolHeader([]byte("XMQP\x00\x01\x00\x00"))
	assert.ErrorIs(t, err, ErrBadProtocolHeader)
}

func TestHeaderEncodeDecodeRoundTrip(t *testing.T) {
	b := buffer.New()
	h := Header{Size: 42, DataOffset: 2, Type: amqptype.FrameTypeAMQP, Channel: 3}
	require.NoError(t, EncodeHeader(b, h))

	got, err := DecodeHeader(b, 0)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestDecodeHeaderRejectsTooSmall(t *testing.T) {
	b := buffer.New()
	require.NoError(t, EncodeHeader(b, Header{Size: 4, DataOffset: 2}))
	_, err := DecodeHeader(b, 0)
	assert.ErrorIs(t, err, ErrFrameTooSmall)
}

func TestDecodeHeaderRejectsOverMaxFrameSize(t *testing.T) {
	b := buffer.New()
	require.NoError(t, EncodeHeader(b, Header{Size: 1000, DataOffset: 2}))
	_, err := DecodeHeader(b, 512)
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestParserNeedsMoreDataBeforeFullFrame(t *testing.T) {
	p := NewParser(0)
	b := buffer.New()
	require.NoError(t, b.WriteUint32(16))
	require.NoError(t, b.WriteUint8(2))
	require.NoError(t, b.WriteUint8(0))
	require.NoError(t, b.WriteUint16(0))

	f, err := p.Next(b)
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestParserParsesCompleteFrame(t *testing.T) {
	p := NewParser(0)
	b := buffer.New()
	body := []byte("payload!")
	require.NoError(t, EncodeFrame(b, amqptype.FrameTypeAMQP, 5, body))

	f, err := p.Next(b)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, uint16(5), f.Header.Channel)
	assert.Equal(t, body, f.Body)
}

func TestParserSinksAfterFatalError(t *testing.T) {
	p := NewParser(0)
	b := buffer.New()
	require.NoError(t, EncodeHeader(b, Header{Size: 4, DataOffset: 2}))

	_, err := p.Next(b)
	assert.ErrorIs(t, err, ErrFrameTooSmall)
	assert.True(t, p.Failed())

	_, err = p.Next(b)
	assert.ErrorIs(t, err, ErrSink)
}

func TestParserHandlesBackToBackFrames(t *testing.T) {
	p := NewParser(0)
	b := buffer.New()
	require.NoError(t, EncodeFrame(b, amqptype.FrameTypeAMQP, 1, []byte("one")))
	require.NoError(t, EncodeFrame(b, amqptype.FrameTypeAMQP, 2, []byte("two")))

	first, err := p.Next(b)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, []byte("one"), first.Body)

	second, err := p.Next(b)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, []byte("two"), second.Body)
}
