package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompositeAppendAndRead(t *testing.T) {
	c := NewComposite()
	require.NoError(t, c.Append(Wrap([]byte{1, 2, 3})))
	require.NoError(t, c.Append(Wrap([]byte{4, 5})))

	assert.Equal(t, 5, c.Readable())

	p, err := c.Read(4)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, p)
	assert.Equal(t, 1, c.Readable())
}

func TestCompositeDuplicateConstituentRejected(t *testing.T) {
	c := NewComposite()
	buf := Wrap([]byte{1})
	require.NoError(t, c.Append(buf))
	assert.ErrorIs(t, c.Append(buf), ErrDuplicateConstituent)
}

func TestCompositeWriteGapRejected(t *testing.T) {
	c := NewComposite()
	require.NoError(t, c.Append(NewWithCapacity(4)))
	partial := Wrap([]byte{1, 2})
	assert.ErrorIs(t, c.Append(partial), ErrWriteGap)
}

func TestCompositeReadGapRejected(t *testing.T) {
	c := NewComposite()
	unread := Wrap([]byte{1, 2, 3})
	require.NoError(t, c.Append(unread))
	partiallyRead := Wrap([]byte{4, 5})
	_, err := partiallyRead.Read(1)
	require.NoError(t, err)
	assert.ErrorIs(t, c.Append(partiallyRead), ErrReadGap)
}

func TestCompositeDecompose(t *testing.T) {
	c := NewComposite()
	a := Wrap([]byte{1})
	b := Wrap([]byte{2})
	require.NoError(t, c.Append(a))
	require.NoError(t, c.Append(b))

	parts := c.Decompose()
	require.Len(t, parts, 2)
	assert.Same(t, a, parts[0])
	assert.Same(t, b, parts[1])
}

func TestCompositeReclaimDropsExhaustedConstituents(t *testing.T) {
	c := NewComposite()
	require.NoError(t, c.Append(Wrap([]byte{1, 2})))
	require.NoError(t, c.Append(Wrap([]byte{3, 4})))

	_, err := c.Read(2)
	require.NoError(t, err)
	c.Reclaim()

	require.Len(t, c.Decompose(), 1)
	assert.Equal(t, 2, c.Readable())

	p, err := c.Read(2)
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 4}, p)
}

func TestCompositeEnsureWritableAllocatesTail(t *testing.T) {
	c := NewComposite()
	require.NoError(t, c.Append(NewWithCapacity(2)))

	alloc := func(n int) *Buffer { return NewWithCapacity(n) }
	require.NoError(t, c.EnsureWritable(10, alloc))
	assert.GreaterOrEqual(t, c.Writable(), 10)

	require.NoError(t, c.Write(make([]byte, 10)))
	assert.Equal(t, 10, c.Readable())
}

func TestCompositeReadUnderrun(t *testing.T) {
	c := NewComposite()
	require.NoError(t, c.Append(Wrap([]byte{1, 2})))
	_, err := c.Read(5)
	assert.ErrorIs(t, err, ErrUnderrun)
}

func TestCompositeTypedReadWriteAcrossConstituents(t *testing.T) {
	c := NewComposite()
	require.NoError(t, c.Append(NewWithCapacity(1)))
	require.NoError(t, c.Append(NewWithCapacity(8)))

	require.NoError(t, c.Write([]byte{0xAA}))
	require.NoError(t, c.WriteUint32(0x01020304))

	b, err := c.ReadUint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0xAA), b)

	v, err := c.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x01020304), v)
}

func TestCompositePeekSpansConstituents(t *testing.T) {
	c := NewComposite()
	require.NoError(t, c.Append(Wrap([]byte{1, 2})))
	require.NoError(t, c.Append(Wrap([]byte{3, 4})))

	p, err := c.Peek(3)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, p)
	assert.Equal(t, 4, c.Readable())
}
