// Package buffer implements the byte-container layer the AMQP codec and
// frame parser are built on: a readable/writable byte region with two
// independent cursors, plus a composite variant that presents several
// such regions as one logical sequence.
package buffer

import "math"

// Buffer is an ordered sequence of bytes with independent read and write
// cursors: readOffset <= writeOffset <= capacity at all times. All
// multi-byte primitives are big-endian, matching the AMQP wire format.
type Buffer struct {
	buf []byte
	r   int
	w   int
}

// New allocates an empty buffer with no backing storage. Writes grow it
// on demand, the way append grows a nil slice.
func New() *Buffer {
	return &Buffer{}
}

// NewWithCapacity allocates a buffer with room for n bytes before the
// first reallocation.
func NewWithCapacity(n int) *Buffer {
	return &Buffer{buf: make([]byte, 0, n)}
}

// Wrap builds a buffer over an existing byte slice, fully written: the
// write cursor starts at len(b) and the read cursor at 0. Used to present
// already-received bytes to the decoder.
func Wrap(b []byte) *Buffer {
	return &Buffer{buf: b, w: len(b)}
}

// Capacity is the number of bytes currently backing the buffer. It grows
// as writes exceed it (see EnsureWritable).
func (b *Buffer) Capacity() int { return cap(b.buf) }

// Len is the number of bytes written so far (writeOffset).
func (b *Buffer) Len() int { return b.w }

// ReadOffset returns the current read cursor.
func (b *Buffer) ReadOffset() int { return b.r }

// WriteOffset returns the current write cursor.
func (b *Buffer) WriteOffset() int { return b.w }

// Readable is the number of unread bytes.
func (b *Buffer) Readable() int { return b.w - b.r }

// Writable is the number of bytes that can be written before the next
// reallocation.
func (b *Buffer) Writable() int { return cap(b.buf) - b.w }

// Bytes returns the unread portion of the buffer. The returned slice
// aliases the buffer's storage; callers must not retain it across a
// subsequent write.
func (b *Buffer) Bytes() []byte { return b.buf[b.r:b.w] }

// WrittenBytes returns the entire written region, including already-read
// bytes. Used when re-framing a fully-decoded buffer for re-transmission.
func (b *Buffer) WrittenBytes() []byte { return b.buf[:b.w] }

// EnsureWritable grows the backing storage, if needed, so that at least n
// more bytes can be written without another reallocation.
func (b *Buffer) EnsureWritable(n int) error {
	if n < 0 {
		return ErrOutOfRange
	}
	if b.Writable() >= n {
		return nil
	}
	want := b.w + n
	if want < b.w {
		return ErrCapacityOverflow
	}
	grown := make([]byte, b.w, growCapacity(cap(b.buf), want))
	copy(grown, b.buf[:b.w])
	b.buf = grown
	return nil
}

func growCapacity(have, want int) int {
	if have == 0 {
		have = 64
	}
	for have < want {
		if have > math.MaxInt32 {
			return want
		}
		have *= 2
	}
	return have
}

// Fill appends n copies of v to the writable region, growing as needed.
func (b *Buffer) Fill(v byte, n int) error {
	if err := b.EnsureWritable(n); err != nil {
		return err
	}
	b.buf = b.buf[:b.w+n]
	for i := 0; i < n; i++ {
		b.buf[b.w+i] = v
	}
	b.w += n
	return nil
}

// Write appends raw bytes.
func (b *Buffer) Write(p []byte) error {
	if err := b.EnsureWritable(len(p)); err != nil {
		return err
	}
	b.buf = b.buf[:b.w+len(p)]
	copy(b.buf[b.w:], p)
	b.w += len(p)
	return nil
}

// Read consumes and returns the next n bytes. The returned slice aliases
// the buffer; copy it if it must outlive the next write.
func (b *Buffer) Read(n int) ([]byte, error) {
	if n < 0 || b.r+n > b.w {
		return nil, ErrUnderrun
	}
	p := b.buf[b.r : b.r+n]
	b.r += n
	return p, nil
}

// Peek returns the next n unread bytes without advancing the read cursor.
func (b *Buffer) Peek(n int) ([]byte, error) {
	if n < 0 || b.r+n > b.w {
		return nil, ErrUnderrun
	}
	return b.buf[b.r : b.r+n], nil
}

// Skip advances the read cursor by n bytes without returning them.
func (b *Buffer) Skip(n int) error {
	if n < 0 || b.r+n > b.w {
		return ErrUnderrun
	}
	b.r += n
	return nil
}

// Reset rewinds both cursors to zero without releasing storage.
func (b *Buffer) Reset() {
	b.r = 0
	b.w = 0
}

// Compact discards already-read bytes by shifting the unread region to the
// front, freeing up writable space without reallocating.
func (b *Buffer) Compact() {
	if b.r == 0 {
		return
	}
	n := copy(b.buf[:b.w-b.r], b.buf[b.r:b.w])
	b.w = n
	b.r = 0
}

// SplitAt splits the buffer at offset, bit-exactly: the returned buffer
// owns [0, offset) of the original storage and the receiver is rebased to
// own what remains, [offset, capacity). Cursors are rebased accordingly.
func (b *Buffer) SplitAt(offset int) (*Buffer, error) {
	if offset < 0 || offset > cap(b.buf) {
		return nil, ErrOutOfRange
	}

	head := &Buffer{buf: b.buf[:offset:offset]}
	if b.r < offset {
		head.r = b.r
	} else {
		head.r = offset
	}
	if b.w < offset {
		head.w = b.w
	} else {
		head.w = offset
	}

	tail := b.buf[offset:cap(b.buf):cap(b.buf)]
	rem := &Buffer{buf: tail}
	if b.r > offset {
		rem.r = b.r - offset
	}
	if b.w > offset {
		rem.w = b.w - offset
	}

	*b = *rem
	return head, nil
}

// Copy returns a new, independently-backed buffer holding bytes
// [start, end) of the written region.
func (b *Buffer) Copy(start, end int) (*Buffer, error) {
	if start < 0 || end > b.w || start > end {
		return nil, ErrOutOfRange
	}
	n := end - start
	out := make([]byte, n)
	copy(out, b.buf[start:end])
	return Wrap(out), nil
}
