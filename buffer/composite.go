package buffer

// CompositeBuffer presents an ordered sequence of constituent *Buffer
// values as one logical byte sequence. It is used to avoid copying
// received socket buffers into one contiguous allocation purely to run
// the frame parser over them.
//
// Invariants enforced by Append:
//   - constituents are unique by pointer identity
//   - no constituent gains a non-zero write offset while an earlier
//     constituent still has writable room ("no write gap")
//   - no constituent is read from while an earlier constituent still has
//     unread bytes ("no read gap")
type CompositeBuffer struct {
	parts    []*Buffer
	identity map[*Buffer]struct{}
	readIdx  int
	writeIdx int
}

// NewComposite builds an empty composite buffer.
func NewComposite() *CompositeBuffer {
	return &CompositeBuffer{identity: make(map[*Buffer]struct{})}
}

// Append adds buf as the new tail constituent.
func (c *CompositeBuffer) Append(buf *Buffer) error {
	if _, dup := c.identity[buf]; dup {
		return ErrDuplicateConstituent
	}
	if n := len(c.parts); n > 0 {
		last := c.parts[n-1]
		if last.Writable() > 0 && buf.w > 0 {
			return ErrWriteGap
		}
		if last.Readable() > 0 && buf.r > 0 {
			return ErrReadGap
		}
	}
	c.identity[buf] = struct{}{}
	c.parts = append(c.parts, buf)
	return nil
}

// Decompose returns the constituent buffers in order. The returned slice
// aliases internal storage and must not be mutated.
func (c *CompositeBuffer) Decompose() []*Buffer { return c.parts }

// Reclaim drops leading constituents that have been fully read and fully
// written (nothing left to read, no room left to write), shrinking the
// composite without touching live data.
func (c *CompositeBuffer) Reclaim() {
	drop := 0
	for drop < len(c.parts) {
		p := c.parts[drop]
		if p.Readable() > 0 || p.Writable() > 0 {
			break
		}
		delete(c.identity, p)
		drop++
	}
	if drop == 0 {
		return
	}
	c.parts = c.parts[drop:]
	c.readIdx -= drop
	if c.readIdx < 0 {
		c.readIdx = 0
	}
	c.writeIdx -= drop
	if c.writeIdx < 0 {
		c.writeIdx = 0
	}
}

// Readable is the total number of unread bytes across all constituents.
func (c *CompositeBuffer) Readable() int {
	n := 0
	for _, p := range c.parts {
		n += p.Readable()
	}
	return n
}

// Writable is the total writable room across all constituents, not
// counting storage EnsureWritable would still need to allocate.
func (c *CompositeBuffer) Writable() int {
	n := 0
	for _, p := range c.parts {
		n += p.Writable()
	}
	return n
}

// EnsureWritable appends a fresh tail constituent sized to cover any
// shortfall in writable room, using alloc to create it.
func (c *CompositeBuffer) EnsureWritable(n int, alloc func(int) *Buffer) error {
	short := n - c.Writable()
	if short <= 0 {
		return nil
	}
	return c.Append(alloc(short))
}

// Write distributes p across constituents starting at the current write
// position, advancing to the next constituent once the current one is
// full. It never allocates; callers needing more room call EnsureWritable
// first.
func (c *CompositeBuffer) Write(p []byte) error {
	if len(p) > c.Writable() {
		return ErrCapacityOverflow
	}
	for len(p) > 0 {
		for c.writeIdx < len(c.parts) && c.parts[c.writeIdx].Writable() == 0 {
			c.writeIdx++
		}
		cur := c.parts[c.writeIdx]
		n := cur.Writable()
		if n > len(p) {
			n = len(p)
		}
		if err := cur.Write(p[:n]); err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

// Read consumes and returns the next n bytes. When the range spans more
// than one constituent the result is copied into a fresh slice; a read
// within a single constituent aliases that constituent's storage.
func (c *CompositeBuffer) Read(n int) ([]byte, error) {
	if n > c.Readable() {
		return nil, ErrUnderrun
	}
	for c.readIdx < len(c.parts) && c.parts[c.readIdx].Readable() == 0 {
		c.readIdx++
	}
	if c.readIdx >= len(c.parts) {
		if n == 0 {
			return nil, nil
		}
		return nil, ErrUnderrun
	}
	first := c.parts[c.readIdx]
	if first.Readable() >= n {
		return first.Read(n)
	}

	out := make([]byte, 0, n)
	remaining := n
	idx := c.readIdx
	for remaining > 0 {
		for idx < len(c.parts) && c.parts[idx].Readable() == 0 {
			idx++
		}
		if idx >= len(c.parts) {
			return nil, ErrUnderrun
		}
		cur := c.parts[idx]
		take := cur.Readable()
		if take > remaining {
			take = remaining
		}
		chunk, err := cur.Read(take)
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
		remaining -= take
	}
	c.readIdx = idx
	return out, nil
}

// Peek returns the next n unread bytes without advancing any read cursor.
// Like Read, it copies when the range spans constituent boundaries.
func (c *CompositeBuffer) Peek(n int) ([]byte, error) {
	if n > c.Readable() {
		return nil, ErrUnderrun
	}
	idx := c.readIdx
	for idx < len(c.parts) && c.parts[idx].Readable() == 0 {
		idx++
	}
	if idx >= len(c.parts) {
		if n == 0 {
			return nil, nil
		}
		return nil, ErrUnderrun
	}
	first := c.parts[idx]
	if first.Readable() >= n {
		return first.Peek(n)
	}

	out := make([]byte, 0, n)
	remaining := n
	off := 0
	for remaining > 0 {
		for idx < len(c.parts) && (idx > c.readIdx || off > 0) && c.parts[idx].Readable() == 0 {
			idx++
			off = 0
		}
		if idx >= len(c.parts) {
			return nil, ErrUnderrun
		}
		cur := c.parts[idx]
		avail := cur.Readable() - off
		take := avail
		if take > remaining {
			take = remaining
		}
		chunk, err := cur.Peek(off + take)
		if err != nil {
			return nil, err
		}
		out = append(out, chunk[off:]...)
		remaining -= take
		idx++
		off = 0
	}
	return out, nil
}

// Skip advances the read cursor by n bytes without returning them.
func (c *CompositeBuffer) Skip(n int) error {
	_, err := c.Read(n)
	return err
}

func (c *CompositeBuffer) WriteUint8(v uint8) error   { return putUint8(c, v) }
func (c *CompositeBuffer) WriteUint16(v uint16) error { return putUint16(c, v) }
func (c *CompositeBuffer) WriteUint32(v uint32) error { return putUint32(c, v) }
func (c *CompositeBuffer) WriteUint64(v uint64) error { return putUint64(c, v) }

func (c *CompositeBuffer) ReadUint8() (uint8, error)   { return getUint8(c) }
func (c *CompositeBuffer) ReadUint16() (uint16, error) { return getUint16(c) }
func (c *CompositeBuffer) ReadUint32() (uint32, error) { return getUint32(c) }
func (c *CompositeBuffer) ReadUint64() (uint64, error) { return getUint64(c) }
