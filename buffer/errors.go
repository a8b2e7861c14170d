package buffer

import "errors"

var (
	// ErrOutOfRange is returned when a read, write, or split offset/length
	// falls outside the addressable range of the buffer.
	ErrOutOfRange = errors.New("buffer: offset out of range")

	// ErrDuplicateConstituent is returned when a composite buffer would end
	// up holding the same constituent identity twice.
	ErrDuplicateConstituent = errors.New("buffer: duplicate constituent")

	// ErrWriteGap is returned when appending a constituent would leave a
	// writable gap behind an already-writable constituent.
	ErrWriteGap = errors.New("buffer: write gap between constituents")

	// ErrReadGap is returned when the read cursor would have to skip over
	// unread bytes of an earlier constituent.
	ErrReadGap = errors.New("buffer: read gap between constituents")

	// ErrCapacityOverflow is returned when a requested capacity would
	// overflow the buffer's internal bookkeeping.
	ErrCapacityOverflow = errors.New("buffer: capacity overflow")

	// ErrUnderrun is returned by a read when fewer bytes are available than
	// requested. Callers that stream frames treat this as "need more data".
	ErrUnderrun = errors.New("buffer: underrun")
)
