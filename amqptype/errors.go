package amqptype

import "errors"

var (
	// ErrMalformed is returned when a size or count field fails the
	// grammar's own consistency checks (size < count*min-element-size,
	// count greater than the bytes actually remaining).
	ErrMalformed = errors.New("amqptype: malformed size/count")

	// ErrUnknownConstructor is returned when the decoder front door reads
	// a byte that names no known primitive encoding.
	ErrUnknownConstructor = errors.New("amqptype: unknown constructor")

	// ErrTruncated is returned when fewer bytes remain than the grammar
	// requires for the value being decoded.
	ErrTruncated = errors.New("amqptype: truncated value")

	// ErrArrayCount is returned when an array's declared element count
	// does not fit within its declared size.
	ErrArrayCount = errors.New("amqptype: array count exceeds size")
)
