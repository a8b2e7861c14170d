package frame

import "errors"

var (
	// ErrFrameTooSmall is returned when a frame header's size field is
	// below the minimum frame size (the header itself, 8 bytes).
	ErrFrameTooSmall = errors.New("frame: size below minimum")

	// ErrFrameTooLarge is returned when a frame header's size field
	// exceeds the negotiated max-frame-size.
	ErrFrameTooLarge = errors.New("frame: size exceeds max-frame-size")

	// ErrBadDataOffset is returned when DOFF is below the minimum (2,
	// the header's own width in 4-byte words) or places the frame body
	// beyond the frame's declared size.
	ErrBadDataOffset = errors.New("frame: invalid data offset")

	// ErrBadProtocolHeader is returned when the first 8 bytes of a new
	// connection do not match a recognized AMQP or SASL protocol header.
	ErrBadProtocolHeader = errors.New("frame: invalid protocol header")

	// ErrSink is returned by the parser for every byte fed after a fatal
	// parse error, so callers cannot accidentally resume a corrupted
	// stream.
	ErrSink = errors.New("frame: parser is sunk after a fatal error")
)
