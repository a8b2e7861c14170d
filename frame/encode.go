package frame

import "github.com/lanternmq/amqp1/amqptype"

type frameWriter interface {
	writer
	Write(p []byte) error
}

// EncodeFrame writes a complete frame: header (with Size computed from
// len(body)) followed by body. DataOffset is fixed at 2 (no extended
// header); callers needing extended header bytes build Header
// themselves and call EncodeHeader plus Write directly.
func EncodeFrame(w frameWriter, typ amqptype.FrameType, channel uint16, body []byte) error {
	h := Header{
		Size:       uint32(HeaderSize + len(body)),
		DataOffset: 2,
		Type:       typ,
		Channel:    channel,
	}
	if err := EncodeHeader(w, h); err != nil {
		return err
	}
	return w.Write(body)
}
