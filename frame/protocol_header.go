package frame

// ProtocolID names which layer a protocol header negotiates, per AMQP
// 1.0's layered negotiation (section 2.2).
type ProtocolID uint8

const (
	ProtocolIDAMQP ProtocolID = 0x00
	ProtocolIDTLS  ProtocolID = 0x02
	ProtocolIDSASL ProtocolID = 0x03
)

// ProtocolHeaderSize is the fixed width of a protocol header.
const ProtocolHeaderSize = 8

// ProtocolHeader is the "AMQP" + id + major + minor + revision preamble
// exchanged before any frames flow on a fresh connection.
type ProtocolHeader struct {
	ID       ProtocolID
	Major    uint8
	Minor    uint8
	Revision uint8
}

// DefaultProtocolHeader is AMQP 1.0's transport-layer header.
func DefaultProtocolHeader() ProtocolHeader {
	return ProtocolHeader{ID: ProtocolIDAMQP, Major: 1, Minor: 0, Revision: 0}
}

// SASLProtocolHeader is the header sent when SASL negotiation precedes
// the AMQP layer.
func SASLProtocolHeader() ProtocolHeader {
	return ProtocolHeader{ID: ProtocolIDSASL, Major: 1, Minor: 0, Revision: 0}
}

// Bytes renders the 8-byte wire form: "AMQP" followed by id/major/minor/revision.
func (h ProtocolHeader) Bytes() [8]byte {
	return [8]byte{'A', 'M', 'Q', 'P', byte(h.ID), h.Major, h.Minor, h.Revision}
}

// ParseProtocolHeader validates an 8-byte slice as a protocol header.
func ParseProtocolHeader(b []byte) (ProtocolHeader, error) {
	if len(b) != ProtocolHeaderSize || string(b[:4]) != "AMQP" {
		return ProtocolHeader{}, ErrBadProtocolHeader
	}
	return ProtocolHeader{ID: ProtocolID(b[4]), Major: b[5], Minor: b[6], Revision: b[7]}, nil
}
