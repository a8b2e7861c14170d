package performative

import "github.com/lanternmq/amqp1/amqptype"

// Source names a link's origin: a queue/topic address on a receiving
// link, or nothing (anonymous) on an always-settled sender.
type Source struct {
	Address string
	Durable uint32
	Dynamic bool
}

func (s Source) Descriptor() any { return DescriptorSource }

func (s Source) Body() any {
	return fields(nonEmpty(s.Address), nonZeroU32(s.Durable), boolOrNil(s.Dynamic))
}

func SourceFromList(l amqptype.List) Source {
	return Source{
		Address: asString(at(l, 0)),
		Durable: asUint32(at(l, 1)),
		Dynamic: asBool(at(l, 2)),
	}
}

// Target names a link's destination.
type Target struct {
	Address string
	Durable uint32
	Dynamic bool
}

func (t Target) Descriptor() any { return DescriptorTarget }

func (t Target) Body() any {
	return fields(nonEmpty(t.Address), nonZeroU32(t.Durable), boolOrNil(t.Dynamic))
}

func TargetFromList(l amqptype.List) Target {
	return Target{
		Address: asString(at(l, 0)),
		Durable: asUint32(at(l, 1)),
		Dynamic: asBool(at(l, 2)),
	}
}

// Error carries a failure condition on detach/end/close.
type Error struct {
	Condition   amqptype.Symbol
	Description string
	Info        amqptype.Map
}

func (e Error) Descriptor() any { return DescriptorError }

func (e Error) Body() any {
	return fields(e.Condition, nonEmpty(e.Description), nonEmptyMap(e.Info))
}

func ErrorFromList(l amqptype.List) Error {
	return Error{
		Condition:   asSymbol(at(l, 0)),
		Description: asString(at(l, 1)),
		Info:        asMap(at(l, 2)),
	}
}

// Delivery state descriptors: Accepted/Rejected/Released/Modified/Received
// mark local or remote outcome for a transfer.
type Accepted struct{}

func (Accepted) Descriptor() any { return DescriptorAccepted }
func (Accepted) Body() any       { return amqptype.List{} }

type Released struct{}

func (Released) Descriptor() any { return DescriptorReleased }
func (Released) Body() any       { return amqptype.List{} }

type Rejected struct {
	Error *Error
}

func (r Rejected) Descriptor() any { return DescriptorRejected }
func (r Rejected) Body() any {
	var e any
	if r.Error != nil {
		e = *r.Error
	}
	return fields(e)
}

func RejectedFromList(l amqptype.List) Rejected {
	r := Rejected{}
	if e, ok := at(l, 0).(Error); ok {
		r.Error = &e
	}
	return r
}

type Modified struct {
	DeliveryFailed    bool
	UndeliverableHere bool
}

func (m Modified) Descriptor() any { return DescriptorModified }
func (m Modified) Body() any {
	return fields(boolOrNil(m.DeliveryFailed), boolOrNil(m.UndeliverableHere))
}

func ModifiedFromList(l amqptype.List) Modified {
	return Modified{DeliveryFailed: asBool(at(l, 0)), UndeliverableHere: asBool(at(l, 1))}
}

type Received struct {
	SectionNumber uint32
	SectionOffset uint64
}

func (r Received) Descriptor() any { return DescriptorReceived }
func (r Received) Body() any       { return fields(r.SectionNumber, r.SectionOffset) }

func ReceivedFromList(l amqptype.List) Received {
	return Received{SectionNumber: asUint32(at(l, 0)), SectionOffset: asUint64(at(l, 1))}
}

func asUint64(v any) uint64 {
	u, _ := v.(uint64)
	return u
}
