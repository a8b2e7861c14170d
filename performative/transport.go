package performative

import "github.com/lanternmq/amqp1/amqptype"

// Open is the first performative exchanged on a connection, after the
// protocol header.
type Open struct {
	ContainerID         string
	Hostname            string
	MaxFrameSize        uint32
	ChannelMax          uint16
	IdleTimeout         uint32
	OfferedCapabilities []amqptype.Symbol
	DesiredCapabilities []amqptype.Symbol
	Properties          amqptype.Map
}

func (o Open) Descriptor() any { return DescriptorOpen }

func (o Open) Body() any {
	return fields(o.ContainerID, nonEmpty(o.Hostname), nonZeroU32(o.MaxFrameSize),
		nonZeroU16(o.ChannelMax), nonZeroU32(o.IdleTimeout), nil, nil,
		symbolList(o.OfferedCapabilities), symbolList(o.DesiredCapabilities), nonEmptyMap(o.Properties))
}

func OpenFromList(l amqptype.List) Open {
	return Open{
		ContainerID:         asString(at(l, 0)),
		Hostname:            asString(at(l, 1)),
		MaxFrameSize:        asUint32(at(l, 2)),
		ChannelMax:          asUint16(at(l, 3)),
		IdleTimeout:         asUint32(at(l, 4)),
		OfferedCapabilities: asSymbolList(at(l, 7)),
		DesiredCapabilities: asSymbolList(at(l, 8)),
		Properties:          asMap(at(l, 9)),
	}
}

// Begin maps a session onto a connection channel.
type Begin struct {
	RemoteChannel  *uint16
	NextOutgoingID uint32
	IncomingWindow uint32
	OutgoingWindow uint32
	HandleMax      uint32
}

func (b Begin) Descriptor() any { return DescriptorBegin }

func (b Begin) Body() any {
	var rc any
	if b.RemoteChannel != nil {
		rc = *b.RemoteChannel
	}
	return fields(rc, b.NextOutgoingID, b.IncomingWindow, b.OutgoingWindow, nonZeroU32Max(b.HandleMax))
}

func BeginFromList(l amqptype.List) Begin {
	b := Begin{
		NextOutgoingID: asUint32(at(l, 1)),
		IncomingWindow: asUint32(at(l, 2)),
		OutgoingWindow: asUint32(at(l, 3)),
		HandleMax:      asUint32(at(l, 4)),
	}
	if v := at(l, 0); v != nil {
		ch := asUint16(v)
		b.RemoteChannel = &ch
	}
	if at(l, 4) == nil {
		b.HandleMax = 0xffffffff
	}
	return b
}

// Attach opens a link within a session.
type Attach struct {
	Name               string
	Handle             uint32
	Role               Role
	SndSettleMode      SenderSettleMode
	RcvSettleMode      ReceiverSettleMode
	Source             *Source
	Target             *Target
	InitialDeliveryCount uint32
}

func (a Attach) Descriptor() any { return DescriptorAttach }

func (a Attach) Body() any {
	var src, tgt any
	if a.Source != nil {
		src = *a.Source
	}
	if a.Target != nil {
		tgt = *a.Target
	}
	return fields(a.Name, a.Handle, bool(a.Role), uint8(a.SndSettleMode), uint8(a.RcvSettleMode),
		src, tgt, nil, nil, a.InitialDeliveryCount)
}

func AttachFromList(l amqptype.List) Attach {
	a := Attach{
		Name:                 asString(at(l, 0)),
		Handle:               asUint32(at(l, 1)),
		Role:                 Role(asBool(at(l, 2))),
		SndSettleMode:        SenderSettleMode(asUint32(at(l, 3))),
		RcvSettleMode:        ReceiverSettleMode(asUint32(at(l, 4))),
		InitialDeliveryCount: asUint32(at(l, 9)),
	}
	if d, ok := at(l, 5).(Source); ok {
		a.Source = &d
	}
	if d, ok := at(l, 6).(Target); ok {
		a.Target = &d
	}
	return a
}

// Flow advances session and link credit.
type Flow struct {
	NextIncomingID *uint32
	IncomingWindow uint32
	NextOutgoingID uint32
	OutgoingWindow uint32
	Handle         *uint32
	DeliveryCount  *uint32
	LinkCredit     *uint32
	Available      *uint32
	Drain          bool
	Echo           bool
}

func (f Flow) Descriptor() any { return DescriptorFlow }

func (f Flow) Body() any {
	return fields(ptrAny(f.NextIncomingID), f.IncomingWindow, f.NextOutgoingID, f.OutgoingWindow,
		ptrAny(f.Handle), ptrAny(f.DeliveryCount), ptrAny(f.LinkCredit), ptrAny(f.Available),
		boolOrNil(f.Drain), boolOrNil(f.Echo))
}

func FlowFromList(l amqptype.List) Flow {
	f := Flow{
		IncomingWindow: asUint32(at(l, 1)),
		NextOutgoingID: asUint32(at(l, 2)),
		OutgoingWindow: asUint32(at(l, 3)),
		Drain:          asBool(at(l, 8)),
		Echo:           asBool(at(l, 9)),
	}
	if v := at(l, 0); v != nil {
		n := asUint32(v)
		f.NextIncomingID = &n
	}
	if v := at(l, 4); v != nil {
		n := asUint32(v)
		f.Handle = &n
	}
	if v := at(l, 5); v != nil {
		n := asUint32(v)
		f.DeliveryCount = &n
	}
	if v := at(l, 6); v != nil {
		n := asUint32(v)
		f.LinkCredit = &n
	}
	if v := at(l, 7); v != nil {
		n := asUint32(v)
		f.Available = &n
	}
	return f
}

// Transfer carries (or continues) a delivery on a link.
type Transfer struct {
	Handle        uint32
	DeliveryID    *uint32
	DeliveryTag   []byte
	MessageFormat uint32
	Settled       bool
	More          bool
	RcvSettleMode ReceiverSettleMode
	State         any
	Resume        bool
	Aborted       bool
	Batchable     bool
}

func (t Transfer) Descriptor() any { return DescriptorTransfer }

func (t Transfer) Body() any {
	return fields(t.Handle, ptrAny(t.DeliveryID), t.DeliveryTag, t.MessageFormat,
		boolOrNil(t.Settled), boolOrNil(t.More), uint8(t.RcvSettleMode), t.State,
		boolOrNil(t.Resume), boolOrNil(t.Aborted), boolOrNil(t.Batchable))
}

func TransferFromList(l amqptype.List) Transfer {
	t := Transfer{
		Handle:        asUint32(at(l, 0)),
		MessageFormat: asUint32(at(l, 3)),
		Settled:       asBool(at(l, 4)),
		More:          asBool(at(l, 5)),
		RcvSettleMode: ReceiverSettleMode(asUint32(at(l, 6))),
		State:         at(l, 7),
		Resume:        asBool(at(l, 8)),
		Aborted:       asBool(at(l, 9)),
		Batchable:     asBool(at(l, 10)),
	}
	if v := at(l, 1); v != nil {
		n := asUint32(v)
		t.DeliveryID = &n
	}
	if tag, ok := at(l, 2).([]byte); ok {
		t.DeliveryTag = tag
	}
	return t
}

// Disposition reports settlement state for a range of deliveries.
type Disposition struct {
	Role      Role
	First     uint32
	Last      *uint32
	Settled   bool
	State     any
	Batchable bool
}

func (d Disposition) Descriptor() any { return DescriptorDisposition }

func (d Disposition) Body() any {
	return fields(bool(d.Role), d.First, ptrAny(d.Last), boolOrNil(d.Settled), d.State, boolOrNil(d.Batchable))
}

func DispositionFromList(l amqptype.List) Disposition {
	d := Disposition{
		Role:      Role(asBool(at(l, 0))),
		First:     asUint32(at(l, 1)),
		Settled:   asBool(at(l, 3)),
		State:     at(l, 4),
		Batchable: asBool(at(l, 5)),
	}
	if v := at(l, 2); v != nil {
		n := asUint32(v)
		d.Last = &n
	} else {
		first := d.First
		d.Last = &first
	}
	return d
}

// Detach ends a link's attachment without necessarily discarding it.
type Detach struct {
	Handle uint32
	Closed bool
	Error  *Error
}

func (d Detach) Descriptor() any { return DescriptorDetach }

func (d Detach) Body() any {
	var e any
	if d.Error != nil {
		e = *d.Error
	}
	return fields(d.Handle, boolOrNil(d.Closed), e)
}

func DetachFromList(l amqptype.List) Detach {
	d := Detach{Handle: asUint32(at(l, 0)), Closed: asBool(at(l, 1))}
	if e, ok := at(l, 2).(Error); ok {
		d.Error = &e
	}
	return d
}

// End terminates a session.
type End struct {
	Error *Error
}

func (e End) Descriptor() any { return DescriptorEnd }

func (e End) Body() any {
	var v any
	if e.Error != nil {
		v = *e.Error
	}
	return fields(v)
}

func EndFromList(l amqptype.List) End {
	e := End{}
	if v, ok := at(l, 0).(Error); ok {
		e.Error = &v
	}
	return e
}

// Close terminates a connection.
type Close struct {
	Error *Error
}

func (c Close) Descriptor() any { return DescriptorClose }

func (c Close) Body() any {
	var v any
	if c.Error != nil {
		v = *c.Error
	}
	return fields(v)
}

func CloseFromList(l amqptype.List) Close {
	c := Close{}
	if v, ok := at(l, 0).(Error); ok {
		c.Error = &v
	}
	return c
}

func ptrAny(p *uint32) any {
	if p == nil {
		return nil
	}
	return *p
}

func boolOrNil(b bool) any {
	if !b {
		return nil
	}
	return b
}

func nonZeroU32(v uint32) any {
	if v == 0 {
		return nil
	}
	return v
}

func nonZeroU32Max(v uint32) any {
	if v == 0xffffffff {
		return nil
	}
	return v
}

func nonZeroU16(v uint16) any {
	if v == 0 {
		return nil
	}
	return v
}

func nonEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nonEmptyMap(m amqptype.Map) any {
	if len(m) == 0 {
		return nil
	}
	return m
}

func symbolList(syms []amqptype.Symbol) any {
	if len(syms) == 0 {
		return nil
	}
	arr := amqptype.Array{Elem: amqptype.CodeSym8, Items: make([]any, len(syms))}
	for i, s := range syms {
		arr.Items[i] = s
	}
	return arr
}

func asSymbolList(v any) []amqptype.Symbol {
	arr, ok := v.(amqptype.Array)
	if !ok {
		return nil
	}
	out := make([]amqptype.Symbol, 0, len(arr.Items))
	for _, it := range arr.Items {
		if s, ok := it.(amqptype.Symbol); ok {
			out = append(out, s)
		}
	}
	return out
}

func asMap(v any) amqptype.Map {
	m, _ := v.(amqptype.Map)
	return m
}
