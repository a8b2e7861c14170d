package performative

import "github.com/lanternmq/amqp1/amqptype"

// Header carries transfer-level delivery annotations: durability,
// priority, ttl, and delivery/retransmit counters.
type Header struct {
	Durable       bool
	Priority      uint8
	TTL           uint32
	FirstAcquirer bool
	DeliveryCount uint32
}

func (h Header) Descriptor() any { return DescriptorHeader }
func (h Header) Body() any {
	return fields(boolOrNil(h.Durable), nonZeroU8(h.Priority), nonZeroU32(h.TTL),
		boolOrNil(h.FirstAcquirer), nonZeroU32(h.DeliveryCount))
}

func HeaderFromList(l amqptype.List) Header {
	return Header{
		Durable:       asBool(at(l, 0)),
		Priority:      asUint8(at(l, 1)),
		TTL:           asUint32(at(l, 2)),
		FirstAcquirer: asBool(at(l, 3)),
		DeliveryCount: asUint32(at(l, 4)),
	}
}

// Properties are immutable, application-visible message properties.
type Properties struct {
	MessageID     any
	To            string
	Subject       string
	ReplyTo       string
	CorrelationID any
	ContentType   amqptype.Symbol
}

func (p Properties) Descriptor() any { return DescriptorProperties }
func (p Properties) Body() any {
	return fields(p.MessageID, nonEmpty(p.To), nonEmpty(p.Subject), nonEmpty(p.ReplyTo),
		p.CorrelationID, p.ContentType)
}

func PropertiesFromList(l amqptype.List) Properties {
	return Properties{
		MessageID:     at(l, 0),
		To:            asString(at(l, 1)),
		Subject:       asString(at(l, 2)),
		ReplyTo:       asString(at(l, 3)),
		CorrelationID: at(l, 4),
		ContentType:   asSymbol(at(l, 5)),
	}
}

// DeliveryAnnotations are hop-by-hop, broker-added annotations.
type DeliveryAnnotations struct{ Map amqptype.Map }

func (d DeliveryAnnotations) Descriptor() any { return DescriptorDeliveryAnnotations }
func (d DeliveryAnnotations) Body() any       { return d.Map }

func DeliveryAnnotationsFromValue(v any) DeliveryAnnotations {
	return DeliveryAnnotations{Map: asMap(v)}
}

// MessageAnnotations are end-to-end, application-or-broker annotations.
type MessageAnnotations struct{ Map amqptype.Map }

func (m MessageAnnotations) Descriptor() any { return DescriptorMessageAnnotations }
func (m MessageAnnotations) Body() any       { return m.Map }

func MessageAnnotationsFromValue(v any) MessageAnnotations {
	return MessageAnnotations{Map: asMap(v)}
}

// ApplicationProperties are application-defined key/value pairs.
type ApplicationProperties struct{ Map amqptype.Map }

func (a ApplicationProperties) Descriptor() any { return DescriptorApplicationProperties }
func (a ApplicationProperties) Body() any       { return a.Map }

func ApplicationPropertiesFromValue(v any) ApplicationProperties {
	return ApplicationProperties{Map: asMap(v)}
}

// Data is an opaque binary message body section.
type Data struct{ Bytes []byte }

func (d Data) Descriptor() any { return DescriptorData }
func (d Data) Body() any       { return d.Bytes }

func DataFromValue(v any) Data {
	b, _ := v.([]byte)
	return Data{Bytes: b}
}

// AMQPValue wraps a single AMQP value as the message body.
type AMQPValue struct{ Value any }

func (a AMQPValue) Descriptor() any { return DescriptorAMQPValue }
func (a AMQPValue) Body() any       { return a.Value }

func AMQPValueFromValue(v any) AMQPValue { return AMQPValue{Value: v} }

// AMQPSequence wraps a list as the message body.
type AMQPSequence struct{ List amqptype.List }

func (s AMQPSequence) Descriptor() any { return DescriptorAMQPSequence }
func (s AMQPSequence) Body() any       { return s.List }

func AMQPSequenceFromValue(v any) AMQPSequence {
	l, _ := v.(amqptype.List)
	return AMQPSequence{List: l}
}

// Footer carries trailing annotations after the message body.
type Footer struct{ Map amqptype.Map }

func (f Footer) Descriptor() any { return DescriptorFooter }
func (f Footer) Body() any       { return f.Map }

func FooterFromValue(v any) Footer {
	return Footer{Map: asMap(v)}
}

func nonZeroU8(v uint8) any {
	if v == 0 {
		return nil
	}
	return v
}

func asUint8(v any) uint8 {
	switch t := v.(type) {
	case uint8:
		return t
	default:
		return 0
	}
}
