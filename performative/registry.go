package performative

import "github.com/lanternmq/amqp1/amqptype"

// RegisterAll binds every performative, composite, and messaging-section
// descriptor this package knows about into reg, so the type codec's
// decoder front door returns concrete Go types instead of opaque
// amqptype.Described values for them.
func RegisterAll(reg *amqptype.Registry) {
	registerList(reg, DescriptorOpen, func(l amqptype.List) any { return OpenFromList(l) })
	registerList(reg, DescriptorBegin, func(l amqptype.List) any { return BeginFromList(l) })
	registerList(reg, DescriptorAttach, func(l amqptype.List) any { return AttachFromList(l) })
	registerList(reg, DescriptorFlow, func(l amqptype.List) any { return FlowFromList(l) })
	registerList(reg, DescriptorTransfer, func(l amqptype.List) any { return TransferFromList(l) })
	registerList(reg, DescriptorDisposition, func(l amqptype.List) any { return DispositionFromList(l) })
	registerList(reg, DescriptorDetach, func(l amqptype.List) any { return DetachFromList(l) })
	registerList(reg, DescriptorEnd, func(l amqptype.List) any { return EndFromList(l) })
	registerList(reg, DescriptorClose, func(l amqptype.List) any { return CloseFromList(l) })

	registerList(reg, DescriptorSource, func(l amqptype.List) any { return SourceFromList(l) })
	registerList(reg, DescriptorTarget, func(l amqptype.List) any { return TargetFromList(l) })
	registerList(reg, DescriptorError, func(l amqptype.List) any { return ErrorFromList(l) })

	registerList(reg, DescriptorAccepted, func(l amqptype.List) any { return Accepted{} })
	registerList(reg, DescriptorReleased, func(l amqptype.List) any { return Released{} })
	registerList(reg, DescriptorRejected, func(l amqptype.List) any { return RejectedFromList(l) })
	registerList(reg, DescriptorModified, func(l amqptype.List) any { return ModifiedFromList(l) })
	registerList(reg, DescriptorReceived, func(l amqptype.List) any { return ReceivedFromList(l) })

	registerList(reg, DescriptorSASLMechanisms, func(l amqptype.List) any { return SASLMechanismsFromList(l) })
	registerList(reg, DescriptorSASLInit, func(l amqptype.List) any { return SASLInitFromList(l) })
	registerList(reg, DescriptorSASLChallenge, func(l amqptype.List) any { return SASLChallengeFromList(l) })
	registerList(reg, DescriptorSASLResponse, func(l amqptype.List) any { return SASLResponseFromList(l) })
	registerList(reg, DescriptorSASLOutcome, func(l amqptype.List) any { return SASLOutcomeFromList(l) })

	registerList(reg, DescriptorHeader, func(l amqptype.List) any { return HeaderFromList(l) })
	registerList(reg, DescriptorProperties, func(l amqptype.List) any { return PropertiesFromList(l) })

	reg.Register(DescriptorDeliveryAnnotations, func(v any) (any, error) { return DeliveryAnnotationsFromValue(v), nil })
	reg.Register(DescriptorMessageAnnotations, func(v any) (any, error) { return MessageAnnotationsFromValue(v), nil })
	reg.Register(DescriptorApplicationProperties, func(v any) (any, error) { return ApplicationPropertiesFromValue(v), nil })
	reg.Register(DescriptorData, func(v any) (any, error) { return DataFromValue(v), nil })
	reg.Register(DescriptorAMQPSequence, func(v any) (any, error) { return AMQPSequenceFromValue(v), nil })
	reg.Register(DescriptorAMQPValue, func(v any) (any, error) { return AMQPValueFromValue(v), nil })
	reg.Register(DescriptorFooter, func(v any) (any, error) { return FooterFromValue(v), nil })
}

func registerList(reg *amqptype.Registry, descriptor Descriptor, fn func(amqptype.List) any) {
	reg.Register(descriptor, func(v any) (any, error) {
		l, _ := v.(amqptype.List)
		return fn(l), nil
	})
}
