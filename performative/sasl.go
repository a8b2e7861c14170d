package performative

import "github.com/lanternmq/amqp1/amqptype"

// SASLMechanisms is the server's offer of acceptable mechanisms.
type SASLMechanisms struct {
	Mechanisms []amqptype.Symbol
}

func (m SASLMechanisms) Descriptor() any { return DescriptorSASLMechanisms }
func (m SASLMechanisms) Body() any       { return fields(symbolList(m.Mechanisms)) }

func SASLMechanismsFromList(l amqptype.List) SASLMechanisms {
	return SASLMechanisms{Mechanisms: asSymbolList(at(l, 0))}
}

// SASLInit is the client's chosen mechanism plus its initial response.
type SASLInit struct {
	Mechanism       amqptype.Symbol
	InitialResponse []byte
	Hostname        string
}

func (i SASLInit) Descriptor() any { return DescriptorSASLInit }
func (i SASLInit) Body() any {
	return fields(i.Mechanism, i.InitialResponse, nonEmpty(i.Hostname))
}

func SASLInitFromList(l amqptype.List) SASLInit {
	resp, _ := at(l, 1).([]byte)
	return SASLInit{
		Mechanism:       asSymbol(at(l, 0)),
		InitialResponse: resp,
		Hostname:        asString(at(l, 2)),
	}
}

// SASLChallenge is a server challenge mid-exchange.
type SASLChallenge struct {
	Challenge []byte
}

func (c SASLChallenge) Descriptor() any { return DescriptorSASLChallenge }
func (c SASLChallenge) Body() any       { return fields(c.Challenge) }

func SASLChallengeFromList(l amqptype.List) SASLChallenge {
	ch, _ := at(l, 0).([]byte)
	return SASLChallenge{Challenge: ch}
}

// SASLResponse answers a challenge.
type SASLResponse struct {
	Response []byte
}

func (r SASLResponse) Descriptor() any { return DescriptorSASLResponse }
func (r SASLResponse) Body() any       { return fields(r.Response) }

func SASLResponseFromList(l amqptype.List) SASLResponse {
	resp, _ := at(l, 0).([]byte)
	return SASLResponse{Response: resp}
}

// SASLCode is the outcome of a SASL negotiation.
type SASLCode uint8

const (
	SASLCodeOK           SASLCode = 0
	SASLCodeAuth         SASLCode = 1
	SASLCodeSys          SASLCode = 2
	SASLCodeSysPermanent SASLCode = 3
	SASLCodeSysTemporary SASLCode = 4
)

// SASLOutcome is the server's final verdict.
type SASLOutcome struct {
	Code           SASLCode
	AdditionalData []byte
}

func (o SASLOutcome) Descriptor() any { return DescriptorSASLOutcome }
func (o SASLOutcome) Body() any       { return fields(uint8(o.Code), o.AdditionalData) }

func SASLOutcomeFromList(l amqptype.List) SASLOutcome {
	data, _ := at(l, 1).([]byte)
	code, _ := at(l, 0).(uint8)
	return SASLOutcome{Code: SASLCode(code), AdditionalData: data}
}
