package sasl

import "github.com/lanternmq/amqp1/amqptype"

// Mechanism is a pluggable SASL mechanism. Start produces the initial
// response sent with sasl-init (nil if the mechanism has none); Step
// answers a server challenge. Mechanisms that need no challenge/response
// round trip (ANONYMOUS, PLAIN) simply never have Step called.
type Mechanism interface {
	Name() amqptype.Symbol
	Start() []byte
	Step(challenge []byte) ([]byte, error)
}

// Anonymous is the mandatory no-credentials mechanism.
type Anonymous struct{ Trace string }

func (Anonymous) Name() amqptype.Symbol { return "ANONYMOUS" }
func (a Anonymous) Start() []byte       { return []byte(a.Trace) }
func (Anonymous) Step([]byte) ([]byte, error) { return nil, ErrUnexpectedFrame }

// Plain is the mandatory username/password mechanism: the initial
// response is "authzid\0authcid\0password" per RFC 4616.
type Plain struct {
	AuthzID  string
	Username string
	Password string
}

func (Plain) Name() amqptype.Symbol { return "PLAIN" }

func (p Plain) Start() []byte {
	buf := make([]byte, 0, len(p.AuthzID)+len(p.Username)+len(p.Password)+2)
	buf = append(buf, p.AuthzID...)
	buf = append(buf, 0)
	buf = append(buf, p.Username...)
	buf = append(buf, 0)
	buf = append(buf, p.Password...)
	return buf
}

func (Plain) Step([]byte) ([]byte, error) { return nil, ErrUnexpectedFrame }

// Selector picks a mechanism from the server's offered list. The default
// selector returns the first mechanism in preference order that the
// server also offers.
type Selector func(offered []amqptype.Symbol) (Mechanism, error)

// PreferenceOrder builds a Selector that walks candidates in order and
// returns the first one the server offers.
func PreferenceOrder(candidates ...Mechanism) Selector {
	return func(offered []amqptype.Symbol) (Mechanism, error) {
		for _, cand := range candidates {
			for _, o := range offered {
				if o == cand.Name() {
					return cand, nil
				}
			}
		}
		return nil, ErrNoMechanism
	}
}
