package performative

import "github.com/lanternmq/amqp1/amqptype"

// fields trims trailing nils off a composite's positional field list,
// since AMQP composites omit unset trailing fields rather than encode
// them as null.
func fields(items ...any) amqptype.List {
	end := len(items)
	for end > 0 && items[end-1] == nil {
		end--
	}
	return amqptype.List(items[:end])
}

// at returns field i of l, or nil if the composite's encoder omitted it
// (a short list) or the encoder wrote an explicit null.
func at(l amqptype.List, i int) any {
	if i < 0 || i >= len(l) {
		return nil
	}
	return l[i]
}

func asUint32(v any) uint32 {
	switch t := v.(type) {
	case uint32:
		return t
	case uint8:
		return uint32(t)
	case uint16:
		return uint32(t)
	default:
		return 0
	}
}

func asUint16(v any) uint16 {
	switch t := v.(type) {
	case uint16:
		return t
	case uint8:
		return uint16(t)
	default:
		return 0
	}
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asSymbol(v any) amqptype.Symbol {
	s, _ := v.(amqptype.Symbol)
	return s
}
