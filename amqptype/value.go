package amqptype

import (
	"time"

	"github.com/google/uuid"
)

// Symbol is an ASCII string with its own family of encoding codes,
// distinct from UTF-8 String.
type Symbol string

// List is an ordered, heterogeneously typed AMQP list.
type List []any

// Map is an AMQP map. Keys and values are both arbitrary AMQP values;
// represented as a slice of pairs rather than a Go map so that
// non-comparable keys (lists, maps) stay legal and encounters decode in
// a fixed order.
type Map []MapEntry

// MapEntry is one key/value pair of a Map.
type MapEntry struct {
	Key   any
	Value any
}

// Get returns the value for key and whether it was present.
func (m Map) Get(key any) (any, bool) {
	for _, e := range m {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Array is a uniformly typed AMQP array: every element shares the same
// wire constructor.
type Array struct {
	Elem Constructor
	Items []any
}

// Described is the (descriptor, value) pair behind AMQP performatives and
// message sections. Descriptor is either a uint64 (ulong form) or a
// Symbol (symbolic form).
type Described struct {
	Descriptor any
	Value      any
}

// UUID re-exports google/uuid's type so callers decoding a uuid-typed
// value do not need to import that package themselves.
type UUID = uuid.UUID

// Timestamp is milliseconds since the Unix epoch, AMQP's native
// timestamp resolution.
type Timestamp time.Time

// Char is a single UTF-32 code point, AMQP's char primitive. It is its
// own type so it does not collide with the int32 encoding in a type
// switch.
type Char rune
