package property

// CombineFunc resolves a key collision between an existing and an incoming
// property value. Returning nil removes the key.
type CombineFunc func(key string, existing, incoming any) any

type combiningKind int

const (
	overwrite combiningKind = iota
	keepExisting
	custom
)

// Combining is the conflict resolution policy used when two property sets
// define the same key. The zero value is Overwrite.
type Combining struct {
	kind combiningKind
	fn   CombineFunc
}

var (
	// Overwrite lets the incoming value win; a nil incoming value removes the key.
	Overwrite = Combining{kind: overwrite}
	// KeepExisting keeps the value already present.
	KeepExisting = Combining{kind: keepExisting}
)

// Custom returns a policy delegating collisions to fn.
func Custom(fn CombineFunc) Combining {
	if fn == nil {
		return Overwrite
	}
	return Combining{kind: custom, fn: fn}
}

func (r Combining) String() string {
	switch r.kind {
	case keepExisting:
		return "keepExisting"
	case custom:
		return "custom"
	default:
		return "overwrite"
	}
}

func (r Combining) combine(key string, existing, incoming any) any {
	switch r.kind {
	case keepExisting:
		return existing
	case custom:
		return r.fn(key, existing, incoming)
	default:
		return incoming
	}
}
