package graph

import "fmt"

// FunctionKind identifies which node function computes a key.
type FunctionKind string

// KeyArgument is the immutable payload of a Key. Implementations must
// be comparable value types so that keys can be used as map keys and
// compared with ==.
type KeyArgument interface {
	// Tag returns a short human-readable identifier for diagnostics,
	// typically a printable label.
	Tag() string
}

// Key is the vertex identity of the evaluation graph: a function kind
// paired with an opaque argument. Two keys are equal exactly when both
// components are equal; equal keys share one memoized computation.
type Key struct {
	// Kind selects the node function that computes this key.
	Kind FunctionKind

	// Arg is the function-specific argument. Must hold a comparable
	// value type.
	Arg KeyArgument
}

// NewKey constructs a key from a function kind and an argument.
func NewKey(kind FunctionKind, arg KeyArgument) Key {
	return Key{Kind: kind, Arg: arg}
}

// Tag returns the argument's short diagnostic tag.
func (k Key) Tag() string {
	if k.Arg == nil {
		return ""
	}
	return k.Arg.Tag()
}

// String returns a stable textual form of the key. It is unique per
// key and is the ordering used for deterministic tie-breaks between
// sibling failures.
func (k Key) String() string {
	return fmt.Sprintf("%s(%s)", k.Kind, k.Tag())
}
