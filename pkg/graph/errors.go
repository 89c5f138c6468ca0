package graph

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of a node's terminal error
// for attribution and reporting logic.
type ErrorClass string

const (
	// ErrorClassDirect indicates a failure whose subject is the node's
	// own direct request. Reported to the user with full context at
	// the most specific point, exactly once.
	ErrorClassDirect ErrorClass = "direct"

	// ErrorClassTransitive indicates a failure originating deeper in a
	// dependency's subgraph. Propagated opaquely, tagged with the
	// offending key, and never re-reported.
	ErrorClassTransitive ErrorClass = "transitive"

	// ErrorClassConstruction indicates error diagnostics emitted while
	// assembling a node's result. Terminal; registered side effects
	// from the attempt are discarded.
	ErrorClassConstruction ErrorClass = "construction"

	// ErrorClassInternal indicates an engine invariant violation, such
	// as a stalled evaluation or an unregistered function kind.
	ErrorClassInternal ErrorClass = "internal"
)

// NodeError represents a classified terminal node failure.
type NodeError struct {
	// Class is the error classification for attribution logic.
	Class ErrorClass

	// Message is the human-readable error message.
	Message string

	// Origin is the key of the node the failure originated from. For
	// transitive errors this is the offending child key; for other
	// classes it may be the zero Key.
	Origin Key

	// Err is the underlying error that caused this error.
	Err error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	if e.Class == ErrorClassTransitive && e.Origin != (Key{}) {
		return fmt.Sprintf("[%s] via %s: %s", e.Class, e.Origin, e.unwrapMessage())
	}
	if e.Err != nil && e.Message != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Class, e.Message, e.unwrapMessage())
	}
	if e.Message != "" {
		return fmt.Sprintf("[%s] %s", e.Class, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Class, e.unwrapMessage())
}

// Unwrap returns the underlying error for error chain inspection.
func (e *NodeError) Unwrap() error {
	return e.Err
}

func (e *NodeError) unwrapMessage() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return ""
}

// Is implements error equality checking for errors.Is.
func (e *NodeError) Is(target error) bool {
	t, ok := target.(*NodeError)
	if !ok {
		return false
	}
	return e.Class == t.Class
}

// WithOrigin adds the originating key to an error.
func (e *NodeError) WithOrigin(key Key) *NodeError {
	e.Origin = key
	return e
}

// NewDirectError creates a new direct error.
func NewDirectError(message string, err error) *NodeError {
	return &NodeError{
		Class:   ErrorClassDirect,
		Message: message,
		Err:     err,
	}
}

// NewTransitiveError creates a new transitive error tagged with the
// offending child key. The wrapped error is carried opaquely; callers
// must not synthesize a new user-facing message from it.
func NewTransitiveError(origin Key, err error) *NodeError {
	return &NodeError{
		Class:  ErrorClassTransitive,
		Origin: origin,
		Err:    err,
	}
}

// NewConstructionError creates a new construction error.
func NewConstructionError(message string, err error) *NodeError {
	return &NodeError{
		Class:   ErrorClassConstruction,
		Message: message,
		Err:     err,
	}
}

// NewInternalError creates a new internal error.
func NewInternalError(message string, err error) *NodeError {
	return &NodeError{
		Class:   ErrorClassInternal,
		Message: message,
		Err:     err,
	}
}

// IsDirect returns true if the error is classified as direct.
func IsDirect(err error) bool {
	return classOf(err) == ErrorClassDirect
}

// IsTransitive returns true if the error is classified as transitive.
func IsTransitive(err error) bool {
	return classOf(err) == ErrorClassTransitive
}

// IsConstruction returns true if the error is a construction error.
func IsConstruction(err error) bool {
	return classOf(err) == ErrorClassConstruction
}

// IsInternal returns true if the error is an internal engine error.
func IsInternal(err error) bool {
	return classOf(err) == ErrorClassInternal
}

// ClassOf returns the classification of err, or the empty class if err
// is not a NodeError.
func ClassOf(err error) ErrorClass {
	return classOf(err)
}

// OriginOf returns the originating key recorded on err, if any.
func OriginOf(err error) (Key, bool) {
	var e *NodeError
	if errors.As(err, &e) && e.Origin != (Key{}) {
		return e.Origin, true
	}
	return Key{}, false
}

func classOf(err error) ErrorClass {
	var e *NodeError
	if errors.As(err, &e) {
		return e.Class
	}
	return ""
}
