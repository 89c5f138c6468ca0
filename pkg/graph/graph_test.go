package graph

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

type testArg string

func (a testArg) Tag() string { return string(a) }

func TestKeyString(t *testing.T) {
	key := NewKey("configured_target", testArg("//app:bin"))
	if key.String() != "configured_target(//app:bin)" {
		t.Errorf("unexpected key string: %s", key)
	}
}

func TestKeyEquality(t *testing.T) {
	a := NewKey("leaf", testArg("x"))
	b := NewKey("leaf", testArg("x"))
	c := NewKey("leaf", testArg("y"))
	d := NewKey("other", testArg("x"))

	if a != b {
		t.Error("keys with equal components must be equal")
	}
	if a == c || a == d {
		t.Error("keys differing in any component must not be equal")
	}

	m := map[Key]int{a: 1}
	if m[b] != 1 {
		t.Error("equal keys must index the same map entry")
	}
}

func TestErrorClassification(t *testing.T) {
	origin := NewKey("leaf", testArg("dep"))
	cases := []struct {
		err   error
		class ErrorClass
	}{
		{NewDirectError("no such target", nil), ErrorClassDirect},
		{NewTransitiveError(origin, errors.New("boom")), ErrorClassTransitive},
		{NewConstructionError("analysis failed", nil), ErrorClassConstruction},
		{NewInternalError("stalled", nil), ErrorClassInternal},
	}

	for _, tc := range cases {
		if ClassOf(tc.err) != tc.class {
			t.Errorf("expected class %s, got %s", tc.class, ClassOf(tc.err))
		}
	}

	if !IsDirect(cases[0].err) || !IsTransitive(cases[1].err) ||
		!IsConstruction(cases[2].err) || !IsInternal(cases[3].err) {
		t.Error("class predicates must match the constructors")
	}
	if ClassOf(errors.New("plain")) != "" {
		t.Error("a plain error has no class")
	}
}

func TestErrorClassSurvivesWrapping(t *testing.T) {
	inner := NewDirectError("no such target", nil)
	wrapped := fmt.Errorf("while analyzing: %w", inner)

	if !IsDirect(wrapped) {
		t.Error("classification must look through wrapping")
	}
}

func TestOriginOf(t *testing.T) {
	origin := NewKey("configured_target", testArg("//p:d1"))
	err := NewTransitiveError(origin, errors.New("deep failure"))

	got, ok := OriginOf(err)
	if !ok || got != origin {
		t.Errorf("expected origin %s, got %s (ok=%v)", origin, got, ok)
	}

	if _, ok := OriginOf(NewDirectError("mine", nil)); ok {
		t.Error("a direct error has no origin")
	}
	if _, ok := OriginOf(errors.New("plain")); ok {
		t.Error("a plain error has no origin")
	}
}

func TestNodeErrorMessage(t *testing.T) {
	origin := NewKey("configured_target", testArg("//p:d1"))
	transitive := NewTransitiveError(origin, errors.New("deep failure"))
	if !strings.Contains(transitive.Error(), "via configured_target(//p:d1)") {
		t.Errorf("transitive message must name the origin: %s", transitive.Error())
	}

	direct := NewDirectError("//p:x: no such target", errors.New("target 'x' missing"))
	msg := direct.Error()
	if !strings.Contains(msg, "no such target") || !strings.Contains(msg, "missing") {
		t.Errorf("direct message must carry both message and cause: %s", msg)
	}
}

func TestNodeErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewConstructionError("analysis failed", cause)

	if !errors.Is(err, cause) {
		t.Error("the underlying error must be reachable via errors.Is")
	}

	var nodeErr *NodeError
	if !errors.As(err, &nodeErr) || nodeErr.Class != ErrorClassConstruction {
		t.Error("errors.As must find the node error")
	}
}

func TestNodeErrorIsMatchesByClass(t *testing.T) {
	a := NewDirectError("one", nil)
	b := NewDirectError("two", nil)
	c := NewInternalError("three", nil)

	if !errors.Is(a, b) {
		t.Error("node errors of the same class must match")
	}
	if errors.Is(a, c) {
		t.Error("node errors of different classes must not match")
	}
}
