package model

import (
	"fmt"
	"strings"
)

// PackageID identifies a package by its workspace-relative path, e.g.
// "base/strings".
type PackageID string

// String returns the package path.
func (id PackageID) String() string {
	return string(id)
}

// Label is the address of a target: a package path plus a target name,
// printed as "//pkg/path:name". Labels are immutable value types and
// valid map keys.
type Label struct {
	// Pkg is the package path, without the leading "//".
	Pkg string

	// Name is the target name within the package.
	Name string
}

// ParseLabel parses a label of the form "//pkg/path:name". The short
// form "//pkg/path" is accepted and means "//pkg/path:path" (the last
// path segment doubles as the target name).
func ParseLabel(s string) (Label, error) {
	if !strings.HasPrefix(s, "//") {
		return Label{}, fmt.Errorf("invalid label %q: must start with //", s)
	}
	rest := s[2:]
	if rest == "" {
		return Label{}, fmt.Errorf("invalid label %q: empty package path", s)
	}
	pkg, name, found := strings.Cut(rest, ":")
	if !found {
		segs := strings.Split(pkg, "/")
		name = segs[len(segs)-1]
	}
	if name == "" {
		return Label{}, fmt.Errorf("invalid label %q: empty target name", s)
	}
	if strings.Contains(name, ":") || strings.Contains(name, "/") {
		return Label{}, fmt.Errorf("invalid label %q: malformed target name", s)
	}
	return Label{Pkg: pkg, Name: name}, nil
}

// MustParseLabel parses a label and panics on failure. Intended for
// literals in tests and fixtures.
func MustParseLabel(s string) Label {
	l, err := ParseLabel(s)
	if err != nil {
		panic(err)
	}
	return l
}

// String returns the canonical "//pkg/path:name" form.
func (l Label) String() string {
	return "//" + l.Pkg + ":" + l.Name
}

// PackageID returns the identity of the package containing the label.
func (l Label) PackageID() PackageID {
	return PackageID(l.Pkg)
}

// IsValid reports whether both label components are non-empty.
func (l Label) IsValid() bool {
	return l.Pkg != "" && l.Name != ""
}
