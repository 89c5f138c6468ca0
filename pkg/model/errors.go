package model

import "fmt"

// NoSuchTargetError indicates that a target does not exist. The Label
// is the error's subject: ancestors compare it against the dependency
// they directly requested to decide whether the failure is theirs to
// report or must be propagated opaquely.
type NoSuchTargetError struct {
	// Label is the address of the missing target.
	Label Label

	// Msg is the human-readable reason.
	Msg string
}

// Error implements the error interface.
func (e *NoSuchTargetError) Error() string {
	return fmt.Sprintf("%s: target '%s'", e.Msg, e.Label)
}

// NoSuchPackageError indicates that a package could not be loaded. The
// PackageID is the error's subject.
type NoSuchPackageError struct {
	// PackageID is the identity of the missing package.
	PackageID PackageID

	// Msg is the human-readable reason.
	Msg string
}

// Error implements the error interface.
func (e *NoSuchPackageError) Error() string {
	return fmt.Sprintf("%s: package '%s'", e.Msg, e.PackageID)
}
