// Package model defines the build-domain objects consumed by the
// analysis core: labels, packages, targets, attributes with selectable
// values, configurations, providers and dependency edge sets.
//
// # Core Domain Types
//
//   - Label: the address of a target, "//pkg/path:name"
//   - Package: a named collection of targets
//   - Target: a buildable rule, a raw input file, or a package group
//   - Attribute: a named, typed edge-template on a rule whose value
//     may be direct or conditionally selected ("configurable")
//   - Configuration: an immutable, interned build configuration
//   - ConfigMatchingProvider: the capability a resolved condition
//     dependency exposes to answer whether a configuration matches
//   - DepEdgeSet: the frozen attribute -> (label, configuration) edge
//     mapping produced by dependency resolution
//
// Mutable builders (ProviderSetBuilder, DepEdgeSetBuilder) assemble
// immutable results through an owned-then-frozen transition; the built
// values are never aliased back to the builder.
package model
