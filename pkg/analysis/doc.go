// Package analysis implements the configured-target computation: the
// node functions that turn a (target label, configuration) pair into a
// fully analyzed target ready for downstream use.
//
// Three node kinds are defined. A package node loads a package through
// the Loader collaborator. A configured-target node resolves a target
// against a configuration: it normalizes the configuration for
// configuration-agnostic target kinds, resolves the configuration
// conditions referenced by configurable attributes, resolves the
// dependency edge set through the DependencyResolver collaborator,
// batch-fetches every dependency with direct/transitive error
// classification, and delegates result construction to the
// TargetFactory collaborator. A completion node marks a configured
// target as requested for completion.
//
// Dependency failures are classified by subject. A failure whose
// subject is the directly requested dependency is reported with full
// context exactly once at that point. A failure originating deeper in
// the dependency's own subgraph is re-thrown opaquely, tagged with the
// dependency's key, until an ancestor recognizes it as direct.
package analysis
