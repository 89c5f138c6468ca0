package analysis

import (
	"fmt"

	"github.com/gravelbuild/gravel/pkg/graph"
	"github.com/gravelbuild/gravel/pkg/model"
)

// Node kinds computed by this package.
const (
	// KindPackage keys package nodes by package identity.
	KindPackage graph.FunctionKind = "package"

	// KindConfiguredTarget keys configured-target nodes by (label,
	// configuration checksum).
	KindConfiguredTarget graph.FunctionKind = "configured_target"

	// KindCompletion keys completion marker nodes by (label,
	// configuration checksum, exclusive flag).
	KindCompletion graph.FunctionKind = "completion"
)

// PackageKey is the argument of a package node.
type PackageKey struct {
	ID model.PackageID
}

// Tag implements graph.KeyArgument.
func (k PackageKey) Tag() string { return string(k.ID) }

// NewPackageKey builds the node key for a package.
func NewPackageKey(id model.PackageID) graph.Key {
	return graph.NewKey(KindPackage, PackageKey{ID: id})
}

// ConfiguredTargetKey is the argument of a configured-target node. The
// configuration is embedded as its checksum so the key stays a small
// comparable value; functions map the checksum back through the
// configuration registry.
type ConfiguredTargetKey struct {
	Label model.Label

	// ConfigChecksum identifies the requested configuration. Empty
	// means the absent configuration.
	ConfigChecksum string
}

// Tag implements graph.KeyArgument. The full checksum is kept so the
// textual form stays unique per key.
func (k ConfiguredTargetKey) Tag() string {
	if k.ConfigChecksum == "" {
		return k.Label.String()
	}
	return fmt.Sprintf("%s@%s", k.Label, k.ConfigChecksum)
}

// NewConfiguredTargetKey builds the node key for a (label,
// configuration) pair. A nil configuration yields an absent-config key.
func NewConfiguredTargetKey(label model.Label, config *model.Configuration) graph.Key {
	return graph.NewKey(KindConfiguredTarget, ConfiguredTargetKey{
		Label:          label,
		ConfigChecksum: config.Checksum(),
	})
}

// CompletionKey is the argument of a completion marker node.
type CompletionKey struct {
	Label model.Label

	// ConfigChecksum identifies the configuration, empty for absent.
	ConfigChecksum string

	// Exclusive marks completions requested for exclusive execution.
	Exclusive bool
}

// Tag implements graph.KeyArgument.
func (k CompletionKey) Tag() string {
	base := ConfiguredTargetKey{Label: k.Label, ConfigChecksum: k.ConfigChecksum}.Tag()
	if k.Exclusive {
		return base + "!"
	}
	return base
}

// NewCompletionKey builds the node key for a completion marker.
func NewCompletionKey(label model.Label, config *model.Configuration, exclusive bool) graph.Key {
	return graph.NewKey(KindCompletion, CompletionKey{
		Label:          label,
		ConfigChecksum: config.Checksum(),
		Exclusive:      exclusive,
	})
}
