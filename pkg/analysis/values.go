package analysis

import (
	"github.com/gravelbuild/gravel/pkg/model"
)

// ConfiguredTarget is a target fully resolved against a configuration.
// It is immutable once published.
type ConfiguredTarget struct {
	// Label is the target's address.
	Label model.Label

	// Kind is the underlying target kind.
	Kind model.TargetKind

	// RuleClass is the rule class name, empty for non-rule kinds.
	RuleClass string

	// Configuration is the effective configuration after normalization:
	// nil for configuration-agnostic target kinds regardless of what
	// the key requested.
	Configuration *model.Configuration

	// Providers are the capabilities the analyzed target exposes.
	Providers *model.ProviderSet
}

// ConfigMatching returns the target's config-matching capability, if
// it exposes one.
func (t *ConfiguredTarget) ConfigMatching() (*model.ConfigMatchingProvider, bool) {
	return t.Providers.ConfigMatching()
}

// ConfiguredTargetValue is the published value of a configured-target
// node: the analyzed target plus the actions registered while
// constructing it. Actions are captured exactly once per successful
// computation; abandoned attempts discard theirs.
type ConfiguredTargetValue struct {
	// Target is the analyzed target.
	Target *ConfiguredTarget

	// Actions are the side-effecting actions registered during
	// construction, in registration order.
	Actions []*Action
}

// DependencyMap groups resolved dependencies back by the attribute
// that introduced them, preserving edge order within each attribute.
type DependencyMap struct {
	attrs  []string
	byAttr map[string][]*ConfiguredTarget
}

// NewDependencyMap creates an empty dependency map.
func NewDependencyMap() *DependencyMap {
	return &DependencyMap{byAttr: make(map[string][]*ConfiguredTarget)}
}

// Add appends a resolved dependency under the named attribute.
func (m *DependencyMap) Add(attr string, dep *ConfiguredTarget) {
	if _, ok := m.byAttr[attr]; !ok {
		m.attrs = append(m.attrs, attr)
	}
	m.byAttr[attr] = append(m.byAttr[attr], dep)
}

// Attributes returns the attribute names in insertion order.
func (m *DependencyMap) Attributes() []string { return m.attrs }

// Deps returns the ordered dependencies of one attribute.
func (m *DependencyMap) Deps(attr string) []*ConfiguredTarget {
	return m.byAttr[attr]
}

// Len returns the total number of grouped dependencies.
func (m *DependencyMap) Len() int {
	n := 0
	for _, deps := range m.byAttr {
		n += len(deps)
	}
	return n
}

// CompletionValue is the published value of a completion marker node.
type CompletionValue struct {
	// Label is the completed target's address.
	Label model.Label

	// ConfigChecksum identifies the configuration the target was
	// completed under.
	ConfigChecksum string

	// Exclusive mirrors the key's exclusive flag.
	Exclusive bool
}
