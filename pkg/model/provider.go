package model

// ProviderKey identifies a capability exposed by an analyzed target.
type ProviderKey string

const (
	// ProviderKeyConfigMatching is the capability a resolved condition
	// dependency must expose to key configurable attributes.
	ProviderKeyConfigMatching ProviderKey = "config_matching"
)

// Provider is a capability attached to an analyzed target. Providers
// are immutable once a ProviderSet is built.
type Provider interface {
	ProviderKey() ProviderKey
}

// ConfigMatchingProvider answers whether the configuration condition
// it stands for is satisfied. Its absence on a resolved condition
// dependency is a configuration error.
type ConfigMatchingProvider struct {
	// ConditionLabel is the label of the condition target.
	ConditionLabel Label

	// Match records whether the condition matched the requesting
	// target's configuration.
	Match bool
}

// ProviderKey implements Provider.
func (p *ConfigMatchingProvider) ProviderKey() ProviderKey {
	return ProviderKeyConfigMatching
}

// Matches reports whether the condition is satisfied.
func (p *ConfigMatchingProvider) Matches() bool { return p.Match }

// ProviderSet is an immutable set of providers keyed by capability.
type ProviderSet struct {
	byKey map[ProviderKey]Provider
}

// Get returns the provider for a capability and whether it is present.
func (s *ProviderSet) Get(key ProviderKey) (Provider, bool) {
	if s == nil {
		return nil, false
	}
	p, ok := s.byKey[key]
	return p, ok
}

// ConfigMatching returns the set's config-matching capability, if any.
func (s *ProviderSet) ConfigMatching() (*ConfigMatchingProvider, bool) {
	p, ok := s.Get(ProviderKeyConfigMatching)
	if !ok {
		return nil, false
	}
	cm, ok := p.(*ConfigMatchingProvider)
	return cm, ok
}

// Len returns the number of providers in the set.
func (s *ProviderSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.byKey)
}

// ProviderSetBuilder accumulates providers and freezes them into an
// immutable ProviderSet. The builder must not be reused after Build.
type ProviderSetBuilder struct {
	byKey map[ProviderKey]Provider
	built bool
}

// NewProviderSetBuilder creates an empty builder.
func NewProviderSetBuilder() *ProviderSetBuilder {
	return &ProviderSetBuilder{byKey: make(map[ProviderKey]Provider)}
}

// Add records a provider, replacing any previous provider for the same
// capability. Add panics if the builder was already built.
func (b *ProviderSetBuilder) Add(p Provider) *ProviderSetBuilder {
	if b.built {
		panic("model: ProviderSetBuilder used after Build")
	}
	b.byKey[p.ProviderKey()] = p
	return b
}

// Build freezes the accumulated providers into an immutable set.
func (b *ProviderSetBuilder) Build() *ProviderSet {
	b.built = true
	return &ProviderSet{byKey: b.byKey}
}

// ConfigConditions is the set of resolved condition providers for one
// analyzed target, keyed by condition label. It is empty, never nil,
// when the target has no configurable attributes or is not a rule.
type ConfigConditions map[Label]*ConfigMatchingProvider

// Satisfied reports whether the named condition resolved as matching.
func (c ConfigConditions) Satisfied(label Label) bool {
	p, ok := c[label]
	return ok && p.Matches()
}
