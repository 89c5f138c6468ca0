package model

// LabelAndConfiguration is one dependency edge endpoint: the label of
// the dependency and the configuration it should be analyzed under.
// A nil configuration requests the absent configuration.
type LabelAndConfiguration struct {
	Label         Label
	Configuration *Configuration
}

// DepEdge is one entry of a dependency edge set: an attribute name and
// the edge it contributes.
type DepEdge struct {
	Attribute string
	Dep       LabelAndConfiguration
}

// DepEdgeSet is the frozen mapping from attribute to an ordered
// sequence of dependency edges, produced by resolving a target's
// direct and selected attributes.
type DepEdgeSet struct {
	attrs  []string
	byAttr map[string][]LabelAndConfiguration
}

// Attributes returns the attribute names in insertion order.
func (s *DepEdgeSet) Attributes() []string { return s.attrs }

// Edges returns the ordered edges contributed by one attribute.
func (s *DepEdgeSet) Edges(attr string) []LabelAndConfiguration {
	return s.byAttr[attr]
}

// All returns every edge in attribute-then-declaration order.
func (s *DepEdgeSet) All() []DepEdge {
	var out []DepEdge
	for _, attr := range s.attrs {
		for _, dep := range s.byAttr[attr] {
			out = append(out, DepEdge{Attribute: attr, Dep: dep})
		}
	}
	return out
}

// Deps returns every distinct edge endpoint in first-seen order. A
// label appearing under several attributes resolves to one shared
// computation, so duplicates are collapsed here.
func (s *DepEdgeSet) Deps() []LabelAndConfiguration {
	type depIdentity struct {
		label    Label
		checksum string
	}
	seen := make(map[depIdentity]struct{})
	var out []LabelAndConfiguration
	for _, e := range s.All() {
		id := depIdentity{label: e.Dep.Label, checksum: e.Dep.Configuration.Checksum()}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, e.Dep)
	}
	return out
}

// Len returns the total number of edges.
func (s *DepEdgeSet) Len() int {
	n := 0
	for _, attr := range s.attrs {
		n += len(s.byAttr[attr])
	}
	return n
}

// DepEdgeSetBuilder accumulates edges and freezes them into an
// immutable DepEdgeSet. The builder must not be reused after Build.
type DepEdgeSetBuilder struct {
	attrs  []string
	byAttr map[string][]LabelAndConfiguration
	built  bool
}

// NewDepEdgeSetBuilder creates an empty builder.
func NewDepEdgeSetBuilder() *DepEdgeSetBuilder {
	return &DepEdgeSetBuilder{byAttr: make(map[string][]LabelAndConfiguration)}
}

// Add appends an edge under the named attribute, preserving insertion
// order. Add panics if the builder was already built.
func (b *DepEdgeSetBuilder) Add(attr string, dep LabelAndConfiguration) *DepEdgeSetBuilder {
	if b.built {
		panic("model: DepEdgeSetBuilder used after Build")
	}
	if _, ok := b.byAttr[attr]; !ok {
		b.attrs = append(b.attrs, attr)
	}
	b.byAttr[attr] = append(b.byAttr[attr], dep)
	return b
}

// Build freezes the accumulated edges into an immutable set.
func (b *DepEdgeSetBuilder) Build() *DepEdgeSet {
	b.built = true
	return &DepEdgeSet{attrs: b.attrs, byAttr: b.byAttr}
}
