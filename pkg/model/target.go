package model

// TargetKind distinguishes the kinds of targets a package can declare.
type TargetKind string

const (
	// TargetKindRule is an ordinary buildable rule with attributes.
	TargetKindRule TargetKind = "rule"

	// TargetKindInputFile is a raw source file. Input files carry no
	// configuration; analysis forces their configuration to absent.
	TargetKindInputFile TargetKind = "input_file"

	// TargetKindPackageGroup is a grouping construct. Like input
	// files, package groups are configuration-agnostic.
	TargetKindPackageGroup TargetKind = "package_group"
)

// ConfigurationAgnostic reports whether targets of this kind always
// carry an absent configuration regardless of what was requested.
func (k TargetKind) ConfigurationAgnostic() bool {
	return k == TargetKindInputFile || k == TargetKindPackageGroup
}

// Target is anything addressable by a label inside a package.
type Target interface {
	// Label returns the target's address.
	Label() Label

	// Kind returns the target kind, which determines whether a
	// configuration is attached during analysis.
	Kind() TargetKind
}

// Rule is a buildable target: a rule class plus an ordered list of
// attributes, some of which may be configurable.
type Rule struct {
	label     Label
	ruleClass string
	attrs     []*Attribute
	byName    map[string]*Attribute
}

// NewRule constructs a rule target. Attribute order is preserved; a
// duplicate attribute name keeps the first occurrence.
func NewRule(label Label, ruleClass string, attrs ...*Attribute) *Rule {
	r := &Rule{
		label:     label,
		ruleClass: ruleClass,
		byName:    make(map[string]*Attribute, len(attrs)),
	}
	for _, a := range attrs {
		if _, exists := r.byName[a.Name()]; exists {
			continue
		}
		r.attrs = append(r.attrs, a)
		r.byName[a.Name()] = a
	}
	return r
}

// Label implements Target.
func (r *Rule) Label() Label { return r.label }

// Kind implements Target.
func (r *Rule) Kind() TargetKind { return TargetKindRule }

// RuleClass returns the rule's class name, e.g. "go_library".
func (r *Rule) RuleClass() string { return r.ruleClass }

// Attributes returns the rule's attributes in declaration order.
func (r *Rule) Attributes() []*Attribute { return r.attrs }

// Attr returns the named attribute, or nil if the rule has none.
func (r *Rule) Attr(name string) *Attribute { return r.byName[name] }

// InputFile is a raw source file target.
type InputFile struct {
	label Label
}

// NewInputFile constructs an input file target.
func NewInputFile(label Label) *InputFile {
	return &InputFile{label: label}
}

// Label implements Target.
func (f *InputFile) Label() Label { return f.label }

// Kind implements Target.
func (f *InputFile) Kind() TargetKind { return TargetKindInputFile }

// PackageGroup is a grouping target naming a set of packages.
type PackageGroup struct {
	label    Label
	packages []PackageID
}

// NewPackageGroup constructs a package group target.
func NewPackageGroup(label Label, packages ...PackageID) *PackageGroup {
	return &PackageGroup{label: label, packages: packages}
}

// Label implements Target.
func (g *PackageGroup) Label() Label { return g.label }

// Kind implements Target.
func (g *PackageGroup) Kind() TargetKind { return TargetKindPackageGroup }

// Packages returns the grouped package identities.
func (g *PackageGroup) Packages() []PackageID { return g.packages }
