package model

// AttributeType is the declared type of an attribute's value.
type AttributeType string

const (
	// AttributeTypeLabelList is an ordered list of labels.
	AttributeTypeLabelList AttributeType = "label_list"

	// AttributeTypeLabel is a single label.
	AttributeTypeLabel AttributeType = "label"

	// AttributeTypeString is a plain string value.
	AttributeTypeString AttributeType = "string"

	// AttributeTypeStringDict is a string-to-string mapping, used by
	// condition rules to declare the option values they match.
	AttributeTypeStringDict AttributeType = "string_dict"
)

// DefaultConditionLabel is the reserved selector key denoting the
// default branch. It is excluded when collecting condition labels.
var DefaultConditionLabel = Label{Pkg: "conditions", Name: "default"}

// IsReservedConditionLabel reports whether a selector key is a
// reserved marker rather than a real condition target.
func IsReservedConditionLabel(l Label) bool {
	return l == DefaultConditionLabel
}

// SelectorBranch is one alternative of a configurable attribute: the
// condition label that guards it and the labels it contributes.
type SelectorBranch struct {
	// Condition is the label of the condition target guarding this
	// branch.
	Condition Label

	// Labels are the dependency labels contributed when the condition
	// is satisfied.
	Labels []Label
}

// Selector holds the labeled alternatives of a configurable attribute.
// Branch order is the declaration order and is significant: the first
// branch whose condition is satisfied wins.
type Selector struct {
	branches      []SelectorBranch
	defaultLabels []Label
	hasDefault    bool
}

// NewSelector constructs a selector from ordered branches and an
// optional default branch.
func NewSelector(branches []SelectorBranch, defaultLabels []Label, hasDefault bool) *Selector {
	return &Selector{
		branches:      branches,
		defaultLabels: defaultLabels,
		hasDefault:    hasDefault,
	}
}

// Branches returns the selector's branches in declaration order.
func (s *Selector) Branches() []SelectorBranch { return s.branches }

// HasDefault reports whether the selector declares a default branch.
func (s *Selector) HasDefault() bool { return s.hasDefault }

// DefaultLabels returns the default branch's labels.
func (s *Selector) DefaultLabels() []Label { return s.defaultLabels }

// ConditionLabels returns the condition labels referenced by the
// selector, excluding reserved markers, in branch order without
// duplicates.
func (s *Selector) ConditionLabels() []Label {
	seen := make(map[Label]struct{}, len(s.branches))
	var out []Label
	for _, b := range s.branches {
		if IsReservedConditionLabel(b.Condition) {
			continue
		}
		if _, ok := seen[b.Condition]; ok {
			continue
		}
		seen[b.Condition] = struct{}{}
		out = append(out, b.Condition)
	}
	return out
}

// Attribute is a named, typed edge-template on a rule. Its value is
// either direct (labels, strings, or a string dict) or a selector over
// labeled alternatives.
type Attribute struct {
	name     string
	typ      AttributeType
	labels   []Label
	strings  []string
	dict     map[string]string
	selector *Selector
}

// NewLabelListAttribute constructs a direct label-list attribute.
func NewLabelListAttribute(name string, labels ...Label) *Attribute {
	return &Attribute{name: name, typ: AttributeTypeLabelList, labels: labels}
}

// NewStringAttribute constructs a direct string attribute.
func NewStringAttribute(name, value string) *Attribute {
	return &Attribute{name: name, typ: AttributeTypeString, strings: []string{value}}
}

// NewStringDictAttribute constructs a string-dict attribute.
func NewStringDictAttribute(name string, dict map[string]string) *Attribute {
	d := make(map[string]string, len(dict))
	for k, v := range dict {
		d[k] = v
	}
	return &Attribute{name: name, typ: AttributeTypeStringDict, dict: d}
}

// NewSelectAttribute constructs a configurable label-list attribute.
func NewSelectAttribute(name string, selector *Selector) *Attribute {
	return &Attribute{name: name, typ: AttributeTypeLabelList, selector: selector}
}

// Name returns the attribute name.
func (a *Attribute) Name() string { return a.name }

// Type returns the attribute's declared type.
func (a *Attribute) Type() AttributeType { return a.typ }

// IsConfigurable reports whether the attribute's value is selected
// among labeled alternatives.
func (a *Attribute) IsConfigurable() bool { return a.selector != nil }

// Selector returns the attribute's selector, or nil for direct values.
func (a *Attribute) Selector() *Selector { return a.selector }

// DirectLabels returns the attribute's direct label value. Empty for
// configurable attributes; selection happens during resolution.
func (a *Attribute) DirectLabels() []Label { return a.labels }

// StringValue returns the attribute's string value.
func (a *Attribute) StringValue() string {
	if len(a.strings) == 0 {
		return ""
	}
	return a.strings[0]
}

// DictValue returns the attribute's string-dict value.
func (a *Attribute) DictValue() map[string]string { return a.dict }
