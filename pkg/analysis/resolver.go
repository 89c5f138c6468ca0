package analysis

import (
	"github.com/gravelbuild/gravel/pkg/model"
)

// DefaultResolver resolves a rule's label-valued attributes into the
// dependency edge set. Direct attributes contribute their labels as
// declared; configurable attributes contribute the labels of the first
// branch whose condition is satisfied, falling back to the default
// branch.
//
// Dependencies inherit the requesting target's configuration.
// Configuration-agnostic dependencies normalize it away inside their
// own node, not here.
type DefaultResolver struct{}

// NewDefaultResolver creates a resolver.
func NewDefaultResolver() *DefaultResolver {
	return &DefaultResolver{}
}

// DependentNodeMap implements DependencyResolver.
func (r *DefaultResolver) DependentNodeMap(rule *model.Rule, config *model.Configuration, conditions model.ConfigConditions) (*model.DepEdgeSet, error) {
	builder := model.NewDepEdgeSetBuilder()
	for _, attr := range rule.Attributes() {
		if attr.Type() != model.AttributeTypeLabelList && attr.Type() != model.AttributeTypeLabel {
			continue
		}

		labels, err := r.attributeLabels(rule, attr, conditions)
		if err != nil {
			return nil, err
		}
		for _, dep := range r.ResolveRuleLabels(labels, config) {
			builder.Add(attr.Name(), dep)
		}
	}
	return builder.Build(), nil
}

// attributeLabels evaluates one attribute to its effective labels,
// applying select resolution for configurable attributes.
func (r *DefaultResolver) attributeLabels(rule *model.Rule, attr *model.Attribute, conditions model.ConfigConditions) ([]model.Label, error) {
	if !attr.IsConfigurable() {
		return attr.DirectLabels(), nil
	}

	sel := attr.Selector()
	for _, branch := range sel.Branches() {
		if model.IsReservedConditionLabel(branch.Condition) {
			continue
		}
		if conditions.Satisfied(branch.Condition) {
			return branch.Labels, nil
		}
	}
	if sel.HasDefault() {
		return sel.DefaultLabels(), nil
	}
	return nil, &EvalError{
		Label:     rule.Label(),
		Attribute: attr.Name(),
		Message:   "no matching conditions and no default branch in select",
	}
}

// ResolveRuleLabels implements DependencyResolver.
func (r *DefaultResolver) ResolveRuleLabels(labels []model.Label, config *model.Configuration) []model.LabelAndConfiguration {
	out := make([]model.LabelAndConfiguration, 0, len(labels))
	for _, l := range labels {
		out = append(out, model.LabelAndConfiguration{Label: l, Configuration: config})
	}
	return out
}
