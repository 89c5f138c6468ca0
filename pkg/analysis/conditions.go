package analysis

import (
	"fmt"

	"github.com/gravelbuild/gravel/pkg/graph"
	"github.com/gravelbuild/gravel/pkg/model"
)

// conditionLabels collects the condition labels referenced by a rule's
// configurable attributes, in attribute-then-branch order without
// duplicates. Reserved default markers are excluded.
func conditionLabels(rule *model.Rule) []model.Label {
	seen := make(map[model.Label]struct{})
	var out []model.Label
	for _, attr := range rule.Attributes() {
		if !attr.IsConfigurable() {
			continue
		}
		for _, l := range attr.Selector().ConditionLabels() {
			if _, ok := seen[l]; ok {
				continue
			}
			seen[l] = struct{}{}
			out = append(out, l)
		}
	}
	return out
}

// resolveConfigConditions fetches the condition targets a rule's
// selects refer to, under the rule's own configuration, and extracts
// their config-matching capability. A nil map with a nil error means
// some condition was unready and the attempt must suspend. The result
// is empty, never nil, for rules without configurable attributes.
func resolveConfigConditions(env graph.Env, rule *model.Rule, config *model.Configuration) (model.ConfigConditions, error) {
	labels := conditionLabels(rule)
	conditions := make(model.ConfigConditions, len(labels))
	if len(labels) == 0 {
		return conditions, nil
	}

	keys := make([]graph.Key, len(labels))
	for i, l := range labels {
		keys[i] = NewConfiguredTargetKey(l, config)
	}
	results := env.GetAll(keys)

	for i, l := range labels {
		res := results[keys[i]]
		if res.Err != nil {
			return nil, classifyDependencyError(rule.Label(), l, keys[i], res.Err)
		}
	}
	if env.AnyMissing() {
		return nil, nil
	}

	for i, l := range labels {
		value := results[keys[i]].Value.(*ConfiguredTargetValue)
		provider, ok := value.Target.ConfigMatching()
		if !ok {
			return nil, graph.NewDirectError(fmt.Sprintf(
				"%s: condition '%s' does not provide a configuration match", rule.Label(), l), nil)
		}
		conditions[l] = provider
	}
	return conditions, nil
}
