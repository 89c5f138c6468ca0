package analysis

import (
	"fmt"
	"path"

	"github.com/gravelbuild/gravel/pkg/model"
)

// RuleClassConfigSetting is the rule class of condition targets. A
// config_setting compares its declared option values against the
// requesting target's configuration and exposes the result as a
// config-matching capability.
const RuleClassConfigSetting = "config_setting"

// DefaultTargetFactory is the built-in target construction
// collaborator. It understands condition rules, attaches a
// config-matching provider to them, and registers a placeholder
// analyze action for every other rule. Input files and package groups
// analyze to an empty provider set.
type DefaultTargetFactory struct{}

// NewDefaultTargetFactory creates the factory.
func NewDefaultTargetFactory() *DefaultTargetFactory {
	return &DefaultTargetFactory{}
}

// CreateAndInitialize implements TargetFactory.
func (f *DefaultTargetFactory) CreateAndInitialize(
	target model.Target,
	config *model.Configuration,
	deps *DependencyMap,
	conditions model.ConfigConditions,
	events EventSink,
	actions *ActionRecorder,
) (*model.ProviderSet, error) {
	builder := model.NewProviderSetBuilder()

	rule, isRule := target.(*model.Rule)
	if !isRule {
		return builder.Build(), nil
	}

	if rule.RuleClass() == RuleClassConfigSetting {
		match, ok := f.evaluateConfigSetting(rule, config, events)
		if !ok {
			return builder.Build(), nil
		}
		builder.Add(&model.ConfigMatchingProvider{
			ConditionLabel: rule.Label(),
			Match:          match,
		})
		return builder.Build(), nil
	}

	label := rule.Label()
	actions.Register(NewAction(
		label,
		"Analyze",
		depOutputs(deps),
		[]string{path.Join("gravel-out", label.Pkg, label.Name+".analyzed")},
	))
	return builder.Build(), nil
}

// evaluateConfigSetting compares a condition rule's declared option
// values against the configuration. A condition with no values to
// match is a definition error, reported through the event sink.
func (f *DefaultTargetFactory) evaluateConfigSetting(rule *model.Rule, config *model.Configuration, events EventSink) (match, ok bool) {
	values := rule.Attr("values")
	if values == nil || len(values.DictValue()) == 0 {
		events.Post(Event{
			Severity: SeverityError,
			Label:    rule.Label(),
			Message:  fmt.Sprintf("%s requires a non-empty 'values' attribute", RuleClassConfigSetting),
		})
		return false, false
	}

	for option, want := range values.DictValue() {
		got, set := config.Option(option)
		if !set || got != want {
			return false, true
		}
	}
	return true, true
}

// depOutputs flattens the outputs of the grouped dependencies' actions
// into the inputs of the dependent's action. Only rule dependencies
// contribute; their single analyze output is the convention above.
func depOutputs(deps *DependencyMap) []string {
	var out []string
	for _, attr := range deps.Attributes() {
		for _, dep := range deps.Deps(attr) {
			if dep.Kind != model.TargetKindRule || dep.RuleClass == RuleClassConfigSetting {
				continue
			}
			out = append(out, path.Join("gravel-out", dep.Label.Pkg, dep.Label.Name+".analyzed"))
		}
	}
	return out
}
