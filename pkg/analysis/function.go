package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/gravelbuild/gravel/pkg/graph"
	"github.com/gravelbuild/gravel/pkg/model"
	"github.com/gravelbuild/gravel/pkg/telemetry"
)

// ConfiguredTargetFunction computes configured-target nodes. Each
// attempt runs the full resolution pipeline from scratch: package
// fetch, target lookup, configuration normalization, condition
// resolution, dependency resolution and fetch, grouping, and result
// construction. Any unready fetch short-circuits the attempt with the
// restart sentinel; re-fetches of resolved dependencies are served
// from the engine's memo table.
type ConfiguredTargetFunction struct {
	registry *model.ConfigurationRegistry
	resolver DependencyResolver
	factory  TargetFactory
	events   EventSink
	log      *telemetry.Logger
}

// NewConfiguredTargetFunction wires the configured-target computation
// to its collaborators. The event sink receives the diagnostics of
// every decided attempt; a nil sink discards them. A nil logger
// disables logging.
func NewConfiguredTargetFunction(
	registry *model.ConfigurationRegistry,
	resolver DependencyResolver,
	factory TargetFactory,
	events EventSink,
	log *telemetry.Logger,
) *ConfiguredTargetFunction {
	if log == nil {
		log = telemetry.NopLogger()
	}
	return &ConfiguredTargetFunction{
		registry: registry,
		resolver: resolver,
		factory:  factory,
		events:   events,
		log:      log.NewComponentLogger("analysis"),
	}
}

// Compute implements graph.Function.
func (f *ConfiguredTargetFunction) Compute(ctx context.Context, key graph.Key, env graph.Env) (graph.Value, error) {
	arg, ok := key.Arg.(ConfiguredTargetKey)
	if !ok {
		return nil, graph.NewInternalError(fmt.Sprintf("unexpected key argument %T", key.Arg), nil)
	}

	config, ok := f.registry.Lookup(arg.ConfigChecksum)
	if !ok {
		return nil, graph.NewDirectError(fmt.Sprintf(
			"%s: unknown configuration checksum %q", arg.Label, arg.ConfigChecksum), nil)
	}

	// Fetch the containing package.
	pkgValue, err := env.Get(NewPackageKey(arg.Label.PackageID()))
	if err != nil {
		return nil, f.classifyPackageError(arg.Label, err)
	}
	if pkgValue == nil {
		return nil, nil
	}
	pkg := pkgValue.(*model.Package)

	// Look up the target by name. A miss is this node's own error.
	target, err := pkg.GetTarget(arg.Label.Name)
	if err != nil {
		return nil, graph.NewDirectError(fmt.Sprintf("%s: no such target", arg.Label), err)
	}

	// Configuration-agnostic kinds always analyze under the absent
	// configuration, whatever the key requested.
	if target.Kind().ConfigurationAgnostic() {
		config = nil
	}

	// Resolve configuration conditions and the dependency edge set.
	// Both apply to rules only.
	conditions := model.ConfigConditions{}
	edges := model.NewDepEdgeSetBuilder().Build()
	rule, isRule := target.(*model.Rule)
	if isRule {
		conditions, err = resolveConfigConditions(env, rule, config)
		if err != nil {
			return nil, err
		}
		if conditions == nil {
			return nil, nil
		}

		edges, err = f.resolver.DependentNodeMap(rule, config, conditions)
		if err != nil {
			f.postEvent(Event{Severity: SeverityError, Label: arg.Label, Message: err.Error()})
			return nil, graph.NewDirectError(fmt.Sprintf("%s: dependency resolution failed", arg.Label), err)
		}
	}

	// Fetch every dependency the edges reference, with per-dependency
	// error classification.
	depValues, err := resolveDependencies(env, arg.Label, edges)
	if err != nil {
		return nil, err
	}
	if depValues == nil {
		return nil, nil
	}

	// Group resolved dependencies back by attribute, preserving the
	// edge set's order.
	depMap := NewDependencyMap()
	for _, edge := range edges.All() {
		depKey := NewConfiguredTargetKey(edge.Dep.Label, edge.Dep.Configuration)
		depMap.Add(edge.Attribute, depValues[depKey].Target)
	}

	// Construct the analyzed result. Events are buffered so the
	// attempt's fate is decided before anything reaches the user, and
	// actions are recorded attempt-locally so a failure discards them.
	stored := NewStoredEvents()
	recorder := NewActionRecorder()
	providers, err := f.factory.CreateAndInitialize(target, config, depMap, conditions, stored, recorder)
	if err != nil {
		stored.ReplayTo(f.events)
		return nil, graph.NewConstructionError(fmt.Sprintf("%s: analysis failed", arg.Label), err)
	}
	stored.ReplayTo(f.events)
	if stored.HasErrors() {
		return nil, graph.NewConstructionError(fmt.Sprintf("%s: errors during analysis", arg.Label), nil)
	}

	f.log.WithLabel(arg.Label.String()).Debugf("analyzed under configuration %s with %d deps and %d actions",
		config, depMap.Len(), recorder.Len())

	ruleClass := ""
	if isRule {
		ruleClass = rule.RuleClass()
	}
	return &ConfiguredTargetValue{
		Target: &ConfiguredTarget{
			Label:         arg.Label,
			Kind:          target.Kind(),
			RuleClass:     ruleClass,
			Configuration: config,
			Providers:     providers,
		},
		Actions: recorder.Actions(),
	}, nil
}

// classifyPackageError attributes a failed package fetch: a missing
// package whose subject is this label's own package is direct,
// anything else is transitive.
func (f *ConfiguredTargetFunction) classifyPackageError(label model.Label, err error) error {
	var noPackage *model.NoSuchPackageError
	if errors.As(err, &noPackage) && noPackage.PackageID == label.PackageID() {
		return graph.NewDirectError(fmt.Sprintf("%s: no such package '%s'", label, noPackage.PackageID), err)
	}
	return graph.NewTransitiveError(NewPackageKey(label.PackageID()), err)
}

func (f *ConfiguredTargetFunction) postEvent(event Event) {
	if f.events == nil {
		return
	}
	f.events.Post(event)
}
