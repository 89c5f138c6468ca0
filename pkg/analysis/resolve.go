package analysis

import (
	"errors"
	"fmt"

	"github.com/gravelbuild/gravel/pkg/graph"
	"github.com/gravelbuild/gravel/pkg/model"
)

// classifyDependencyError decides whether a failed dependency fetch is
// the requester's to report. The failure's subject is compared against
// the dependency that was directly requested: a match is a direct
// error, reported here with full context; anything else originated
// deeper in the dependency's subgraph and is re-thrown opaquely,
// tagged with the dependency's key.
func classifyDependencyError(parent, dep model.Label, depKey graph.Key, err error) error {
	var noTarget *model.NoSuchTargetError
	if errors.As(err, &noTarget) {
		if noTarget.Label == dep {
			return graph.NewDirectError(
				fmt.Sprintf("%s: no such target '%s'", parent, dep), err)
		}
		return graph.NewTransitiveError(depKey, err)
	}

	var noPackage *model.NoSuchPackageError
	if errors.As(err, &noPackage) {
		if noPackage.PackageID == dep.PackageID() {
			return graph.NewDirectError(
				fmt.Sprintf("%s: no such package '%s' for dependency '%s'", parent, noPackage.PackageID, dep), err)
		}
		return graph.NewTransitiveError(depKey, err)
	}

	return graph.NewTransitiveError(depKey, err)
}

// resolveDependencies batch-fetches the configured targets referenced
// by an edge set and classifies every failure. A nil map with a nil
// error means some dependency was merely unready and the attempt must
// suspend. Direct errors win over transitive ones; sibling transitive
// failures are tie-broken by the lexicographically smallest child key.
func resolveDependencies(env graph.Env, parent model.Label, edges *model.DepEdgeSet) (map[graph.Key]*ConfiguredTargetValue, error) {
	deps := edges.Deps()
	keys := make([]graph.Key, len(deps))
	for i, dep := range deps {
		keys[i] = NewConfiguredTargetKey(dep.Label, dep.Configuration)
	}
	results := env.GetAll(keys)

	var firstDirect error
	var transitive *graph.NodeError
	values := make(map[graph.Key]*ConfiguredTargetValue, len(deps))
	for i, dep := range deps {
		res := results[keys[i]]
		if res.Err != nil {
			classified := classifyDependencyError(parent, dep.Label, keys[i], res.Err)
			if graph.IsDirect(classified) {
				if firstDirect == nil {
					firstDirect = classified
				}
				continue
			}
			ne := classified.(*graph.NodeError)
			if transitive == nil || ne.Origin.String() < transitive.Origin.String() {
				transitive = ne
			}
			continue
		}
		if res.Value == nil {
			continue
		}
		values[keys[i]] = res.Value.(*ConfiguredTargetValue)
	}

	if firstDirect != nil {
		return nil, firstDirect
	}
	if transitive != nil {
		return nil, transitive
	}
	if env.AnyMissing() {
		return nil, nil
	}
	return values, nil
}
