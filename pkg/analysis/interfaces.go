package analysis

import (
	"context"
	"fmt"

	"github.com/gravelbuild/gravel/pkg/model"
)

// Loader supplies packages to the package node function. A (nil, nil)
// return means the package is not yet available and the node should
// suspend; implementations backed by in-memory data always resolve
// immediately.
type Loader interface {
	GetPackage(ctx context.Context, id model.PackageID) (*model.Package, error)
}

// DependencyResolver turns a rule's attributes, its configuration and
// the resolved configuration conditions into the attribute-to-edge
// mapping, including edges introduced by matched selects. A domain
// evaluation error (for example a select with no matching branch and
// no default) is returned as an *EvalError and is terminal for the
// requesting node.
type DependencyResolver interface {
	DependentNodeMap(rule *model.Rule, config *model.Configuration, conditions model.ConfigConditions) (*model.DepEdgeSet, error)

	// ResolveRuleLabels maps raw labels to edge endpoints under a
	// configuration, without consulting attributes.
	ResolveRuleLabels(labels []model.Label, config *model.Configuration) []model.LabelAndConfiguration
}

// TargetFactory constructs the analyzed result for a target. It may
// post diagnostic events to the sink and register actions on the
// recorder; error events fail the node and discard the actions.
type TargetFactory interface {
	CreateAndInitialize(
		target model.Target,
		config *model.Configuration,
		deps *DependencyMap,
		conditions model.ConfigConditions,
		events EventSink,
		actions *ActionRecorder,
	) (*model.ProviderSet, error)
}

// EvalError is a domain-level attribute evaluation failure, such as a
// select with no satisfied condition and no default branch.
type EvalError struct {
	// Label is the target whose attributes failed to evaluate.
	Label model.Label

	// Attribute is the attribute being evaluated.
	Attribute string

	// Message describes the failure.
	Message string
}

// Error implements the error interface.
func (e *EvalError) Error() string {
	if e.Attribute != "" {
		return fmt.Sprintf("%s: in attribute '%s': %s", e.Label, e.Attribute, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Label, e.Message)
}
