package analysis

import (
	"context"
	"fmt"

	"github.com/gravelbuild/gravel/pkg/graph"
)

// CompletionFunction computes completion marker nodes. A completion
// node depends on its configured target and publishes a small marker
// value once the target is analyzed. A failed target is propagated as
// a transitive error tagged with the target's key; the configured
// target's own node already did the user-facing reporting.
type CompletionFunction struct{}

// NewCompletionFunction creates the completion computation.
func NewCompletionFunction() *CompletionFunction {
	return &CompletionFunction{}
}

// Compute implements graph.Function.
func (f *CompletionFunction) Compute(ctx context.Context, key graph.Key, env graph.Env) (graph.Value, error) {
	arg, ok := key.Arg.(CompletionKey)
	if !ok {
		return nil, graph.NewInternalError(fmt.Sprintf("unexpected key argument %T", key.Arg), nil)
	}

	targetKey := graph.NewKey(KindConfiguredTarget, ConfiguredTargetKey{
		Label:          arg.Label,
		ConfigChecksum: arg.ConfigChecksum,
	})
	if _, err := env.Get(targetKey); err != nil {
		return nil, graph.NewTransitiveError(targetKey, err)
	}
	if env.AnyMissing() {
		return nil, nil
	}

	return &CompletionValue{
		Label:          arg.Label,
		ConfigChecksum: arg.ConfigChecksum,
		Exclusive:      arg.Exclusive,
	}, nil
}
