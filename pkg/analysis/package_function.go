package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/gravelbuild/gravel/pkg/graph"
	"github.com/gravelbuild/gravel/pkg/model"
	"github.com/gravelbuild/gravel/pkg/telemetry"
)

// PackageFunction computes package nodes by delegating to the Loader
// collaborator. A loader that reports the package as not yet available
// suspends the node.
type PackageFunction struct {
	loader Loader
	log    *telemetry.Logger
}

// NewPackageFunction wires the package computation to a loader. A nil
// logger disables logging.
func NewPackageFunction(loader Loader, log *telemetry.Logger) *PackageFunction {
	if log == nil {
		log = telemetry.NopLogger()
	}
	return &PackageFunction{
		loader: loader,
		log:    log.NewComponentLogger("loader"),
	}
}

// Compute implements graph.Function.
func (f *PackageFunction) Compute(ctx context.Context, key graph.Key, env graph.Env) (graph.Value, error) {
	arg, ok := key.Arg.(PackageKey)
	if !ok {
		return nil, graph.NewInternalError(fmt.Sprintf("unexpected key argument %T", key.Arg), nil)
	}

	pkg, err := f.loader.GetPackage(ctx, arg.ID)
	if err != nil {
		var noPackage *model.NoSuchPackageError
		if errors.As(err, &noPackage) {
			return nil, graph.NewDirectError(fmt.Sprintf("no such package '%s'", arg.ID), err)
		}
		return nil, graph.NewDirectError(fmt.Sprintf("cannot load package '%s'", arg.ID), err)
	}
	if pkg == nil {
		return nil, nil
	}

	f.log.WithField("package", arg.ID.String()).Debugf("loaded %d targets", len(pkg.TargetNames()))
	return pkg, nil
}
