package loader

import (
	"context"
	"sync"

	"github.com/gravelbuild/gravel/pkg/model"
)

// InMemoryLoader serves packages from an in-process table. It
// implements the analysis loader contract; every package is available
// immediately.
type InMemoryLoader struct {
	mu       sync.RWMutex
	packages map[model.PackageID]*model.Package
}

// NewInMemoryLoader creates a loader over the given packages.
func NewInMemoryLoader(packages ...*model.Package) *InMemoryLoader {
	l := &InMemoryLoader{
		packages: make(map[model.PackageID]*model.Package, len(packages)),
	}
	for _, p := range packages {
		l.packages[p.ID()] = p
	}
	return l
}

// Add registers a package, replacing any previous package with the
// same identity.
func (l *InMemoryLoader) Add(p *model.Package) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.packages[p.ID()] = p
}

// GetPackage returns the package for an identity, or a
// *model.NoSuchPackageError if the loader has none.
func (l *InMemoryLoader) GetPackage(ctx context.Context, id model.PackageID) (*model.Package, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.packages[id]
	if !ok {
		return nil, &model.NoSuchPackageError{PackageID: id, Msg: "package not found"}
	}
	return p, nil
}
