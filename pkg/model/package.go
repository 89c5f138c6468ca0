package model

// Package is a named, immutable collection of targets.
type Package struct {
	id      PackageID
	targets map[string]Target
	order   []string
}

// NewPackage constructs a package from its targets. A duplicate target
// name keeps the first occurrence.
func NewPackage(id PackageID, targets ...Target) *Package {
	p := &Package{
		id:      id,
		targets: make(map[string]Target, len(targets)),
	}
	for _, t := range targets {
		name := t.Label().Name
		if _, exists := p.targets[name]; exists {
			continue
		}
		p.targets[name] = t
		p.order = append(p.order, name)
	}
	return p
}

// ID returns the package identity.
func (p *Package) ID() PackageID { return p.id }

// GetTarget returns the named target or a *NoSuchTargetError scoped to
// the missing label.
func (p *Package) GetTarget(name string) (Target, error) {
	t, ok := p.targets[name]
	if !ok {
		return nil, &NoSuchTargetError{
			Label: Label{Pkg: string(p.id), Name: name},
			Msg:   "no such target",
		}
	}
	return t, nil
}

// TargetNames returns the target names in declaration order.
func (p *Package) TargetNames() []string { return p.order }
