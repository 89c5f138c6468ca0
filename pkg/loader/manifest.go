package loader

import (
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/gravelbuild/gravel/pkg/model"
)

// Manifest is a parsed workspace description: named configurations and
// fully-structured packages.
type Manifest struct {
	// Configurations are the declared configurations, in file order.
	Configurations []*model.Configuration

	// Packages are the declared packages, in file order.
	Packages []*model.Package
}

// Configuration returns the named configuration, or nil.
func (m *Manifest) Configuration(name string) *model.Configuration {
	for _, c := range m.Configurations {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// Loader builds an in-memory loader over the manifest's packages.
func (m *Manifest) Loader() *InMemoryLoader {
	return NewInMemoryLoader(m.Packages...)
}

// YAML schema of a manifest file. Required fields are enforced through
// struct tags; label syntax and selector shape are checked while
// building the model.

type manifestFile struct {
	Configurations []manifestConfiguration `yaml:"configurations" validate:"dive"`
	Packages       []manifestPackage       `yaml:"packages" validate:"dive"`
}

type manifestConfiguration struct {
	Name    string            `yaml:"name" validate:"required"`
	Options map[string]string `yaml:"options"`
}

type manifestPackage struct {
	Path    string           `yaml:"path" validate:"required"`
	Targets []manifestTarget `yaml:"targets" validate:"dive"`
}

type manifestTarget struct {
	Name      string             `yaml:"name" validate:"required"`
	Kind      string             `yaml:"kind"`
	RuleClass string             `yaml:"rule_class"`
	Attrs     []manifestAttr     `yaml:"attrs" validate:"dive"`
	Packages  []string           `yaml:"packages"`
}

type manifestAttr struct {
	Name   string            `yaml:"name" validate:"required"`
	Type   string            `yaml:"type"`
	Labels []string          `yaml:"labels"`
	Value  string            `yaml:"value"`
	Dict   map[string]string `yaml:"dict"`
	Select *manifestSelect   `yaml:"select"`
}

type manifestSelect struct {
	Branches []manifestBranch `yaml:"branches"`

	// Default is a pointer so an empty default branch is distinguished
	// from no default branch at all.
	Default *[]string `yaml:"default"`
}

type manifestBranch struct {
	Condition string   `yaml:"condition"`
	Labels    []string `yaml:"labels"`
}

var validate = validator.New()

// ParseManifest reads a YAML manifest.
func ParseManifest(r io.Reader) (*Manifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var file manifestFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := validate.Struct(&file); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	m := &Manifest{}
	for _, mc := range file.Configurations {
		m.Configurations = append(m.Configurations, model.NewConfiguration(mc.Name, mc.Options))
	}
	for _, mp := range file.Packages {
		pkg, err := buildPackage(mp)
		if err != nil {
			return nil, err
		}
		m.Packages = append(m.Packages, pkg)
	}
	return m, nil
}

// LoadManifestFile reads a YAML manifest from disk.
func LoadManifestFile(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()
	return ParseManifest(f)
}

func buildPackage(mp manifestPackage) (*model.Package, error) {
	id := model.PackageID(mp.Path)

	var targets []model.Target
	for _, mt := range mp.Targets {
		label := model.Label{Pkg: mp.Path, Name: mt.Name}

		switch mt.Kind {
		case "rule", "":
			attrs, err := buildAttrs(label, mt.Attrs)
			if err != nil {
				return nil, err
			}
			targets = append(targets, model.NewRule(label, mt.RuleClass, attrs...))
		case "input_file":
			targets = append(targets, model.NewInputFile(label))
		case "package_group":
			ids := make([]model.PackageID, len(mt.Packages))
			for i, p := range mt.Packages {
				ids[i] = model.PackageID(p)
			}
			targets = append(targets, model.NewPackageGroup(label, ids...))
		default:
			return nil, fmt.Errorf("target %s: unknown kind %q", label, mt.Kind)
		}
	}
	return model.NewPackage(id, targets...), nil
}

func buildAttrs(owner model.Label, mattrs []manifestAttr) ([]*model.Attribute, error) {
	var attrs []*model.Attribute
	for _, ma := range mattrs {
		if ma.Select != nil {
			sel, err := buildSelector(owner, ma)
			if err != nil {
				return nil, err
			}
			attrs = append(attrs, model.NewSelectAttribute(ma.Name, sel))
			continue
		}

		switch ma.Type {
		case "label_list", "":
			labels, err := parseLabels(owner, ma.Name, ma.Labels)
			if err != nil {
				return nil, err
			}
			attrs = append(attrs, model.NewLabelListAttribute(ma.Name, labels...))
		case "string":
			attrs = append(attrs, model.NewStringAttribute(ma.Name, ma.Value))
		case "string_dict":
			attrs = append(attrs, model.NewStringDictAttribute(ma.Name, ma.Dict))
		default:
			return nil, fmt.Errorf("target %s: attribute '%s' has unknown type %q", owner, ma.Name, ma.Type)
		}
	}
	return attrs, nil
}

func buildSelector(owner model.Label, ma manifestAttr) (*model.Selector, error) {
	var branches []model.SelectorBranch
	for _, mb := range ma.Select.Branches {
		cond, err := model.ParseLabel(mb.Condition)
		if err != nil {
			return nil, fmt.Errorf("target %s: attribute '%s': %w", owner, ma.Name, err)
		}
		labels, err := parseLabels(owner, ma.Name, mb.Labels)
		if err != nil {
			return nil, err
		}
		branches = append(branches, model.SelectorBranch{Condition: cond, Labels: labels})
	}

	hasDefault := ma.Select.Default != nil
	var defaultLabels []model.Label
	if hasDefault {
		var err error
		defaultLabels, err = parseLabels(owner, ma.Name, *ma.Select.Default)
		if err != nil {
			return nil, err
		}
	}
	return model.NewSelector(branches, defaultLabels, hasDefault), nil
}

func parseLabels(owner model.Label, attr string, raw []string) ([]model.Label, error) {
	labels := make([]model.Label, 0, len(raw))
	for _, s := range raw {
		l, err := model.ParseLabel(s)
		if err != nil {
			return nil, fmt.Errorf("target %s: attribute '%s': %w", owner, attr, err)
		}
		labels = append(labels, l)
	}
	return labels, nil
}
