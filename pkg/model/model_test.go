package model

import (
	"errors"
	"testing"
)

func TestParseLabel(t *testing.T) {
	cases := []struct {
		in      string
		pkg     string
		name    string
		wantErr bool
	}{
		{in: "//base:lib", pkg: "base", name: "lib"},
		{in: "//base/strings:join", pkg: "base/strings", name: "join"},
		{in: "//base/strings", pkg: "base/strings", name: "strings"},
		{in: "//tools", pkg: "tools", name: "tools"},
		{in: "base:lib", wantErr: true},
		{in: "//", wantErr: true},
		{in: "//base:", wantErr: true},
		{in: "//base:a:b", wantErr: true},
		{in: "//base:a/b", wantErr: true},
	}

	for _, tc := range cases {
		label, err := ParseLabel(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseLabel(%q): expected error, got %v", tc.in, label)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseLabel(%q): %v", tc.in, err)
			continue
		}
		if label.Pkg != tc.pkg || label.Name != tc.name {
			t.Errorf("ParseLabel(%q) = %+v, want pkg=%s name=%s", tc.in, label, tc.pkg, tc.name)
		}
	}
}

func TestLabelString(t *testing.T) {
	label := MustParseLabel("//base/strings:join")
	if label.String() != "//base/strings:join" {
		t.Errorf("unexpected string form: %s", label)
	}
	if label.PackageID() != "base/strings" {
		t.Errorf("unexpected package id: %s", label.PackageID())
	}
	reparsed := MustParseLabel(label.String())
	if reparsed != label {
		t.Errorf("string form must round-trip, got %+v", reparsed)
	}
}

func TestConfigurationIdentity(t *testing.T) {
	a := NewConfiguration("dev", map[string]string{"mode": "dbg", "arch": "arm64"})
	b := NewConfiguration("other-name", map[string]string{"arch": "arm64", "mode": "dbg"})
	c := NewConfiguration("dev", map[string]string{"mode": "opt"})

	if a.Checksum() != b.Checksum() {
		t.Error("equal option maps must have equal checksums regardless of name")
	}
	if a.Checksum() == c.Checksum() {
		t.Error("different option maps must have different checksums")
	}
}

func TestAbsentConfiguration(t *testing.T) {
	var none *Configuration
	if none.Checksum() != "" {
		t.Error("the absent configuration has an empty checksum")
	}
	if none.Name() != "none" {
		t.Errorf("unexpected name: %s", none.Name())
	}
	if _, ok := none.Option("mode"); ok {
		t.Error("the absent configuration has no options")
	}
}

func TestConfigurationImmutability(t *testing.T) {
	options := map[string]string{"mode": "dbg"}
	config := NewConfiguration("dev", options)
	options["mode"] = "opt"

	if v, _ := config.Option("mode"); v != "dbg" {
		t.Errorf("configuration must copy its option map, got mode=%s", v)
	}
}

func TestConfigurationRegistry(t *testing.T) {
	registry := NewConfigurationRegistry()

	first := registry.Intern(NewConfiguration("dev", map[string]string{"mode": "dbg"}))
	second := registry.Intern(NewConfiguration("dev-copy", map[string]string{"mode": "dbg"}))
	if first != second {
		t.Error("interning equal options must return the canonical instance")
	}

	got, ok := registry.Lookup(first.Checksum())
	if !ok || got != first {
		t.Error("lookup by checksum must return the interned instance")
	}

	if c, ok := registry.Lookup(""); !ok || c != nil {
		t.Error("the empty checksum resolves to the absent configuration")
	}
	if _, ok := registry.Lookup("deadbeef"); ok {
		t.Error("unknown checksums must not resolve")
	}
	if registry.Intern(nil) != nil {
		t.Error("interning nil returns nil")
	}
}

func TestSelectorConditionLabels(t *testing.T) {
	dbg := MustParseLabel("//cond:dbg")
	opt := MustParseLabel("//cond:opt")
	sel := NewSelector(
		[]SelectorBranch{
			{Condition: dbg, Labels: []Label{MustParseLabel("//p:a")}},
			{Condition: opt, Labels: []Label{MustParseLabel("//p:b")}},
			{Condition: dbg, Labels: []Label{MustParseLabel("//p:c")}},
			{Condition: DefaultConditionLabel, Labels: []Label{MustParseLabel("//p:d")}},
		},
		nil, false,
	)

	conds := sel.ConditionLabels()
	if len(conds) != 2 || conds[0] != dbg || conds[1] != opt {
		t.Errorf("expected deduplicated conditions without the reserved marker, got %v", conds)
	}
	if sel.HasDefault() {
		t.Error("selector without a default branch must report none")
	}
}

func TestRuleAttributes(t *testing.T) {
	deps := NewLabelListAttribute("deps", MustParseLabel("//p:a"))
	dupe := NewLabelListAttribute("deps", MustParseLabel("//p:b"))
	mode := NewStringAttribute("mode", "fast")
	rule := NewRule(MustParseLabel("//p:r"), "go_library", deps, dupe, mode)

	if len(rule.Attributes()) != 2 {
		t.Fatalf("duplicate attribute names keep the first occurrence, got %d attrs", len(rule.Attributes()))
	}
	if got := rule.Attr("deps").DirectLabels(); len(got) != 1 || got[0] != MustParseLabel("//p:a") {
		t.Errorf("unexpected deps value: %v", got)
	}
	if rule.Attr("mode").StringValue() != "fast" {
		t.Error("unexpected string attribute value")
	}
	if rule.Attr("nope") != nil {
		t.Error("missing attribute must be nil")
	}
}

func TestPackageGetTarget(t *testing.T) {
	lib := NewRule(MustParseLabel("//p:lib"), "go_library")
	dupe := NewInputFile(MustParseLabel("//p:lib"))
	pkg := NewPackage("p", lib, dupe)

	target, err := pkg.GetTarget("lib")
	if err != nil {
		t.Fatalf("GetTarget: %v", err)
	}
	if target.Kind() != TargetKindRule {
		t.Error("duplicate target names keep the first occurrence")
	}

	_, err = pkg.GetTarget("missing")
	var noTarget *NoSuchTargetError
	if !errors.As(err, &noTarget) {
		t.Fatalf("expected NoSuchTargetError, got %v", err)
	}
	if noTarget.Label != (Label{Pkg: "p", Name: "missing"}) {
		t.Errorf("error subject should be the missing label, got %s", noTarget.Label)
	}
}

func TestTargetKindConfigurationAgnostic(t *testing.T) {
	if TargetKindRule.ConfigurationAgnostic() {
		t.Error("rules carry configurations")
	}
	if !TargetKindInputFile.ConfigurationAgnostic() || !TargetKindPackageGroup.ConfigurationAgnostic() {
		t.Error("input files and package groups are configuration-agnostic")
	}
}

func TestDepEdgeSet(t *testing.T) {
	dev := NewConfiguration("dev", map[string]string{"mode": "dbg"})
	a := LabelAndConfiguration{Label: MustParseLabel("//p:a"), Configuration: dev}
	b := LabelAndConfiguration{Label: MustParseLabel("//p:b"), Configuration: dev}
	aAbsent := LabelAndConfiguration{Label: MustParseLabel("//p:a")}

	set := NewDepEdgeSetBuilder().
		Add("deps", a).
		Add("deps", b).
		Add("data", a).
		Add("data", aAbsent).
		Build()

	if got := set.Attributes(); len(got) != 2 || got[0] != "deps" || got[1] != "data" {
		t.Errorf("attribute order must be insertion order, got %v", got)
	}
	if set.Len() != 4 {
		t.Errorf("expected 4 edges, got %d", set.Len())
	}

	all := set.All()
	if all[0].Attribute != "deps" || all[2].Attribute != "data" {
		t.Errorf("All must walk attribute-then-declaration order: %v", all)
	}

	// a under dev appears twice but is one endpoint; a under the absent
	// configuration is a distinct endpoint.
	deps := set.Deps()
	if len(deps) != 3 {
		t.Fatalf("expected 3 distinct endpoints, got %d", len(deps))
	}
	if deps[0] != a || deps[1] != b || deps[2] != aAbsent {
		t.Errorf("endpoints must keep first-seen order: %v", deps)
	}
}

func TestDepEdgeSetBuilderFrozen(t *testing.T) {
	builder := NewDepEdgeSetBuilder()
	builder.Build()

	defer func() {
		if recover() == nil {
			t.Error("Add after Build must panic")
		}
	}()
	builder.Add("deps", LabelAndConfiguration{Label: MustParseLabel("//p:a")})
}

func TestProviderSet(t *testing.T) {
	condition := MustParseLabel("//cond:dbg")
	set := NewProviderSetBuilder().
		Add(&ConfigMatchingProvider{ConditionLabel: condition, Match: true}).
		Build()

	provider, ok := set.ConfigMatching()
	if !ok || !provider.Matches() || provider.ConditionLabel != condition {
		t.Fatalf("unexpected provider: %+v ok=%v", provider, ok)
	}

	var empty *ProviderSet
	if _, ok := empty.ConfigMatching(); ok {
		t.Error("a nil set has no providers")
	}
	if empty.Len() != 0 {
		t.Error("a nil set is empty")
	}
}

func TestConfigConditionsSatisfied(t *testing.T) {
	dbg := MustParseLabel("//cond:dbg")
	opt := MustParseLabel("//cond:opt")
	conditions := ConfigConditions{
		dbg: &ConfigMatchingProvider{ConditionLabel: dbg, Match: true},
		opt: &ConfigMatchingProvider{ConditionLabel: opt, Match: false},
	}

	if !conditions.Satisfied(dbg) {
		t.Error("matching condition must be satisfied")
	}
	if conditions.Satisfied(opt) {
		t.Error("non-matching condition must not be satisfied")
	}
	if conditions.Satisfied(MustParseLabel("//cond:unknown")) {
		t.Error("unknown condition must not be satisfied")
	}
}
