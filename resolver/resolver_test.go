package resolver

import (
	"errors"
	"reflect"
	"testing"

	"thunder-mod-manager/semver"
)

// fakeCatalog is an in-memory Catalog for resolver tests.
type fakeCatalog struct {
	versions map[string][]Candidate
	edges    map[uint][]Edge
}

func (f *fakeCatalog) VersionsOf(owner, name string) ([]Candidate, error) {
	return f.versions[owner+"-"+name], nil
}

func (f *fakeCatalog) EdgesOf(versionID uint) ([]Edge, error) {
	return f.edges[versionID], nil
}

func v(s string) semver.Triple { return semver.MustParse(s) }

func TestResolvePicksGreatestSatisfying(t *testing.T) {
	cat := &fakeCatalog{
		versions: map[string][]Candidate{
			"alice-A": {{VersionID: 1, Version: v("1.0.0")}},
			"bob-B":   {{VersionID: 2, Version: v("1.1.0")}, {VersionID: 3, Version: v("1.3.0")}},
		},
		edges: map[uint][]Edge{
			1: {{Owner: "bob", Name: "B", Floor: v("1.2.0")}},
		},
	}

	result, err := Resolve(cat, []Root{{Owner: "alice", Name: "A", Version: v("1.0.0")}})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	chosen, ok := result[PackageRef{Owner: "bob", Name: "B"}]
	if !ok {
		t.Fatal("B missing from result")
	}
	if chosen.Version != v("1.3.0") || chosen.VersionID != 3 {
		t.Errorf("B resolved to %v (id %d), want 1.3.0 (id 3)", chosen.Version, chosen.VersionID)
	}
}

func TestResolveUnsatisfiableNamesRequirement(t *testing.T) {
	cat := &fakeCatalog{
		versions: map[string][]Candidate{
			"alice-A": {{VersionID: 1, Version: v("1.0.0")}},
			"bob-B":   {{VersionID: 2, Version: v("1.1.0")}},
		},
		edges: map[uint][]Edge{
			1: {{Owner: "bob", Name: "B", Floor: v("1.2.0")}},
		},
	}

	_, err := Resolve(cat, []Root{{Owner: "alice", Name: "A", Version: v("1.0.0")}})
	if err == nil {
		t.Fatal("Resolve() should fail")
	}

	var unsat *UnsatisfiedError
	if !errors.As(err, &unsat) {
		t.Fatalf("error is not UnsatisfiedError: %v", err)
	}
	if unsat.Owner != "bob" || unsat.Name != "B" {
		t.Errorf("error names %s-%s, want bob-B", unsat.Owner, unsat.Name)
	}
	if unsat.Floor != v("1.2.0") {
		t.Errorf("error floor %v, want 1.2.0", unsat.Floor)
	}
	if unsat.RequiredBy != "alice-A-1.0.0" {
		t.Errorf("error requiredBy %q, want alice-A-1.0.0", unsat.RequiredBy)
	}
}

func TestResolveMergesFloors(t *testing.T) {
	cat := &fakeCatalog{
		versions: map[string][]Candidate{
			"alice-A": {{VersionID: 1, Version: v("1.0.0")}},
			"bob-B":   {{VersionID: 2, Version: v("1.0.0")}},
			"carl-C":  {{VersionID: 3, Version: v("1.5.0")}, {VersionID: 4, Version: v("2.1.0")}},
		},
		edges: map[uint][]Edge{
			1: {{Owner: "carl", Name: "C", Floor: v("1.0.0")}},
			2: {{Owner: "carl", Name: "C", Floor: v("2.0.0")}},
		},
	}

	roots := []Root{
		{Owner: "alice", Name: "A", Version: v("1.0.0")},
		{Owner: "bob", Name: "B", Version: v("1.0.0")},
	}

	// Both root orders must converge on C=2.1.0.
	for _, order := range [][]Root{roots, {roots[1], roots[0]}} {
		result, err := Resolve(cat, order)
		if err != nil {
			t.Fatalf("Resolve() error: %v", err)
		}
		chosen := result[PackageRef{Owner: "carl", Name: "C"}]
		if chosen.Version != v("2.1.0") {
			t.Errorf("C resolved to %v, want 2.1.0", chosen.Version)
		}
	}
}

func TestResolveUpgradeRescansEdges(t *testing.T) {
	// A needs C>=1.0.0 (C 1.0.0 has no deps). B needs C>=2.0.0, and
	// C 2.0.0 itself depends on D. Raising C's floor must re-scan the
	// replacement candidate's edges so D enters the closure.
	cat := &fakeCatalog{
		versions: map[string][]Candidate{
			"alice-A": {{VersionID: 1, Version: v("1.0.0")}},
			"bob-B":   {{VersionID: 2, Version: v("1.0.0")}},
			"carl-C":  {{VersionID: 3, Version: v("1.0.0")}, {VersionID: 4, Version: v("2.0.0")}},
			"dina-D":  {{VersionID: 5, Version: v("1.0.0")}},
		},
		edges: map[uint][]Edge{
			1: {{Owner: "carl", Name: "C", Floor: v("1.0.0")}},
			2: {{Owner: "carl", Name: "C", Floor: v("2.0.0")}},
			4: {{Owner: "dina", Name: "D", Floor: v("1.0.0")}},
		},
	}

	result, err := Resolve(cat, []Root{
		{Owner: "alice", Name: "A", Version: v("1.0.0")},
		{Owner: "bob", Name: "B", Version: v("1.0.0")},
	})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	if c := result[PackageRef{Owner: "carl", Name: "C"}]; c.Version != v("2.0.0") {
		t.Errorf("C resolved to %v, want 2.0.0", c.Version)
	}
	if d, ok := result[PackageRef{Owner: "dina", Name: "D"}]; !ok || d.Version != v("1.0.0") {
		t.Errorf("D = %v (present %v), want 1.0.0 in closure", d.Version, ok)
	}
}

func TestResolveToleratesCycles(t *testing.T) {
	cat := &fakeCatalog{
		versions: map[string][]Candidate{
			"alice-A": {{VersionID: 1, Version: v("1.0.0")}},
			"bob-B":   {{VersionID: 2, Version: v("1.0.0")}},
		},
		edges: map[uint][]Edge{
			1: {{Owner: "bob", Name: "B", Floor: v("1.0.0")}},
			2: {{Owner: "alice", Name: "A", Floor: v("1.0.0")}},
		},
	}

	result, err := Resolve(cat, []Root{{Owner: "alice", Name: "A", Version: v("1.0.0")}})
	if err != nil {
		t.Fatalf("Resolve() error on cycle: %v", err)
	}
	if len(result) != 2 {
		t.Errorf("result has %d packages, want 2", len(result))
	}
}

func TestResolveUnknownPackageIsUnsatisfiable(t *testing.T) {
	cat := &fakeCatalog{
		versions: map[string][]Candidate{
			"alice-A": {{VersionID: 1, Version: v("1.0.0")}},
		},
		edges: map[uint][]Edge{
			1: {{Owner: "ghost", Name: "Missing", Floor: v("1.0.0")}},
		},
	}

	_, err := Resolve(cat, []Root{{Owner: "alice", Name: "A", Version: v("1.0.0")}})
	var unsat *UnsatisfiedError
	if !errors.As(err, &unsat) {
		t.Fatalf("expected UnsatisfiedError, got %v", err)
	}
	if unsat.Owner != "ghost" || unsat.Name != "Missing" {
		t.Errorf("error names %s-%s, want ghost-Missing", unsat.Owner, unsat.Name)
	}
}

func TestResolveRootPinnedAtRequestedVersion(t *testing.T) {
	cat := &fakeCatalog{
		versions: map[string][]Candidate{
			"alice-A": {{VersionID: 1, Version: v("1.0.0")}, {VersionID: 2, Version: v("2.0.0")}},
		},
		edges: map[uint][]Edge{},
	}

	result, err := Resolve(cat, []Root{{Owner: "alice", Name: "A", Version: v("1.0.0")}})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if c := result[PackageRef{Owner: "alice", Name: "A"}]; c.Version != v("1.0.0") {
		t.Errorf("root A resolved to %v, want pinned 1.0.0", c.Version)
	}
}

func TestResolveDeterministic(t *testing.T) {
	cat := &fakeCatalog{
		versions: map[string][]Candidate{
			"alice-A": {{VersionID: 1, Version: v("1.0.0")}},
			"bob-B":   {{VersionID: 2, Version: v("1.0.0")}, {VersionID: 3, Version: v("1.2.0")}},
			"carl-C":  {{VersionID: 4, Version: v("0.9.0")}, {VersionID: 5, Version: v("1.1.0")}},
		},
		edges: map[uint][]Edge{
			1: {
				{Owner: "bob", Name: "B", Floor: v("1.0.0")},
				{Owner: "carl", Name: "C", Floor: v("1.0.0")},
			},
		},
	}

	roots := []Root{{Owner: "alice", Name: "A", Version: v("1.0.0")}}

	first, err := Resolve(cat, roots)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	second, err := Resolve(cat, roots)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Resolve() not deterministic:\nfirst:  %v\nsecond: %v", first, second)
	}
}
