// Package resolver computes transitive dependency closures over the
// package catalog. It is pure: all catalog access goes through the
// Catalog interface, so a resolution call sees exactly one consistent
// snapshot.
package resolver

import (
	"fmt"
	"sort"

	"thunder-mod-manager/semver"
)

// PackageRef identifies a package by owner and name.
type PackageRef struct {
	Owner string
	Name  string
}

func (r PackageRef) String() string {
	return r.Owner + "-" + r.Name
}

// Candidate is one installable version of a package.
type Candidate struct {
	VersionID uint
	Version   semver.Triple
}

// Edge is a declared requirement on another package with a
// minimum-version floor.
type Edge struct {
	Owner string
	Name  string
	Floor semver.Triple
}

// Catalog is the read surface the resolver needs. EdgesOf must return
// edges in declaration order; VersionsOf may return candidates in any
// order. A package unknown to the catalog is an empty candidate list,
// not an error.
type Catalog interface {
	VersionsOf(owner, name string) ([]Candidate, error)
	EdgesOf(versionID uint) ([]Edge, error)
}

// Root is a requested package at a specific version.
type Root struct {
	Owner   string
	Name    string
	Version semver.Triple
}

// Chosen is the version selected for a package in the final install set.
type Chosen struct {
	VersionID uint
	Version   semver.Triple
}

// Result maps every package in the closure to its chosen version.
type Result map[PackageRef]Chosen

// UnsatisfiedError reports a requirement no catalog version satisfies,
// naming the missing package, the floor, and the requiring version.
type UnsatisfiedError struct {
	Owner      string
	Name       string
	Floor      semver.Triple
	RequiredBy string
}

func (e *UnsatisfiedError) Error() string {
	return fmt.Sprintf("no version of %s-%s satisfies >= %s (required by %s)",
		e.Owner, e.Name, e.Floor, e.RequiredBy)
}

type queueItem struct {
	versionID uint
	label     string // "owner-name-x.y.z" of the version whose edges we scan
}

type resolution struct {
	cat     Catalog
	floors  map[PackageRef]semver.Triple
	chosen  map[PackageRef]Chosen
	queue   []queueItem
	scanned map[uint]bool
}

// Resolve computes a consistent install set for the given roots via
// breadth-first closure over dependency edges. Roots are pinned at their
// requested versions unless a merged floor forces an upgrade. The output
// is deterministic for identical catalog contents and root order.
func Resolve(cat Catalog, roots []Root) (Result, error) {
	r := &resolution{
		cat:     cat,
		floors:  make(map[PackageRef]semver.Triple),
		chosen:  make(map[PackageRef]Chosen),
		scanned: make(map[uint]bool),
	}

	for _, root := range roots {
		if err := r.addRoot(root); err != nil {
			return nil, err
		}
	}

	for len(r.queue) > 0 {
		item := r.queue[0]
		r.queue = r.queue[1:]

		if r.scanned[item.versionID] {
			continue
		}
		r.scanned[item.versionID] = true

		edges, err := r.cat.EdgesOf(item.versionID)
		if err != nil {
			return nil, err
		}
		for _, edge := range edges {
			ref := PackageRef{Owner: edge.Owner, Name: edge.Name}
			if err := r.require(ref, edge.Floor, item.label); err != nil {
				return nil, err
			}
		}
	}

	return Result(r.chosen), nil
}

func (r *resolution) addRoot(root Root) error {
	ref := PackageRef{Owner: root.Owner, Name: root.Name}

	floor := root.Version
	if prev, ok := r.floors[ref]; ok && floor.Less(prev) {
		floor = prev
	}
	r.floors[ref] = floor

	if cur, ok := r.chosen[ref]; ok && cur.Version.AtLeast(floor) {
		return nil
	}

	candidates, err := r.cat.VersionsOf(root.Owner, root.Name)
	if err != nil {
		return err
	}

	// Pin the exact requested version when the floor allows it.
	if floor.Compare(root.Version) == 0 {
		for _, c := range candidates {
			if c.Version.Compare(root.Version) == 0 {
				r.choose(ref, Chosen{VersionID: c.VersionID, Version: c.Version})
				return nil
			}
		}
		return &UnsatisfiedError{Owner: root.Owner, Name: root.Name, Floor: floor, RequiredBy: "root"}
	}

	best, ok := bestSatisfying(candidates, floor)
	if !ok {
		return &UnsatisfiedError{Owner: root.Owner, Name: root.Name, Floor: floor, RequiredBy: "root"}
	}
	r.choose(ref, best)
	return nil
}

// require merges the floor for ref and ensures a satisfying candidate is
// chosen. Raising the floor past the current choice upgrades it and
// queues the replacement's own edges for scanning.
func (r *resolution) require(ref PackageRef, floor semver.Triple, requiredBy string) error {
	if prev, ok := r.floors[ref]; !ok || prev.Less(floor) {
		r.floors[ref] = floor
	}
	merged := r.floors[ref]

	if cur, ok := r.chosen[ref]; ok && cur.Version.AtLeast(merged) {
		return nil
	}

	candidates, err := r.cat.VersionsOf(ref.Owner, ref.Name)
	if err != nil {
		return err
	}

	best, ok := bestSatisfying(candidates, merged)
	if !ok {
		return &UnsatisfiedError{Owner: ref.Owner, Name: ref.Name, Floor: merged, RequiredBy: requiredBy}
	}
	r.choose(ref, best)
	return nil
}

func (r *resolution) choose(ref PackageRef, c Chosen) {
	r.chosen[ref] = c
	r.queue = append(r.queue, queueItem{
		versionID: c.VersionID,
		label:     fmt.Sprintf("%s-%s", ref, c.Version),
	})
}

// bestSatisfying picks the greatest candidate meeting the floor.
func bestSatisfying(candidates []Candidate, floor semver.Triple) (Chosen, bool) {
	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool {
		if c := sorted[i].Version.Compare(sorted[j].Version); c != 0 {
			return c > 0
		}
		return sorted[i].VersionID < sorted[j].VersionID
	})

	for _, c := range sorted {
		if c.Version.AtLeast(floor) {
			return Chosen{VersionID: c.VersionID, Version: c.Version}, true
		}
	}
	return Chosen{}, false
}
