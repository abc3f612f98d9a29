package apk

import "strings"

// debugDirName is the reserved directory segment holding split debug symbols.
// Paths under it never ship in a package's payload.
const debugDirName = ".debug"

// Predicate decides whether a payload path is included in the archive.
// Paths are slash-separated and relative to the payload root.
type Predicate func(path string) bool

// FilterSet combines predicates with logical AND: a path is admitted only
// if every predicate returns true. The zero value admits everything.
//
// A FilterSet is a value; With returns an extended copy, so independent
// builds never share mutable filter state.
type FilterSet struct {
	preds []Predicate
}

// NewFilterSet creates a FilterSet from the given predicates.
func NewFilterSet(preds ...Predicate) FilterSet {
	return FilterSet{}.With(preds...)
}

// DefaultFilterSet returns the filter set applied when a build does not
// configure its own: debug-symbol directories are excluded.
func DefaultFilterSet() FilterSet {
	return NewFilterSet(ExcludeDebugPaths())
}

// With returns a copy of the set extended with additional predicates.
func (s FilterSet) With(preds ...Predicate) FilterSet {
	combined := make([]Predicate, 0, len(s.preds)+len(preds))
	combined = append(combined, s.preds...)
	for _, p := range preds {
		if p != nil {
			combined = append(combined, p)
		}
	}
	return FilterSet{preds: combined}
}

// Admits reports whether every predicate in the set accepts path.
func (s FilterSet) Admits(path string) bool {
	for _, p := range s.preds {
		if !p(path) {
			return false
		}
	}
	return true
}

// ExcludeDebugPaths rejects any path containing a debug-symbol directory
// segment.
func ExcludeDebugPaths() Predicate {
	return func(path string) bool {
		for seg := range strings.SplitSeq(path, "/") {
			if seg == debugDirName {
				return false
			}
		}
		return true
	}
}
