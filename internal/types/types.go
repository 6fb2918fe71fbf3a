// Package types models the exception type hierarchy: named descriptors linked
// through their base types.
package types

import "excheck/internal/source"

// MaxDepth bounds every walk along a base chain.
const MaxDepth = 64

// Descriptor is a resolved named type.
type Descriptor struct {
	Name string // fully qualified, case-sensitive
	Base *Descriptor
	Decl source.Span // zero for catalog types
}

func (d *Descriptor) String() string {
	if d == nil {
		return "<nil>"
	}
	return d.Name
}

// Universe resolves fully qualified type names.
type Universe interface {
	Lookup(name string) (*Descriptor, bool)
}

// Resolve looks name up in u, treating an empty name or a nil universe as
// unresolved.
func Resolve(u Universe, name string) (*Descriptor, bool) {
	if u == nil || name == "" {
		return nil, false
	}
	d, ok := u.Lookup(name)
	if !ok || d == nil {
		return nil, false
	}
	return d, true
}

// InheritsFrom reports whether t is base or derives from it through the
// linear base chain. Types are compared by name. Cyclic or overlong chains
// stop after MaxDepth steps.
func InheritsFrom(t, base *Descriptor) bool {
	if t == nil || base == nil {
		return false
	}
	seen := make(map[*Descriptor]struct{}, 8)
	for cur, depth := t, 0; cur != nil && depth <= MaxDepth; cur, depth = cur.Base, depth+1 {
		if cur.Name == base.Name {
			return true
		}
		if _, dup := seen[cur]; dup {
			return false
		}
		seen[cur] = struct{}{}
	}
	return false
}

// Chain returns t followed by its bases, nearest first, bounded the same way
// as InheritsFrom.
func Chain(t *Descriptor) []*Descriptor {
	var out []*Descriptor
	seen := make(map[*Descriptor]struct{}, 8)
	for cur, depth := t, 0; cur != nil && depth <= MaxDepth; cur, depth = cur.Base, depth+1 {
		if _, dup := seen[cur]; dup {
			break
		}
		seen[cur] = struct{}{}
		out = append(out, cur)
	}
	return out
}
