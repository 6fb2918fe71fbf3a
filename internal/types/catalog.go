package types

import (
	"maps"
	"slices"

	"excheck/internal/source"
)

// Catalog is an in-memory Universe. Types are added with their base names and
// connected by Link; a catalog is read-only once linked and may then be
// shared between goroutines.
type Catalog struct {
	entries map[string]*Descriptor
	bases   map[string]string
}

func NewCatalog() *Catalog {
	return &Catalog{
		entries: make(map[string]*Descriptor, 128),
		bases:   make(map[string]string, 128),
	}
}

// Add registers name with the given base name. A later Add of the same name
// replaces the base. It reports whether name was new.
func (c *Catalog) Add(name, base string) bool {
	return c.Declare(name, base, source.Span{})
}

// Declare is Add for types declared in source, recording where.
func (c *Catalog) Declare(name, base string, decl source.Span) bool {
	if name == "" {
		return false
	}
	d, ok := c.entries[name]
	if !ok {
		d = &Descriptor{Name: name}
		c.entries[name] = d
	}
	if decl != (source.Span{}) {
		d.Decl = decl
	}
	c.bases[name] = base
	return !ok
}

// Link resolves base names into descriptor pointers. Bases absent from the
// catalog end the chain.
func (c *Catalog) Link() {
	for name, d := range c.entries {
		d.Base = c.entries[c.bases[name]]
	}
}

func (c *Catalog) Lookup(name string) (*Descriptor, bool) {
	d, ok := c.entries[name]
	return d, ok
}

// BaseName returns the declared base name of name.
func (c *Catalog) BaseName(name string) (string, bool) {
	b, ok := c.bases[name]
	return b, ok
}

func (c *Catalog) Len() int { return len(c.entries) }

// Names returns the registered names, sorted.
func (c *Catalog) Names() []string {
	return slices.Sorted(maps.Keys(c.entries))
}

// Merge copies every entry of other into c; entries of other win.
func (c *Catalog) Merge(other *Catalog) {
	if other == nil {
		return
	}
	for name, base := range other.bases {
		c.Declare(name, base, other.entries[name].Decl)
	}
}

// Clone returns an unlinked deep copy.
func (c *Catalog) Clone() *Catalog {
	out := NewCatalog()
	out.Merge(c)
	return out
}
