package check

import "excheck/internal/types"

// Uncovered is a documented exception type that the nearest protection
// scope does not catch.
type Uncovered struct {
	Name string // as documented
	Type *types.Descriptor
}

// Coverage evaluates each documented name independently against scope (nil
// when the call site has no enclosing try). Names that do not resolve in u are
// skipped. A repeated name is evaluated once.
func Coverage(documented []string, scope *ProtectionScope, u types.Universe) []Uncovered {
	var out []Uncovered
	seen := make(map[string]struct{}, len(documented))
	for _, name := range documented {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		d, ok := types.Resolve(u, name)
		if !ok {
			continue
		}
		if scope != nil && covered(d, scope) {
			continue
		}
		out = append(out, Uncovered{Name: name, Type: d})
	}
	return out
}

func covered(d *types.Descriptor, scope *ProtectionScope) bool {
	for _, c := range scope.Clauses {
		if c.Declared != nil && types.InheritsFrom(d, c.Declared) {
			return true
		}
	}
	return false
}
