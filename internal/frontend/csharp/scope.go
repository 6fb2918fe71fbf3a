package csharp

import (
	"slices"
	"strings"

	"excheck/internal/ast"
	"excheck/internal/types"
)

// scope is the name lookup context of a node: the containing namespaces and
// types, outermost first, and the using directives in effect.
type scope struct {
	containers []string // "N", "N.Inner", "N.Inner.C"
	usings     []string
	aliases    map[string]string
}

// scopeAt computes the lookup context of node in tree.
func scopeAt(tree *ast.Tree, node ast.NodeID) scope {
	var chain []ast.NodeID
	for a := range tree.Ancestors(node) {
		switch tree.Node(a).Kind {
		case ast.KindNamespace, ast.KindClass:
			chain = append(chain, a)
		}
	}
	slices.Reverse(chain)

	var sc scope
	prefix := ""
	if len(chain) == 0 || tree.Node(chain[0]).Kind != ast.KindNamespace {
		if ns, ok := fileNamespace(tree); ok {
			prefix = ns
			sc.addUsings(tree, ns)
			sc.containers = append(sc.containers, namespacePrefixes("", ns)...)
		}
	}
	sc.collectUsings(tree, tree.Root)
	for _, id := range chain {
		n := tree.Node(id)
		if n.Name == "" {
			continue
		}
		if n.Kind == ast.KindNamespace {
			sc.containers = append(sc.containers, namespacePrefixes(prefix, n.Name)...)
			sc.collectUsings(tree, id)
		} else {
			sc.containers = append(sc.containers, join(prefix, n.Name))
		}
		prefix = join(prefix, n.Name)
	}
	return sc
}

func (sc *scope) addUsings(tree *ast.Tree, ns string) {
	for _, c := range tree.Node(tree.Root).Children {
		if n := tree.Node(c); n.Kind == ast.KindNamespace && n.Name == ns {
			sc.collectUsings(tree, c)
		}
	}
}

// collectUsings reads the using directives declared directly in container
// or in its declaration body.
func (sc *scope) collectUsings(tree *ast.Tree, container ast.NodeID) {
	for _, c := range tree.Node(container).Children {
		n := tree.Node(c)
		switch n.Kind {
		case ast.KindUsing:
			sc.addUsing(n.Name)
		case ast.KindExpr:
			if container == tree.Root {
				continue
			}
			for _, cc := range n.Children {
				if nn := tree.Node(cc); nn.Kind == ast.KindUsing {
					sc.addUsing(nn.Name)
				}
			}
		}
	}
}

func (sc *scope) addUsing(name string) {
	name = strings.TrimPrefix(name, "global ")
	switch {
	case name == "" || strings.HasPrefix(name, "static "):
	case strings.Contains(name, "="):
		alias, target, _ := strings.Cut(name, "=")
		if sc.aliases == nil {
			sc.aliases = make(map[string]string, 2)
		}
		sc.aliases[alias] = target
	default:
		sc.usings = append(sc.usings, name)
	}
}

// fileNamespace returns the name of a file-scoped namespace declared as a
// sibling of the declarations it governs.
func fileNamespace(tree *ast.Tree) (string, bool) {
	for _, c := range tree.Node(tree.Root).Children {
		n := tree.Node(c)
		if n.Kind != ast.KindNamespace {
			continue
		}
		sig := tree.Significant(c)
		if len(sig) > 0 && tree.Node(sig[len(sig)-1]).Text == ";" {
			return n.Name, true
		}
	}
	return "", false
}

func namespacePrefixes(prefix, name string) []string {
	parts := strings.Split(name, ".")
	out := make([]string, 0, len(parts))
	cur := prefix
	for _, p := range parts {
		cur = join(cur, p)
		out = append(out, cur)
	}
	return out
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// resolve looks name up the way C# binds a type name: aliases, then the
// containing types and namespaces from the innermost outwards, the global
// namespace, and finally the imported namespaces.
func (sc scope) resolve(u types.Universe, name string) (*types.Descriptor, bool) {
	name = strings.TrimPrefix(name, "global::")
	if i := strings.Index(name, "<"); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return nil, false
	}
	head, rest, dotted := strings.Cut(name, ".")
	if target, ok := sc.aliases[head]; ok {
		full := target
		if dotted {
			full += "." + rest
		}
		if d, ok := types.Resolve(u, full); ok {
			return d, true
		}
	}
	for i := len(sc.containers) - 1; i >= 0; i-- {
		if d, ok := types.Resolve(u, sc.containers[i]+"."+name); ok {
			return d, true
		}
	}
	if d, ok := types.Resolve(u, name); ok {
		return d, true
	}
	for _, ns := range sc.usings {
		if d, ok := types.Resolve(u, ns+"."+name); ok {
			return d, true
		}
	}
	return nil, false
}

// qualify returns the fully qualified name of a declaration named name
// declared inside sc.
func (sc scope) qualify(name string) string {
	if len(sc.containers) == 0 {
		return name
	}
	return sc.containers[len(sc.containers)-1] + "." + name
}
