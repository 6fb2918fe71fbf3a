package check

import (
	"excheck/internal/ast"
	"excheck/internal/binder"
	"excheck/internal/types"
)

// CatchAllType is what a catch clause without a declaration catches.
const CatchAllType = "System.Exception"

// ProtectionScope is a try node together with its catch clauses in source
// order.
type ProtectionScope struct {
	Try     ast.NodeID
	Clauses []CatchClause
}

// CatchClause is one catch of a ProtectionScope. Declared is nil when the
// caught type does not resolve.
type CatchClause struct {
	Node     ast.NodeID
	Declared *types.Descriptor
}

// NearestTry returns the nearest strict ancestor of node that is a try
// statement. Outer try statements are never consulted.
func NearestTry(tree *ast.Tree, node ast.NodeID) (ast.NodeID, bool) {
	for a := range tree.Ancestors(node) {
		if tree.Node(a).Kind == ast.KindTry {
			return a, true
		}
	}
	return ast.NoNodeID, false
}

// Catches returns the catch clauses of try in source order.
func Catches(tree *ast.Tree, try ast.NodeID) []ast.NodeID {
	var out []ast.NodeID
	for _, c := range tree.Node(try).Children {
		if tree.Node(c).Kind == ast.KindCatch {
			out = append(out, c)
		}
	}
	return out
}

// CatchTypeRef returns the type reference written in the declaration of a
// catch clause, if any.
func CatchTypeRef(tree *ast.Tree, catch ast.NodeID) (ast.NodeID, bool) {
	decl, ok := tree.FirstChild(catch, ast.KindCatchDecl)
	if !ok {
		return ast.NoNodeID, false
	}
	return tree.FirstChild(decl, ast.KindTypeRef)
}

// ResolveScope builds the protection scope of try.
func ResolveScope(tree *ast.Tree, try ast.NodeID, b binder.Binder, u types.Universe) ProtectionScope {
	scope := ProtectionScope{Try: try}
	for _, c := range Catches(tree, try) {
		clause := CatchClause{Node: c}
		if ref, ok := CatchTypeRef(tree, c); ok {
			if b != nil {
				if d, ok := b.ResolveType(tree, ref); ok {
					clause.Declared = d
				}
			}
		} else if d, ok := types.Resolve(u, CatchAllType); ok {
			clause.Declared = d
		}
		scope.Clauses = append(scope.Clauses, clause)
	}
	return scope
}
