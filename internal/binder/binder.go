// Package binder declares what the checker needs from a language frontend:
// parsing into an ast.Tree, resolving invoked symbols together with their
// documentation, and resolving type references written in catch clauses.
package binder

import (
	"context"

	"excheck/internal/ast"
	"excheck/internal/source"
	"excheck/internal/types"
)

// Symbol is the resolved target of an invocation.
type Symbol struct {
	Name      string // simple name
	Qualified string // e.g. "N.C.M"
	Decl      source.Span
}

// Parser turns one document revision into a tree snapshot.
type Parser interface {
	Parse(ctx context.Context, file source.FileID, text []byte) (*ast.Tree, error)
}

// Binder answers semantic questions about a tree. Implementations must be
// safe for concurrent use; the analyzer queries call sites in parallel.
type Binder interface {
	// ResolveSymbol returns the symbol invoked by node, a KindInvocation.
	ResolveSymbol(tree *ast.Tree, node ast.NodeID) (*Symbol, bool)
	// Documentation returns the raw XML documentation of sym.
	Documentation(sym *Symbol) (string, bool)
	// ResolveType resolves the type written at node (a catch declaration
	// type reference) against the universe.
	ResolveType(tree *ast.Tree, node ast.NodeID) (*types.Descriptor, bool)
}

// Frontend bundles a parser with the binder for the trees it produces.
type Frontend interface {
	Parser
	// Bind indexes the declarations of trees and returns a binder serving
	// all of them together with the universe it resolves against.
	Bind(ctx context.Context, trees []*ast.Tree) (Binder, types.Universe, error)
}
