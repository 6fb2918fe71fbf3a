package testkit

import (
	"strings"

	"excheck/internal/ast"
	"excheck/internal/source"
)

// Snippet builds C#-shaped trees by hand, without a parser. Layout is fixed:
// statements sit on their own lines indented with four spaces per level.
type Snippet struct {
	B *ast.Builder
}

func NewSnippet() *Snippet {
	return &Snippet{B: ast.NewBuilder(ast.Hints{Nodes: 256})}
}

func (s *Snippet) Tok(text string) ast.NodeID { return s.B.Leaf(ast.KindToken, text) }
func (s *Snippet) WS(text string) ast.NodeID  { return s.B.Leaf(ast.KindTrivia, text) }
func (s *Snippet) Ident(name string) ast.NodeID {
	return s.B.Leaf(ast.KindIdent, name)
}

// Call builds `callee()`; a dotted callee becomes a member access chain.
func (s *Snippet) Call(callee string) ast.NodeID {
	parts := strings.Split(callee, ".")
	var target ast.NodeID
	if len(parts) == 1 {
		target = s.Ident(callee)
	} else {
		kids := make([]ast.NodeID, 0, 2*len(parts)-1)
		for i, p := range parts {
			if i > 0 {
				kids = append(kids, s.Tok("."))
			}
			kids = append(kids, s.Ident(p))
		}
		target = s.B.Branch(ast.KindExpr, "", kids...)
	}
	args := s.B.Branch(ast.KindExpr, "", s.Tok("("), s.Tok(")"))
	return s.B.Branch(ast.KindInvocation, "", target, args)
}

// Stmt builds `expr;`.
func (s *Snippet) Stmt(expr ast.NodeID) ast.NodeID {
	return s.B.Branch(ast.KindStatement, "", expr, s.Tok(";"))
}

// Block lays statements out one per line at the given depth.
func (s *Snippet) Block(depth int, stmts ...ast.NodeID) ast.NodeID {
	outer := strings.Repeat("    ", depth)
	inner := outer + "    "
	kids := []ast.NodeID{s.Tok("{")}
	for _, st := range stmts {
		kids = append(kids, s.WS("\n"+inner), st)
	}
	kids = append(kids, s.WS("\n"+outer), s.Tok("}"))
	return s.B.Branch(ast.KindBlock, "", kids...)
}

// TypeRef splits a dotted name into identifiers and dots.
func (s *Snippet) TypeRef(name string) ast.NodeID {
	parts := strings.Split(name, ".")
	kids := make([]ast.NodeID, 0, 2*len(parts)-1)
	for i, p := range parts {
		if i > 0 {
			kids = append(kids, s.Tok("."))
		}
		kids = append(kids, s.Ident(p))
	}
	return s.B.Branch(ast.KindTypeRef, name, kids...)
}

// Catch builds `catch (T)` with an empty body; an empty type gives a bare
// `catch`.
func (s *Snippet) Catch(depth int, typ string) ast.NodeID {
	indent := strings.Repeat("    ", depth)
	kids := []ast.NodeID{s.Tok("catch")}
	if typ != "" {
		decl := s.B.Branch(ast.KindCatchDecl, "", s.Tok("("), s.TypeRef(typ), s.Tok(")"))
		kids = append(kids, s.WS(" "), decl)
	}
	kids = append(kids, s.WS("\n"+indent), s.Block(depth))
	return s.B.Branch(ast.KindCatch, "", kids...)
}

// Finally builds `finally { }`.
func (s *Snippet) Finally(depth int) ast.NodeID {
	indent := strings.Repeat("    ", depth)
	return s.B.Branch(ast.KindFinally, "", s.Tok("finally"), s.WS("\n"+indent), s.Block(depth))
}

// Try builds a try statement at depth whose clauses follow on their own
// lines.
func (s *Snippet) Try(depth int, body ast.NodeID, clauses ...ast.NodeID) ast.NodeID {
	indent := strings.Repeat("    ", depth)
	kids := []ast.NodeID{s.Tok("try"), s.WS("\n" + indent), body}
	for _, c := range clauses {
		kids = append(kids, s.WS("\n"+indent), c)
	}
	return s.B.Branch(ast.KindTry, "", kids...)
}

// Method wraps a body block into `void name()` at depth 1 inside a class.
func (s *Snippet) Method(name string, body ast.NodeID) ast.NodeID {
	return s.B.Branch(ast.KindMethod, name,
		s.Tok("void"), s.WS(" "), s.Ident(name), s.Tok("("), s.Tok(")"), s.WS("\n    "), body)
}

// Document wraps methods into `class C { ... }` and returns the tree.
func (s *Snippet) Document(methods ...ast.NodeID) *ast.Tree {
	kids := []ast.NodeID{s.Tok("{")}
	for _, m := range methods {
		kids = append(kids, s.WS("\n    "), m)
	}
	kids = append(kids, s.WS("\n"), s.Tok("}"))
	body := s.B.Branch(ast.KindExpr, "", kids...)
	class := s.B.Branch(ast.KindClass, "C", s.Tok("class"), s.WS(" "), s.Ident("C"), s.WS("\n"), body)
	root := s.B.Branch(ast.KindDocument, "", class, s.WS("\n"))
	return s.B.Tree(source.FileID(0), root)
}
