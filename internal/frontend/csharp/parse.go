// Package csharp is the C# frontend: a tree-sitter based parser producing
// ast trees and a declaration index answering binder queries over them.
package csharp

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"

	"excheck/internal/ast"
	"excheck/internal/source"
	"excheck/internal/trace"
)

// Parser converts C# sources into trees. The zero value is ready to use and
// safe for concurrent use: every Parse call owns its tree-sitter parser.
type Parser struct{}

// Parse builds a lossless tree of text: concatenating its leaves gives text
// back byte for byte. Syntax errors do not fail the parse; erroneous regions
// become plain expression containers.
func (Parser) Parse(ctx context.Context, file source.FileID, text []byte) (*ast.Tree, error) {
	_, span := trace.Start(ctx, trace.ScopeFile, "parse")
	defer span.End("")

	p := sitter.NewParser()
	p.SetLanguage(csharp.GetLanguage())
	ts, err := p.ParseCtx(ctx, nil, text)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	c := &converter{
		src: text,
		b:   ast.NewBuilder(ast.Hints{Nodes: uint(len(text)/4 + 16)}),
	}
	end := uint32(len(text))
	root := c.container(ts.RootNode(), ast.KindDocument, "", 0, end, roleNone)
	return c.b.Tree(file, root), nil
}

type role uint8

const (
	roleNone role = iota
	roleType      // the node names a type: catch declaration, base list
)

type converter struct {
	src []byte
	b   *ast.Builder
}

func (c *converter) text(n *sitter.Node) string {
	return string(c.src[n.StartByte():n.EndByte()])
}

func (c *converter) convert(n *sitter.Node, r role) ast.NodeID {
	if n.ChildCount() == 0 {
		leaf := c.b.Leaf(leafKind(n), c.text(n))
		if r == roleType {
			return c.b.Branch(ast.KindTypeRef, compact(c.text(n)), leaf)
		}
		return leaf
	}
	kind := containerKind(n.Type())
	if r == roleType {
		kind = ast.KindTypeRef
	}
	return c.container(n, kind, c.name(n, kind), n.StartByte(), n.EndByte(), r)
}

// container converts the children of n and fills every gap in [start, end)
// with trivia, so no byte of the source is lost.
func (c *converter) container(n *sitter.Node, kind ast.Kind, name string, start, end uint32, r role) ast.NodeID {
	var kids []ast.NodeID
	cursor := start
	count := int(n.ChildCount())
	for i := range count {
		child := n.Child(i)
		if child == nil || child.StartByte() == child.EndByte() {
			continue
		}
		if child.StartByte() < cursor || child.EndByte() > end {
			// перекрытие: байты достанутся соседнему промежутку
			continue
		}
		if child.StartByte() > cursor {
			kids = append(kids, c.b.Leaf(ast.KindTrivia, string(c.src[cursor:child.StartByte()])))
		}
		kids = append(kids, c.convert(child, c.childRole(n, i, child, r)))
		cursor = child.EndByte()
	}
	if cursor < end {
		kids = append(kids, c.b.Leaf(ast.KindTrivia, string(c.src[cursor:end])))
	}
	return c.b.Branch(kind, name, kids...)
}

func (c *converter) childRole(parent *sitter.Node, i int, child *sitter.Node, r role) role {
	if r == roleType {
		return roleNone
	}
	switch parent.Type() {
	case "catch_declaration":
		// (Type name): тип всегда первый именованный ребёнок
		if child.IsNamed() && firstNamed(parent, i) {
			return roleType
		}
	case "base_list":
		if isTypeName(child.Type()) {
			return roleType
		}
	}
	return roleNone
}

func firstNamed(parent *sitter.Node, i int) bool {
	for j := range i {
		if ch := parent.Child(j); ch != nil && ch.IsNamed() && ch.Type() != "comment" {
			return false
		}
	}
	return true
}

func isTypeName(t string) bool {
	switch t {
	case "identifier", "qualified_name", "generic_name", "alias_qualified_name", "predefined_type":
		return true
	}
	return false
}

func leafKind(n *sitter.Node) ast.Kind {
	switch n.Type() {
	case "comment":
		return ast.KindComment
	case "identifier":
		return ast.KindIdent
	default:
		return ast.KindToken
	}
}

func containerKind(t string) ast.Kind {
	switch t {
	case "compilation_unit":
		return ast.KindDocument
	case "using_directive":
		return ast.KindUsing
	case "namespace_declaration", "file_scoped_namespace_declaration":
		return ast.KindNamespace
	case "class_declaration", "struct_declaration", "interface_declaration",
		"record_declaration", "record_struct_declaration":
		return ast.KindClass
	case "method_declaration", "constructor_declaration", "local_function_statement":
		return ast.KindMethod
	case "block":
		return ast.KindBlock
	case "try_statement":
		return ast.KindTry
	case "catch_clause":
		return ast.KindCatch
	case "catch_declaration":
		return ast.KindCatchDecl
	case "finally_clause":
		return ast.KindFinally
	case "invocation_expression":
		return ast.KindInvocation
	}
	if strings.HasSuffix(t, "_statement") {
		return ast.KindStatement
	}
	return ast.KindExpr
}

// name computes Node.Name: declared names, the callee of an invocation,
// the compact text of a type or the payload of a using directive.
func (c *converter) name(n *sitter.Node, kind ast.Kind) string {
	switch kind {
	case ast.KindNamespace, ast.KindClass, ast.KindMethod:
		if f := n.ChildByFieldName("name"); f != nil {
			return compact(c.text(f))
		}
	case ast.KindInvocation:
		return c.calleeName(n.ChildByFieldName("function"))
	case ast.KindTypeRef:
		return compact(c.text(n))
	case ast.KindUsing:
		return usingName(c.text(n))
	case ast.KindInvalid, ast.KindToken, ast.KindIdent, ast.KindTrivia, ast.KindComment,
		ast.KindDocument, ast.KindBlock, ast.KindStatement, ast.KindTry, ast.KindCatch,
		ast.KindCatchDecl, ast.KindFinally, ast.KindExpr:
	}
	return ""
}

// calleeName returns the simple method name an invocation target ends in.
func (c *converter) calleeName(fn *sitter.Node) string {
	if fn == nil {
		return ""
	}
	switch fn.Type() {
	case "identifier":
		return c.text(fn)
	case "generic_name":
		for i := range int(fn.NamedChildCount()) {
			if ch := fn.NamedChild(i); ch != nil && ch.Type() == "identifier" {
				return c.text(ch)
			}
		}
	case "member_access_expression", "member_binding_expression", "qualified_name":
		if name := fn.ChildByFieldName("name"); name != nil {
			return c.calleeName(name)
		}
		if k := int(fn.NamedChildCount()); k > 0 {
			return c.calleeName(fn.NamedChild(k - 1))
		}
	}
	return ""
}

// usingName reduces a using directive to "N.S", "static N.S" or
// "Alias=N.S", prefixed with "global " for global usings.
func usingName(text string) string {
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), ";"))
	prefix := ""
	if rest, ok := strings.CutPrefix(text, "global "); ok {
		prefix, text = "global ", strings.TrimSpace(rest)
	}
	text = strings.TrimSpace(strings.TrimPrefix(text, "using"))
	if rest, ok := strings.CutPrefix(text, "static "); ok {
		return prefix + "static " + compact(rest)
	}
	if alias, target, ok := strings.Cut(text, "="); ok {
		return prefix + compact(alias) + "=" + compact(target)
	}
	return prefix + compact(text)
}

// compact drops all whitespace.
func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}
