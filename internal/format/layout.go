package format

import (
	"strings"

	"excheck/internal/ast"
)

// TypeRef writes a dotted type name as identifiers separated by "." tokens.
func TypeRef(w *Writer, name string) ast.NodeID {
	w.Open(ast.KindTypeRef, name)
	for i, part := range strings.Split(name, ".") {
		if i > 0 {
			w.Token(".")
		}
		w.Ident(part)
	}
	return w.Close()
}

// EmptyBlock writes "{", a line break and "}" at the current level.
func EmptyBlock(w *Writer) ast.NodeID {
	w.Open(ast.KindBlock, "")
	w.Token("{")
	w.Newline()
	w.Token("}")
	return w.Close()
}

// CatchClause writes `catch (T)` followed by an empty block on the next
// line.
func CatchClause(w *Writer, typeName string) ast.NodeID {
	w.Open(ast.KindCatch, "")
	w.Token("catch")
	w.Space()
	w.Open(ast.KindCatchDecl, "")
	w.Token("(")
	TypeRef(w, typeName)
	w.Token(")")
	w.Close()
	w.Newline()
	EmptyBlock(w)
	return w.Close()
}

// WrapInTry writes a try statement whose block holds stmt, one level deeper,
// followed by one catch clause for typeName.
func WrapInTry(w *Writer, stmt ast.NodeID, typeName string) ast.NodeID {
	w.Open(ast.KindTry, "")
	w.Token("try")
	w.Newline()
	w.Open(ast.KindBlock, "")
	w.Token("{")
	w.IndentPush()
	w.Newline()
	w.Node(stmt)
	w.IndentPop()
	w.Newline()
	w.Token("}")
	w.Close()
	w.Newline()
	CatchClause(w, typeName)
	return w.Close()
}

// WrapInBlock writes `{`, the try statement of WrapInTry one level deeper on
// the next line, and a closing `}` on a line of its own. It is used for a
// statement that shares its line with code in front of it, such as the
// embedded statement of `if (a > 0) Foo();`.
func WrapInBlock(w *Writer, stmt ast.NodeID, typeName string) ast.NodeID {
	w.Open(ast.KindBlock, "")
	w.Token("{")
	w.IndentPush()
	w.Newline()
	WrapInTry(w, stmt, typeName)
	w.IndentPop()
	w.Newline()
	w.Token("}")
	return w.Close()
}
