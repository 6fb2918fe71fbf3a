package ast

import (
	"errors"
	"testing"

	"excheck/internal/source"
)

// buildCall builds "Foo(1);\n" wrapped into a document.
func buildCall(t *testing.T) (*Builder, *Tree, NodeID, NodeID) {
	t.Helper()
	b := NewBuilder(Hints{})
	call := b.Branch(KindInvocation, "",
		b.Leaf(KindIdent, "Foo"),
		b.Branch(KindExpr, "", b.Leaf(KindToken, "("), b.Leaf(KindToken, "1"), b.Leaf(KindToken, ")")),
	)
	stmt := b.Branch(KindStatement, "", call, b.Leaf(KindToken, ";"))
	root := b.Branch(KindDocument, "", b.Leaf(KindTrivia, "  "), stmt, b.Leaf(KindTrivia, "\n"))
	return b, b.Tree(source.FileID(1), root), stmt, call
}

func TestTreeTextAndSpans(t *testing.T) {
	_, tree, stmt, call := buildCall(t)

	if got := string(tree.Text()); got != "  Foo(1);\n" {
		t.Fatalf("text = %q", got)
	}
	sp, ok := tree.Span(call)
	if !ok || sp.Start != 2 || sp.End != 8 {
		t.Fatalf("call span = %v (%v)", sp, ok)
	}
	if tree.NodeText(stmt) != "Foo(1);" {
		t.Fatalf("stmt text = %q", tree.NodeText(stmt))
	}
	if tree.Parent(call) != stmt {
		t.Fatalf("parent of call = %d, want %d", tree.Parent(call), stmt)
	}

	var chain []NodeID
	for a := range tree.Ancestors(call) {
		chain = append(chain, a)
	}
	if len(chain) != 2 || chain[0] != stmt || chain[1] != tree.Root {
		t.Fatalf("ancestors = %v", chain)
	}
}

func TestTreeFind(t *testing.T) {
	_, tree, stmt, call := buildCall(t)

	got, ok := tree.Find(source.Span{Start: 2, End: 8}, KindInvocation)
	if !ok || got != call {
		t.Fatalf("find invocation = %d (%v), want %d", got, ok, call)
	}
	got, ok = tree.Find(source.Span{Start: 2, End: 9}, KindStatement)
	if !ok || got != stmt {
		t.Fatalf("find statement = %d (%v), want %d", got, ok, stmt)
	}
	if _, ok := tree.Find(source.Span{Start: 3, End: 8}, KindInvocation); ok {
		t.Fatalf("misaligned span must not resolve")
	}
	if _, ok := tree.Find(source.Span{Start: 2, End: 8}, KindStatement); ok {
		t.Fatalf("wrong kind must not resolve")
	}
}

func TestTreeReplaceSharesUntouched(t *testing.T) {
	b, tree, stmt, call := buildCall(t)

	wrapped := b.Branch(KindBlock, "", b.Leaf(KindToken, "{"), stmt, b.Leaf(KindToken, "}"))
	next, err := tree.Replace(stmt, wrapped)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if got := string(next.Text()); got != "  {Foo(1);}\n" {
		t.Fatalf("new text = %q", got)
	}
	if got := string(tree.Text()); got != "  Foo(1);\n" {
		t.Fatalf("old snapshot changed: %q", got)
	}
	if next.Root == tree.Root {
		t.Fatalf("root must be copied")
	}
	// the statement node is shared, only its offsets differ
	if !next.Contains(stmt) || !next.Contains(call) {
		t.Fatalf("shared nodes missing from new snapshot")
	}
	sp, _ := next.Span(call)
	if sp.Start != 3 {
		t.Fatalf("shifted call start = %d, want 3", sp.Start)
	}
	if next.Contains(tree.Root) {
		t.Fatalf("old root must not be part of new snapshot")
	}
}

func TestTreeReplaceRejectsForeignNode(t *testing.T) {
	b, tree, _, _ := buildCall(t)
	orphan := b.Leaf(KindToken, "x")
	if _, err := tree.Replace(orphan, orphan); !errors.Is(err, ErrNotInTree) {
		t.Fatalf("err = %v, want ErrNotInTree", err)
	}
}

func TestKindPredicates(t *testing.T) {
	for k := KindInvalid; k < kindCount; k++ {
		if k.IsLeaf() && k.IsStatement() {
			t.Errorf("%s is both leaf and statement", k)
		}
		if k.String() == "" || k.String() == "unknown" {
			t.Errorf("kind %d has no name", k)
		}
	}
	if !KindTry.IsStatement() || KindInvocation.IsStatement() {
		t.Fatalf("statement predicate broken")
	}
}
