// Package testkit holds helpers shared by package tests: a small tree
// builder for C#-shaped snippets, a map-backed binder and structural
// invariant checks.
package testkit

import (
	"bytes"
	"fmt"

	"fortio.org/safecast"

	"excheck/internal/ast"
)

// CheckTreeInvariants runs a minimal set of structural invariants on a tree:
// 1) rendering the tree reproduces content byte for byte (when content != nil)
// 2) every node span lies within the document bounds
// 3) every child span is contained in its parent span and children tile it
// 4) leaves carry text, containers carry none
func CheckTreeInvariants(tree *ast.Tree, content []byte) error {
	if tree == nil {
		return fmt.Errorf("nil tree")
	}
	text := tree.Text()
	if content != nil && !bytes.Equal(text, content) {
		return fmt.Errorf("tree text differs from source:\n--- want\n%s\n--- got\n%s", content, text)
	}
	total, err := safecast.Conv[uint32](len(text))
	if err != nil {
		return fmt.Errorf("len text overflow: %w", err)
	}

	var firstErr error
	tree.Walk(func(id ast.NodeID, n ast.Node) bool {
		if firstErr != nil {
			return false
		}
		sp, ok := tree.Span(id)
		if !ok {
			firstErr = fmt.Errorf("node %d (%s) has no span", id, n.Kind)
			return false
		}
		if sp.End > total {
			firstErr = fmt.Errorf("node %d (%s) ends beyond document: %d > %d", id, n.Kind, sp.End, total)
			return false
		}
		if n.Kind.IsLeaf() {
			if len(n.Children) != 0 {
				firstErr = fmt.Errorf("leaf %d (%s) has children", id, n.Kind)
			}
			return false
		}
		if n.Text != "" {
			firstErr = fmt.Errorf("container %d (%s) carries text", id, n.Kind)
			return false
		}
		next := sp.Start
		for _, c := range n.Children {
			cs, _ := tree.Span(c)
			if cs.Start != next || !sp.Contains(cs) {
				firstErr = fmt.Errorf("child %d of %d (%s) at %v does not tile parent %v", c, id, n.Kind, cs, sp)
				return false
			}
			next = cs.End
		}
		if next != sp.End {
			firstErr = fmt.Errorf("children of %d (%s) end at %d, parent at %d", id, n.Kind, next, sp.End)
		}
		return true
	})
	return firstErr
}
