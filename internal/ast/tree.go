package ast

import (
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"

	"excheck/internal/source"
)

// ErrNotInTree is returned when an edit targets a node the snapshot does not
// contain.
var ErrNotInTree = errors.New("node is not part of the tree")

// Tree is an immutable snapshot: a root id plus the arena it lives in.
// Parent links and absolute offsets depend on the snapshot and are computed
// once, lazily, on first use.
type Tree struct {
	File  source.FileID
	Root  NodeID
	nodes *Nodes
	lazy  *treeIndex
}

type treeIndex struct {
	once   sync.Once
	parent []NodeID
	start  []uint32
	member []bool

	textOnce sync.Once
	text     []byte
}

func NewTree(nodes *Nodes, file source.FileID, root NodeID) *Tree {
	return &Tree{File: file, Root: root, nodes: nodes, lazy: &treeIndex{}}
}

// WithFile returns the same snapshot bound to another file revision.
func (t *Tree) WithFile(file source.FileID) *Tree {
	cp := *t
	cp.File = file
	return &cp
}

// Builder returns a builder allocating into this tree's arena.
func (t *Tree) Builder() *Builder {
	return &Builder{Nodes: t.nodes}
}

// Node returns the node stored under id (zero Node when unknown).
func (t *Tree) Node(id NodeID) Node {
	n, _ := t.nodes.Get(id)
	return n
}

func (t *Tree) index() *treeIndex {
	idx := t.lazy
	idx.once.Do(func() {
		size := int(t.nodes.Arena.Len()) + 1
		idx.parent = make([]NodeID, size)
		idx.start = make([]uint32, size)
		idx.member = make([]bool, size)

		type frame struct {
			id  NodeID
			off uint32
		}
		stack := []frame{{id: t.Root}}
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if int(top.id) >= size {
				continue
			}
			idx.member[top.id] = true
			idx.start[top.id] = top.off
			n := t.Node(top.id)
			off := top.off
			for _, c := range n.Children {
				if int(c) < size {
					idx.parent[c] = top.id
				}
				stack = append(stack, frame{id: c, off: off})
				off += t.Node(c).Width
			}
		}
	})
	return idx
}

// Contains reports whether id belongs to this snapshot.
func (t *Tree) Contains(id NodeID) bool {
	idx := t.index()
	return int(id) < len(idx.member) && idx.member[id]
}

// Parent returns the parent of id in this snapshot.
func (t *Tree) Parent(id NodeID) NodeID {
	if !t.Contains(id) {
		return NoNodeID
	}
	return t.index().parent[id]
}

// Ancestors yields the strict ancestors of id, nearest first.
func (t *Tree) Ancestors(id NodeID) iter.Seq[NodeID] {
	return func(yield func(NodeID) bool) {
		for p := t.Parent(id); p.IsValid(); p = t.Parent(p) {
			if !yield(p) {
				return
			}
		}
	}
}

// Span returns the absolute byte span of id in this snapshot.
func (t *Tree) Span(id NodeID) (source.Span, bool) {
	if !t.Contains(id) {
		return source.Span{}, false
	}
	start := t.index().start[id]
	return source.Span{File: t.File, Start: start, End: start + t.Node(id).Width}, true
}

// Text renders the whole snapshot.
func (t *Tree) Text() []byte {
	idx := t.lazy
	idx.textOnce.Do(func() {
		var sb strings.Builder
		sb.Grow(int(t.Node(t.Root).Width))
		t.writeText(&sb, t.Root)
		idx.text = []byte(sb.String())
	})
	return idx.text
}

// NodeText renders the subtree rooted at id.
func (t *Tree) NodeText(id NodeID) string {
	var sb strings.Builder
	t.writeText(&sb, id)
	return sb.String()
}

func (t *Tree) writeText(sb *strings.Builder, id NodeID) {
	stack := []NodeID{id}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := t.Node(top)
		if n.Kind.IsLeaf() {
			sb.WriteString(n.Text)
			continue
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
}

// Walk visits the snapshot in pre-order. Returning false from fn skips the
// children of the visited node.
func (t *Tree) Walk(fn func(id NodeID, n Node) bool) {
	stack := []NodeID{t.Root}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := t.Node(top)
		if !fn(top, n) {
			continue
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
}

// Significant returns the children of id that are not trivia or comments.
func (t *Tree) Significant(id NodeID) []NodeID {
	n := t.Node(id)
	out := make([]NodeID, 0, len(n.Children))
	for _, c := range n.Children {
		if !t.Node(c).Kind.IsTrivia() {
			out = append(out, c)
		}
	}
	return out
}

// FirstChild returns the first direct child of the given kind.
func (t *Tree) FirstChild(id NodeID, kind Kind) (NodeID, bool) {
	for _, c := range t.Node(id).Children {
		if t.Node(c).Kind == kind {
			return c, true
		}
	}
	return NoNodeID, false
}

// Find locates the outermost container of the given kind whose span is exactly
// span. Only offsets are compared; span.File is ignored so a span taken from
// an earlier revision of the same document can be used.
func (t *Tree) Find(span source.Span, kind Kind) (NodeID, bool) {
	id, off := t.Root, uint32(0)
	for {
		n := t.Node(id)
		if n.Kind == kind && off == span.Start && off+n.Width == span.End {
			return id, true
		}
		next := NoNodeID
		childOff := off
		for _, c := range n.Children {
			cn := t.Node(c)
			if !cn.Kind.IsLeaf() && childOff <= span.Start && span.End <= childOff+cn.Width {
				next = c
				break
			}
			childOff += cn.Width
		}
		if !next.IsValid() {
			return NoNodeID, false
		}
		id, off = next, childOff
	}
}

// Replace returns a new snapshot in which old is substituted by repl. Only the
// path from old to the root is copied; every other subtree is shared with the
// receiver, which stays valid and unchanged.
func (t *Tree) Replace(old, repl NodeID) (*Tree, error) {
	if !t.Contains(old) {
		return nil, fmt.Errorf("replace %d: %w", old, ErrNotInTree)
	}
	if _, ok := t.nodes.Get(repl); !ok {
		return nil, fmt.Errorf("replace with %d: %w", repl, ErrNotInTree)
	}
	if old == t.Root {
		return NewTree(t.nodes, t.File, repl), nil
	}

	cur, next := old, repl
	for p := t.Parent(cur); p.IsValid(); p = t.Parent(p) {
		pn := t.Node(p)
		kids := make([]NodeID, len(pn.Children))
		copy(kids, pn.Children)
		for i, c := range kids {
			if c == cur {
				kids[i] = next
				break
			}
		}
		oldW, newW := t.Node(cur).Width, t.Node(next).Width
		copied := Node{
			Kind:     pn.Kind,
			Name:     pn.Name,
			Width:    pn.Width - oldW + newW,
			Children: kids,
		}
		cur, next = p, t.nodes.New(copied)
	}
	return NewTree(t.nodes, t.File, next), nil
}
