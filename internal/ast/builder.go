package ast

import (
	"fmt"

	"fortio.org/safecast"

	"excheck/internal/source"
)

type Hints struct{ Nodes uint }

// Builder allocates nodes into an arena. Frontends use it to build the
// initial tree; the fix engine uses it to build replacement subtrees in the
// arena of the tree being edited.
type Builder struct {
	Nodes *Nodes
}

func NewBuilder(hints Hints) *Builder {
	if hints.Nodes == 0 {
		hints.Nodes = 1 << 10
	}
	return &Builder{
		Nodes: NewNodes(hints.Nodes),
	}
}

// Leaf allocates a text-carrying node.
func (b *Builder) Leaf(kind Kind, text string) NodeID {
	width, err := safecast.Conv[uint32](len(text))
	if err != nil {
		panic(fmt.Errorf("leaf width overflow: %w", err))
	}
	return b.Nodes.New(Node{Kind: kind, Text: text, Width: width})
}

// Branch allocates a container node; its width is the sum of its children.
func (b *Builder) Branch(kind Kind, name string, children ...NodeID) NodeID {
	var width uint32
	for _, c := range children {
		n, ok := b.Nodes.Get(c)
		if !ok {
			panic(fmt.Errorf("ast: unknown child node %d", c))
		}
		width += n.Width
	}
	kids := make([]NodeID, len(children))
	copy(kids, children)
	return b.Nodes.New(Node{Kind: kind, Name: name, Width: width, Children: kids})
}

// Tree wraps root into a snapshot bound to file.
func (b *Builder) Tree(file source.FileID, root NodeID) *Tree {
	return NewTree(b.Nodes, file, root)
}
