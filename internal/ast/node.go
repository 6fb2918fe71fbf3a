package ast

// Node is one element of a concrete syntax tree. Leaves hold the exact source
// text; containers hold ordered children. Concatenating the leaves of a
// subtree reproduces its source text byte for byte.
type Node struct {
	Kind     Kind
	Text     string // только для листьев
	Name     string // имя объявления или текст типа
	Width    uint32 // byte width of the subtree text
	Children []NodeID
}

// Nodes wraps the arena that owns every node of a document.
type Nodes struct {
	Arena *Arena[Node]
}

func NewNodes(capHint uint) *Nodes {
	return &Nodes{
		Arena: NewArena[Node](capHint),
	}
}

func (n *Nodes) New(node Node) NodeID {
	return NodeID(n.Arena.Allocate(node))
}

func (n *Nodes) Get(id NodeID) (Node, bool) {
	return n.Arena.Get(uint32(id))
}
