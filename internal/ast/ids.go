package ast

// NodeID addresses a node inside an Arena. Ids are stable: a node keeps its
// id in every snapshot that still contains it.
type NodeID uint32

const NoNodeID NodeID = 0

func (id NodeID) IsValid() bool { return id != NoNodeID }
