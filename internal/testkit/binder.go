package testkit

import (
	"fmt"
	"strings"

	"excheck/internal/ast"
	"excheck/internal/binder"
	"excheck/internal/types"
)

// MapBinder resolves invocations by the last identifier of the callee and
// type references by name. Documentation is keyed by that identifier.
type MapBinder struct {
	Docs     map[string]string
	Universe types.Universe
}

// DocFor renders the XML documentation of a method throwing the given
// types.
func DocFor(method string, exceptions ...string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<member name="M:C.%s">`, method)
	for _, e := range exceptions {
		fmt.Fprintf(&sb, `<exception cref="T:%s">thrown</exception>`, e)
	}
	sb.WriteString("</member>")
	return sb.String()
}

func (m *MapBinder) ResolveSymbol(tree *ast.Tree, node ast.NodeID) (*binder.Symbol, bool) {
	if tree.Node(node).Kind != ast.KindInvocation {
		return nil, false
	}
	kids := tree.Node(node).Children
	if len(kids) == 0 {
		return nil, false
	}
	name := ""
	if n := tree.Node(kids[0]); n.Kind == ast.KindIdent {
		name = n.Text
	} else {
		for _, c := range n.Children {
			if cn := tree.Node(c); cn.Kind == ast.KindIdent {
				name = cn.Text
			}
		}
	}
	if _, ok := m.Docs[name]; !ok {
		return nil, false
	}
	return &binder.Symbol{Name: name, Qualified: "C." + name}, true
}

func (m *MapBinder) Documentation(sym *binder.Symbol) (string, bool) {
	doc, ok := m.Docs[sym.Name]
	return doc, ok
}

// ResolveType looks the written name up directly, then under System.
func (m *MapBinder) ResolveType(tree *ast.Tree, node ast.NodeID) (*types.Descriptor, bool) {
	name := tree.Node(node).Name
	if name == "" {
		name = tree.NodeText(node)
	}
	if d, ok := types.Resolve(m.Universe, name); ok {
		return d, true
	}
	return types.Resolve(m.Universe, "System."+name)
}
