package diagfmt

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"excheck/internal/ast"
	"excheck/internal/source"
)

// TreeOpts configures syntax tree dumps.
type TreeOpts struct {
	Trivia bool // печатать пробелы и комментарии
}

// ASTNodeOutput is the JSON form of one tree node.
type ASTNodeOutput struct {
	Kind     string          `json:"kind"`
	Name     string          `json:"name,omitempty"`
	Text     string          `json:"text,omitempty"`
	Span     SpanJSON        `json:"span"`
	Children []ASTNodeOutput `json:"children,omitempty"`
}

func visible(tree *ast.Tree, id ast.NodeID, opts TreeOpts) bool {
	return opts.Trivia || !tree.Node(id).Kind.IsTrivia()
}

func nodeLabel(tree *ast.Tree, id ast.NodeID) string {
	n := tree.Node(id)
	var sb strings.Builder
	sb.WriteString(n.Kind.String())
	switch {
	case n.Kind.IsLeaf():
		sb.WriteByte(' ')
		sb.WriteString(strconv.Quote(n.Text))
	case n.Name != "":
		sb.WriteString(" ")
		sb.WriteString(n.Name)
	}
	if sp, ok := tree.Span(id); ok {
		fmt.Fprintf(&sb, " [%d,%d)", sp.Start, sp.End)
	}
	return sb.String()
}

// FormatTreePretty prints tree with box-drawing indentation.
func FormatTreePretty(w io.Writer, tree *ast.Tree, fs *source.FileSet, opts TreeOpts) error {
	header := "Document"
	if f := fs.Get(tree.File); f != nil {
		header = f.FormatPath("auto", fs.BaseDir())
	}
	if _, err := fmt.Fprintf(w, "%s (%s)\n", header, nodeLabel(tree, tree.Root)); err != nil {
		return err
	}
	return writeTreeChildren(w, tree, tree.Root, "", opts)
}

func writeTreeChildren(w io.Writer, tree *ast.Tree, id ast.NodeID, prefix string, opts TreeOpts) error {
	var kids []ast.NodeID
	for _, c := range tree.Node(id).Children {
		if visible(tree, c, opts) {
			kids = append(kids, c)
		}
	}
	for i, c := range kids {
		branch, next := "├─ ", "│  "
		if i == len(kids)-1 {
			branch, next = "└─ ", "   "
		}
		if _, err := fmt.Fprintf(w, "%s%s%s\n", prefix, branch, nodeLabel(tree, c)); err != nil {
			return err
		}
		if err := writeTreeChildren(w, tree, c, prefix+next, opts); err != nil {
			return err
		}
	}
	return nil
}

// BuildTreeOutput converts the subtree at id.
func BuildTreeOutput(tree *ast.Tree, id ast.NodeID, opts TreeOpts) ASTNodeOutput {
	n := tree.Node(id)
	out := ASTNodeOutput{Kind: n.Kind.String(), Name: n.Name, Text: n.Text}
	if sp, ok := tree.Span(id); ok {
		out.Span = SpanJSON{Start: sp.Start, End: sp.End}
	}
	for _, c := range n.Children {
		if visible(tree, c, opts) {
			out.Children = append(out.Children, BuildTreeOutput(tree, c, opts))
		}
	}
	return out
}

func FormatTreeJSON(w io.Writer, tree *ast.Tree, opts TreeOpts) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(BuildTreeOutput(tree, tree.Root, opts))
}
