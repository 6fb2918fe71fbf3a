package fix

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"excheck/internal/ast"
	"excheck/internal/check"
	"excheck/internal/config"
	"excheck/internal/diag"
	"excheck/internal/format"
	"excheck/internal/source"
)

var (
	// ErrNoFixes is returned when no fixes were applied.
	ErrNoFixes = errors.New("no applicable fixes found")
	// ErrNotFixable is returned for diagnostics that carry no exception type.
	ErrNotFixable = errors.New("diagnostic has no exception type to catch")
	// ErrStaleSpan is returned when the diagnostic span no longer denotes an
	// invocation in the tree being edited.
	ErrStaleSpan = errors.New("diagnostic span does not resolve to an invocation")
	// ErrNoStatement is returned when the invocation is not inside a
	// statement, e.g. in a field initializer.
	ErrNoStatement = errors.New("invocation is not inside a statement")
)

// EditKind tells which of the two rewrites a fix performed.
type EditKind uint8

const (
	EditWrapInTry EditKind = iota
	EditAppendCatch
)

func (k EditKind) String() string {
	switch k {
	case EditWrapInTry:
		return "wrap-in-try"
	case EditAppendCatch:
		return "append-catch"
	default:
		return "unknown"
	}
}

// EditOperation describes one applied rewrite. Target is the replaced node
// of the input snapshot: the statement for a wrap, the try for an append.
type EditOperation struct {
	Target        ast.NodeID
	Kind          EditKind
	ExceptionType string
}

// Options controls the layout of synthesized code.
type Options struct {
	Format format.Options
}

// OptionsFromConfig reads the [fix] table.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{Format: format.Options{
		IndentWidth: cfg.Fix.IndentWidth,
		UseTabs:     cfg.Fix.UseTabs,
	}}
}

// insertion is a run of bytes added at offset at. Offsets of a history are
// sequential: each is relative to the text after the previous insertions.
type insertion struct {
	at uint32
	n  uint32
}

// remap moves span through insertions made after the span was computed.
// Text inserted exactly at the span start lands in front of it.
func remap(span source.Span, history []insertion) source.Span {
	for _, ins := range history {
		switch {
		case ins.at <= span.Start:
			span = span.ShiftRight(ins.n)
		case ins.at < span.End:
			span.End += ins.n
		}
	}
	return span
}

// Fix rewrites tree so that the exception named by d is caught at its call
// site. The input tree is never modified; on error it is returned as is.
func Fix(ctx context.Context, tree *ast.Tree, d diag.Diagnostic, opts Options) (*ast.Tree, error) {
	out, _, _, err := apply(ctx, tree, d.Primary, d, opts)
	if err != nil {
		return tree, err
	}
	return out, nil
}

func apply(ctx context.Context, tree *ast.Tree, span source.Span, d diag.Diagnostic, opts Options) (*ast.Tree, EditOperation, []insertion, error) {
	var op EditOperation
	if err := ctx.Err(); err != nil {
		return nil, op, nil, err
	}
	typeName, ok := d.Property(diag.PropExceptionType)
	if !ok {
		return nil, op, nil, fmt.Errorf("%s: %w", d.Code.ID(), ErrNotFixable)
	}
	op.ExceptionType = typeName
	if !span.IsValid() {
		return nil, op, nil, ErrStaleSpan
	}
	call, ok := tree.Find(span, ast.KindInvocation)
	if !ok {
		return nil, op, nil, fmt.Errorf("%s: %w", span, ErrStaleSpan)
	}

	if try, ok := check.NearestTry(tree, call); ok {
		op.Kind, op.Target = EditAppendCatch, try
		out, ins, err := appendCatch(tree, try, typeName, opts)
		return out, op, ins, err
	}

	stmt, err := enclosingStatement(tree, call)
	if err != nil {
		return nil, op, nil, err
	}
	op.Kind, op.Target = EditWrapInTry, stmt
	out, ins, err := wrapInTry(tree, stmt, typeName, opts)
	return out, op, ins, err
}

// enclosingStatement returns the deepest statement-like ancestor of node.
// A declaration reached first means node lives outside any method body.
func enclosingStatement(tree *ast.Tree, node ast.NodeID) (ast.NodeID, error) {
	for a := range tree.Ancestors(node) {
		k := tree.Node(a).Kind
		if k.IsStatement() {
			return a, nil
		}
		if k.IsDeclaration() {
			return ast.NoNodeID, fmt.Errorf("%s %q: %w", k, tree.Node(a).Name, ErrNoStatement)
		}
	}
	return ast.NoNodeID, ErrNoStatement
}

func wrapInTry(tree *ast.Tree, stmt ast.NodeID, typeName string, opts Options) (*ast.Tree, []insertion, error) {
	old, ok := tree.Span(stmt)
	if !ok {
		return nil, nil, fmt.Errorf("statement %d: %w", stmt, ast.ErrNotInTree)
	}
	text := tree.Text()
	w := format.NewWriter(tree.Builder(), format.LineIndent(text, old.Start), opts.Format)
	var repl ast.NodeID
	if format.StartsLine(text, old.Start) {
		repl = format.WrapInTry(w, stmt, typeName)
	} else {
		repl = format.WrapInBlock(w, stmt, typeName)
	}
	w.Finish()

	out, err := tree.Replace(stmt, repl)
	if err != nil {
		return nil, nil, err
	}
	moved, ok := out.Span(stmt)
	if !ok {
		return nil, nil, fmt.Errorf("statement %d lost after wrap: %w", stmt, ast.ErrNotInTree)
	}
	prefix := moved.Start - old.Start
	suffix := out.Node(repl).Width - prefix - old.Len()
	return out, []insertion{{at: old.Start, n: prefix}, {at: moved.End, n: suffix}}, nil
}

func appendCatch(tree *ast.Tree, try ast.NodeID, typeName string, opts Options) (*ast.Tree, []insertion, error) {
	trySpan, ok := tree.Span(try)
	if !ok {
		return nil, nil, fmt.Errorf("try %d: %w", try, ast.ErrNotInTree)
	}
	tn := tree.Node(try)

	// одинаковые catch не схлопываются: каждая диагностика даёт свой clause.
	// новый catch идёт после последнего catch, иначе сразу после тела try
	anchor := -1
	for i, c := range tn.Children {
		switch tree.Node(c).Kind {
		case ast.KindCatch:
			anchor = i
		case ast.KindBlock:
			if anchor < 0 {
				anchor = i
			}
		}
	}
	if anchor < 0 {
		return nil, nil, fmt.Errorf("try %d has no body: %w", try, ErrStaleSpan)
	}
	at := trySpan.Start
	for _, c := range tn.Children[:anchor+1] {
		at += tree.Node(c).Width
	}

	b := tree.Builder()
	w := format.NewWriter(b, format.LineIndent(tree.Text(), trySpan.Start), opts.Format)
	w.Newline()
	format.CatchClause(w, typeName)
	added := w.Finish()

	kids := slices.Concat(tn.Children[:anchor+1], added, tn.Children[anchor+1:])
	repl := b.Branch(ast.KindTry, tn.Name, kids...)
	out, err := tree.Replace(try, repl)
	if err != nil {
		return nil, nil, err
	}
	return out, []insertion{{at: at, n: out.Node(repl).Width - tn.Width}}, nil
}
