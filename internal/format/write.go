package format

import (
	"strings"

	"excheck/internal/ast"
)

// Writer accumulates synthesized nodes. Tokens land in the innermost open
// container; whitespace requested with Space or Newline is materialised as a
// trivia leaf right before the next element.
type Writer struct {
	b           *ast.Builder
	opt         Options
	base        string
	indentLevel int
	pending     strings.Builder
	atLineStart bool
	frames      []frame
}

type frame struct {
	kind ast.Kind
	name string
	kids []ast.NodeID
}

// NewWriter creates a writer whose lines start with base plus the current
// indentation level.
func NewWriter(b *ast.Builder, base string, opt Options) *Writer {
	return &Writer{
		b:      b,
		opt:    opt.withDefaults(),
		base:   base,
		frames: []frame{{kind: ast.KindInvalid}},
	}
}

func (w *Writer) top() *frame {
	return &w.frames[len(w.frames)-1]
}

func (w *Writer) flush() {
	if w.pending.Len() == 0 && !w.atLineStart {
		return
	}
	if w.atLineStart {
		w.pending.WriteString(w.base)
		for range w.indentLevel {
			w.pending.WriteString(w.opt.Unit())
		}
	}
	if w.pending.Len() > 0 {
		ws := w.b.Leaf(ast.KindTrivia, w.pending.String())
		w.top().kids = append(w.top().kids, ws)
	}
	w.pending.Reset()
	w.atLineStart = false
}

func (w *Writer) leaf(kind ast.Kind, text string) {
	w.flush()
	w.top().kids = append(w.top().kids, w.b.Leaf(kind, text))
}

// Token writes a keyword or punctuation leaf.
func (w *Writer) Token(text string) { w.leaf(ast.KindToken, text) }

// Ident writes an identifier leaf.
func (w *Writer) Ident(text string) { w.leaf(ast.KindIdent, text) }

// Node inserts an existing subtree verbatim.
func (w *Writer) Node(id ast.NodeID) {
	w.flush()
	w.top().kids = append(w.top().kids, id)
}

// Open starts a container; everything written until the matching Close
// becomes its children.
func (w *Writer) Open(kind ast.Kind, name string) {
	w.flush()
	w.frames = append(w.frames, frame{kind: kind, name: name})
}

// Close finishes the innermost container, appends it to its parent and
// returns its id.
func (w *Writer) Close() ast.NodeID {
	if len(w.frames) == 1 {
		panic("format: Close without Open")
	}
	f := w.frames[len(w.frames)-1]
	w.frames = w.frames[:len(w.frames)-1]
	id := w.b.Branch(f.kind, f.name, f.kids...)
	w.top().kids = append(w.top().kids, id)
	return id
}

// Space writes a single space before the next element.
func (w *Writer) Space() {
	if w.atLineStart {
		return
	}
	w.pending.WriteByte(' ')
}

// Newline starts a new indented line before the next element.
func (w *Writer) Newline() {
	w.pending.Reset()
	w.pending.WriteByte('\n')
	w.atLineStart = true
}

// IndentPush increases the indentation level.
func (w *Writer) IndentPush() {
	w.indentLevel++
}

// IndentPop decreases the indentation level.
func (w *Writer) IndentPop() {
	if w.indentLevel > 0 {
		w.indentLevel--
	}
}

// Finish returns the top-level elements written so far. Pending whitespace
// is dropped.
func (w *Writer) Finish() []ast.NodeID {
	if len(w.frames) != 1 {
		panic("format: Finish with open containers")
	}
	out := w.frames[0].kids
	w.frames[0].kids = nil
	w.pending.Reset()
	w.atLineStart = false
	return out
}
