package diagfmt

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"excheck/internal/diag"
	"excheck/internal/fix"
	"excheck/internal/source"
)

const tabWidth = 4

type palette struct {
	err, warn, info *color.Color
	code, path      *color.Color
	gutter, caret   *color.Color
	note, fix       *color.Color
	add, del, hunk  *color.Color
}

func newPalette(enabled bool) palette {
	mk := func(attrs ...color.Attribute) *color.Color {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c
	}
	return palette{
		err:    mk(color.FgRed, color.Bold),
		warn:   mk(color.FgYellow, color.Bold),
		info:   mk(color.FgCyan, color.Bold),
		code:   mk(color.Bold),
		path:   mk(color.Bold),
		gutter: mk(color.FgBlue),
		caret:  mk(color.FgGreen, color.Bold),
		note:   mk(color.FgCyan),
		fix:    mk(color.FgGreen),
		add:    mk(color.FgGreen),
		del:    mk(color.FgRed),
		hunk:   mk(color.FgCyan),
	}
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() (ожидается bag.Sort() заранее).
// Для каждого diag печатает:
// <path>:<line>:<col>: <SEV> <CODE>: <Message>
// затем контекст строки с подчёркиванием ^~~~ по Span, затем Notes и подсказку
// исправления.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	p := newPalette(opts.Color)
	for i, d := range bag.Items() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		prettyOne(w, d, fs, opts, p)
	}
}

func prettyOne(w io.Writer, d diag.Diagnostic, fs *source.FileSet, opts PrettyOpts, p palette) {
	loc := "excheck"
	file := fs.Get(d.Primary.File)
	var start, end source.LineCol
	if d.Located() && file != nil {
		start, end = fs.Resolve(d.Primary)
		loc = fmt.Sprintf("%s:%d:%d", formatPath(fs, file, opts.PathMode), start.Line, start.Col)
	}
	fmt.Fprintf(w, "%s: %s %s: %s\n",
		p.path.Sprint(loc),
		p.severity(d.Severity).Sprint(d.Severity.String()),
		p.code.Sprint(d.Code.ID()),
		d.Message)

	if d.Located() && file != nil {
		writeSnippet(w, file, start, end, opts, p)
	}

	if opts.ShowNotes {
		for _, n := range d.Notes {
			nloc := ""
			if nf := fs.Get(n.Span.File); n.Span.IsValid() && nf != nil {
				ns, _ := fs.Resolve(n.Span)
				nloc = fmt.Sprintf("%s:%d:%d: ", formatPath(fs, nf, opts.PathMode), ns.Line, ns.Col)
			}
			fmt.Fprintf(w, "  %s %s%s\n", p.note.Sprint("note:"), nloc, n.Msg)
		}
	}

	if opts.ShowFixes && d.Code == diag.ExcDocumentedNotCaught && d.Located() {
		if _, ok := d.Property(diag.PropExceptionType); ok {
			fmt.Fprintf(w, "  %s %s (id=%s)\n", p.fix.Sprint("fix:"), fix.Title(d), fix.FixID(d))
		}
	}
	if opts.ShowPreview && opts.Preview != nil {
		if diff := opts.Preview(d); len(diff) > 0 {
			writePreview(w, diff, p)
		}
	}
}

// writeSnippet prints the context lines around the primary span and a caret
// line under its first line.
func writeSnippet(w io.Writer, f *source.File, start, end source.LineCol, opts PrettyOpts, p palette) {
	ctxLines := uint32(max(opts.Context, 0))
	first := start.Line - min(ctxLines, start.Line-1)
	last := start.Line + ctxLines
	lines := uint32(len(f.LineIdx) + 1)
	last = min(last, lines)
	gw := len(strconv.FormatUint(uint64(last), 10))

	for ln := first; ln <= last; ln++ {
		text := f.GetLine(ln)
		if ln == last && ln != start.Line && text == "" {
			break
		}
		shown := expandTabs(text)
		if opts.Width > 0 {
			shown = truncate(shown, int(opts.Width))
		}
		fmt.Fprintf(w, "%s %s\n", p.gutter.Sprintf("%*d |", gw, ln), shown)
		if ln != start.Line {
			continue
		}
		col := int(start.Col) - 1
		col = min(col, len(text))
		stop := len(text)
		if end.Line == start.Line {
			stop = min(int(end.Col)-1, len(text))
		}
		pad := runewidth.StringWidth(expandTabs(text[:col]))
		width := max(runewidth.StringWidth(expandTabs(text[col:max(stop, col)])), 1)
		fmt.Fprintf(w, "%s %s%s\n",
			p.gutter.Sprintf("%*s |", gw, ""),
			strings.Repeat(" ", pad),
			p.caret.Sprint("^"+strings.Repeat("~", width-1)))
	}
}

func expandTabs(s string) string {
	if !strings.Contains(s, "\t") {
		return s
	}
	var sb strings.Builder
	col := 0
	for _, r := range s {
		if r == '\t' {
			n := tabWidth - col%tabWidth
			sb.WriteString(strings.Repeat(" ", n))
			col += n
			continue
		}
		sb.WriteRune(r)
		col += runewidth.RuneWidth(r)
	}
	return sb.String()
}

func truncate(value string, width int) string {
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
