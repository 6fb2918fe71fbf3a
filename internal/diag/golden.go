package diag

import (
	"cmp"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"excheck/internal/source"
)

// shortLine is one rendered entry: "<sev> <code> [<path>:<line>:<col>] <msg>".
type shortLine struct {
	sev, code, path string
	line, col       uint32
	msg             string
}

func (l shortLine) String() string {
	if l.line == 0 {
		return fmt.Sprintf("%s %s %s", l.sev, l.code, l.msg)
	}
	return fmt.Sprintf("%s %s %s:%d:%d %s", l.sev, l.code, l.path, l.line, l.col, l.msg)
}

func compareShort(a, b shortLine) int {
	return cmp.Or(
		cmp.Compare(a.path, b.path),
		cmp.Compare(a.line, b.line),
		cmp.Compare(a.col, b.col),
		cmp.Compare(a.sev, b.sev),
		cmp.Compare(a.code, b.code),
		cmp.Compare(a.msg, b.msg),
	)
}

// FormatGoldenDiagnostics renders diags one per line for golden files:
// paths relative to the FileSet base, location-less findings first, notes
// as "note" entries. Empty input gives "".
func FormatGoldenDiagnostics(diags []Diagnostic, fs *source.FileSet, includeNotes bool) string {
	return formatShort(diags, fs, includeNotes, "relative")
}

// FormatShortDiagnostics is FormatGoldenDiagnostics with paths as given.
func FormatShortDiagnostics(diags []Diagnostic, fs *source.FileSet, includeNotes bool) string {
	return formatShort(diags, fs, includeNotes, "auto")
}

func formatShort(diags []Diagnostic, fs *source.FileSet, includeNotes bool, pathMode string) string {
	if fs == nil || len(diags) == 0 {
		return ""
	}
	lines := make([]shortLine, 0, len(diags))
	for _, d := range diags {
		code := d.Code.ID()
		if !d.Located() {
			lines = append(lines, shortLine{sev: d.Severity.label(), code: code, msg: oneLine(d.Message)})
			continue
		}
		if l, ok := locate(fs, d.Primary, pathMode); ok {
			l.sev, l.code, l.msg = d.Severity.label(), code, oneLine(d.Message)
			lines = append(lines, l)
		}
		if !includeNotes {
			continue
		}
		for _, n := range d.Notes {
			if l, ok := locate(fs, n.Span, pathMode); ok {
				l.sev, l.code, l.msg = "note", code, oneLine(n.Msg)
				lines = append(lines, l)
			}
		}
	}
	slices.SortStableFunc(lines, compareShort)

	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.String()
	}
	return strings.Join(out, "\n")
}

func locate(fs *source.FileSet, sp source.Span, pathMode string) (shortLine, bool) {
	f := fs.Get(sp.File)
	if f == nil {
		return shortLine{}, false
	}
	start, _ := fs.Resolve(sp)
	path := filepath.ToSlash(f.FormatPath(pathMode, fs.BaseDir()))
	for strings.HasPrefix(path, "./") {
		path = path[2:]
	}
	return shortLine{path: path, line: start.Line, col: start.Col}, true
}

// oneLine folds line breaks so that every entry stays on one line.
func oneLine(msg string) string {
	return strings.TrimSpace(strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ").Replace(msg))
}
