package diagfmt

import (
	"encoding/json"
	"io"

	"excheck/internal/diag"
	"excheck/internal/fix"
	"excheck/internal/source"
)

// SpanJSON is the byte range of a diagnostic.
type SpanJSON struct {
	Start uint32 `json:"start"`
	End   uint32 `json:"end"`
}

// LocationJSON представляет местоположение в файле для JSON
type LocationJSON struct {
	File      string `json:"file"`
	StartLine uint32 `json:"start_line,omitempty"`
	StartCol  uint32 `json:"start_col,omitempty"`
	EndLine   uint32 `json:"end_line,omitempty"`
	EndCol    uint32 `json:"end_col,omitempty"`
}

// NoteJSON представляет дополнительную заметку для JSON
type NoteJSON struct {
	Message  string        `json:"message"`
	Span     *SpanJSON     `json:"span,omitempty"`
	Location *LocationJSON `json:"location,omitempty"`
}

// FixJSON describes the fix available for a diagnostic.
type FixJSON struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// DiagnosticJSON is the wire shape of one diagnostic. Location-less
// diagnostics carry neither span nor location.
type DiagnosticJSON struct {
	ID         string            `json:"id"`
	Code       string            `json:"code"`
	Span       *SpanJSON         `json:"span,omitempty"`
	Message    string            `json:"message"`
	Severity   string            `json:"severity"`
	Properties map[string]string `json:"properties"`
	Location   *LocationJSON     `json:"location,omitempty"`
	Notes      []NoteJSON        `json:"notes,omitempty"`
	Fix        *FixJSON          `json:"fix,omitempty"`
}

// DiagnosticsOutput представляет корневую структуру JSON вывода
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
}

// wireSeverity is the severity spelling of the wire shape.
func wireSeverity(s diag.Severity) string {
	switch s {
	case diag.SevError:
		return "Error"
	case diag.SevWarning:
		return "Warning"
	default:
		return "Info"
	}
}

func makeSpan(span source.Span) *SpanJSON {
	if !span.IsValid() {
		return nil
	}
	return &SpanJSON{Start: span.Start, End: span.End}
}

// makeLocation создаёт LocationJSON из Span
func makeLocation(span source.Span, fs *source.FileSet, pathMode PathMode, includePositions bool) *LocationJSON {
	f := fs.Get(span.File)
	if !span.IsValid() || f == nil {
		return nil
	}
	loc := &LocationJSON{File: formatPath(fs, f, pathMode)}
	// Добавляем позиции строк/колонок если требуется
	if includePositions {
		startPos, endPos := fs.Resolve(span)
		loc.StartLine = startPos.Line
		loc.StartCol = startPos.Col
		loc.EndLine = endPos.Line
		loc.EndCol = endPos.Col
	}
	return loc
}

// BuildDiagnosticsOutput формирует структуру JSON-вывода без сериализации.
func BuildDiagnosticsOutput(bag *diag.Bag, fs *source.FileSet, opts JSONOpts) DiagnosticsOutput {
	items := bag.Items()
	maxItems := len(items)
	if opts.Max > 0 && opts.Max < maxItems {
		maxItems = opts.Max
	}

	diagnostics := make([]DiagnosticJSON, 0, maxItems)
	for _, d := range items[:maxItems] {
		props := d.Properties
		if props == nil {
			props = map[string]string{}
		}
		out := DiagnosticJSON{
			ID:         d.Code.RuleID(),
			Code:       d.Code.ID(),
			Span:       makeSpan(d.Primary),
			Message:    d.Message,
			Severity:   wireSeverity(d.Severity),
			Properties: props,
			Location:   makeLocation(d.Primary, fs, opts.PathMode, opts.IncludePositions),
		}
		if opts.IncludeNotes && len(d.Notes) > 0 {
			out.Notes = make([]NoteJSON, len(d.Notes))
			for j, note := range d.Notes {
				out.Notes[j] = NoteJSON{
					Message:  note.Msg,
					Span:     makeSpan(note.Span),
					Location: makeLocation(note.Span, fs, opts.PathMode, opts.IncludePositions),
				}
			}
		}
		if opts.IncludeFixes && d.Code == diag.ExcDocumentedNotCaught && d.Located() {
			if _, ok := d.Property(diag.PropExceptionType); ok {
				out.Fix = &FixJSON{ID: fix.FixID(d), Title: fix.Title(d)}
			}
		}
		diagnostics = append(diagnostics, out)
	}

	return DiagnosticsOutput{
		Diagnostics: diagnostics,
		Count:       len(diagnostics),
	}
}

// JSON форматирует диагностики в JSON формат.
func JSON(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts JSONOpts) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(BuildDiagnosticsOutput(bag, fs, opts))
}
