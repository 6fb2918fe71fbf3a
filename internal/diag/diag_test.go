package diag

import (
	"testing"

	"excheck/internal/source"
)

func TestFormatGoldenDiagnostics(t *testing.T) {
	fs := source.NewFileSetWithBase("/workspace")
	userFile := fs.Add("/workspace/src/Program.cs", []byte("a\nb\n"), 0)

	diags := []Diagnostic{
		New(SevWarning, ExcDocumentedNotCaught, source.Span{File: userFile, Start: 2, End: 3}, `"b" may throw X,`+"\nwhich is not caught").
			WithProperty(PropExceptionType, "X"),
		New(SevError, ExcConfigMissing, source.NoSpan, "configuration missing"),
		New(SevWarning, ExcDocumentedNotCaught, source.Span{File: userFile, Start: 0, End: 1}, "first").
			WithNote(source.Span{File: userFile, Start: 2, End: 3}, "note line"),
	}

	expected := "error EXC5000 configuration missing\n" +
		"warning EXC5001 src/Program.cs:1:1 first\n" +
		"note EXC5001 src/Program.cs:2:1 note line\n" +
		`warning EXC5001 src/Program.cs:2:1 "b" may throw X, which is not caught`

	if got := FormatGoldenDiagnostics(diags, fs, true); got != expected {
		t.Fatalf("unexpected golden diagnostics:\nwant:\n%s\n\ngot:\n%s", expected, got)
	}
}

func TestBagSortAndDedup(t *testing.T) {
	span := source.Span{File: 0, Start: 10, End: 20}
	b := NewBag(0)
	b.Add(New(SevWarning, ExcDocumentedNotCaught, span, "m B").WithProperty(PropExceptionType, "B"))
	b.Add(New(SevWarning, ExcDocumentedNotCaught, span, "m A").WithProperty(PropExceptionType, "A"))
	b.Add(New(SevWarning, ExcDocumentedNotCaught, span, "m A").WithProperty(PropExceptionType, "A"))
	b.Add(New(SevError, ExcConfigMissing, source.NoSpan, "cfg"))

	b.Dedup()
	if b.Len() != 3 {
		t.Fatalf("len after dedup = %d, want 3", b.Len())
	}
	b.Sort()
	items := b.Items()
	if items[0].Code != ExcConfigMissing {
		t.Fatalf("location-less diagnostic must sort first, got %v", items[0].Code)
	}
	if items[1].Properties[PropExceptionType] != "A" || items[2].Properties[PropExceptionType] != "B" {
		t.Fatalf("same-span diagnostics must order by exception type")
	}
}

func TestBagLimit(t *testing.T) {
	b := NewBag(1)
	if !b.Add(Diagnostic{}) || b.Add(Diagnostic{}) {
		t.Fatalf("limit not enforced")
	}
}

func TestDedupReporter(t *testing.T) {
	bag := NewBag(0)
	r := NewDedupReporter(NewBagReporter(bag))
	span := source.Span{Start: 1, End: 2}
	for range 2 {
		ReportWarning(r, ExcDocumentedNotCaught, span, "msg").WithProperty(PropExceptionType, "A").Emit()
	}
	ReportWarning(r, ExcDocumentedNotCaught, span, "msg").WithProperty(PropExceptionType, "B").Emit()
	if bag.Len() != 2 {
		t.Fatalf("bag len = %d, want 2", bag.Len())
	}
}

func TestReportBuilderEmitsOnce(t *testing.T) {
	var got []Diagnostic
	r := ReporterFunc(func(d Diagnostic) { got = append(got, d) })
	b := ReportWarning(r, ExcConfigMissing, source.NoSpan, "missing").WithProperty(PropExceptionType, "")
	b.Emit()
	b.Emit()
	if len(got) != 1 || got[0].Severity != SevWarning || got[0].Located() {
		t.Fatalf("unexpected reports %+v", got)
	}
	if typ, ok := got[0].Properties[PropExceptionType]; !ok || typ != "" {
		t.Fatalf("exceptionType must be present and empty")
	}
	if _, ok := got[0].Property(PropExceptionType); ok {
		t.Fatalf("Property must treat an empty value as missing")
	}
}

func TestCodes(t *testing.T) {
	if ExcDocumentedNotCaught.ID() != "EXC5001" {
		t.Fatalf("id = %s", ExcDocumentedNotCaught.ID())
	}
	if ExcDocumentedNotCaught.RuleID() != "ExceptionAnalyzer_DocumentedExceptionNotCaught" {
		t.Fatalf("rule = %s", ExcDocumentedNotCaught.RuleID())
	}
	if c, ok := ParseCode("exc5000"); !ok || c != ExcConfigMissing {
		t.Fatalf("ParseCode = %v %v", c, ok)
	}
	if _, ok := ParseCode("EXC9999"); ok {
		t.Fatalf("unknown code parsed")
	}
}

func TestParseSeverity(t *testing.T) {
	if s, err := ParseSeverity("Error"); err != nil || s != SevError {
		t.Fatalf("ParseSeverity = %v %v", s, err)
	}
	if _, err := ParseSeverity("loud"); err == nil {
		t.Fatalf("expected error")
	}
}
