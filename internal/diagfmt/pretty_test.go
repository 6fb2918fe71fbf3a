package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"excheck/internal/diag"
	"excheck/internal/source"
)

const classSource = "class C\n{\n    void M()\n    {\n        Foo();\n    }\n}\n"

// uncaught builds the EXC5001 for the Foo() call of classSource.
func uncaught(file source.FileID) diag.Diagnostic {
	return diag.New(diag.SevWarning, diag.ExcDocumentedNotCaught,
		source.Span{File: file, Start: 37, End: 42},
		`"Foo()" may throw Foo.Bar, which is not caught`).
		WithProperty(diag.PropExceptionType, "Foo.Bar").
		WithProperty(diag.PropCallSite, "Foo()")
}

func TestPrettyExact(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.cs", []byte(classSource))
	bag := diag.NewBag(4)
	bag.Add(uncaught(id))

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeBasename, ShowFixes: true})

	want := "test.cs:5:9: WARNING EXC5001: \"Foo()\" may throw Foo.Bar, which is not caught\n" +
		"5 |         Foo();\n" +
		"  |         ^~~~~\n" +
		"  fix: catch Foo.Bar (id=EXC5001-0-37-Foo.Bar)\n"
	if buf.String() != want {
		t.Fatalf("output mismatch:\nwant:\n%s\ngot:\n%s", want, buf.String())
	}
}

func TestPrettyContextAndTabs(t *testing.T) {
	fs := source.NewFileSet()
	src := strings.ReplaceAll(classSource, "        Foo();", "\t\tFoo();")
	id := fs.AddVirtual("tabs.cs", []byte(src))
	start := uint32(strings.Index(src, "Foo"))
	d := uncaught(id)
	d.Primary = source.Span{File: id, Start: start, End: start + 5}
	bag := diag.NewBag(4)
	bag.Add(d)

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{Context: 1, PathMode: PathModeBasename})
	out := buf.String()
	for _, want := range []string{
		"tabs.cs:5:3:",
		"4 |     {\n",
		"5 |         Foo();\n",
		"  |         ^~~~~\n",
		"6 |     }\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output misses %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "fix:") {
		t.Fatalf("fixes are hidden unless requested:\n%s", out)
	}
}

func TestPrettyLocationless(t *testing.T) {
	fs := source.NewFileSet()
	bag := diag.NewBag(4)
	bag.Add(diag.New(diag.SevWarning, diag.ExcConfigMissing, source.NoSpan, "configuration missing").
		WithProperty(diag.PropExceptionType, ""))

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{ShowFixes: true, ShowNotes: true})
	if got := buf.String(); got != "excheck: WARNING EXC5000: configuration missing\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

// TestPathModes проверяет различные режимы форматирования путей
func TestPathModes(t *testing.T) {
	fs := source.NewFileSetWithBase("/home/user/project")
	fileID := fs.AddVirtual("/home/user/project/src/test.cs", []byte(classSource))
	bag := diag.NewBag(10)
	bag.Add(uncaught(fileID))

	tests := []struct {
		name     string
		mode     PathMode
		contains string
	}{
		{name: "Absolute path", mode: PathModeAbsolute, contains: "/home/user/project/src/test.cs:5:9"},
		{name: "Relative path", mode: PathModeRelative, contains: "src/test.cs:5:9"},
		{name: "Basename only", mode: PathModeBasename, contains: "test.cs:5:9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Pretty(&buf, bag, fs, PrettyOpts{PathMode: tt.mode})
			output := buf.String()
			if !strings.HasPrefix(output, tt.contains) {
				t.Errorf("Expected output to start with %q, got:\n%s", tt.contains, output)
			}
		})
	}
}

func TestPrettyNotesAndPreview(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.cs", []byte(classSource))
	d := uncaught(id).WithNote(source.Span{File: id, Start: 14, End: 22}, "called from here")
	bag := diag.NewBag(4)
	bag.Add(d)

	preview := func(diag.Diagnostic) []byte {
		return []byte("--- a/test.cs\n+++ b/test.cs\n@@ -5,1 +5,7 @@\n-        Foo();\n+        try\n")
	}
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{
		PathMode:    PathModeBasename,
		ShowNotes:   true,
		ShowPreview: true,
		Preview:     preview,
	})
	out := buf.String()
	for _, want := range []string{
		"  note: test.cs:3:5: called from here\n",
		"  preview:\n",
		"    @@ -5,1 +5,7 @@\n",
		"    -        Foo();\n",
		"    +        try\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output misses %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "+++ b/test.cs") {
		t.Fatalf("file headers must be dropped from the preview:\n%s", out)
	}
}

func TestPrettyWidthTruncates(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.cs", []byte(classSource))
	bag := diag.NewBag(4)
	bag.Add(uncaught(id))

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeBasename, Width: 10})
	if !strings.Contains(buf.String(), "5 |        ...\n") {
		t.Fatalf("expected a truncated source line:\n%s", buf.String())
	}
}

func TestShort(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.cs", []byte(classSource))
	bag := diag.NewBag(4)
	bag.Add(uncaught(id))

	var buf bytes.Buffer
	if err := Short(&buf, bag, fs, false); err != nil {
		t.Fatalf("short: %v", err)
	}
	want := "warning EXC5001 test.cs:5:9 \"Foo()\" may throw Foo.Bar, which is not caught\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}
