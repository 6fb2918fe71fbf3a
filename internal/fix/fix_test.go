package fix

import (
	"context"
	"errors"
	"strings"
	"testing"

	"excheck/internal/ast"
	"excheck/internal/check"
	"excheck/internal/config"
	"excheck/internal/diag"
	"excheck/internal/source"
	"excheck/internal/testkit"
	"excheck/internal/types"
)

type fixture struct {
	analyzer *check.Analyzer
}

func newFixture(docs map[string]string) fixture {
	u := types.Builtin()
	u.Add("Foo.Bar", "System.Exception")
	u.Link()
	b := &testkit.MapBinder{Docs: docs, Universe: u}
	return fixture{analyzer: check.NewAnalyzer(b, u, config.Loaded(config.Default()))}
}

func (f fixture) analyze(t *testing.T, tree *ast.Tree) []diag.Diagnostic {
	t.Helper()
	ds, err := f.analyzer.Analyze(context.Background(), tree)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	return ds
}

var defaultOpts = Options{}

func TestFixWrapsStatementInTry(t *testing.T) {
	s := testkit.NewSnippet()
	tree := s.Document(s.Method("M", s.Block(1, s.Stmt(s.Call("Foo")))))
	f := newFixture(map[string]string{"Foo": testkit.DocFor("Foo", "Foo.Bar")})
	before := string(tree.Text())

	ds := f.analyze(t, tree)
	if len(ds) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(ds))
	}
	out, err := Fix(context.Background(), tree, ds[0], defaultOpts)
	if err != nil {
		t.Fatalf("fix: %v", err)
	}

	want := "class C\n{\n    void M()\n    {\n" +
		"        try\n" +
		"        {\n" +
		"            Foo();\n" +
		"        }\n" +
		"        catch (Foo.Bar)\n" +
		"        {\n" +
		"        }\n" +
		"    }\n}\n"
	if got := string(out.Text()); got != want {
		t.Fatalf("unexpected text:\nwant:\n%s\ngot:\n%s", want, got)
	}
	if got := tree.NodeText(tree.Root); got != before {
		t.Fatalf("input tree was modified:\n%s", got)
	}
	if err := testkit.CheckTreeInvariants(out, out.Text()); err != nil {
		t.Fatalf("invariants: %v", err)
	}
	if again := f.analyze(t, out); len(again) != 0 {
		t.Fatalf("expected no diagnostics after fix, got %v", again)
	}
}

func TestFixWrapsEmbeddedStatementInBlock(t *testing.T) {
	s := testkit.NewSnippet()
	ifStmt := s.B.Branch(ast.KindStatement, "",
		s.Tok("if"), s.WS(" "), s.Tok("("), s.Ident("a"), s.Tok(")"), s.WS(" "), s.Stmt(s.Call("Foo")))
	tree := s.Document(s.Method("M", s.Block(1, ifStmt)))
	f := newFixture(map[string]string{"Foo": testkit.DocFor("Foo", "Foo.Bar", "System.IO.IOException")})

	ds := f.analyze(t, tree)
	if len(ds) != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", len(ds))
	}
	out, _, err := FixAll(context.Background(), tree, ds, defaultOpts)
	if err != nil {
		t.Fatalf("fix all: %v", err)
	}

	want := "        if (a) {\n" +
		"            try\n" +
		"            {\n" +
		"                Foo();\n" +
		"            }\n" +
		"            catch (Foo.Bar)\n" +
		"            {\n" +
		"            }\n" +
		"            catch (System.IO.IOException)\n" +
		"            {\n" +
		"            }\n" +
		"        }\n" +
		"    }"
	if got := string(out.Text()); !strings.Contains(got, want) {
		t.Fatalf("unexpected text:\nwant:\n%s\ngot:\n%s", want, got)
	}
	if err := testkit.CheckTreeInvariants(out, out.Text()); err != nil {
		t.Fatalf("invariants: %v", err)
	}
	if again := f.analyze(t, out); len(again) != 0 {
		t.Fatalf("expected no diagnostics after fix, got %v", again)
	}
}

func TestFixAppendsCatchAfterLastClause(t *testing.T) {
	s := testkit.NewSnippet()
	stmt := s.Stmt(s.Call("Foo"))
	try := s.Try(2, s.Block(2, stmt), s.Catch(2, "ArgumentNullException"))
	tree := s.Document(s.Method("M", s.Block(1, try)))
	f := newFixture(map[string]string{"Foo": testkit.DocFor("Foo", "System.ArgumentException")})

	ds := f.analyze(t, tree)
	if len(ds) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(ds))
	}
	out, err := Fix(context.Background(), tree, ds[0], defaultOpts)
	if err != nil {
		t.Fatalf("fix: %v", err)
	}
	want := "        try\n" +
		"        {\n" +
		"            Foo();\n" +
		"        }\n" +
		"        catch (ArgumentNullException)\n" +
		"        {\n" +
		"        }\n" +
		"        catch (System.ArgumentException)\n" +
		"        {\n" +
		"        }\n" +
		"    }"
	if got := string(out.Text()); !strings.Contains(got, want) {
		t.Fatalf("appended catch not found:\n%s", got)
	}
	if again := f.analyze(t, out); len(again) != 0 {
		t.Fatalf("expected no diagnostics after fix, got %v", again)
	}
}

func TestFixAppendsBeforeFinally(t *testing.T) {
	s := testkit.NewSnippet()
	stmt := s.Stmt(s.Call("Foo"))
	try := s.Try(2, s.Block(2, stmt), s.Finally(2))
	tree := s.Document(s.Method("M", s.Block(1, try)))
	f := newFixture(map[string]string{"Foo": testkit.DocFor("Foo", "Foo.Bar")})

	ds := f.analyze(t, tree)
	out, err := Fix(context.Background(), tree, ds[0], defaultOpts)
	if err != nil {
		t.Fatalf("fix: %v", err)
	}
	text := string(out.Text())
	catchAt := strings.Index(text, "catch (Foo.Bar)")
	finallyAt := strings.Index(text, "finally")
	if catchAt < 0 || finallyAt < 0 || catchAt > finallyAt {
		t.Fatalf("catch must precede finally:\n%s", text)
	}
	var kinds []ast.Kind
	for _, c := range out.Significant(outTry(t, out)) {
		kinds = append(kinds, out.Node(c).Kind)
	}
	want := []ast.Kind{ast.KindToken, ast.KindBlock, ast.KindCatch, ast.KindFinally}
	if len(kinds) != len(want) {
		t.Fatalf("try children = %v", kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("try children = %v, want %v", kinds, want)
		}
	}
}

func outTry(t *testing.T, tree *ast.Tree) ast.NodeID {
	t.Helper()
	var found ast.NodeID
	tree.Walk(func(id ast.NodeID, n ast.Node) bool {
		if n.Kind == ast.KindTry && !found.IsValid() {
			found = id
		}
		return !found.IsValid()
	})
	if !found.IsValid() {
		t.Fatalf("no try in tree")
	}
	return found
}

func TestFixKeepsUntouchedBytes(t *testing.T) {
	s := testkit.NewSnippet()
	target := s.Stmt(s.Call("Foo"))
	tree := s.Document(s.Method("M", s.Block(1, s.Stmt(s.Call("Quiet")), target, s.Stmt(s.Call("Quiet")))))
	f := newFixture(map[string]string{
		"Foo":   testkit.DocFor("Foo", "Foo.Bar"),
		"Quiet": testkit.DocFor("Quiet"),
	})
	ds := f.analyze(t, tree)
	if len(ds) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(ds))
	}
	out, err := Fix(context.Background(), tree, ds[0], defaultOpts)
	if err != nil {
		t.Fatalf("fix: %v", err)
	}
	sp, _ := tree.Span(target)
	in, got := string(tree.Text()), string(out.Text())
	if !strings.HasPrefix(got, in[:sp.Start]) {
		t.Fatalf("bytes before the statement changed")
	}
	if !strings.HasSuffix(got, in[sp.End:]) {
		t.Fatalf("bytes after the statement changed")
	}
	if !out.Contains(target) {
		t.Fatalf("original statement node must be shared by the new snapshot")
	}
}

func TestFixDeclines(t *testing.T) {
	s := testkit.NewSnippet()
	tree := s.Document(s.Method("M", s.Block(1, s.Stmt(s.Call("Foo")))))
	var call ast.NodeID
	tree.Walk(func(id ast.NodeID, n ast.Node) bool {
		if n.Kind == ast.KindInvocation {
			call = id
		}
		return true
	})
	sp, _ := tree.Span(call)

	tests := []struct {
		name string
		d    diag.Diagnostic
		want error
	}{
		{
			name: "missing property",
			d:    diag.Diagnostic{Code: diag.ExcDocumentedNotCaught, Primary: sp},
			want: ErrNotFixable,
		},
		{
			name: "empty property",
			d: diag.Diagnostic{Code: diag.ExcConfigMissing, Primary: source.NoSpan,
				Properties: map[string]string{diag.PropExceptionType: ""}},
			want: ErrNotFixable,
		},
		{
			name: "stale span",
			d: diag.Diagnostic{Code: diag.ExcDocumentedNotCaught, Primary: source.Span{Start: 0, End: 3},
				Properties: map[string]string{diag.PropExceptionType: "Foo.Bar"}},
			want: ErrStaleSpan,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Fix(context.Background(), tree, tt.d, defaultOpts)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if out != tree {
				t.Fatalf("declined fix must return the input tree")
			}
		})
	}
}

func TestFixOutsideStatement(t *testing.T) {
	s := testkit.NewSnippet()
	call := s.Call("Foo")
	field := s.B.Branch(ast.KindExpr, "", s.Ident("x"), s.WS(" "), s.Tok("="), s.WS(" "), call, s.Tok(";"))
	class := s.B.Branch(ast.KindClass, "C", s.Tok("class"), s.WS(" "), s.Ident("C"), s.Tok("{"), field, s.Tok("}"))
	tree := s.B.Tree(source.FileID(0), s.B.Branch(ast.KindDocument, "", class))
	sp, _ := tree.Span(call)
	d := diag.Diagnostic{Code: diag.ExcDocumentedNotCaught, Primary: sp,
		Properties: map[string]string{diag.PropExceptionType: "Foo.Bar"}}

	if _, err := Fix(context.Background(), tree, d, defaultOpts); !errors.Is(err, ErrNoStatement) {
		t.Fatalf("err = %v, want ErrNoStatement", err)
	}
}

func TestFixAllAppendsOneClausePerDiagnostic(t *testing.T) {
	s := testkit.NewSnippet()
	try := s.Try(2,
		s.Block(2, s.Stmt(s.Call("Foo")), s.Stmt(s.Call("Baz"))),
		s.Catch(2, "System.InvalidOperationException"))
	tree := s.Document(s.Method("M", s.Block(1, try)))
	f := newFixture(map[string]string{
		"Foo": testkit.DocFor("Foo", "System.ArgumentException"),
		"Baz": testkit.DocFor("Baz", "System.ArgumentException"),
	})
	ds := f.analyze(t, tree)
	if len(ds) != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", len(ds))
	}

	out, report, err := FixAll(context.Background(), tree, ds, defaultOpts)
	if err != nil {
		t.Fatalf("fix all: %v", err)
	}
	if len(report.Applied) != 2 || len(report.Skipped) != 0 {
		t.Fatalf("applied %d, skipped %v", len(report.Applied), report.Skipped)
	}
	text := string(out.Text())
	if n := strings.Count(text, "catch (System.ArgumentException)"); n != 2 {
		t.Fatalf("want 2 appended clauses, got %d:\n%s", n, text)
	}
	if strings.Index(text, "catch (System.InvalidOperationException)") > strings.Index(text, "catch (System.ArgumentException)") {
		t.Fatalf("existing clause must stay first:\n%s", text)
	}

	// повторный Fix по тому же месту тоже добавляет clause
	again, err := Fix(context.Background(), out, ds[0], defaultOpts)
	if err != nil {
		t.Fatalf("fix: %v", err)
	}
	if n := strings.Count(string(again.Text()), "catch (System.ArgumentException)"); n != 3 {
		t.Fatalf("want 3 clauses after another fix, got %d", n)
	}
}

func TestFixAllOneCallSeveralTypes(t *testing.T) {
	s := testkit.NewSnippet()
	tree := s.Document(s.Method("M", s.Block(1, s.Stmt(s.Call("Foo")))))
	f := newFixture(map[string]string{
		"Foo": testkit.DocFor("Foo", "Foo.Bar", "System.InvalidOperationException", "System.IO.IOException"),
	})
	ds := f.analyze(t, tree)
	if len(ds) != 3 {
		t.Fatalf("expected 3 diagnostics, got %d", len(ds))
	}

	out, report, err := FixAll(context.Background(), tree, ds, defaultOpts)
	if err != nil {
		t.Fatalf("fix all: %v", err)
	}
	if len(report.Applied) != 3 || len(report.Skipped) != 0 {
		t.Fatalf("applied %d, skipped %v", len(report.Applied), report.Skipped)
	}
	if report.Applied[0].Op.Kind != EditWrapInTry || report.Applied[1].Op.Kind != EditAppendCatch {
		t.Fatalf("unexpected edit kinds: %v, %v", report.Applied[0].Op.Kind, report.Applied[1].Op.Kind)
	}

	text := string(out.Text())
	order := []string{"catch (Foo.Bar)", "catch (System.InvalidOperationException)", "catch (System.IO.IOException)"}
	last := -1
	for _, c := range order {
		at := strings.Index(text, c)
		if at <= last {
			t.Fatalf("catch clauses out of order:\n%s", text)
		}
		last = at
	}
	if strings.Count(text, "try") != 1 {
		t.Fatalf("expected a single try:\n%s", text)
	}
	if again := f.analyze(t, out); len(again) != 0 {
		t.Fatalf("expected no diagnostics after fix all, got %d", len(again))
	}
}

func TestFixAllSeveralCallSites(t *testing.T) {
	s := testkit.NewSnippet()
	tree := s.Document(s.Method("M", s.Block(1,
		s.Stmt(s.Call("Foo")),
		s.Stmt(s.Call("Bar")),
	)))
	f := newFixture(map[string]string{
		"Foo": testkit.DocFor("Foo", "Foo.Bar"),
		"Bar": testkit.DocFor("Bar", "System.InvalidOperationException"),
	})
	ds := f.analyze(t, tree)
	if len(ds) != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", len(ds))
	}

	out, report, err := FixAll(context.Background(), tree, ds, defaultOpts)
	if err != nil {
		t.Fatalf("fix all: %v", err)
	}
	if len(report.Applied) != 2 {
		t.Fatalf("applied %d, skipped %v", len(report.Applied), report.Skipped)
	}
	text := string(out.Text())
	if strings.Count(text, "try\n") != 2 {
		t.Fatalf("expected two try statements:\n%s", text)
	}
	if strings.Index(text, "Foo();") > strings.Index(text, "Bar();") {
		t.Fatalf("statement order changed:\n%s", text)
	}
	if again := f.analyze(t, out); len(again) != 0 {
		t.Fatalf("expected no diagnostics after fix all, got %d", len(again))
	}
}

func TestFixAllSkipsAndContinues(t *testing.T) {
	s := testkit.NewSnippet()
	tree := s.Document(s.Method("M", s.Block(1, s.Stmt(s.Call("Foo")))))
	f := newFixture(map[string]string{"Foo": testkit.DocFor("Foo", "Foo.Bar")})
	ds := f.analyze(t, tree)

	stale := diag.Diagnostic{Code: diag.ExcDocumentedNotCaught, Primary: source.Span{Start: 1, End: 2},
		Properties: map[string]string{diag.PropExceptionType: "Foo.Bar"}}
	noType := diag.Diagnostic{Code: diag.ExcDocumentedNotCaught, Primary: ds[0].Primary}
	input := []diag.Diagnostic{stale, noType, ds[0]}

	out, report, err := FixAll(context.Background(), tree, input, defaultOpts)
	if err != nil {
		t.Fatalf("fix all: %v", err)
	}
	if len(report.Applied) != 1 || len(report.Skipped) != 2 {
		t.Fatalf("applied %d skipped %d", len(report.Applied), len(report.Skipped))
	}
	if !errors.Is(report.Skipped[0].Err, ErrStaleSpan) || !errors.Is(report.Skipped[1].Err, ErrNotFixable) {
		t.Fatalf("unexpected skip errors: %v, %v", report.Skipped[0].Err, report.Skipped[1].Err)
	}
	if report.Skipped[0].Reason == "" {
		t.Fatalf("skip must carry a reason")
	}
	if !strings.Contains(string(out.Text()), "catch (Foo.Bar)") {
		t.Fatalf("valid diagnostic was not fixed")
	}
}

func TestFixAllCancelled(t *testing.T) {
	s := testkit.NewSnippet()
	tree := s.Document(s.Method("M", s.Block(1, s.Stmt(s.Call("Foo")))))
	f := newFixture(map[string]string{"Foo": testkit.DocFor("Foo", "Foo.Bar")})
	ds := f.analyze(t, tree)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, report, err := FixAll(ctx, tree, ds, defaultOpts)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if out != tree || report.Changed() {
		t.Fatalf("cancelled fix all must return the input tree")
	}
}

func TestRemap(t *testing.T) {
	tests := []struct {
		name    string
		span    source.Span
		history []insertion
		want    source.Span
	}{
		{name: "after span", span: source.Span{Start: 2, End: 5}, history: []insertion{{at: 9, n: 4}}, want: source.Span{Start: 2, End: 5}},
		{name: "before span", span: source.Span{Start: 2, End: 5}, history: []insertion{{at: 1, n: 4}}, want: source.Span{Start: 6, End: 9}},
		{name: "at start", span: source.Span{Start: 2, End: 5}, history: []insertion{{at: 2, n: 4}}, want: source.Span{Start: 6, End: 9}},
		{name: "inside", span: source.Span{Start: 2, End: 5}, history: []insertion{{at: 3, n: 4}}, want: source.Span{Start: 2, End: 9}},
		{name: "at end", span: source.Span{Start: 2, End: 5}, history: []insertion{{at: 5, n: 4}}, want: source.Span{Start: 2, End: 5}},
		{
			name: "wrap around", span: source.Span{Start: 2, End: 5},
			history: []insertion{{at: 2, n: 10}, {at: 15, n: 7}}, want: source.Span{Start: 12, End: 15},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := remap(tt.span, tt.history); got != tt.want {
				t.Fatalf("remap = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFixWithTabs(t *testing.T) {
	s := testkit.NewSnippet()
	tree := s.Document(s.Method("M", s.Block(1, s.Stmt(s.Call("Foo")))))
	f := newFixture(map[string]string{"Foo": testkit.DocFor("Foo", "Foo.Bar")})
	ds := f.analyze(t, tree)

	cfg := config.Default()
	cfg.Fix.UseTabs = true
	out, err := Fix(context.Background(), tree, ds[0], OptionsFromConfig(cfg))
	if err != nil {
		t.Fatalf("fix: %v", err)
	}
	if !strings.Contains(string(out.Text()), "        {\n        \tFoo();\n") {
		t.Fatalf("tab indentation not used:\n%s", out.Text())
	}
}
