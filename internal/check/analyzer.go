// Package check finds call sites whose documented exceptions are not caught
// by the nearest enclosing try statement.
package check

import (
	"cmp"
	"context"
	"runtime"
	"slices"
	"strconv"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"excheck/internal/ast"
	"excheck/internal/binder"
	"excheck/internal/config"
	"excheck/internal/diag"
	"excheck/internal/doccomment"
	"excheck/internal/trace"
	"excheck/internal/types"
)

// Analyzer checks trees against one binder, universe and configuration.
// Analyze may be called concurrently.
type Analyzer struct {
	binder   binder.Binder
	universe types.Universe
	cfg      config.Result
	severity diag.Severity
	ignore   map[string]struct{}
	jobs     int

	// configReported flips once when the configuration failed to load.
	configReported atomic.Bool
}

func NewAnalyzer(b binder.Binder, u types.Universe, cfg config.Result) *Analyzer {
	a := &Analyzer{
		binder:   b,
		universe: u,
		cfg:      cfg,
		severity: diag.SevWarning,
		ignore:   make(map[string]struct{}, len(cfg.Config.Analysis.Ignore)),
		jobs:     cfg.Config.Analysis.Jobs,
	}
	if sev, err := diag.ParseSeverity(cfg.Config.Analysis.Severity); err == nil {
		a.severity = sev
	}
	for _, name := range cfg.Config.Analysis.Ignore {
		a.ignore[name] = struct{}{}
	}
	if a.jobs <= 0 {
		a.jobs = runtime.GOMAXPROCS(0)
	}
	return a
}

// Analyze returns the diagnostics of tree ordered by call-site span, then by
// documentation order. The only error is the context's.
func (a *Analyzer) Analyze(ctx context.Context, tree *ast.Tree) ([]diag.Diagnostic, error) {
	bag := diag.NewBag(0)
	if err := a.AnalyzeInto(ctx, tree, diag.NewDedupReporter(diag.NewBagReporter(bag))); err != nil {
		return nil, err
	}
	return bag.Items(), nil
}

type siteResult struct {
	call      ast.NodeID
	start     uint32
	end       uint32
	callSite  string
	uncovered []Uncovered
}

// AnalyzeInto reports the diagnostics of tree into r.
func (a *Analyzer) AnalyzeInto(ctx context.Context, tree *ast.Tree, r diag.Reporter) error {
	if !a.cfg.OK() {
		if a.configReported.CompareAndSwap(false, true) {
			emitConfigMissing(r, a.cfg.Err)
		}
		return nil
	}
	if tree == nil {
		return nil
	}

	_, span := trace.Start(ctx, trace.ScopeFile, "analyze")

	var calls []ast.NodeID
	tree.Walk(func(id ast.NodeID, n ast.Node) bool {
		if n.Kind == ast.KindInvocation {
			calls = append(calls, id)
		}
		return !n.Kind.IsLeaf()
	})

	results := make([]siteResult, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.jobs)
	for i, call := range calls {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = a.analyzeCall(gctx, tree, call, span.ID())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.End(err.Error())
		return err
	}

	slices.SortStableFunc(results, func(x, y siteResult) int {
		return cmp.Or(cmp.Compare(x.start, y.start), cmp.Compare(x.end, y.end))
	})
	reported := 0
	for _, res := range results {
		sp, ok := tree.Span(res.call)
		if !ok {
			continue
		}
		for _, u := range res.uncovered {
			emitUncaught(r, a.severity, sp, res.callSite, u.Name)
			reported++
		}
	}
	span.WithExtra("calls", strconv.Itoa(len(calls))).
		WithExtra("diagnostics", strconv.Itoa(reported)).
		End("")
	return nil
}

func (a *Analyzer) analyzeCall(ctx context.Context, tree *ast.Tree, call ast.NodeID, parent uint64) siteResult {
	res := siteResult{call: call}
	if sp, ok := tree.Span(call); ok {
		res.start, res.end = sp.Start, sp.End
	}
	if a.binder == nil {
		return res
	}
	sym, ok := a.binder.ResolveSymbol(tree, call)
	if !ok {
		return res
	}
	raw, ok := a.binder.Documentation(sym)
	if !ok || raw == "" {
		return res
	}
	documented := doccomment.Exceptions(raw)
	if len(documented) == 0 {
		return res
	}
	documented = slices.DeleteFunc(documented, func(name string) bool {
		_, skip := a.ignore[name]
		return skip
	})

	var scope *ProtectionScope
	if try, ok := NearestTry(tree, call); ok {
		s := ResolveScope(tree, try, a.binder, a.universe)
		scope = &s
	}
	res.uncovered = Coverage(documented, scope, a.universe)
	if len(res.uncovered) > 0 {
		res.callSite = tree.NodeText(call)
		trace.Point(trace.FromContext(ctx), trace.ScopeNode, "uncaught", sym.Qualified, parent)
	}
	return res
}
