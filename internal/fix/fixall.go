package fix

import (
	"context"
	"errors"
	"strconv"

	"excheck/internal/ast"
	"excheck/internal/diag"
	"excheck/internal/trace"
)

// Applied records a diagnostic that produced an edit.
type Applied struct {
	Diagnostic diag.Diagnostic
	Op         EditOperation
}

// Skipped records a diagnostic that produced no edit and why.
type Skipped struct {
	Diagnostic diag.Diagnostic
	Reason     string
	Err        error
}

// Report lists the outcome of every diagnostic passed to FixAll, in input
// order within each list.
type Report struct {
	Applied []Applied
	Skipped []Skipped
}

// Changed reports whether at least one edit was applied.
func (r Report) Changed() bool { return len(r.Applied) > 0 }

// FixAll applies the fixes of ds one after another. Every diagnostic span is
// moved through the insertions of the earlier edits and resolved again
// against the latest snapshot; diagnostics that no longer resolve or that
// decline are skipped. The error is returned only on cancellation, together
// with the input tree.
func FixAll(ctx context.Context, tree *ast.Tree, ds []diag.Diagnostic, opts Options) (*ast.Tree, Report, error) {
	var report Report
	tracer := trace.FromContext(ctx)
	_, span := trace.Start(ctx, trace.ScopeFile, "fix-all")

	cur := tree
	var history []insertion
	for _, d := range ds {
		if err := ctx.Err(); err != nil {
			span.End(err.Error())
			return tree, Report{}, err
		}
		if !d.Located() {
			report.Skipped = append(report.Skipped, Skipped{Diagnostic: d, Reason: "diagnostic has no location", Err: ErrNotFixable})
			continue
		}
		next, op, ins, err := apply(ctx, cur, remap(d.Primary, history), d, opts)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				span.End(err.Error())
				return tree, Report{}, err
			}
			report.Skipped = append(report.Skipped, Skipped{Diagnostic: d, Reason: skipReason(err), Err: err})
			continue
		}
		cur = next
		history = append(history, ins...)
		report.Applied = append(report.Applied, Applied{Diagnostic: d, Op: op})
		trace.Point(tracer, trace.ScopeNode, op.Kind.String(), op.ExceptionType, span.ID())
	}

	span.WithExtra("applied", strconv.Itoa(len(report.Applied))).
		WithExtra("skipped", strconv.Itoa(len(report.Skipped))).
		End("")
	return cur, report, nil
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, ErrNotFixable):
		return "diagnostic has no exception type"
	case errors.Is(err, ErrStaleSpan):
		return "call site no longer resolves"
	case errors.Is(err, ErrNoStatement):
		return "call site is not inside a statement"
	default:
		return err.Error()
	}
}
