package diag

import (
	"sync"

	"excheck/internal/source"
)

// findingKey identifies a finding independently of its wording: one call
// site and one exception type are reported once per code.
type findingKey struct {
	code      Code
	span      source.Span
	exception string
}

// DedupReporter forwards the first report of each (code, primary span,
// exception type) and drops the rest.
type DedupReporter struct {
	next Reporter
	seen sync.Map // findingKey -> struct{}
}

func NewDedupReporter(next Reporter) *DedupReporter {
	return &DedupReporter{next: next}
}

func (r *DedupReporter) Report(d Diagnostic) {
	if r == nil || r.next == nil {
		return
	}
	typ, _ := d.Property(PropExceptionType)
	key := findingKey{code: d.Code, span: d.Primary, exception: typ}
	if _, dup := r.seen.LoadOrStore(key, struct{}{}); dup {
		return
	}
	r.next.Report(d)
}
