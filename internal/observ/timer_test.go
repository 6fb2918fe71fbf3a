package observ

import (
	"errors"
	"strings"
	"testing"
)

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	idx := tm.Begin("parse")
	tm.End(idx, "files=2")
	err := tm.Measure("bind", func() (string, error) { return "", errors.New("boom") })
	if err == nil || err.Error() != "boom" {
		t.Fatalf("Measure must return fn's error, got %v", err)
	}
	tm.End(42, "ignored")

	r := tm.Report()
	if len(r.Phases) != 2 {
		t.Fatalf("expected 2 phases, got %d", len(r.Phases))
	}
	if r.Phases[0].Name != "parse" || r.Phases[0].Note != "files=2" {
		t.Fatalf("unexpected phase %+v", r.Phases[0])
	}
	if r.Phases[1].Note != "boom" {
		t.Fatalf("error must become the note, got %q", r.Phases[1].Note)
	}
	s := r.Summary()
	for _, want := range []string{"timings:", "parse", "// files=2", "total"} {
		if !strings.Contains(s, want) {
			t.Fatalf("summary misses %q:\n%s", want, s)
		}
	}
}

func TestNilTimer(t *testing.T) {
	var tm *Timer
	tm.End(tm.Begin("x"), "")
	if err := tm.Measure("y", func() (string, error) { return "", nil }); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if r := tm.Report(); len(r.Phases) != 0 {
		t.Fatalf("nil timer must report nothing")
	}
}
