package diag

import (
	"maps"

	"excheck/internal/source"
)

// Property keys shared by the checker and the fix engine.
const (
	PropExceptionType = "exceptionType"
	PropCallSite      = "callSite"
)

type Note struct {
	Span source.Span
	Msg  string
}

type Diagnostic struct {
	Severity   Severity
	Code       Code
	Message    string
	Primary    source.Span
	Notes      []Note
	Properties map[string]string
}

// Property returns a non-empty property value.
func (d Diagnostic) Property(key string) (string, bool) {
	v, ok := d.Properties[key]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Located reports whether the diagnostic points into a file.
func (d Diagnostic) Located() bool {
	return d.Primary.IsValid()
}

// Clone returns a copy that shares nothing mutable with d.
func (d Diagnostic) Clone() Diagnostic {
	if d.Notes != nil {
		d.Notes = append([]Note(nil), d.Notes...)
	}
	if d.Properties != nil {
		d.Properties = maps.Clone(d.Properties)
	}
	return d
}
