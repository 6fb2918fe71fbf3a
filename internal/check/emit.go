package check

import (
	"fmt"

	"excheck/internal/diag"
	"excheck/internal/source"
)

// emitUncaught reports one documented-but-not-caught exception.
func emitUncaught(r diag.Reporter, sev diag.Severity, span source.Span, callSite, exceptionType string) {
	msg := fmt.Sprintf("\"%s\" may throw %s, which is not caught", callSite, exceptionType)
	diag.NewReportBuilder(r, sev, diag.ExcDocumentedNotCaught, span, msg).
		WithProperty(diag.PropExceptionType, exceptionType).
		WithProperty(diag.PropCallSite, callSite).
		Emit()
}

// emitConfigMissing reports the location-less configuration failure.
func emitConfigMissing(r diag.Reporter, cause error) {
	msg := "configuration file could not be found or has the wrong structure"
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	diag.ReportWarning(r, diag.ExcConfigMissing, source.NoSpan, msg).
		WithProperty(diag.PropExceptionType, "").
		Emit()
}
