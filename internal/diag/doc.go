// Package diag defines the diagnostic model shared by the checker, the fix
// engine and the output formatters.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity – tri-level enum (Info, Warning, Error) defined in severity.go.
//   - Code – compact numeric identifier (see codes.go) with a stable string
//     form such as "EXC5001" and an analyzer rule id for SARIF.
//   - Message – human oriented text; keep it short and actionable.
//   - Primary span – where the issue is. Findings that belong to no file use
//     source.NoSpan and are reported once per run.
//   - Notes – optional secondary spans/messages.
//   - Properties – string key/value pairs read by fixers. The exception
//     checker always sets PropExceptionType; the fix engine declines
//     diagnostics without it.
//
// Fixes are not attached to diagnostics. internal/fix derives the edit from
// the diagnostic properties and the current tree, so a diagnostic stays valid
// data after earlier fixes have shifted the document.
//
// # Emitting diagnostics
//
// Producers use a Reporter, usually through NewReportBuilder (or
// ReportWarning) chaining WithNote/WithProperty before Emit. BagReporter
// aggregates into a Bag, which supports sorting, deduplication and
// filtering. DedupReporter keeps one report per call site and exception
// type before they reach storage.
//
// Keep the data model deterministic: the driver serialises diagnostics into
// its cache and the CLI relies on a stable order for golden output.
package diag
