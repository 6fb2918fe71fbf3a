package diagfmt

import (
	"io"

	"excheck/internal/diag"
	"excheck/internal/source"
)

// Short prints one line per diagnostic: "<sev> <code> <path>:<line>:<col> <msg>".
func Short(w io.Writer, bag *diag.Bag, fs *source.FileSet, includeNotes bool) error {
	out := diag.FormatShortDiagnostics(bag.Items(), fs, includeNotes)
	if out == "" {
		return nil
	}
	_, err := io.WriteString(w, out+"\n")
	return err
}
