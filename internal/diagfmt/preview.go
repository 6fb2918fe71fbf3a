package diagfmt

import (
	"bytes"
	"fmt"
	"io"
)

// writePreview prints the hunks of a unified diff under a "preview:"
// header. File headers are dropped: the diagnostic already names the file.
func writePreview(w io.Writer, diff []byte, p palette) {
	fmt.Fprintf(w, "  %s\n", p.fix.Sprint("preview:"))
	for line := range bytes.Lines(diff) {
		line = bytes.TrimRight(line, "\n")
		switch {
		case bytes.HasPrefix(line, []byte("--- ")), bytes.HasPrefix(line, []byte("+++ ")):
			continue
		case bytes.HasPrefix(line, []byte("@@")):
			fmt.Fprintf(w, "    %s\n", p.hunk.Sprint(string(line)))
		case bytes.HasPrefix(line, []byte("+")):
			fmt.Fprintf(w, "    %s\n", p.add.Sprint(string(line)))
		case bytes.HasPrefix(line, []byte("-")):
			fmt.Fprintf(w, "    %s\n", p.del.Sprint(string(line)))
		default:
			fmt.Fprintf(w, "    %s\n", line)
		}
	}
}
