package fix

import (
	"bytes"
	"fmt"
	"strings"

	"fortio.org/safecast"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/sourcegraph/go-diff/diff"
)

// diffContext is the number of unchanged lines kept around each change.
const diffContext = 3

// Unified renders the change from before to after as a unified diff with
// a/ and b/ prefixed names. Equal inputs give nil.
func Unified(path string, before, after []byte) ([]byte, error) {
	if bytes.Equal(before, after) {
		return nil, nil
	}
	a, b := splitLines(before), splitLines(after)
	// без autojunk: в длинных файлах строки "}" иначе считаются мусором
	m := difflib.NewMatcherWithJunk(a, b, false, nil)
	groups := m.GetGroupedOpCodes(diffContext)
	hunks := make([]*diff.Hunk, 0, len(groups))
	for _, g := range groups {
		h, err := buildHunk(a, b, g)
		if err != nil {
			return nil, fmt.Errorf("diff %s: %w", path, err)
		}
		hunks = append(hunks, h)
	}
	fd := &diff.FileDiff{
		OrigName: "a/" + path,
		NewName:  "b/" + path,
		Hunks:    hunks,
	}
	return diff.PrintFileDiff(fd)
}

// splitLines splits text after each "\n". The last line keeps its missing
// newline so that the diff can mark it.
func splitLines(text []byte) []string {
	if len(text) == 0 {
		return nil
	}
	lines := strings.SplitAfter(string(text), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// buildHunk turns one group of opcodes into a hunk. A line without "\n" can
// only be the last one of its side: on the old side the newline is added
// to the body and recorded in OrigNoNewlineAt, on the new side the body is
// left unterminated and the printer adds the marker.
func buildHunk(a, b []string, group []difflib.OpCode) (*diff.Hunk, error) {
	h := &diff.Hunk{}
	var body bytes.Buffer
	line := func(prefix byte, text string, orig bool) {
		body.WriteByte(prefix)
		body.WriteString(text)
		if strings.HasSuffix(text, "\n") {
			return
		}
		if orig {
			body.WriteByte('\n')
			h.OrigNoNewlineAt = int32(body.Len())
		}
	}
	for _, op := range group {
		switch op.Tag {
		case 'e':
			for _, s := range a[op.I1:op.I2] {
				// совпадающая строка без \n бывает только в самом конце
				line(' ', s, false)
			}
		case 'r', 'd', 'i':
			for _, s := range a[op.I1:op.I2] {
				line('-', s, true)
			}
			for _, s := range b[op.J1:op.J2] {
				line('+', s, false)
			}
		}
	}
	h.Body = body.Bytes()

	first, last := group[0], group[len(group)-1]
	return setRanges(h, first.I1, last.I2-first.I1, first.J1, last.J2-first.J1)
}

// setRanges fills the header. A range with no lines starts at the line
// before it.
func setRanges(h *diff.Hunk, origBefore, origLines, newBefore, newLines int) (*diff.Hunk, error) {
	origStart, newStart := origBefore, newBefore
	if origLines > 0 {
		origStart++
	}
	if newLines > 0 {
		newStart++
	}
	var err error
	if h.OrigStartLine, err = safecast.Conv[int32](origStart); err != nil {
		return nil, err
	}
	if h.OrigLines, err = safecast.Conv[int32](origLines); err != nil {
		return nil, err
	}
	if h.NewStartLine, err = safecast.Conv[int32](newStart); err != nil {
		return nil, err
	}
	if h.NewLines, err = safecast.Conv[int32](newLines); err != nil {
		return nil, err
	}
	return h, nil
}
