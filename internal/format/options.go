package format

import "strings"

type Options struct {
	IndentWidth int
	UseTabs     bool
}

func (o Options) withDefaults() Options {
	if o.IndentWidth <= 0 {
		o.IndentWidth = 4
	}
	return o
}

// Unit returns one level of indentation.
func (o Options) Unit() string {
	o = o.withDefaults()
	if o.UseTabs {
		return "\t"
	}
	return strings.Repeat(" ", o.IndentWidth)
}

// LineIndent returns the leading spaces and tabs of the line holding off.
func LineIndent(text []byte, off uint32) string {
	if int(off) > len(text) {
		off = uint32(len(text))
	}
	start := int(off)
	for start > 0 && text[start-1] != '\n' {
		start--
	}
	end := start
	for end < len(text) && (text[end] == ' ' || text[end] == '\t') {
		end++
	}
	return string(text[start:end])
}

// StartsLine reports whether only spaces and tabs precede off on its line.
func StartsLine(text []byte, off uint32) bool {
	i := min(int(off), len(text))
	for i > 0 && (text[i-1] == ' ' || text[i-1] == '\t') {
		i--
	}
	return i == 0 || text[i-1] == '\n'
}
