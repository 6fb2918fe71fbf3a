// Package doccomment reads structured XML documentation attached to
// declarations. Only the parts the checker consumes are extracted: the
// summary text and the exception elements.
package doccomment

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMalformed wraps every XML decoding failure.
var ErrMalformed = errors.New("malformed documentation")

// typePrefix marks a resolved type reference in a cref attribute.
const typePrefix = "T:"

// Exception is one <exception> element.
type Exception struct {
	Cref        string // raw attribute value
	Type        string // Cref without the type prefix
	Description string
}

// Doc is the parsed documentation of one member.
type Doc struct {
	Summary    string
	Exceptions []Exception
}

// Exceptions returns the exception types named by the <exception cref="...">
// elements of raw, in document order, duplicates preserved. Elements without
// a cref are ignored. Malformed documentation yields nil.
func Exceptions(raw string) []string {
	doc, err := Parse(raw)
	if err != nil || len(doc.Exceptions) == 0 {
		return nil
	}
	out := make([]string, 0, len(doc.Exceptions))
	for _, e := range doc.Exceptions {
		out = append(out, e.Type)
	}
	return out
}

// Parse decodes raw completely. A document is either fully valid or rejected;
// no partial result is returned together with an error.
func Parse(raw string) (Doc, error) {
	raw = stripDeclaration(strings.TrimSpace(raw))
	if raw == "" {
		return Doc{}, nil
	}
	// fragments such as "<summary/><exception/>" have no single root
	dec := xml.NewDecoder(strings.NewReader("<doc>" + raw + "</doc>"))

	var (
		doc       Doc
		summary   strings.Builder
		inSummary int // depth of the first <summary>, 0 when outside
		cur       *Exception
		curDepth  int
		curText   strings.Builder
		depth     int
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Doc{}, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "summary":
				if inSummary == 0 && doc.Summary == "" && summary.Len() == 0 {
					inSummary = depth
				}
			case "exception":
				if cur != nil {
					break
				}
				cref, ok := attr(t, "cref")
				if !ok {
					break
				}
				cur = &Exception{Cref: cref, Type: strings.TrimPrefix(cref, typePrefix)}
				curDepth = depth
				curText.Reset()
			}
		case xml.EndElement:
			if cur != nil && depth == curDepth {
				cur.Description = collapse(curText.String())
				doc.Exceptions = append(doc.Exceptions, *cur)
				cur = nil
			}
			if inSummary != 0 && depth == inSummary {
				doc.Summary = collapse(summary.String())
				inSummary = 0
			}
			depth--
		case xml.CharData:
			if cur != nil {
				curText.Write(t)
			}
			if inSummary != 0 {
				summary.Write(t)
			}
		}
	}
	return doc, nil
}

func attr(el xml.StartElement, name string) (string, bool) {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func stripDeclaration(raw string) string {
	if !strings.HasPrefix(raw, "<?xml") {
		return raw
	}
	if end := strings.Index(raw, "?>"); end >= 0 {
		return strings.TrimSpace(raw[end+2:])
	}
	return raw
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
