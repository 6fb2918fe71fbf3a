package diag

import (
	"fmt"
	"strconv"
	"strings"
)

type Code uint16

const (
	// Неизвестная ошибка
	UnknownCode Code = 0

	// Анализ исключений
	ExcConfigMissing       Code = 5000
	ExcDocumentedNotCaught Code = 5001
)

var (
	codeDescription = map[Code]string{
		UnknownCode:            "Unknown error",
		ExcConfigMissing:       "Configuration file is missing or malformed",
		ExcDocumentedNotCaught: "Documented exception is not caught",
	}
	codeRule = map[Code]string{
		ExcConfigMissing:       "ExceptionAnalyzer_ConfigurationMissing",
		ExcDocumentedNotCaught: "ExceptionAnalyzer_DocumentedExceptionNotCaught",
	}
)

// ID returns the stable textual identifier, e.g. "EXC5001".
func (c Code) ID() string {
	if c >= 5000 && c < 6000 {
		return fmt.Sprintf("EXC%04d", int(c))
	}
	return fmt.Sprintf("E%04d", int(c))
}

// Title returns a short description.
func (c Code) Title() string {
	if s, ok := codeDescription[c]; ok {
		return s
	}
	return "Unknown error"
}

// RuleID returns the analyzer rule name reported in SARIF output.
func (c Code) RuleID() string {
	if s, ok := codeRule[c]; ok {
		return s
	}
	return c.ID()
}

func (c Code) String() string {
	return c.ID()
}

// ParseCode accepts both "EXC5001" and "5001".
func ParseCode(s string) (Code, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for c := range codeDescription {
		if c != UnknownCode && (c.ID() == s || strconv.Itoa(int(c)) == s) {
			return c, true
		}
	}
	return UnknownCode, false
}
