package tools

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ParseOutcome records how the argument payload was obtained.
type ParseOutcome string

const (
	// OutcomeParsed means the payload was valid JSON as-is.
	OutcomeParsed ParseOutcome = "parsed"
	// OutcomeRepaired means the payload needed heuristic repair.
	OutcomeRepaired ParseOutcome = "repaired"
	// OutcomeDefaulted means repair failed and tool defaults were substituted.
	OutcomeDefaulted ParseOutcome = "defaulted"
)

var trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)

// ParseArguments decodes a raw tool-call argument payload leniently. Invalid
// JSON is repaired heuristically (close an unterminated object, strip
// trailing commas); when repair also fails, the tool's default argument set
// is substituted so a sloppy provider never aborts the turn.
func ParseArguments(kind Kind, raw string) (json.RawMessage, ParseOutcome) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultArguments(kind), OutcomeDefaulted
	}

	if json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed), OutcomeParsed
	}

	repaired := repairJSON(trimmed)
	if json.Valid([]byte(repaired)) {
		return json.RawMessage(repaired), OutcomeRepaired
	}

	return defaultArguments(kind), OutcomeDefaulted
}

// repairJSON applies the two repairs worth attempting on truncated provider
// output: strip trailing commas, then close unterminated objects and arrays.
func repairJSON(s string) string {
	s = trailingCommaPattern.ReplaceAllString(s, "$1")

	// Balance braces and brackets, ignoring anything inside string literals.
	var depth []byte
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth = append(depth, '}')
		case c == '[':
			depth = append(depth, ']')
		case c == '}' || c == ']':
			if len(depth) > 0 {
				depth = depth[:len(depth)-1]
			}
		}
	}

	if inString {
		s += `"`
	}
	s = strings.TrimRight(s, " \t\n,")
	for i := len(depth) - 1; i >= 0; i-- {
		s += string(depth[i])
	}
	return s
}

// defaultArguments returns a safe argument set per tool. Defaults never
// carry a confirmation token, so a defaulted destructive call is always
// rejected at the confirmation gate.
func defaultArguments(kind Kind) json.RawMessage {
	switch kind {
	case KindSaveNote:
		return json.RawMessage(`{"title":"Untitled note","content":""}`)
	case KindSearchLibrary:
		return json.RawMessage(`{"query":""}`)
	default:
		return json.RawMessage(`{}`)
	}
}
