// Package repair rescues a JSON value from raw LLM output.
//
// Models asked for JSON still wrap it in prose or code fences, use single
// quotes, leave trailing commas, and break string literals across lines.
// Fix applies a fixed sequence of lossy text transforms and then decodes.
// It never panics and never returns an error: failure is reported through
// Result.Reason so callers can treat it as "extraction unavailable".
package repair

import (
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"strings"
)

// Reason classifies why a repair attempt did not produce a value.
type Reason string

const (
	ReasonNone  Reason = ""
	ReasonEmpty Reason = "empty_input"
	ReasonParse Reason = "parse_error"
)

// Status returns the value reported to HTTP clients in X-Repair-Status.
func (r Reason) Status() string {
	if r == ReasonNone {
		return "ok"
	}
	return string(r)
}

// Result is the outcome of a single repair attempt.
type Result struct {
	// Value is the decoded JSON value. Nil when OK is false, and also nil
	// when the input decoded to a literal JSON null.
	Value any
	OK    bool

	Reason Reason
	Err    error

	// Candidate is the text handed to the decoder after all transforms.
	Candidate string
}

var trailingComma = regexp.MustCompile(`,\s*([}\]])`)

// Fix attempts to coerce text into a JSON value.
//
// Steps, each applied to the previous step's output:
//  1. empty input fails immediately without a parse attempt
//  2. keep the greedy span from the first '{' to the last '}', if any
//  3. replace every single quote with a double quote
//  4. drop commas that directly precede '}' or ']' (whitespace allowed)
//  5. replace each newline not preceded by a backslash with a space
//  6. decode; any decode failure yields ReasonParse
//
// Step 3 corrupts apostrophes inside values and step 5 collapses
// multi-line values. Both are accepted.
func Fix(text string) Result {
	if text == "" {
		return Result{Reason: ReasonEmpty}
	}

	candidate := extractObjectSpan(text)
	candidate = strings.ReplaceAll(candidate, "'", `"`)
	candidate = trailingComma.ReplaceAllString(candidate, "$1")
	candidate = collapseNewlines(candidate)

	value, err := decode(candidate)
	if err != nil {
		return Result{Reason: ReasonParse, Err: err, Candidate: candidate}
	}
	return Result{Value: value, OK: true, Candidate: candidate}
}

// FixJSON returns the repaired value, or nil when repair failed.
func FixJSON(text string) any {
	return Fix(text).Value
}

// extractObjectSpan returns text[first '{' : last '}'] inclusive, or text
// unchanged when no such span exists.
func extractObjectSpan(text string) string {
	start := strings.Index(text, "{")
	if start < 0 {
		return text
	}
	end := strings.LastIndex(text, "}")
	if end < start {
		return text
	}
	return text[start : end+1]
}

// collapseNewlines replaces '\n' with ' ' unless the preceding byte in the
// input is a backslash.
func collapseNewlines(s string) string {
	if !strings.Contains(s, "\n") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' && (i == 0 || s[i-1] != '\\') {
			b.WriteByte(' ')
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// decode parses exactly one JSON value. Trailing non-whitespace is an error.
func decode(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("invalid character after top-level value")
	}
	return v, nil
}
