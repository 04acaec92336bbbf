package report

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var schemaJSON []byte

// Schema returns the raw JSON Schema document for the report.
func Schema() []byte {
	return bytes.Clone(schemaJSON)
}

// Validation modes.
const (
	ModeOff    = "off"
	ModeWarn   = "warn"
	ModeStrict = "strict"
)

// ValidMode reports whether mode is a known validation mode.
func ValidMode(mode string) bool {
	switch mode {
	case ModeOff, ModeWarn, ModeStrict:
		return true
	}
	return false
}

// Issue is a single schema violation.
type Issue struct {
	Path    string `json:"path" yaml:"path"`       // JSON pointer into the value, "" for the root
	Message string `json:"message" yaml:"message"` // human-readable reason
}

func (i Issue) String() string {
	path := i.Path
	if path == "" {
		path = "/"
	}
	return fmt.Sprintf("%s: %s", path, i.Message)
}

var compiled = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("report.schema.json", bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to load report schema: %w", err)
	}
	schema, err := compiler.Compile("report.schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile report schema: %w", err)
	}
	return schema, nil
})

// Validate checks value against the report schema and returns every
// violation found. It never modifies value. A nil slice means the value
// conforms.
//
// value must be a decoded JSON value (map[string]any, []any, string,
// bool, json.Number, float64, or nil).
func Validate(value any) []Issue {
	schema, err := compiled()
	if err != nil {
		return []Issue{{Message: err.Error()}}
	}

	err = schema.Validate(value)
	if err == nil {
		return nil
	}

	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return []Issue{{Message: err.Error()}}
	}

	var leaves []Issue
	collectIssues(verr, &leaves)

	// One issue per location. anyOf branches fail together and are joined.
	byPath := make(map[string][]string)
	for _, leaf := range leaves {
		byPath[leaf.Path] = append(byPath[leaf.Path], leaf.Message)
	}
	issues := make([]Issue, 0, len(byPath))
	for path, msgs := range byPath {
		issues = append(issues, Issue{Path: path, Message: strings.Join(msgs, "; ")})
	}
	sort.Slice(issues, func(a, b int) bool {
		return issues[a].Path < issues[b].Path
	})
	return issues
}

// collectIssues flattens a validation error tree into its leaf causes.
func collectIssues(verr *jsonschema.ValidationError, out *[]Issue) {
	if len(verr.Causes) == 0 {
		*out = append(*out, Issue{Path: verr.InstanceLocation, Message: verr.Message})
		return
	}
	for _, cause := range verr.Causes {
		collectIssues(cause, out)
	}
}
