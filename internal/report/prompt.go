// Package report holds the patient care report extraction prompt, a typed
// view of the report it asks for, and an advisory JSON Schema check.
package report

import (
	_ "embed"
)

//go:embed prompt.txt
var extractionPrompt string

// ExtractionPrompt is the fixed instruction sent ahead of the narrative.
// It ends with "TEXT:\n" so the narrative can be appended directly.
var ExtractionPrompt = extractionPrompt

// BuildPrompt returns the full prompt for one narrative.
func BuildPrompt(text string) string {
	return ExtractionPrompt + text
}
