// Package metrics keeps usage records for extraction calls.
//
// Records live in a fixed-size in-memory window; the oldest record is
// dropped once the window is full. Nothing is persisted.
package metrics

import "time"

// Metric is a single recorded extraction call.
type Metric struct {
	ID string `json:"id"`

	// Attribution
	RequestID string `json:"request_id,omitempty"`

	// Provider info
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`

	// Tokens
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	ReasoningTokens  int `json:"reasoning_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`

	// Timing
	ExecutionSeconds float64 `json:"execution_seconds,omitempty"`
	TotalSeconds     float64 `json:"total_seconds,omitempty"`

	// Status of the model call
	Success   bool   `json:"success"`
	ErrorType string `json:"error_type,omitempty"`

	// Outcome of repairing the reply ("" when the call failed)
	RepairStatus string `json:"repair_status,omitempty"`
	// SchemaIssues is the number of advisory schema issues, or -1 when
	// validation did not run.
	SchemaIssues int `json:"schema_issues"`

	CreatedAt time.Time `json:"created_at"`
}
