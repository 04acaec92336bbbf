package metrics

import (
	"time"

	"github.com/jackzampolin/pcr/internal/providers"
)

// Recorder records extraction calls into a Store.
// A nil Recorder discards everything.
type Recorder struct {
	store *Store
}

// NewRecorder creates a recorder backed by store.
func NewRecorder(store *Store) *Recorder {
	return &Recorder{store: store}
}

// Store returns the backing store.
func (r *Recorder) Store() *Store {
	if r == nil {
		return nil
	}
	return r.store
}

// RecordOpts attributes a recorded call.
type RecordOpts struct {
	RequestID string

	// RepairStatus is "ok", "empty_input" or "parse_error"; "" for failed calls.
	RepairStatus string

	// SchemaIssues is the advisory issue count, or -1 when validation did not run.
	SchemaIssues int
}

// RecordLLMCall records a model call from its ChatResult.
func (r *Recorder) RecordLLMCall(opts RecordOpts, result *providers.ChatResult) string {
	if r == nil || r.store == nil || result == nil {
		return ""
	}

	requestID := opts.RequestID
	if requestID == "" {
		requestID = result.RequestID
	}

	return r.store.Add(Metric{
		RequestID:        requestID,
		Provider:         result.Provider,
		Model:            result.ModelUsed,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
		ReasoningTokens:  result.ReasoningTokens,
		TotalTokens:      result.TotalTokens,
		ExecutionSeconds: result.ExecutionTime.Seconds(),
		TotalSeconds:     result.TotalTime.Seconds(),
		Success:          result.Success,
		ErrorType:        result.ErrorType,
		RepairStatus:     opts.RepairStatus,
		SchemaIssues:     opts.SchemaIssues,
		CreatedAt:        time.Now(),
	})
}

// RecordError records a failed call that produced no ChatResult.
func (r *Recorder) RecordError(opts RecordOpts, provider, model, errorType string, duration time.Duration) string {
	if r == nil || r.store == nil {
		return ""
	}

	return r.store.Add(Metric{
		RequestID:        opts.RequestID,
		Provider:         provider,
		Model:            model,
		ExecutionSeconds: duration.Seconds(),
		TotalSeconds:     duration.Seconds(),
		Success:          false,
		ErrorType:        errorType,
		SchemaIssues:     -1,
		CreatedAt:        time.Now(),
	})
}
