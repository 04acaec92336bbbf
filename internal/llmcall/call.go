// Package llmcall provides LLM call records for traceability.
// Every LLM API call is recorded with its prompt key, prompt hash, and metrics.
package llmcall

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/pcr/internal/providers"
)

// Call represents a recorded LLM API call.
type Call struct {
	// Unique identifier
	ID string `json:"id"`

	// Timing
	Timestamp time.Time `json:"timestamp"`
	LatencyMs int       `json:"latency_ms"`

	// Context references
	RequestID string `json:"request_id,omitempty"` // HTTP request that triggered the call

	// Prompt traceability
	PromptKey  string `json:"prompt_key"`
	PromptHash string `json:"prompt_hash,omitempty"` // sha256 of the fixed prompt template

	// Model info
	Provider    string   `json:"provider"`
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature,omitempty"`

	// Token usage
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`

	// Response
	Response string `json:"response"`

	// Status
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// RecordOptions provides context for recording an LLM call.
type RecordOptions struct {
	// Context references (optional)
	RequestID string

	// Prompt identification (required for traceability)
	PromptKey  string
	PromptHash string

	// Request parameters (pointer to distinguish "not set" from "set to 0")
	Temperature *float64
}

// HashPrompt returns the hex sha256 of a prompt template.
func HashPrompt(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

// FromChatResult creates a Call from a ChatResult.
// Returns nil if result is nil.
func FromChatResult(result *providers.ChatResult, opts RecordOptions) *Call {
	if result == nil {
		return nil
	}

	requestID := opts.RequestID
	if requestID == "" {
		requestID = result.RequestID
	}

	call := &Call{
		ID:           uuid.New().String(),
		Timestamp:    time.Now(),
		LatencyMs:    int(result.ExecutionTime.Milliseconds()),
		RequestID:    requestID,
		PromptKey:    opts.PromptKey,
		PromptHash:   opts.PromptHash,
		Provider:     result.Provider,
		Model:        result.ModelUsed,
		Temperature:  opts.Temperature,
		InputTokens:  result.PromptTokens,
		OutputTokens: result.CompletionTokens,
		Response:     result.Content,
		Success:      result.Success,
	}

	if !result.Success {
		call.Error = result.ErrorMessage
	}

	return call
}

// LogAttrs returns the call's metrics as slog attributes.
// The response body is excluded.
func (c *Call) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("call_id", c.ID),
		slog.String("prompt_key", c.PromptKey),
		slog.String("provider", c.Provider),
		slog.String("model", c.Model),
		slog.Int("latency_ms", c.LatencyMs),
		slog.Int("input_tokens", c.InputTokens),
		slog.Int("output_tokens", c.OutputTokens),
		slog.Bool("success", c.Success),
	}
	if c.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", c.RequestID))
	}
	if c.PromptHash != "" {
		attrs = append(attrs, slog.String("prompt_hash", shortHash(c.PromptHash)))
	}
	if c.Temperature != nil {
		attrs = append(attrs, slog.Float64("temperature", *c.Temperature))
	}
	if c.Error != "" {
		attrs = append(attrs, slog.String("error", c.Error))
	}
	return attrs
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
