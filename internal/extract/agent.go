// Package extract turns a free-text patient care narrative into a report
// value: one LLM call with the fixed extraction prompt, then JSON repair.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackzampolin/pcr/internal/llmcall"
	"github.com/jackzampolin/pcr/internal/metrics"
	"github.com/jackzampolin/pcr/internal/providers"
	"github.com/jackzampolin/pcr/internal/repair"
	"github.com/jackzampolin/pcr/internal/report"
)

// PromptKey identifies the extraction prompt in call records.
const PromptKey = "report.extraction"

// ResponseMIMEType is requested from the model for every extraction.
const ResponseMIMEType = "application/json"

// ErrNoClient is returned when no LLM client is available.
var ErrNoClient = errors.New("no LLM client configured")

// ProviderError wraps a failed model call. The model is never retried.
type ProviderError struct {
	Provider string
	Result   *providers.ChatResult
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider call failed: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Options configures an Agent.
type Options struct {
	// Model overrides the client's default model when set.
	Model string

	// MaxTokens caps the response length (0 = provider default).
	MaxTokens int

	// Timeout bounds the model call (0 = no deadline beyond the caller's context).
	Timeout time.Duration

	// Validation is "off", "warn" or "strict". Anything but "off" runs the
	// advisory schema check on repaired values.
	Validation string

	// Metrics receives one record per model call. Nil disables recording.
	Metrics *metrics.Recorder

	Logger *slog.Logger
}

// Agent runs extractions against one LLM client. It holds no per-request
// state and is safe for concurrent use.
type Agent struct {
	client     providers.LLMClient
	model      string
	maxTokens  int
	timeout    time.Duration
	validation string
	promptHash string
	logger     *slog.Logger
	recorder   *llmcall.Recorder
	metrics    *metrics.Recorder
}

// New creates an Agent. client may be nil; Extract then returns ErrNoClient.
func New(client providers.LLMClient, opts Options) *Agent {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	validation := opts.Validation
	if validation == "" {
		validation = report.ModeOff
	}

	return &Agent{
		client:     client,
		model:      opts.Model,
		maxTokens:  opts.MaxTokens,
		timeout:    opts.Timeout,
		validation: validation,
		promptHash: llmcall.HashPrompt(report.ExtractionPrompt),
		logger:     logger,
		recorder:   llmcall.NewRecorder(logger),
		metrics:    opts.Metrics,
	}
}

// Outcome is the result of one extraction.
type Outcome struct {
	// Repair is the result of repairing the model's raw text.
	Repair repair.Result

	// Chat is the provider's response, including the raw text and usage.
	Chat *providers.ChatResult

	// Call is the trace record logged for the model call.
	Call *llmcall.Call

	// Issues lists schema violations. Only populated when validation is
	// enabled and repair succeeded.
	Issues    []report.Issue
	Validated bool
}

// Value returns the repaired JSON value, or nil when repair failed.
func (o *Outcome) Value() any {
	if o == nil {
		return nil
	}
	return o.Repair.Value
}

// Status returns "ok", "empty_input" or "parse_error".
func (o *Outcome) Status() string {
	return o.Repair.Reason.Status()
}

// ProviderName returns the name of the underlying client, or "" if none.
func (a *Agent) ProviderName() string {
	if a == nil || a.client == nil {
		return ""
	}
	return a.client.Name()
}

// Model returns the model override, or "" when the client default is used.
func (a *Agent) Model() string {
	return a.model
}

// Validation returns the configured validation mode.
func (a *Agent) Validation() string {
	return a.validation
}

// Extract sends the narrative to the model and repairs its reply.
//
// A provider failure is returned as *ProviderError. A reply that cannot be
// repaired is not an error: the Outcome carries a nil value and the reason.
func (a *Agent) Extract(ctx context.Context, text string) (*Outcome, error) {
	if a == nil || a.client == nil {
		return nil, ErrNoClient
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	requestID := RequestIDFrom(ctx)
	temperature := providers.Float(0)
	start := time.Now()

	result, err := a.client.Chat(ctx, &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "user", Content: report.BuildPrompt(text)},
		},
		Model:       a.model,
		Temperature: temperature,
		MaxTokens:   a.maxTokens,
		ResponseFormat: &providers.ResponseFormat{
			Type:     "json_object",
			MIMEType: ResponseMIMEType,
		},
		RequestID: requestID,
	})

	call := a.recorder.Record(ctx, result, llmcall.RecordOptions{
		RequestID:   requestID,
		PromptKey:   PromptKey,
		PromptHash:  a.promptHash,
		Temperature: temperature,
	})

	if err != nil {
		if result != nil {
			a.metrics.RecordLLMCall(metrics.RecordOpts{RequestID: requestID, SchemaIssues: -1}, result)
		} else {
			a.metrics.RecordError(metrics.RecordOpts{RequestID: requestID}, a.client.Name(), a.model, "provider_error", time.Since(start))
		}
		return nil, &ProviderError{Provider: a.client.Name(), Result: result, Err: err}
	}
	if result == nil {
		a.metrics.RecordError(metrics.RecordOpts{RequestID: requestID}, a.client.Name(), a.model, "no_result", time.Since(start))
		return nil, &ProviderError{Provider: a.client.Name(), Err: errors.New("empty result")}
	}

	out := &Outcome{
		Repair: repair.Fix(result.Content),
		Chat:   result,
		Call:   call,
	}

	if !out.Repair.OK {
		a.logger.Warn("model output could not be repaired",
			"request_id", requestID,
			"reason", string(out.Repair.Reason),
			"error", out.Repair.Err,
			"output_bytes", len(result.Content))
		a.recordOutcome(requestID, out)
		return out, nil
	}

	if a.validation != report.ModeOff {
		out.Issues = report.Validate(out.Repair.Value)
		out.Validated = true
		if len(out.Issues) > 0 {
			a.logger.Info("extracted report has schema issues",
				"request_id", requestID,
				"issues", len(out.Issues),
				"first", out.Issues[0].String())
		}
	}

	a.recordOutcome(requestID, out)
	return out, nil
}

func (a *Agent) recordOutcome(requestID string, out *Outcome) {
	issues := -1
	if out.Validated {
		issues = len(out.Issues)
	}
	a.metrics.RecordLLMCall(metrics.RecordOpts{
		RequestID:    requestID,
		RepairStatus: out.Status(),
		SchemaIssues: issues,
	}, out.Chat)
}

type requestIDKey struct{}

// WithRequestID attaches a request ID that is forwarded to the provider and
// the call record.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the request ID attached to ctx, or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
