package llmcall

import (
	"context"
	"log/slog"

	"github.com/jackzampolin/pcr/internal/providers"
)

// Recorder writes LLM call records to a structured logger.
// Metrics go out at info; the raw response only at debug.
type Recorder struct {
	logger *slog.Logger
}

// NewRecorder creates a new LLM call recorder. A nil logger uses slog.Default().
func NewRecorder(logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{logger: logger}
}

// Record builds a Call from result and logs it. Returns the recorded call,
// or nil when result is nil.
func (r *Recorder) Record(ctx context.Context, result *providers.ChatResult, opts RecordOptions) *Call {
	call := FromChatResult(result, opts)
	r.RecordCall(ctx, call)
	return call
}

// RecordCall logs an already-constructed Call.
func (r *Recorder) RecordCall(ctx context.Context, call *Call) {
	if r == nil || call == nil {
		return
	}

	level := slog.LevelInfo
	if !call.Success {
		level = slog.LevelWarn
	}
	r.logger.LogAttrs(ctx, level, "llm call", call.LogAttrs()...)

	if r.logger.Enabled(ctx, slog.LevelDebug) {
		r.logger.LogAttrs(ctx, slog.LevelDebug, "llm response",
			slog.String("call_id", call.ID),
			slog.String("response", call.Response))
	}
}
