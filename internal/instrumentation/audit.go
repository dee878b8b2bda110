package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"github.com/teemow/calbot/internal/logging"
)

// ToolInvocation captures one agent tool call for the audit trail.
//
// UserID is the raw chat user id. It is hashed in audit output unless the
// audit logger is configured to include raw ids.
type ToolInvocation struct {
	Tool     string
	UserID   string
	TurnID   string
	CallID   string
	Calendar string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
}

// NewToolInvocation creates a new ToolInvocation with timing started.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{Tool: tool, StartTime: time.Now()}
}

// WithUser sets the chat user and exchange correlation id.
func (ti *ToolInvocation) WithUser(userID, turnID string) *ToolInvocation {
	ti.UserID = userID
	ti.TurnID = turnID
	return ti
}

// WithCall sets the model-issued correlation id of the tool call.
func (ti *ToolInvocation) WithCall(callID string) *ToolInvocation {
	ti.CallID = callID
	return ti
}

// WithCalendar sets the resolved calendar id.
func (ti *ToolInvocation) WithCalendar(calendarID string) *ToolInvocation {
	ti.Calendar = calendarID
	return ti
}

// WithSpanContext extracts the trace id from the current span.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	ti.TraceID = GetTraceID(ctx)
	return ti
}

// Complete marks the invocation as finished and records the duration.
func (ti *ToolInvocation) Complete(err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = err == nil
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// Status returns "success" or "error" based on the Success field.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns the slog attributes for this invocation.
func (ti *ToolInvocation) LogAttrs(includeUserID bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("tool", ti.Tool),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}

	if includeUserID {
		attrs = append(attrs, slog.String("user", ti.UserID))
	} else if ti.UserID != "" {
		attrs = append(attrs, logging.UserHash(ti.UserID))
	}
	if ti.TurnID != "" {
		attrs = append(attrs, slog.String("turn_id", ti.TurnID))
	}
	if ti.CallID != "" {
		attrs = append(attrs, slog.String("call_id", ti.CallID))
	}
	if ti.Calendar != "" {
		attrs = append(attrs, slog.String("calendar", ti.Calendar))
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error))
	}
	return attrs
}

// AuditLogger writes tool invocations to a structured log stream.
// A nil *AuditLogger discards everything.
type AuditLogger struct {
	logger        *slog.Logger
	includeUserID bool
	enabled       bool
}

// NewAuditLogger creates an AuditLogger from the given configuration.
func NewAuditLogger(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:        logger.With(slog.String("stream", "audit")),
		includeUserID: config.IncludeUserIDs,
		enabled:       config.Enabled,
	}
}

// LogToolInvocation logs a completed invocation at info, or warn when it failed.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.enabled || ti == nil {
		return
	}

	attrs := ti.LogAttrs(al.includeUserID)
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	if ti.Success {
		al.logger.Info("tool_executed", args...)
	} else {
		al.logger.Warn("tool_failed", args...)
	}
}
