package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys.
const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrCalendar  = "calendar"
	attrTool      = "tool"
	attrProvider  = "provider"
)

// Metrics records calbot's observability metrics. The zero value and a nil
// *Metrics are valid no-op recorders.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Conversation metrics
	activeSessions metric.Int64UpDownCounter

	// Calendar API metrics
	calendarOperationsTotal   metric.Int64Counter
	calendarOperationDuration metric.Float64Histogram

	// Tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// Agent metrics
	agentExchangesTotal  metric.Int64Counter
	agentRounds          metric.Int64Histogram
	modelRequestDuration metric.Float64Histogram

	// Notification metrics
	slackCallsTotal metric.Int64Counter

	// Digest metrics
	digestRunsTotal metric.Int64Counter

	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all instruments initialized.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{detailedLabels: detailedLabels}
	var err error

	secondsBuckets := metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0)

	if m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	if m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	); err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	if m.activeSessions, err = meter.Int64UpDownCounter(
		"conversation_sessions_active",
		metric.WithDescription("Number of live conversation sessions"),
		metric.WithUnit("{session}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create conversation_sessions_active gauge: %w", err)
	}

	if m.calendarOperationsTotal, err = meter.Int64Counter(
		"calendar_operations_total",
		metric.WithDescription("Total number of Google Calendar operations"),
		metric.WithUnit("{operation}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create calendar_operations_total counter: %w", err)
	}

	if m.calendarOperationDuration, err = meter.Float64Histogram(
		"calendar_operation_duration_seconds",
		metric.WithDescription("Google Calendar operation duration in seconds"),
		metric.WithUnit("s"),
		secondsBuckets,
	); err != nil {
		return nil, fmt.Errorf("failed to create calendar_operation_duration_seconds histogram: %w", err)
	}

	if m.toolInvocationsTotal, err = meter.Int64Counter(
		"tool_invocations_total",
		metric.WithDescription("Total number of agent tool invocations"),
		metric.WithUnit("{invocation}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create tool_invocations_total counter: %w", err)
	}

	if m.toolDuration, err = meter.Float64Histogram(
		"tool_duration_seconds",
		metric.WithDescription("Agent tool execution duration in seconds"),
		metric.WithUnit("s"),
		secondsBuckets,
	); err != nil {
		return nil, fmt.Errorf("failed to create tool_duration_seconds histogram: %w", err)
	}

	if m.agentExchangesTotal, err = meter.Int64Counter(
		"agent_exchanges_total",
		metric.WithDescription("Total number of completed chat exchanges"),
		metric.WithUnit("{exchange}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create agent_exchanges_total counter: %w", err)
	}

	if m.agentRounds, err = meter.Int64Histogram(
		"agent_rounds",
		metric.WithDescription("Tool rounds needed per chat exchange"),
		metric.WithUnit("{round}"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 3, 5, 8, 10),
	); err != nil {
		return nil, fmt.Errorf("failed to create agent_rounds histogram: %w", err)
	}

	if m.modelRequestDuration, err = meter.Float64Histogram(
		"model_request_duration_seconds",
		metric.WithDescription("Language model request duration in seconds"),
		metric.WithUnit("s"),
		secondsBuckets,
	); err != nil {
		return nil, fmt.Errorf("failed to create model_request_duration_seconds histogram: %w", err)
	}

	if m.slackCallsTotal, err = meter.Int64Counter(
		"slack_api_calls_total",
		metric.WithDescription("Total number of Slack Web API calls"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create slack_api_calls_total counter: %w", err)
	}

	if m.digestRunsTotal, err = meter.Int64Counter(
		"digest_runs_total",
		metric.WithDescription("Total number of per-user daily digest runs"),
		metric.WithUnit("{run}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create digest_runs_total counter: %w", err)
	}

	return m, nil
}

// StatusFor maps an error to a status label value.
func StatusFor(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)
	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordCalendarOperation records a Google Calendar call. The calendar id is
// only attached when detailed labels are enabled.
func (m *Metrics) RecordCalendarOperation(ctx context.Context, operation, calendarID, status string, duration time.Duration) {
	if m == nil || m.calendarOperationsTotal == nil {
		return
	}

	kv := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && calendarID != "" {
		kv = append(kv, attribute.String(attrCalendar, calendarID))
	}

	attrs := metric.WithAttributes(kv...)
	m.calendarOperationsTotal.Add(ctx, 1, attrs)
	m.calendarOperationDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordToolInvocation records a tool dispatch with tool name, status, and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	)
	m.toolInvocationsTotal.Add(ctx, 1, attrs)
	m.toolDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordModelRequest records one round trip to the language model.
func (m *Metrics) RecordModelRequest(ctx context.Context, provider, status string, duration time.Duration) {
	if m == nil || m.modelRequestDuration == nil {
		return
	}

	m.modelRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(attrProvider, provider),
		attribute.String(attrStatus, status),
	))
}

// RecordExchange records the outcome of a full chat exchange and how many
// tool rounds it took.
func (m *Metrics) RecordExchange(ctx context.Context, status string, rounds int) {
	if m == nil || m.agentExchangesTotal == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(attrStatus, status))
	m.agentExchangesTotal.Add(ctx, 1, attrs)
	m.agentRounds.Record(ctx, int64(rounds), attrs)
}

// RecordSlackCall records a Slack Web API call.
func (m *Metrics) RecordSlackCall(ctx context.Context, operation, status string) {
	if m == nil || m.slackCallsTotal == nil {
		return
	}

	m.slackCallsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	))
}

// RecordDigestRun records one user's digest outcome: success, error or skipped.
func (m *Metrics) RecordDigestRun(ctx context.Context, status string) {
	if m == nil || m.digestRunsTotal == nil {
		return
	}

	m.digestRunsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStatus, status)))
}

// IncrementActiveSessions increments the live session gauge.
func (m *Metrics) IncrementActiveSessions(ctx context.Context) {
	if m == nil || m.activeSessions == nil {
		return
	}
	m.activeSessions.Add(ctx, 1)
}

// DecrementActiveSessions decrements the live session gauge.
func (m *Metrics) DecrementActiveSessions(ctx context.Context) {
	if m == nil || m.activeSessions == nil {
		return
	}
	m.activeSessions.Add(ctx, -1)
}
