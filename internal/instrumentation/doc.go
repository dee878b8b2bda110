// Package instrumentation provides OpenTelemetry metrics, tracing and audit
// logging for calbot.
//
// # Metrics
//
//   - http_requests_total, http_request_duration_seconds: webhook and trigger traffic
//   - conversation_sessions_active: live conversation sessions
//   - calendar_operations_total, calendar_operation_duration_seconds: Google Calendar calls
//   - tool_invocations_total, tool_duration_seconds: agent tool dispatches
//   - agent_exchanges_total, agent_rounds, model_request_duration_seconds: the agent loop
//   - slack_api_calls_total: Slack Web API calls
//   - digest_runs_total: per-user daily digest outcomes
//
// # Tracing
//
// Spans are created for chat exchanges, model rounds (model.complete),
// tool dispatches (tool.<name>) and calendar calls (calendar.<operation>).
//
// # Configuration
//
// Instrumentation is configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: calbot)
//
// A nil *Metrics is a valid no-op recorder, so components can be built
// without a provider in tests.
package instrumentation
