// Package server holds the process-level plumbing: the public HTTP server
// with the Slack webhook, manual digest trigger and health checks, the
// Prometheus metrics server, and the ServerContext that owns one Google
// Calendar client per configured account.
package server
