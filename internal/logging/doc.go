// Package logging provides structured logging utilities for calbot.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "calendar.list")
//	logger.Info("listing events", logging.Calendar(id))
//
// Chat user ids are hashed before they are logged:
//
//	logger.Info("message received", logging.UserHash(userID))
//
// Message bodies are only ever logged at debug level.
package logging
