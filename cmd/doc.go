// Package cmd implements the command-line interface for calbot.
//
// This package provides the following commands:
//   - serve: Start the Slack events server and the daily digest scheduler
//   - digest: Build and post the daily summary once
//   - auth: Obtain a Google refresh token for a calendar account
//   - mcp: Serve the calendar tools over MCP stdio for one user
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for the calendar tools
//
// The serve command is the default command when no subcommand is specified.
package cmd
