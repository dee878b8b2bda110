// Package tools declares the calendar tools offered to the language model and
// executes the calls it makes.
//
// The catalog is declared once with mcp-go and served two ways: converted to
// provider-neutral Specs for the agent loop, and registered on an MCP server
// for stdio clients. A Dispatcher is created per user message; it resolves
// calendar labels through a Router, tags new event titles and turns every
// failure into a {"error": "..."} payload.
package tools
