// Package bot connects chat messages to the agent loop.
//
// A Webhook verifies and parses Slack Events API requests and hands every
// new message to the Bot. The Bot resolves the sender's profile, keeps
// their conversation history, runs the agent with the calendar tools and
// posts the reply. Messages from one user are answered one at a time.
package bot
