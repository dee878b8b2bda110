// Package slack is the notification gateway: it posts, deletes and reads
// channel messages through the Slack Web API and verifies and parses inbound
// Events API requests.
package slack
