// Package google provides OAuth2 configuration and token sources for the
// Google Calendar API.
//
// Accounts are identified by name (default, work, ...) and backed by refresh
// tokens from configuration. `calbot auth` uses AuthURL and Exchange to
// obtain a refresh token for a new account.
package google
