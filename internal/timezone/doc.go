// Package timezone provides zone-aware day boundaries and timestamp parsing.
//
// Day boundaries are computed against the IANA database for the user's
// zone, never the process zone, so "today" is correct for every user on
// DST transition days.
package timezone
