// Package conversation holds the short-lived chat transcript of each user
// and serializes message handling per user.
//
// Transcripts live only in memory. A session expires after a period of
// inactivity and keeps only the most recent turns.
package conversation
