// Package digest posts a daily summary of each user's calendar and the local
// weather to the user's chat channel.
//
// The local day is computed in the user's own timezone, independent of the
// process timezone and correct across daylight saving transitions.
package digest
