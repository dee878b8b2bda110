// Package weather looks up current conditions for the daily digest.
package weather
