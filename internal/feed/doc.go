// Package feed holds the consumer-facing state derived from the realtime
// connection: the connected flag, the most recent message, the latest
// leaderboard snapshot, and a bounded newest-first notification list.
//
// Every slice is observable. Readers call Get for the current value or
// Subscribe for a coalescing change channel; a slow subscriber only ever
// misses intermediate values, never the latest one.
package feed
