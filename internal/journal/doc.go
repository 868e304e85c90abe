// Package journal records routed realtime effects in PostgreSQL.
//
// Notifications and leaderboard snapshots handed to the router are queued
// in a fixed-size Buffer and written in batches by a Writer. The queue
// never blocks the router: when the database falls behind, the oldest
// pending rows are dropped and counted.
package journal
