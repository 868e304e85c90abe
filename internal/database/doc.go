// Package database provides the PostgreSQL connection pool used by the
// realtime journal.
//
// The journal is optional; Open returns a nil pool when it is disabled and
// callers skip journaling entirely.
package database
