// Package store provides SQLite-backed durable storage for tasks, feedback,
// behaviors and chat summaries.
//
// # Logical stores
//
// Records live in four logical stores:
//   - tasks:    the Tasks table
//   - feedback: the Feedback table
//   - behavior: the Behavior table
//   - memgen:   the ChatHistory table
//
// A Registry maps each logical store to a database file. Several logical
// stores may share one file; callers always address stores by name and never
// assume co-location.
//
// # Connection scope
//
// Every statement runs inside WithConn or WithTx. The connection is released
// on every exit path, including errors and panics inside the callback.
// The callback must only use the connection or transaction it is handed:
// each file is served by a single pooled connection, so a nested call back
// into the same Store blocks.
//
// # Schema
//
// DDL is embedded per logical store from schema/*.sql and uses
// CREATE ... IF NOT EXISTS throughout. The tasks store additionally runs
// additive migrations tracked in PRAGMA user_version, so files written by
// older revisions (no area, no dependencies) are upgraded in place.
//
// # Database configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON
//
// # Ordering
//
// All list queries ORDER BY id ASC, which is insertion order.
package store
