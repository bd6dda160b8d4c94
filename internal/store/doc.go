// Package store provides durable storage for the set of values antidup has
// already accepted.
//
// Three backends implement the same Backend contract:
//   - SQLite (primary): one indexed table, bulk existence queries, one
//     transaction per InsertAll call.
//   - Postgres: the same table and protocol over database/sql with lib/pq.
//   - Flat file: the whole set held in memory and rewritten atomically
//     (temp file + rename) by Persist.
//
// # Invariants
//
//   - Values are never removed; InsertAll is insert-or-ignore.
//   - Contains never mutates the store.
//   - Only one InsertAll per backend is in flight at a time. Callers drive a
//     backend from a single goroutine.
//
// # Database Configuration (SQLite)
//
//   - WAL mode
//   - synchronous=NORMAL
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - a single pooled connection
//
// Once a legacy flat file has been migrated into an indexed store, the flat
// form is only ever read as a migration source.
package store
