// Package store is the SQLite document store that executes generated
// document SQL.
//
// Every collection is a table of JSON documents:
//
//	id       TEXT PRIMARY KEY   -- caller-supplied or UUIDv7
//	doc      TEXT NOT NULL      -- canonical JSON (RFC 8785)
//	revision TEXT NOT NULL      -- document.ContentHash of doc
//
// The collections table registers every collection table in creation
// order. Queries against an unregistered collection return no documents
// instead of failing, the way a document database treats a collection
// that was never written.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - One open connection: an unclosed cursor holds it, so callers close
//     cursors before the next store call
//
// Writes run through a strategy.ExecutionStrategy. The default retries
// SQLITE_BUSY and SQLITE_LOCKED with exponential backoff; reads never
// retry.
package store
