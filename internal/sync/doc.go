// Package sync implements the reconciliation engine that keeps the local
// embedded store and the remote todopro service consistent.
//
// The engine runs one pass at a time, in one of two directions:
//
//   - pull: remote is the source, the local store is the destination
//   - push: the local store is the source, remote is the destination
//
// Both directions share a single reconciliation algorithm parameterized by
// a (source, destination) repository pair per collection. For each
// collection the engine reads the last sync cursor, fetches source records
// changed since that cursor (tombstones included), and applies them to the
// destination in (updated_at, version) order:
//
//   - destination missing, source live   -> create
//   - destination missing, source dead   -> skip (nothing to delete)
//   - states already equal               -> skip
//   - destination unchanged since cursor -> apply (update or tombstone)
//   - destination changed since cursor   -> conflict, recorded for the user
//
// Writes with identical timestamps are ordered by version: the higher
// version wins. Protected records (the sentinel Inbox project) accept
// updates but never deletions.
//
// Conflicts are first-class outcomes, not errors. They are appended to a
// durable Tracker and surfaced in the pass Result; the engine never
// resolves or removes them on its own.
//
// The cursor for a collection only advances over the prefix of records
// that committed successfully, so a crashed or cancelled pass resumes
// safely: re-fetched records whose state already matches the destination
// are skipped, making passes idempotent.
package sync
