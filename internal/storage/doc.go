// Package storage persists console state as JSON strings under fixed keys.
//
// It plays the part browser local storage plays for a single-page app: a
// flat key -> string map with no schema versioning. Three backends are
// provided:
//
//   - [Memory]: process-local map, used by tests and ephemeral sessions
//   - [File]: a single JSON document on disk, rewritten atomically
//   - [Redis]: keys under a prefix in a Redis database
//
// [LoadJSON] and [SaveJSON] wrap the string interface for typed values.
package storage
