// Package services orchestrates synchronization between the local store and
// the remote dataset.
//
// A cycle opens the remote backend once, ensures the remote schema, reads
// the watermark and then runs a pull phase, a push phase or both. Each phase
// processes the entities in a fixed order inside one local transaction, with
// one savepoint per sheet; remote writes are queued and flushed once per
// phase after the local commit. The watermark only advances after a push
// phase, and everything before it, succeeded.
//
// ConflictService exposes the conflict log for manual review.
package services
