// Package queue persists restoration jobs in SQLite and guards the enqueue
// sequence with a system-wide lock.
//
// The Store keeps four kinds of records: the registered image file
// extensions, the parameter and task setting snapshots each job was created
// with, the ordered file list of every job, and the queue entries
// themselves. Priorities form a total order over queued entries and are
// recomputed by SetJobPriorities according to the configured policy.
//
// Lock combines an in-process semaphore with an advisory file lock in the
// data directory, so every hrmq process sharing that directory takes turns.
// JobQueue bundles the lock with the queue-facing store operations.
//
// Schema changes bump schemaVersion in schema.go; operators clear the
// database to adopt the new schema.
package queue
