// Package jobs models restoration requests and turns them into queue entries.
//
// A Description holds the owner, the parameter and task settings, and the
// files of one request. AddJob persists it under the queue lock, splits every
// queued compound job (more than one file) into elementary single-file jobs,
// and recomputes the global priority order before releasing the lock.
//
// The last element of the file list is the primary file: every derived
// source and destination path is computed from it.
package jobs
