package queue

import (
	"context"
	"errors"
	"fmt"
)

// Backend is the part of the store the job queue delegates to.
type Backend interface {
	QueueJob(ctx context.Context, job Job) error
	CompoundJobs(ctx context.Context) ([]Job, error)
	SetJobPriorities(ctx context.Context) error
}

// JobQueue is the lock-protected view of the queue used by enqueue sequences.
type JobQueue struct {
	backend Backend
	lock    *Lock
}

// NewJobQueue binds a backend to the lock that guards it.
func NewJobQueue(backend Backend, lock *Lock) *JobQueue {
	if lock == nil {
		lock = NewLock("", 0)
	}
	return &JobQueue{backend: backend, lock: lock}
}

// Lock acquires the queue lock.
func (q *JobQueue) Lock(ctx context.Context) error {
	return q.lock.Lock(ctx)
}

// Unlock releases the queue lock.
func (q *JobQueue) Unlock() error {
	return q.lock.Unlock()
}

// WithLock runs fn while holding the queue lock and always releases it.
func (q *JobQueue) WithLock(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if err := q.Lock(ctx); err != nil {
		return err
	}
	defer func() {
		if unlockErr := q.Unlock(); unlockErr != nil {
			err = errors.Join(err, unlockErr)
		}
	}()
	return fn(ctx)
}

// QueueJob appends a job record.
func (q *JobQueue) QueueJob(ctx context.Context, job Job) error {
	if q.backend == nil {
		return fmt.Errorf("queue job %s: no backend", job.ID)
	}
	return q.backend.QueueJob(ctx, job)
}

// CompoundJobs returns the queued jobs that reference more than one file.
func (q *JobQueue) CompoundJobs(ctx context.Context) ([]Job, error) {
	if q.backend == nil {
		return nil, errors.New("compound jobs: no backend")
	}
	return q.backend.CompoundJobs(ctx)
}

// SetJobPriorities asks the backend to recompute the global job order.
func (q *JobQueue) SetJobPriorities(ctx context.Context) error {
	if q.backend == nil {
		return errors.New("set job priorities: no backend")
	}
	return q.backend.SetJobPriorities(ctx)
}
