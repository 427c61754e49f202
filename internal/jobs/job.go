package jobs

import (
	"context"
	"fmt"

	"hrmq/internal/logging"
	"hrmq/internal/queue"
)

// Job adapts a queue entry for dispatch preparation.
type Job struct {
	m     *Manager
	entry queue.Job
}

// Job wraps a queue entry.
func (m *Manager) Job(entry queue.Job) *Job {
	return &Job{m: m, entry: entry}
}

// Entry returns the wrapped queue entry.
func (j *Job) Entry() queue.Job {
	return j.entry
}

// CreateSubJobs consumes a compound entry: it creates an elementary job per
// file and then removes the compound entry. When the entry cannot be loaded
// or any elementary job fails, the compound entry is retired instead, so it
// is neither split twice nor left queued. Elementary entries are left alone.
func (j *Job) CreateSubJobs(ctx context.Context) error {
	id := j.entry.ID
	d, err := j.m.LoadDescription(ctx, id)
	if err != nil {
		if files, filesErr := j.m.store.JobFilesFor(ctx, id); filesErr == nil && len(files) > 1 {
			j.retire(ctx, id, err)
		}
		return fmt.Errorf("split job %s: %w", id, err)
	}
	if !d.IsCompound() {
		return nil
	}
	logger := j.m.logger.With(logging.JobID(id), logging.Owner(d.Owner()))

	if splitErr := d.CreateSubJobs(ctx); splitErr != nil {
		j.retire(ctx, id, splitErr)
		return fmt.Errorf("split job %s: %w", id, splitErr)
	}

	if err := j.m.store.RemoveJob(ctx, id); err != nil {
		logging.WarnWithContext(logger, "compound job not removed after split", "job_split_cleanup_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the compound entry is retired instead"),
		)
		if retireErr := j.m.store.RetireJob(ctx, id); retireErr != nil {
			return fmt.Errorf("retire job %s: %w", id, retireErr)
		}
	}
	logger.Info("compound job split",
		logging.String(logging.FieldEventType, "job_split"),
		logging.Int("elementary_jobs", len(d.Files())),
	)
	return nil
}

// retire takes a compound entry that could not be split out of the queue.
func (j *Job) retire(ctx context.Context, id string, cause error) {
	logger := j.m.logger.With(logging.JobID(id), logging.Owner(j.entry.Owner))
	if err := j.m.store.RetireJob(ctx, id); err != nil {
		logging.ErrorWithContext(logger, "compound job left queued after failed split", "job_split_retire_failed",
			logging.Error(err),
			logging.String("cause", cause.Error()),
			logging.String(logging.FieldErrorHint, "remove the job with hrmq queue remove"),
		)
	}
}
