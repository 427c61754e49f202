package jobs

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"hrmq/internal/config"
	"hrmq/internal/logging"
	"hrmq/internal/queue"
)

// AddJob stores the request and prepares the queue, all under the queue
// lock: the job is created, every queued compound job is split, and the
// priorities are recomputed. Split and priority failures are logged; only a
// failed create (or lock) fails the call.
func (d *Description) AddJob(ctx context.Context) error {
	logger := d.m.logger.With(logging.JobID(d.id), logging.Owner(d.owner))
	err := d.m.queue.WithLock(ctx, func(ctx context.Context) error {
		if err := d.CreateJob(ctx); err != nil {
			return err
		}

		if err := d.ProcessCompoundJobs(ctx); err != nil {
			logging.WarnWithContext(logger, "compound job split incomplete", "job_split_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "inspect split entries with hrmq queue list --status split"),
				logging.String(logging.FieldImpact, "some files of a multi-file request are not queued"),
			)
		}

		if err := d.m.queue.SetJobPriorities(ctx); err != nil {
			logging.WarnWithContext(logger, "could not set job priorities", "priority_recompute_failed",
				logging.Error(fmt.Errorf("%w: %w", ErrPriorityRecomputeFailed, err)),
				logging.String(logging.FieldErrorHint, "run hrmq queue reprioritize"),
				logging.String(logging.FieldImpact, "queue order is stale until the next enqueue"),
			)
		}
		return nil
	})
	if err != nil {
		if d.message == "" {
			d.message = MessageDatabaseError
		}
		return err
	}
	logger.Info("job added",
		logging.String(logging.FieldEventType, "job_added"),
		logging.Int("files", len(d.files)),
	)
	return nil
}

// CreateJob persists the parameter snapshot, the task snapshot, the file
// list, and the queue entry. Every step is attempted even when an earlier
// one fails; the returned error aggregates all failures.
//
// With the best_effort persistence policy, whatever succeeded stays stored.
// With transactional, everything stored under the id is removed again.
func (d *Description) CreateJob(ctx context.Context) error {
	store := d.m.store
	var result *multierror.Error

	if err := store.SaveParameterSetting(ctx, d.parameterSetting.Snapshot(d.owner, d.id)); err != nil {
		result = multierror.Append(result, err)
	}
	if err := store.SaveTaskSetting(ctx, d.taskSetting.Snapshot(d.owner, d.id)); err != nil {
		result = multierror.Append(result, err)
	}
	if err := store.SaveJobFiles(ctx, d.id, d.owner, d.files); err != nil {
		result = multierror.Append(result, err)
	}
	entry := queue.Job{
		ID:               d.id,
		Owner:            d.owner,
		Group:            d.group,
		ParameterSetting: d.id,
		TaskSetting:      d.id,
		Files:            d.Files(),
	}
	if err := d.m.queue.QueueJob(ctx, entry); err != nil {
		result = multierror.Append(result, err)
	}

	if result.ErrorOrNil() == nil {
		d.message = ""
		return nil
	}

	d.message = MessageDatabaseError
	if d.m.cfg.Queue.Persistence == config.PersistenceTransactional {
		if err := store.RemoveJob(ctx, d.id); err != nil {
			result = multierror.Append(result, fmt.Errorf("roll back job %s: %w", d.id, err))
		}
	}
	return fmt.Errorf("%w: job %s: %w", ErrPersistenceFailed, d.id, result)
}

// ProcessCompoundJobs splits every queued compound job. A failing job does
// not stop the others.
func (d *Description) ProcessCompoundJobs(ctx context.Context) error {
	entries, err := d.m.queue.CompoundJobs(ctx)
	if err != nil {
		return fmt.Errorf("list compound jobs: %w", err)
	}
	var result *multierror.Error
	for _, entry := range entries {
		if err := d.m.Job(entry).CreateSubJobs(ctx); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// CreateSubJobs creates one elementary job per file, sharing this
// description's owner, group, and settings. Every file is attempted.
func (d *Description) CreateSubJobs(ctx context.Context) error {
	var result *multierror.Error
	for _, file := range d.files {
		sub := newDescription(d.m)
		sub.CopyFrom(d)
		sub.SetFiles([]string{file})
		if err := sub.CreateJob(ctx); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		d.message = MessageDatabaseError
		return err
	}
	return nil
}
