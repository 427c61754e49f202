package queue

import (
	"context"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
)

// List returns queue entries matching filter, queued entries in priority
// order first, then everything else oldest first.
func (s *Store) List(ctx context.Context, filter Filter) ([]Job, error) {
	ds := s.dialect.
		From("job_queue").
		Select(goqu.L(jobColumns)).
		Order(
			goqu.L("CASE WHEN priority > 0 THEN 0 ELSE 1 END").Asc(),
			goqu.C("priority").Asc(),
			goqu.C("created_at").Asc(),
			goqu.L("rowid").Asc(),
		)

	if owner := strings.TrimSpace(filter.Owner); owner != "" {
		ds = ds.Where(goqu.C("owner").Eq(owner))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]any, 0, len(filter.Statuses))
		for _, status := range filter.Statuses {
			statuses = append(statuses, string(status))
		}
		ds = ds.Where(goqu.C("status").In(statuses...))
	}
	if filter.Compound {
		ds = ds.Where(goqu.L("(SELECT COUNT(1) FROM job_files f WHERE f.job_id = job_queue.id) > 1"))
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range jobs {
		if jobs[i].Files, err = s.JobFilesFor(ctx, jobs[i].ID); err != nil {
			return nil, err
		}
	}
	return jobs, nil
}

// Stats returns a count of entries grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM job_queue GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}
