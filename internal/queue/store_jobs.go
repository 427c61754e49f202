package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"hrmq/internal/settings"
)

// ErrJobNotFound is returned when no queue entry or file list matches an id.
var ErrJobNotFound = errors.New("job not found")

// AllFileExtensions returns the registered image file extensions.
func (s *Store) AllFileExtensions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT extension FROM file_extensions ORDER BY extension`)
	if err != nil {
		return nil, fmt.Errorf("list file extensions: %w", err)
	}
	defer rows.Close()

	var exts []string
	for rows.Next() {
		var ext string
		if err := rows.Scan(&ext); err != nil {
			return nil, err
		}
		exts = append(exts, ext)
	}
	return exts, rows.Err()
}

// AddFileExtensions registers image file extensions and returns how many
// were new.
func (s *Store) AddFileExtensions(ctx context.Context, exts ...string) (int, error) {
	added := 0
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		added = 0
		for _, ext := range exts {
			ext = strings.ToLower(strings.TrimLeft(strings.TrimSpace(ext), "."))
			if ext == "" {
				continue
			}
			res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO file_extensions (extension) VALUES (?)`, ext)
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n > 0 {
				added++
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("add file extensions: %w", err)
	}
	return added, nil
}

// SaveParameterSetting stores a named parameter setting snapshot. Snapshots
// are immutable; saving a name twice fails.
func (s *Store) SaveParameterSetting(ctx context.Context, setting settings.ParameterSetting) error {
	values, err := json.Marshal(setting.Parameters)
	if err != nil {
		return fmt.Errorf("marshal parameter setting: %w", err)
	}
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO job_parameter_settings (name, owner, grp, values_json, created_at) VALUES (?, ?, ?, ?, ?)`,
		setting.Name,
		setting.Owner,
		nullableString(setting.Group),
		string(values),
		timestamp(time.Now()),
	); err != nil {
		return fmt.Errorf("save parameter setting %s: %w", setting.Name, err)
	}
	return nil
}

// SaveTaskSetting stores a named task setting snapshot.
func (s *Store) SaveTaskSetting(ctx context.Context, setting settings.TaskSetting) error {
	values, err := json.Marshal(setting.Parameters)
	if err != nil {
		return fmt.Errorf("marshal task setting: %w", err)
	}
	channels := setting.NumberOfChannels
	if channels < 1 {
		channels = 1
	}
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO job_task_settings (name, owner, channels, values_json, created_at) VALUES (?, ?, ?, ?, ?)`,
		setting.Name,
		setting.Owner,
		channels,
		string(values),
		timestamp(time.Now()),
	); err != nil {
		return fmt.Errorf("save task setting %s: %w", setting.Name, err)
	}
	return nil
}

// ParameterSetting loads a parameter setting snapshot by name.
func (s *Store) ParameterSetting(ctx context.Context, name string) (*settings.ParameterSetting, error) {
	var (
		owner  string
		group  sql.NullString
		values string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT owner, grp, values_json FROM job_parameter_settings WHERE name = ?`, name,
	).Scan(&owner, &group, &values)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("parameter setting %s: %w", name, ErrJobNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load parameter setting %s: %w", name, err)
	}
	setting := &settings.ParameterSetting{Name: name, Owner: owner, Group: group.String}
	if err := json.Unmarshal([]byte(values), &setting.Parameters); err != nil {
		return nil, fmt.Errorf("decode parameter setting %s: %w", name, err)
	}
	return setting, nil
}

// TaskSetting loads a task setting snapshot by name.
func (s *Store) TaskSetting(ctx context.Context, name string) (*settings.TaskSetting, error) {
	var (
		owner    string
		channels int
		values   string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT owner, channels, values_json FROM job_task_settings WHERE name = ?`, name,
	).Scan(&owner, &channels, &values)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task setting %s: %w", name, ErrJobNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load task setting %s: %w", name, err)
	}
	setting := &settings.TaskSetting{Name: name, Owner: owner, NumberOfChannels: channels}
	if err := json.Unmarshal([]byte(values), &setting.Parameters); err != nil {
		return nil, fmt.Errorf("decode task setting %s: %w", name, err)
	}
	return setting, nil
}

// SaveJobFiles stores the ordered file list of a job.
func (s *Store) SaveJobFiles(ctx context.Context, id, owner string, files []string) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for seq, file := range files {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO job_files (job_id, owner, seq, file) VALUES (?, ?, ?, ?)`,
				id, owner, seq, file,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save files for job %s: %w", id, err)
	}
	return nil
}

// JobFilesFor returns the ordered file list of a job.
func (s *Store) JobFilesFor(ctx context.Context, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT file FROM job_files WHERE job_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("files for job %s: %w", id, err)
	}
	defer rows.Close()

	var files []string
	for rows.Next() {
		var file string
		if err := rows.Scan(&file); err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

// UserWhoCreatedJob returns the owner recorded with a job's files.
func (s *Store) UserWhoCreatedJob(ctx context.Context, id string) (string, error) {
	var owner string
	err := s.db.QueryRowContext(ctx,
		`SELECT owner FROM job_files WHERE job_id = ?
         UNION ALL SELECT owner FROM job_queue WHERE id = ?
         LIMIT 1`,
		id, id,
	).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("owner of job %s: %w", id, ErrJobNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("owner of job %s: %w", id, err)
	}
	return owner, nil
}

// QueueJob appends a queued entry for job. Its priority is assigned by the
// next SetJobPriorities call.
func (s *Store) QueueJob(ctx context.Context, job Job) error {
	if strings.TrimSpace(job.ID) == "" {
		return errors.New("queue job: id is required")
	}
	created := job.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO job_queue (id, owner, grp, parameter_setting, task_setting, status, priority, created_at)
         VALUES (?, ?, ?, ?, ?, ?, 0, ?)`,
		job.ID,
		job.Owner,
		nullableString(job.Group),
		job.ParameterSetting,
		job.TaskSetting,
		StatusQueued,
		timestamp(created),
	); err != nil {
		return fmt.Errorf("queue job %s: %w", job.ID, err)
	}
	return nil
}

// GetByID fetches a queue entry with its files. It returns nil when the
// entry does not exist.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM job_queue WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	if job.Files, err = s.JobFilesFor(ctx, id); err != nil {
		return nil, err
	}
	return job, nil
}

// CompoundJobs returns the queued entries that reference more than one file,
// oldest first.
func (s *Store) CompoundJobs(ctx context.Context) ([]Job, error) {
	return s.List(ctx, Filter{Statuses: []Status{StatusQueued}, Compound: true})
}

// RetireJob marks a compound entry as split so it is neither split again nor
// dispatched.
func (s *Store) RetireJob(ctx context.Context, id string) error {
	res, err := s.execWithRetry(ctx, `UPDATE job_queue SET status = ?, priority = 0 WHERE id = ?`, StatusSplit, id)
	if err != nil {
		return fmt.Errorf("retire job %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("retire job %s: %w", id, ErrJobNotFound)
	}
	return nil
}

// RemoveJob deletes everything stored under a job id: the queue entry, its
// files, and both setting snapshots. Missing records are not an error.
func (s *Store) RemoveJob(ctx context.Context, id string) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{
			`DELETE FROM job_queue WHERE id = ?`,
			`DELETE FROM job_files WHERE job_id = ?`,
			`DELETE FROM job_parameter_settings WHERE name = ?`,
			`DELETE FROM job_task_settings WHERE name = ?`,
		} {
			if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("remove job %s: %w", id, err)
	}
	return nil
}
