package queue

import (
	"database/sql"
	"errors"
	"time"
)

const jobColumns = "id, owner, grp, parameter_setting, task_setting, status, priority, created_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id         string
		owner      string
		group      sql.NullString
		parameter  string
		task       string
		statusStr  string
		priority   sql.NullInt64
		createdRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&owner,
		&group,
		&parameter,
		&task,
		&statusStr,
		&priority,
		&createdRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:               id,
		Owner:            owner,
		Group:            group.String,
		ParameterSetting: parameter,
		TaskSetting:      task,
		Status:           Status(statusStr),
		Priority:         int(priority.Int64),
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

// timestampLayout has a fixed-width fraction so stored values sort in time order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
