package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queue entry.
type Status string

const (
	StatusQueued   Status = "queued"
	StatusStarted  Status = "started"
	StatusFinished Status = "finished"
	StatusBroken   Status = "broken"
	// StatusSplit marks a compound entry whose elementary jobs were created.
	StatusSplit Status = "split"
)

var allStatuses = []Status{
	StatusQueued,
	StatusStarted,
	StatusFinished,
	StatusBroken,
	StatusSplit,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Job is a persisted queue entry.
type Job struct {
	ID               string
	Owner            string
	Group            string
	ParameterSetting string
	TaskSetting      string
	Files            []string
	Priority         int
	Status           Status
	CreatedAt        time.Time
}

// IsCompound reports whether the entry references more than one file.
func (j Job) IsCompound() bool {
	return len(j.Files) > 1
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Owner    string
	Statuses []Status
	Compound bool
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TablesPresent    []string
	MissingTables    []string
	IntegrityCheck   bool
	TotalJobs        int
	QueuedJobs       int
	Error            string
}
