package jobs

import (
	"context"

	"hrmq/internal/queue"
	"hrmq/internal/settings"
)

// Store is the persistence contract the job engine relies on. *queue.Store
// implements it.
type Store interface {
	queue.Backend

	AllFileExtensions(ctx context.Context) ([]string, error)
	SaveParameterSetting(ctx context.Context, setting settings.ParameterSetting) error
	SaveTaskSetting(ctx context.Context, setting settings.TaskSetting) error
	SaveJobFiles(ctx context.Context, id, owner string, files []string) error
	UserWhoCreatedJob(ctx context.Context, id string) (string, error)
	JobFilesFor(ctx context.Context, id string) ([]string, error)
	ParameterSetting(ctx context.Context, name string) (*settings.ParameterSetting, error)
	TaskSetting(ctx context.Context, name string) (*settings.TaskSetting, error)
	RemoveJob(ctx context.Context, id string) error
	RetireJob(ctx context.Context, id string) error
}

var _ Store = (*queue.Store)(nil)
