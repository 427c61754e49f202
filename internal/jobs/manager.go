package jobs

import (
	"context"
	"log/slog"

	"hrmq/internal/config"
	"hrmq/internal/logging"
	"hrmq/internal/queue"
)

// Manager carries the collaborators every Description needs.
type Manager struct {
	cfg    *config.Config
	store  Store
	queue  *queue.JobQueue
	logger *slog.Logger
}

// NewManager wires a job engine. The queue must be backed by the same store.
func NewManager(cfg *config.Config, store Store, q *queue.JobQueue, logger *slog.Logger) *Manager {
	if cfg == nil {
		defaults := config.Default()
		cfg = &defaults
	}
	if q == nil {
		q = queue.NewJobQueue(store, nil)
	}
	return &Manager{
		cfg:    cfg,
		store:  store,
		queue:  q,
		logger: logging.NewComponentLogger(logger, "jobs"),
	}
}

// NewDescription returns an empty request with a fresh id.
func (m *Manager) NewDescription() *Description {
	return newDescription(m)
}

// LoadDescription rebuilds a stored job by id.
func (m *Manager) LoadDescription(ctx context.Context, id string) (*Description, error) {
	d := newDescription(m)
	d.SetID(id)
	if err := d.Load(ctx); err != nil {
		return nil, err
	}
	return d, nil
}
