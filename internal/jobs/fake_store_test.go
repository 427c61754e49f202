package jobs_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"hrmq/internal/queue"
	"hrmq/internal/settings"
)

var errInjected = errors.New("injected fault")

// fakeStore keeps everything in memory, records the order of calls, and
// lets tests fail individual steps.
type fakeStore struct {
	mu sync.Mutex

	params  map[string]settings.ParameterSetting
	tasks   map[string]settings.TaskSetting
	files   map[string][]string
	owners  map[string]string
	entries []queue.Job
	removed []string
	retired []string
	events  []string

	failParam    func(id string) bool
	failQueue    func(job queue.Job) bool
	failPriority bool
	stepDelay    time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		params: map[string]settings.ParameterSetting{},
		tasks:  map[string]settings.TaskSetting{},
		files:  map[string][]string{},
		owners: map[string]string{},
	}
}

func (f *fakeStore) record(event string) {
	f.events = append(f.events, event)
}

func (f *fakeStore) AllFileExtensions(context.Context) ([]string, error) {
	return []string{"tif"}, nil
}

func (f *fakeStore) SaveParameterSetting(_ context.Context, setting settings.ParameterSetting) error {
	if f.stepDelay > 0 {
		time.Sleep(f.stepDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("param:" + setting.Name)
	if f.failParam != nil && f.failParam(setting.Name) {
		return errInjected
	}
	if _, ok := f.params[setting.Name]; ok {
		return fmt.Errorf("parameter setting %s exists", setting.Name)
	}
	f.params[setting.Name] = setting
	return nil
}

func (f *fakeStore) SaveTaskSetting(_ context.Context, setting settings.TaskSetting) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("task:" + setting.Name)
	f.tasks[setting.Name] = setting
	return nil
}

func (f *fakeStore) SaveJobFiles(_ context.Context, id, owner string, files []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("files:" + id)
	f.files[id] = slices.Clone(files)
	f.owners[id] = owner
	return nil
}

func (f *fakeStore) QueueJob(_ context.Context, job queue.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("queue:" + job.ID)
	if f.failQueue != nil && f.failQueue(job) {
		return errInjected
	}
	job.Status = queue.StatusQueued
	job.Files = slices.Clone(f.files[job.ID])
	f.entries = append(f.entries, job)
	return nil
}

func (f *fakeStore) CompoundJobs(context.Context) ([]queue.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("compound")
	var out []queue.Job
	for _, entry := range f.entries {
		if entry.Status == queue.StatusQueued && entry.IsCompound() {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (f *fakeStore) SetJobPriorities(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("priorities")
	if f.failPriority {
		return errInjected
	}
	rank := 0
	for i := range f.entries {
		if f.entries[i].Status == queue.StatusQueued {
			rank++
			f.entries[i].Priority = rank
		}
	}
	return nil
}

func (f *fakeStore) UserWhoCreatedJob(_ context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	owner, ok := f.owners[id]
	if !ok {
		return "", queue.ErrJobNotFound
	}
	return owner, nil
}

func (f *fakeStore) JobFilesFor(_ context.Context, id string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.files[id]), nil
}

func (f *fakeStore) ParameterSetting(_ context.Context, name string) (*settings.ParameterSetting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	setting, ok := f.params[name]
	if !ok {
		return nil, queue.ErrJobNotFound
	}
	return &setting, nil
}

func (f *fakeStore) TaskSetting(_ context.Context, name string) (*settings.TaskSetting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	setting, ok := f.tasks[name]
	if !ok {
		return nil, queue.ErrJobNotFound
	}
	return &setting, nil
}

func (f *fakeStore) RemoveJob(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, id)
	delete(f.params, id)
	delete(f.tasks, id)
	delete(f.files, id)
	delete(f.owners, id)
	f.entries = slices.DeleteFunc(f.entries, func(job queue.Job) bool { return job.ID == id })
	return nil
}

func (f *fakeStore) RetireJob(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retired = append(f.retired, id)
	for i := range f.entries {
		if f.entries[i].ID == id {
			f.entries[i].Status = queue.StatusSplit
			return nil
		}
	}
	return queue.ErrJobNotFound
}

// queued returns the queued entries.
func (f *fakeStore) queued() []queue.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []queue.Job
	for _, entry := range f.entries {
		if entry.Status == queue.StatusQueued {
			out = append(out, entry)
		}
	}
	return out
}
