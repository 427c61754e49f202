package jobs

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"hrmq/internal/settings"
)

// Description is one restoration request: who asked, with which settings,
// for which files.
type Description struct {
	m *Manager

	id               string
	owner            string
	group            string
	parameterSetting *settings.ParameterSetting
	taskSetting      *settings.TaskSetting
	files            []string
	message          string
}

func newDescription(m *Manager) *Description {
	return &Description{m: m, id: uuid.NewString()}
}

// ID returns the job id. It names the setting snapshots and the queue entry.
func (d *Description) ID() string { return d.id }

// SetID replaces the job id, typically before Load.
func (d *Description) SetID(id string) { d.id = id }

func (d *Description) Owner() string { return d.owner }

func (d *Description) SetOwner(owner string) { d.owner = owner }

func (d *Description) Group() string { return d.group }

func (d *Description) SetGroup(group string) { d.group = group }

// Message returns the last failure message, or "" after a successful create.
func (d *Description) Message() string { return d.message }

func (d *Description) ParameterSetting() *settings.ParameterSetting { return d.parameterSetting }

// SetParameterSetting assigns the parameter setting and adopts its owner and
// group when they are set.
func (d *Description) SetParameterSetting(setting *settings.ParameterSetting) {
	d.parameterSetting = setting
	if setting == nil {
		return
	}
	if setting.Owner != "" {
		d.owner = setting.Owner
	}
	if setting.Group != "" {
		d.group = setting.Group
	}
}

func (d *Description) TaskSetting() *settings.TaskSetting { return d.taskSetting }

func (d *Description) SetTaskSetting(setting *settings.TaskSetting) { d.taskSetting = setting }

// Files returns a copy of the file list.
func (d *Description) Files() []string { return slices.Clone(d.files) }

// SetFiles replaces the file list.
func (d *Description) SetFiles(files []string) { d.files = slices.Clone(files) }

// PrimaryFile returns the file all derived names are computed from: the last
// one in the list.
func (d *Description) PrimaryFile() string {
	if len(d.files) == 0 {
		return ""
	}
	return d.files[len(d.files)-1]
}

// IsCompound reports whether the request covers more than one file.
func (d *Description) IsCompound() bool {
	return len(d.files) > 1
}

// CopyFrom takes the settings, owner, and group of other. The id and the
// files are kept.
func (d *Description) CopyFrom(other *Description) {
	d.parameterSetting = other.parameterSetting
	d.taskSetting = other.taskSetting
	d.owner = other.owner
	d.group = other.group
}

// Load rebuilds the description from the snapshots stored under its id.
// The task setting takes its channel count from the parameter setting.
func (d *Description) Load(ctx context.Context) error {
	store := d.m.store
	owner, err := store.UserWhoCreatedJob(ctx, d.id)
	if err != nil {
		return fmt.Errorf("load job %s: %w", d.id, err)
	}
	param, err := store.ParameterSetting(ctx, d.id)
	if err != nil {
		return fmt.Errorf("load job %s: %w", d.id, err)
	}
	task, err := store.TaskSetting(ctx, d.id)
	if err != nil {
		return fmt.Errorf("load job %s: %w", d.id, err)
	}
	files, err := store.JobFilesFor(ctx, d.id)
	if err != nil {
		return fmt.Errorf("load job %s: %w", d.id, err)
	}
	if len(files) == 0 {
		return fmt.Errorf("load job %s: %w", d.id, errors.New("no files recorded"))
	}
	task.NumberOfChannels = param.NumberOfChannels()

	d.SetParameterSetting(param)
	d.owner = strings.TrimSpace(owner)
	d.taskSetting = task
	d.files = files
	return nil
}
