// Package settings models the parameter and task settings a restoration
// request refers to. Their content is opaque to the queue engine: it only
// reads the few parameters that shape derived file names and snapshots the
// rest under the job id.
package settings

import (
	"fmt"
	"maps"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Well-known parameter names.
const (
	ParamImageFileFormat  = "ImageFileFormat"
	ParamNumberOfChannels = "NumberOfChannels"
	ParamOutputFileFormat = "OutputFileFormat"
)

// ParameterSetting describes the image acquisition parameters of a request.
type ParameterSetting struct {
	Name       string            `toml:"name"`
	Owner      string            `toml:"owner"`
	Group      string            `toml:"group"`
	Parameters map[string]string `toml:"parameters"`
}

// TaskSetting describes the restoration task to run on each image.
type TaskSetting struct {
	Name             string            `toml:"name"`
	Owner            string            `toml:"owner"`
	NumberOfChannels int               `toml:"number_of_channels"`
	Parameters       map[string]string `toml:"parameters"`
}

// Parameter returns the raw value of a named parameter.
func (p *ParameterSetting) Parameter(name string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(p.Parameters[name])
}

// ImageFileFormat returns the declared source file format (for example "lif").
func (p *ParameterSetting) ImageFileFormat() string {
	return strings.ToLower(p.Parameter(ParamImageFileFormat))
}

// NumberOfChannels returns the declared channel count, or 1 when unset or invalid.
func (p *ParameterSetting) NumberOfChannels() int {
	n, err := strconv.Atoi(p.Parameter(ParamNumberOfChannels))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Snapshot copies the setting under a new owner and name.
func (p *ParameterSetting) Snapshot(owner, name string) ParameterSetting {
	out := ParameterSetting{Name: name, Owner: owner}
	if p != nil {
		out.Group = p.Group
		out.Parameters = maps.Clone(p.Parameters)
	}
	return out
}

// Parameter returns the raw value of a named parameter.
func (t *TaskSetting) Parameter(name string) string {
	if t == nil {
		return ""
	}
	return strings.TrimSpace(t.Parameters[name])
}

// Snapshot copies the setting under a new owner and name.
func (t *TaskSetting) Snapshot(owner, name string) TaskSetting {
	out := TaskSetting{Name: name, Owner: owner}
	if t != nil {
		out.NumberOfChannels = t.NumberOfChannels
		out.Parameters = maps.Clone(t.Parameters)
	}
	return out
}

var outputFormatExtensions = map[string]string{
	"tiff 8-bit":                        "tif",
	"tiff 16-bit":                       "tif",
	"tiff 18-bit":                       "tif",
	"tiff 32-bit":                       "tif",
	"ics (image cytometry standard)":    "ics",
	"ics2 (image cytometry standard 2)": "ics2",
	"hdf5 (huygens native format)":      "h5",
	"ims (imaris classic)":              "ims",
	"ome-xml":                           "ome",
	"r3d (applied precision)":           "r3d",
}

// OutputFileExtension maps the OutputFileFormat parameter to a file extension.
// Unknown labels are lower-cased and used as the extension directly; an unset
// format yields "ics", the restoration worker's native output.
func (t *TaskSetting) OutputFileExtension() string {
	label := strings.ToLower(t.Parameter(ParamOutputFileFormat))
	if label == "" {
		return "ics"
	}
	if ext, ok := outputFormatExtensions[label]; ok {
		return ext
	}
	return strings.TrimLeft(label, ".")
}

// File is the on-disk TOML form of a request's settings.
type File struct {
	Parameter ParameterSetting `toml:"parameter_setting"`
	Task      TaskSetting      `toml:"task_setting"`
}

// LoadFile reads parameter and task settings from a TOML file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	var file File
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	if strings.TrimSpace(file.Task.Name) == "" {
		return nil, fmt.Errorf("settings %s: task_setting.name is required", path)
	}
	return &file, nil
}
