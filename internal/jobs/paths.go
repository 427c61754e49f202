package jobs

import (
	"regexp"
	"strings"
)

var lifSubimage = regexp.MustCompile(`(?i)^(.*)\.lif\s\((.*)\)`)

// SourceFolder is the owner's source image root, slash terminated.
func (d *Description) SourceFolder() string {
	return d.m.cfg.UserSourceFolder(d.owner)
}

// SourceImageName is the full path of the primary file.
func (d *Description) SourceImageName() string {
	return d.SourceFolder() + strings.TrimPrefix(d.PrimaryFile(), "/")
}

// SourceImageNameWithoutPath is the base name of the primary file.
func (d *Description) SourceImageNameWithoutPath() string {
	return lastSegment(d.SourceImageName())
}

// RelativeSourcePath is the directory of the primary file below the source
// folder, slash terminated, or "" for files at the top level.
func (d *Description) RelativeSourcePath() string {
	primary := strings.TrimPrefix(d.PrimaryFile(), "/")
	idx := strings.LastIndexByte(primary, '/')
	if idx < 0 {
		return ""
	}
	return primary[:idx+1]
}

// SourceImageShortName is the primary file's base name without its last
// extension. Leica container entries named "name.lif (series)" become
// "name_series" when the parameter setting declares the lif format.
func (d *Description) SourceImageShortName() string {
	base := lastSegment(d.PrimaryFile())
	if d.parameterSetting.ImageFileFormat() == "lif" {
		if m := lifSubimage.FindStringSubmatch(base); m != nil {
			return m[1] + "_" + m[2]
		}
	}
	if idx := strings.LastIndexByte(base, '.'); idx >= 0 {
		return base[:idx]
	}
	return base
}

// DestinationImageName is "<short name>_<task>_hrm". Anything up to the last
// occurrence of the task name in the short name is dropped, and spaces become
// underscores. The "_hrm" tail keeps writers that treat trailing digits as a
// plane index from mangling task names that end in a number.
func (d *Description) DestinationImageName() string {
	task := d.taskName()
	name := d.SourceImageShortName()
	if task != "" {
		if idx := strings.LastIndex(name, task); idx >= 0 {
			name = name[idx+len(task):]
		}
	}
	name = strings.ReplaceAll(name, " ", "_")
	return name + "_" + task + "_hrm"
}

// DestinationImageNameWithoutPath appends the output format extension.
func (d *Description) DestinationImageNameWithoutPath() string {
	return lastSegment(d.DestinationImageName()) + "." + d.outputExtension()
}

// DestinationImageNameAndExtension is the result path relative to the
// destination root.
func (d *Description) DestinationImageNameAndExtension() string {
	return d.RelativeSourcePath() + d.DestinationImageName() + "." + d.outputExtension()
}

// DestinationImageFullName is the result path without extension.
func (d *Description) DestinationImageFullName() string {
	return d.DestinationFolder() + d.DestinationImageName()
}

// DestinationFolder mirrors the primary file's relative path under the
// owner's destination root, with spaces replaced by underscores.
func (d *Description) DestinationFolder() string {
	return d.m.cfg.UserDestinationFolder(d.owner) + strings.ReplaceAll(d.RelativeSourcePath(), " ", "_")
}

func (d *Description) taskName() string {
	if d.taskSetting == nil {
		return ""
	}
	return d.taskSetting.Name
}

func (d *Description) outputExtension() string {
	return d.taskSetting.OutputFileExtension()
}

func lastSegment(name string) string {
	if idx := strings.LastIndexByte(name, '/'); idx >= 0 {
		return name[idx+1:]
	}
	return name
}
