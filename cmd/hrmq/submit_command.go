package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mattn/go-zglob"
	"github.com/spf13/cobra"

	"hrmq/internal/queue"
	"hrmq/internal/settings"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var settingsPath string
	var owner string
	var group string

	cmd := &cobra.Command{
		Use:   "submit <pattern>...",
		Short: "Queue a restoration request for images in the owner's source folder",
		Long: "Queue a restoration request. Patterns are matched below the owner's source\n" +
			"folder and may use ** to descend into subfolders. A request that matches\n" +
			"several files is split into one job per file.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(settingsPath) == "" {
				return fmt.Errorf("--settings is required")
			}
			file, err := settings.LoadFile(settingsPath)
			if err != nil {
				return err
			}

			return ctx.withStore(func(store *queue.Store) error {
				manager, err := ctx.newManager(store)
				if err != nil {
					return err
				}
				desc := manager.NewDescription()
				desc.SetParameterSetting(&file.Parameter)
				desc.SetTaskSetting(&file.Task)
				if o := strings.TrimSpace(owner); o != "" {
					desc.SetOwner(o)
				}
				if g := strings.TrimSpace(group); g != "" {
					desc.SetGroup(g)
				}
				if desc.Owner() == "" {
					return fmt.Errorf("no owner: pass --owner or set parameter_setting.owner")
				}

				files, err := matchSourceFiles(desc.SourceFolder(), args)
				if err != nil {
					return err
				}
				desc.SetFiles(files)

				if err := desc.AddJob(cmd.Context()); err != nil {
					if msg := desc.Message(); msg != "" {
						return fmt.Errorf("%s: %w", msg, err)
					}
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Queued job %s for %s (%d file(s))\n", desc.ID(), desc.Owner(), len(files))
				if !desc.IsCompound() {
					fmt.Fprintf(out, "Result: %s\n", desc.DestinationImageFullName())
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&settingsPath, "settings", "s", "", "TOML file holding the parameter and task settings")
	cmd.Flags().StringVarP(&owner, "owner", "o", "", "Owner of the request (defaults to the parameter setting owner)")
	cmd.Flags().StringVarP(&group, "group", "g", "", "Group of the request")
	return cmd
}

// matchSourceFiles expands patterns below root and returns the matching
// regular files relative to root. Matches of one pattern are sorted; pattern order
// and first occurrence are kept across patterns.
func matchSourceFiles(root string, patterns []string) ([]string, error) {
	root = filepath.Clean(root)
	var files []string
	seen := make(map[string]struct{})
	for _, pattern := range patterns {
		pattern = strings.TrimPrefix(strings.TrimSpace(pattern), "/")
		if pattern == "" {
			continue
		}
		matches, err := zglob.Glob(filepath.Join(root, pattern))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("match %q below %s: %w", pattern, root, err)
		}
		slices.Sort(matches)
		for _, match := range matches {
			rel, err := filepath.Rel(root, match)
			if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
				continue
			}
			if info, err := os.Stat(match); err != nil || info.IsDir() {
				continue
			}
			rel = filepath.ToSlash(rel)
			if _, dup := seen[rel]; dup {
				continue
			}
			seen[rel] = struct{}{}
			files = append(files, rel)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files below %s match %s", root, strings.Join(patterns, " "))
	}
	return files, nil
}
