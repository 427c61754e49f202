package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"hrmq/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the job queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueReprioritizeCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show job counts per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				var rows [][]string
				for _, status := range queue.AllStatuses() {
					if count := stats[status]; count > 0 {
						rows = append(rows, []string{string(status), strconv.Itoa(count)})
					}
				}
				out := cmd.OutOrStdout()
				if len(rows) == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}
				fmt.Fprint(out, renderTable(out, []string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var owner string
	var statuses []string
	var compound bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue entries in dispatch order",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := queue.Filter{Owner: owner, Compound: compound}
			for _, raw := range statuses {
				status, ok := queue.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q", raw)
				}
				filter.Statuses = append(filter.Statuses, status)
			}
			return ctx.withStore(func(store *queue.Store) error {
				entries, err := store.List(cmd.Context(), filter)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}
				fmt.Fprint(out, renderTable(out,
					[]string{"Priority", "ID", "Owner", "Task", "Status", "Created"},
					buildQueueListRows(entries),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Only list entries of this owner")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Only list entries with these statuses")
	cmd.Flags().BoolVar(&compound, "compound", false, "Only list entries referencing several files")
	return cmd
}

func buildQueueListRows(entries []queue.Job) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		priority := "-"
		if entry.Priority > 0 {
			priority = strconv.Itoa(entry.Priority)
		}
		rows = append(rows, []string{
			priority,
			entry.ID,
			entry.Owner,
			entry.TaskSetting,
			string(entry.Status),
			formatCreated(entry.CreatedAt),
		})
	}
	return rows
}

func formatCreated(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Local().Format("2006-01-02 15:04:05")
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a queue entry and the names derived for it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			return ctx.withStore(func(store *queue.Store) error {
				entry, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if entry == nil {
					return fmt.Errorf("job %s: %w", id, queue.ErrJobNotFound)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID: %s\n", entry.ID)
				fmt.Fprintf(out, "Owner: %s\n", entry.Owner)
				if entry.Group != "" {
					fmt.Fprintf(out, "Group: %s\n", entry.Group)
				}
				fmt.Fprintf(out, "Status: %s\n", entry.Status)
				fmt.Fprintf(out, "Priority: %d\n", entry.Priority)
				fmt.Fprintf(out, "Created: %s\n", formatCreated(entry.CreatedAt))
				fmt.Fprintf(out, "Files: %d\n", len(entry.Files))
				for _, file := range entry.Files {
					fmt.Fprintf(out, "  %s\n", file)
				}

				manager, err := ctx.newManager(store)
				if err != nil {
					return err
				}
				desc, err := manager.LoadDescription(cmd.Context(), id)
				if err != nil {
					fmt.Fprintf(out, "Settings: unavailable (%v)\n", err)
					return nil
				}
				fmt.Fprintf(out, "Task: %s\n", desc.TaskSetting().Name)
				fmt.Fprintf(out, "Source: %s\n", desc.SourceImageName())
				fmt.Fprintf(out, "Destination: %s\n", desc.DestinationImageFullName())
				return nil
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>...",
		Short: "Remove jobs and their stored settings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				q := ctx.jobQueue(store)
				var removed int
				err := q.WithLock(cmd.Context(), func(lockCtx context.Context) error {
					var result *multierror.Error
					for _, id := range args {
						id = strings.TrimSpace(id)
						entry, err := store.GetByID(lockCtx, id)
						if err != nil {
							result = multierror.Append(result, err)
							continue
						}
						if entry == nil {
							result = multierror.Append(result, fmt.Errorf("job %s: %w", id, queue.ErrJobNotFound))
							continue
						}
						if err := store.RemoveJob(lockCtx, id); err != nil {
							result = multierror.Append(result, err)
							continue
						}
						removed++
					}
					if removed > 0 {
						if err := q.SetJobPriorities(lockCtx); err != nil {
							result = multierror.Append(result, err)
						}
					}
					return result.ErrorOrNil()
				})
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d job(s)\n", removed)
				return err
			})
		},
	}
}

func newQueueReprioritizeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reprioritize",
		Short: "Recompute the dispatch order of queued jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				q := ctx.jobQueue(store)
				if err := q.WithLock(cmd.Context(), q.SetJobPriorities); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Priorities recomputed (%s)\n", ctx.configValue().Queue.PriorityPolicy)
				return nil
			})
		},
	}
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check queue database health (schema, integrity, tables)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				health, err := store.CheckHealth(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database path: %s\n", health.DBPath)
				fmt.Fprintf(out, "Database exists: %s\n", yesNo(health.DatabaseExists))
				fmt.Fprintf(out, "Readable: %s\n", yesNo(health.DatabaseReadable))
				fmt.Fprintf(out, "Schema version: %s\n", health.SchemaVersion)
				if len(health.TablesPresent) > 0 {
					fmt.Fprintf(out, "Tables: %s\n", strings.Join(health.TablesPresent, ", "))
				}
				if len(health.MissingTables) > 0 {
					fmt.Fprintf(out, "Missing tables: %s\n", strings.Join(health.MissingTables, ", "))
				} else {
					fmt.Fprintln(out, "Missing tables: none")
				}
				fmt.Fprintf(out, "Integrity check: %s\n", yesNo(health.IntegrityCheck))
				fmt.Fprintf(out, "Total jobs: %d\n", health.TotalJobs)
				fmt.Fprintf(out, "Queued jobs: %d\n", health.QueuedJobs)
				if health.Error != "" {
					fmt.Fprintf(out, "Error: %s\n", health.Error)
				}
				return nil
			})
		},
	}
}
