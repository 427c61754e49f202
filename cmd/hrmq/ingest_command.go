package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"hrmq/internal/queue"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var user string
	var subdir string

	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Move uploaded images or archives into a user's source folder",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user = strings.TrimSpace(user)
			if user == "" {
				return fmt.Errorf("--user is required")
			}
			return ctx.withStore(func(store *queue.Store) error {
				ingestor, err := ctx.newIngestor(store)
				if err != nil {
					return err
				}
				destDir := filepath.Join(ctx.configValue().UserSourceFolder(user), subdir)

				out := cmd.OutOrStdout()
				var result *multierror.Error
				for _, arg := range args {
					source, err := filepath.Abs(arg)
					if err != nil {
						result = multierror.Append(result, fmt.Errorf("resolve %s: %w", arg, err))
						continue
					}
					target, err := ingestor.MoveUploadedFile(cmd.Context(), source, destDir)
					if err != nil {
						result = multierror.Append(result, err)
						continue
					}
					fmt.Fprintf(out, "%s -> %s\n", arg, target)
				}
				return result.ErrorOrNil()
			})
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "Owner whose source folder receives the files")
	cmd.Flags().StringVar(&subdir, "subdir", "", "Folder below the source folder to place the files in")
	return cmd
}
