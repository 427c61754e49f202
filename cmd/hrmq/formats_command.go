package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"hrmq/internal/fileserver"
	"hrmq/internal/queue"
)

func newFormatsCommand(ctx *commandContext) *cobra.Command {
	formatsCmd := &cobra.Command{
		Use:   "formats",
		Short: "Inspect and extend the accepted file formats",
	}
	formatsCmd.AddCommand(newFormatsListCommand(ctx))
	formatsCmd.AddCommand(newFormatsAddCommand(ctx))
	return formatsCmd
}

func newFormatsListCommand(ctx *commandContext) *cobra.Command {
	var withDot bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every extension ingest accepts (images, extras, archives)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				ingestor, err := ctx.newIngestor(store)
				if err != nil {
					return err
				}
				exts, err := ingestor.AllValidExtensions(cmd.Context(), withDot)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(exts))
				for _, ext := range exts {
					rows = append(rows, []string{ext, formatKind(cmd.Context(), ingestor, ext)})
				}
				out := cmd.OutOrStdout()
				fmt.Fprint(out, renderTable(out, []string{"Extension", "Kind"}, rows, nil))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&withDot, "dot", false, "Prefix every extension with a dot")
	return cmd
}

// formatKind labels an extension as archive, image, or extra (companion
// files accepted alongside images).
func formatKind(ctx context.Context, ingestor *fileserver.Ingestor, ext string) string {
	name := "x." + strings.TrimPrefix(ext, ".")
	switch {
	case ingestor.IsArchiveFile(name):
		return "archive"
	case ingestor.IsValidImage(ctx, name, false):
		return "image"
	default:
		return "extra"
	}
}

func newFormatsAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <extension>...",
		Short: "Register additional image extensions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				added, err := store.AddFileExtensions(cmd.Context(), args...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %d extension(s)\n", added)
				return nil
			})
		},
	}
}
