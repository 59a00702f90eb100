package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/stashbox"
	"github.com/sagarc03/stashbox/config"
)

var rmCmd = &cobra.Command{
	Use:     "rm [flags] <name1> [name2] ...",
	Aliases: []string{"remove"},
	Short:   "Delete files from the store",
	Long: `Delete files from the configured store by name.

Examples:
  # Delete a single file
  stashbox rm report.pdf

  # Delete several files quietly
  stashbox rm -q a.txt b.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRm,
}

var rmQuiet bool

func init() {
	rmCmd.Flags().BoolVarP(&rmQuiet, "quiet", "q", false, "suppress per-file output")
	rootCmd.AddCommand(rmCmd)
}

func runRm(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	service, err := newService(cfg, b.store)
	if err != nil {
		return err
	}

	removed := 0
	notFound := 0

	for _, key := range args {
		deleteErr := service.Delete(ctx, key)
		if errors.Is(deleteErr, stashbox.ErrNotFound) {
			notFound++
			if !rmQuiet {
				slog.Warn("not found", "key", key)
			}
			continue
		}
		if deleteErr != nil {
			return fmt.Errorf("remove %s: %w", key, deleteErr)
		}
		removed++
		if !rmQuiet {
			slog.Info("removed", "key", key)
		}
	}

	slog.Info("remove complete", "removed", removed, "not_found", notFound)
	return nil
}
