package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/stashbox/config"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild filesystem metadata from the storage directory",
	Long: `Scan the storage directory and bring the metadata database in line
with it: every file gets an entry and entries without a file are removed.
This is useful when:
  - Setting up stashbox over an existing directory
  - Recovering metadata after database loss

Only the filesystem store keeps metadata, so this command fails for s3.`,
	Args: cobra.NoArgs,
	RunE: runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, _ []string) error {
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

	fs, err := b.requireFilesystem("reindex")
	if err != nil {
		return err
	}

	slog.Info("scanning storage directory", "path", cfg.Store.Filesystem.Path)

	result, err := fs.Reindex(ctx)
	if err != nil {
		return fmt.Errorf("reindex: %w", err)
	}

	slog.Info("reindex complete", "indexed", result.Indexed, "pruned", result.Pruned)
	return nil
}
