package main

import (
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sagarc03/stashbox"
	"github.com/sagarc03/stashbox/config"
)

var addCmd = &cobra.Command{
	Use:   "add [flags] <file1> [file2] ...",
	Short: "Upload local files to the store",
	Long: `Upload local files to the configured store.

Files go through the same checks as browser uploads: the name is
sanitized, the extension must be allowed and the size must fit the
upload limit. An existing object with the same name is overwritten.

Examples:
  # Upload a single file
  stashbox add ./report.pdf

  # Upload several files quietly
  stashbox add -q notes.txt photo.png`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

var addQuiet bool

func init() {
	addCmd.Flags().BoolVarP(&addQuiet, "quiet", "q", false, "suppress per-file output")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
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

	added := 0
	rejected := 0

	for _, path := range args {
		result, addErr := addFile(cmd, service, path)
		if errors.Is(addErr, stashbox.ErrValidation) || errors.Is(addErr, stashbox.ErrPayloadTooLarge) {
			rejected++
			slog.Warn("rejected", "path", path, "err", addErr)
			continue
		}
		if addErr != nil {
			return fmt.Errorf("add %s: %w", path, addErr)
		}
		added++
		if !addQuiet {
			slog.Info("added", "path", path, "key", result.Key, "url", result.URL)
		}
	}

	slog.Info("add complete", "added", added, "rejected", rejected)
	return nil
}

func addFile(cmd *cobra.Command, service *stashbox.Service, path string) (stashbox.UploadResult, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return stashbox.UploadResult{}, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return stashbox.UploadResult{}, err
	}
	if info.IsDir() {
		return stashbox.UploadResult{}, fmt.Errorf("%s is a directory", path)
	}

	return service.Upload(cmd.Context(), stashbox.UploadRequest{
		Filename:    filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Body:        f,
		Size:        info.Size(),
	})
}
