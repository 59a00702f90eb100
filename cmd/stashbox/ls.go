package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sagarc03/stashbox"
	"github.com/sagarc03/stashbox/config"
)

var lsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List stored files, newest first",
	Args:    cobra.NoArgs,
	RunE:    runLs,
}

var lsJSON bool

func init() {
	lsCmd.Flags().BoolVar(&lsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(lsCmd)
}

func runLs(cmd *cobra.Command, _ []string) error {
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

	files, err := service.List(ctx)
	if err != nil {
		return err
	}

	if lsJSON {
		return writeFilesJSON(cmd.OutOrStdout(), files)
	}
	return writeFilesTable(cmd.OutOrStdout(), files)
}

func writeFilesJSON(w io.Writer, files []stashbox.ListedFile) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(files)
}

func writeFilesTable(w io.Writer, files []stashbox.ListedFile) error {
	if len(files) == 0 {
		_, err := fmt.Fprintln(w, "No files uploaded yet.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tSIZE\tLAST MODIFIED")
	for _, f := range files {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Key, f.SizeStr, f.LastModified.UTC().Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}
