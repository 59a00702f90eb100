package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/subosito/gotenv"

	"github.com/sagarc03/stashbox/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "stashbox",
	Short:   "Upload front end for an object storage bucket",
	Long: `Stashbox serves a small web UI for uploading, listing, downloading
and deleting files kept in an S3 bucket or a local directory.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringSlice("config", nil, "config file path, repeatable (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before the environment is read")
	rootCmd.PersistentFlags().String("store", "", "object store: s3, filesystem (default: s3, env: STASHBOX_STORE_TYPE)")
	rootCmd.PersistentFlags().String("bucket", "", "S3 bucket name (env: STASHBOX_STORE_S3_BUCKET, AWS_BUCKET_NAME)")
	rootCmd.PersistentFlags().String("region", "", "S3 region (default: us-east-1, env: STASHBOX_STORE_S3_REGION, AWS_REGION)")
	rootCmd.PersistentFlags().String("storage-path", "", "filesystem store directory (default: ./data, env: STASHBOX_STORE_FILESYSTEM_PATH)")
	rootCmd.PersistentFlags().String("db-type", "", "metadata database for the filesystem store: sqlite, postgres (default: sqlite)")
	rootCmd.PersistentFlags().String("db-dsn", "", "metadata database connection string (default: stashbox.db)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (default: info)")
	rootCmd.PersistentFlags().String("log-format", "", "log format: text, json (default: text)")
}

// loadConfig runs before every command except configure. It reads the dotenv
// file, loads the configuration and stores it on the command context.
func loadConfig(cmd *cobra.Command, _ []string) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile != "" {
		// Variables already set in the environment win over the file.
		if err := gotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load env file: %w", err)
		}
	}

	configFiles, _ := cmd.Flags().GetStringSlice("config")

	cfg, err := config.Load(configFiles, cmd.Flags())
	if err != nil {
		return err
	}

	setupLogging(cfg)

	cmd.SetContext(config.WithContext(cmd.Context(), cfg))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
