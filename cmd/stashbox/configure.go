package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/sagarc03/stashbox/config"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Write a config file interactively",
	Long: `Write a config file by answering a few questions.

You will be prompted for:
  - The object store (s3 or filesystem)
  - Bucket and credentials, or the storage directory
  - The server port and public base URL
  - The allowed file extensions

The result is written to ./config.yaml unless --output is given.`,
	Args: cobra.NoArgs,
	// The config file may not exist yet, so skip loading it.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE:              runConfigure,
}

var configureOutput string

func init() {
	configureCmd.Flags().StringVarP(&configureOutput, "output", "o", config.DefaultFile, "config file to write")
	rootCmd.AddCommand(configureCmd)
}

func runConfigure(_ *cobra.Command, _ []string) error {
	if config.FileExists(configureOutput) {
		prompt := promptui.Prompt{
			Label:     fmt.Sprintf("'%s' already exists. Overwrite it", configureOutput),
			IsConfirm: true,
		}
		if _, promptErr := prompt.Run(); promptErr != nil {
			fmt.Println("Cancelled.")
			return nil //nolint:nilerr // User cancelled, not an error
		}
	}

	storeSelect := promptui.Select{
		Label: "Object store",
		Items: []string{config.StoreS3, config.StoreFilesystem},
	}
	_, storeType, err := storeSelect.Run()
	if err != nil {
		return handlePromptError(err)
	}

	f := &config.File{Store: config.FileStore{Type: storeType}}

	switch storeType {
	case config.StoreS3:
		f.Store.S3, err = promptS3()
	case config.StoreFilesystem:
		f.Store.Filesystem, err = promptFilesystem()
	}
	if err != nil {
		return handlePromptError(err)
	}

	portPrompt := promptui.Prompt{
		Label:    "Server port",
		Default:  "5000",
		Validate: validatePort,
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}
	f.Server.Port, _ = strconv.Atoi(portStr)

	baseURLPrompt := promptui.Prompt{
		Label:    "Public base URL (empty for http://localhost:<port>)",
		Validate: validateOptionalURL,
	}
	f.Server.BaseURL, err = baseURLPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}

	extPrompt := promptui.Prompt{
		Label:   "Allowed extensions (comma separated)",
		Default: "txt,pdf,png,jpg,jpeg,gif,doc,docx",
		Validate: func(input string) error {
			if len(splitList(input)) == 0 {
				return errors.New("at least one extension is required")
			}
			return nil
		},
	}
	extStr, err := extPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}
	f.Upload.AllowedExtensions = splitList(extStr)

	if err := f.Save(configureOutput); err != nil {
		return err
	}

	fmt.Printf("Config written to %s.\n", configureOutput)
	fmt.Println("Run 'stashbox serve' to start the server.")
	return nil
}

func promptS3() (*config.FileS3, error) {
	s3 := &config.FileS3{}

	bucketPrompt := promptui.Prompt{
		Label: "Bucket name",
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errors.New("bucket name is required")
			}
			return nil
		},
	}
	bucket, err := bucketPrompt.Run()
	if err != nil {
		return nil, err
	}
	s3.Bucket = strings.TrimSpace(bucket)

	regionPrompt := promptui.Prompt{
		Label:   "Region",
		Default: "us-east-1",
	}
	if s3.Region, err = regionPrompt.Run(); err != nil {
		return nil, err
	}

	endpointPrompt := promptui.Prompt{
		Label:    "Custom endpoint (empty for AWS)",
		Validate: validateOptionalURL,
	}
	if s3.Endpoint, err = endpointPrompt.Run(); err != nil {
		return nil, err
	}
	if s3.Endpoint != "" {
		pathStylePrompt := promptui.Prompt{
			Label:     "Use path-style addressing",
			IsConfirm: true,
		}
		_, confirmErr := pathStylePrompt.Run()
		s3.UsePathStyle = confirmErr == nil
	}

	fmt.Println("Leave the keys empty to use the default AWS credential chain.")

	accessKeyPrompt := promptui.Prompt{
		Label: "Access Key ID",
	}
	if s3.AccessKeyID, err = accessKeyPrompt.Run(); err != nil {
		return nil, err
	}

	if s3.AccessKeyID != "" {
		secretKeyPrompt := promptui.Prompt{
			Label: "Secret Access Key",
			Mask:  '*',
		}
		if s3.SecretAccessKey, err = secretKeyPrompt.Run(); err != nil {
			return nil, err
		}
	}

	return s3, nil
}

func promptFilesystem() (*config.FileFilesystem, error) {
	fs := &config.FileFilesystem{}

	pathPrompt := promptui.Prompt{
		Label:   "Storage directory",
		Default: "./data",
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errors.New("storage directory is required")
			}
			return nil
		},
	}
	path, err := pathPrompt.Run()
	if err != nil {
		return nil, err
	}
	fs.Path = strings.TrimSpace(path)

	sharePrompt := promptui.Prompt{
		Label:     "Enable share links",
		IsConfirm: true,
	}
	if _, confirmErr := sharePrompt.Run(); confirmErr == nil {
		secret, err := randomSecret()
		if err != nil {
			return nil, err
		}
		fs.LinkSecret = secret
	}

	return fs, nil
}

func validatePort(input string) error {
	port, err := strconv.Atoi(input)
	if err != nil || port < 1 || port > 65535 {
		return errors.New("port must be a number between 1 and 65535")
	}
	return nil
}

func validateOptionalURL(input string) error {
	if input == "" {
		return nil
	}
	parsedURL, err := url.Parse(input)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return errors.New("URL must start with http:// or https://")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate link secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// handlePromptError handles promptui errors.
func handlePromptError(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) {
		fmt.Println("\nCancelled.")
		os.Exit(0)
	}
	if errors.Is(err, promptui.ErrAbort) {
		fmt.Println("Cancelled.")
		return nil
	}
	return err
}
