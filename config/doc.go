// Package config provides configuration loading and validation for stashbox.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (STASHBOX_ prefix, then the legacy names below)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Store in context for subcommands
//	ctx = config.WithContext(ctx, cfg)
//
//	// Retrieve later
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// All config keys map to environment variables with STASHBOX_ prefix:
//   - server.port → STASHBOX_SERVER_PORT
//   - store.type → STASHBOX_STORE_TYPE
//   - upload.allowed_extensions → STASHBOX_UPLOAD_ALLOWED_EXTENSIONS (comma separated)
//
// Deployments configured for the earlier Flask service keep working:
// AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY, AWS_REGION, AWS_BUCKET_NAME,
// MAX_CONTENT_LENGTH, ALLOWED_FILE_EXTENSIONS, FLASK_DEBUG and SECRET_KEY are
// read when the STASHBOX_ equivalent is unset.
//
// # Configuration Structure
//
// The Config struct contains:
//   - Server: port, debug, max_upload_size, base_url, shutdown_timeout,
//     read_timeout, write_timeout, idle_timeout, trusted_origins
//   - Upload: allowed_extensions, presign_ttl, rate_limit, burst
//   - Store: type (s3 or filesystem) and the settings of each
//   - Database: metadata database for the filesystem store
//   - CORS: cross-origin resource sharing settings
//   - Log: level and format (text or json)
//
// # Validation
//
// Configuration is validated using struct tags. The s3 section is only
// checked when store.type is s3; filesystem and database only when it is
// filesystem.
package config
