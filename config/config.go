package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sagarc03/stashbox/database"
	stashhttp "github.com/sagarc03/stashbox/http"
	"github.com/sagarc03/stashbox/s3store"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

const (
	StoreS3         = "s3"
	StoreFilesystem = "filesystem"
)

// Config is the root configuration struct for stashbox.
type Config struct {
	Server   ServerConfig         `mapstructure:"server"`
	Upload   UploadConfig         `mapstructure:"upload"`
	Store    StoreConfig          `mapstructure:"store"`
	Database database.Config      `mapstructure:"database" validate:"-"`
	CORS     stashhttp.CORSConfig `mapstructure:"cors"`
	Log      LogConfig            `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port  int  `mapstructure:"port" validate:"required,min=1,max=65535"`
	Debug bool `mapstructure:"debug"`
	// MaxUploadSize caps the whole upload request, in bytes.
	MaxUploadSize int64 `mapstructure:"max_upload_size" validate:"min=1"`
	// BaseURL is the public origin used in signed links, e.g. https://files.example.com.
	BaseURL         string `mapstructure:"base_url" validate:"omitempty,url"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" validate:"min=1"`
	// ReadTimeout and WriteTimeout are in seconds. Zero derives them from
	// MaxUploadSize so a full-size transfer at MinTransferRate still fits.
	ReadTimeout  int `mapstructure:"read_timeout" validate:"min=0"`
	WriteTimeout int `mapstructure:"write_timeout" validate:"min=0"`
	IdleTimeout  int `mapstructure:"idle_timeout" validate:"min=1"`
	// TrustedOrigins may submit uploads and deletes cross-origin.
	TrustedOrigins []string `mapstructure:"trusted_origins" validate:"dive,url"`
}

// MinTransferRate is the slowest client, in bytes per second, a derived
// read or write timeout still serves a full-size upload for.
const MinTransferRate = 128 << 10

// baseTransferTimeout covers headers and connection setup on top of the body.
const baseTransferTimeout = 30 * time.Second

// Timeouts returns the read, write and idle timeouts for the HTTP server.
func (s ServerConfig) Timeouts() (read, write, idle time.Duration) {
	derived := baseTransferTimeout + time.Duration(s.MaxUploadSize/MinTransferRate)*time.Second

	read, write = derived, derived
	if s.ReadTimeout > 0 {
		read = time.Duration(s.ReadTimeout) * time.Second
	}
	if s.WriteTimeout > 0 {
		write = time.Duration(s.WriteTimeout) * time.Second
	}
	return read, write, time.Duration(s.IdleTimeout) * time.Second
}

// UploadConfig holds the upload acceptance and link settings.
type UploadConfig struct {
	AllowedExtensions []string `mapstructure:"allowed_extensions" validate:"min=1,dive,required"`
	// PresignTTL is the lifetime of download links in seconds.
	PresignTTL int     `mapstructure:"presign_ttl" validate:"min=1,max=604800"`
	RateLimit  float64 `mapstructure:"rate_limit" validate:"min=0"`
	Burst      int     `mapstructure:"burst" validate:"min=0"`
}

// StoreConfig selects and configures the object store.
type StoreConfig struct {
	Type       string           `mapstructure:"type" validate:"required,oneof=s3 filesystem"`
	S3         s3store.Config   `mapstructure:"s3" validate:"-"`
	Filesystem FilesystemConfig `mapstructure:"filesystem" validate:"-"`
}

// FilesystemConfig holds the local store settings.
type FilesystemConfig struct {
	Path string `mapstructure:"path" validate:"required"`
	// LinkSecret signs /shared/ links. Empty disables sharing.
	LinkSecret string `mapstructure:"link_secret"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=text json"`
}

// PresignTTL returns Upload.PresignTTL as a duration.
func (c *Config) PresignTTL() time.Duration {
	return time.Duration(c.Upload.PresignTTL) * time.Second
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"port":         "server.port",
	"debug":        "server.debug",
	"store":        "store.type",
	"bucket":       "store.s3.bucket",
	"region":       "store.s3.region",
	"storage-path": "store.filesystem.path",
	"db-type":      "database.type",
	"db-dsn":       "database.dsn",
	"log-level":    "log.level",
	"log-format":   "log.format",
}

// legacyEnv lists the environment names of the earlier Flask deployment.
// They are consulted after the STASHBOX_ names.
var legacyEnv = map[string]string{
	"store.s3.access_key_id":       "AWS_ACCESS_KEY_ID",
	"store.s3.secret_access_key":   "AWS_SECRET_ACCESS_KEY",
	"store.s3.region":              "AWS_REGION",
	"store.s3.bucket":              "AWS_BUCKET_NAME",
	"server.max_upload_size":       "MAX_CONTENT_LENGTH",
	"upload.allowed_extensions":    "ALLOWED_FILE_EXTENSIONS",
	"server.debug":                 "FLASK_DEBUG",
	"store.filesystem.link_secret": "SECRET_KEY",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

func bindLegacyEnv(v *viper.Viper) {
	replacer := strings.NewReplacer(".", "_")
	for key, legacy := range legacyEnv {
		primary := "STASHBOX_" + strings.ToUpper(replacer.Replace(key))
		_ = v.BindEnv(key, primary, legacy)
	}
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.max_upload_size", 16*1024*1024)
	v.SetDefault("server.base_url", "")
	v.SetDefault("server.shutdown_timeout", 30) // seconds
	v.SetDefault("server.read_timeout", 0)
	v.SetDefault("server.write_timeout", 0)
	v.SetDefault("server.idle_timeout", 120)
	v.SetDefault("server.trusted_origins", []string{})

	v.SetDefault("upload.allowed_extensions", []string{"txt", "pdf", "png", "jpg", "jpeg", "gif", "doc", "docx"})
	v.SetDefault("upload.presign_ttl", 3600)
	v.SetDefault("upload.rate_limit", 0)
	v.SetDefault("upload.burst", 5)

	v.SetDefault("store.type", StoreS3)
	v.SetDefault("store.s3.bucket", "")
	v.SetDefault("store.s3.region", "us-east-1")
	v.SetDefault("store.s3.access_key_id", "")
	v.SetDefault("store.s3.secret_access_key", "")
	v.SetDefault("store.s3.endpoint", "")
	v.SetDefault("store.s3.use_path_style", false)
	v.SetDefault("store.filesystem.path", "./data")
	v.SetDefault("store.filesystem.link_secret", "")

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "stashbox.db")
	v.SetDefault("database.tables.meta_data", "stashbox_objects")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("cors.enabled", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix("STASHBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindLegacyEnv(v)

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the struct tags, then the sections that only apply to the
// selected store.
func (c *Config) Validate() error {
	validate := validator.New()

	if err := validate.Struct(c); err != nil {
		return err
	}

	switch c.Store.Type {
	case StoreS3:
		if err := validate.Struct(&c.Store.S3); err != nil {
			return fmt.Errorf("store.s3: %w", err)
		}
	case StoreFilesystem:
		if err := validate.Struct(&c.Store.Filesystem); err != nil {
			return fmt.Errorf("store.filesystem: %w", err)
		}
		if err := validate.Struct(&c.Database); err != nil {
			return fmt.Errorf("database: %w", err)
		}
		if err := c.Database.Tables.Validate(); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}

	return nil
}
