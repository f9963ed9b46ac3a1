package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sagarc03/privatemedia"
	"github.com/sagarc03/privatemedia/auth"
	"github.com/sagarc03/privatemedia/database"
	mediahttp "github.com/sagarc03/privatemedia/http"
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

// Config is the root configuration struct for privatemedia.
type Config struct {
	Server      ServerConfig         `mapstructure:"server"`
	Media       MediaConfig          `mapstructure:"media"`
	Auth        AuthConfig           `mapstructure:"auth"`
	Permissions PermissionsConfig    `mapstructure:"permissions"`
	Database    database.Config      `mapstructure:"database"`
	CORS        mediahttp.CORSConfig `mapstructure:"cors"`
	RateLimit   RateLimitConfig      `mapstructure:"rate_limit"`
	Metrics     MetricsConfig        `mapstructure:"metrics"`
	Log         LogConfig            `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	URLPrefix       string        `mapstructure:"url_prefix"`
	Debug           bool          `mapstructure:"debug"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"min=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"min=0"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" validate:"min=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`
}

// MediaConfig describes where files live and how they are delivered.
type MediaConfig struct {
	Root          string `mapstructure:"root" validate:"required"`
	InternalURL   string `mapstructure:"internal_url" validate:"required_if=Backend x-accel-redirect"`
	ForceDownload bool   `mapstructure:"force_download"`
	Backend       string `mapstructure:"backend" validate:"required,oneof=direct x-accel-redirect x-sendfile"`
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	Mode   string          `mapstructure:"mode" validate:"required,oneof=none signature header"`
	Header string          `mapstructure:"header" validate:"required_if=Mode header"`
	AWS    AWSConfig       `mapstructure:"aws"`
	Keys   auth.KeysConfig `mapstructure:"keys"`
}

// AWSConfig holds the credential scope presigned URLs must carry.
type AWSConfig struct {
	Region  string `mapstructure:"region" validate:"required"`
	Service string `mapstructure:"service" validate:"required"`
}

// PermissionsConfig selects the permission policy.
type PermissionsConfig struct {
	Policy string `mapstructure:"policy" validate:"required,oneof=public authenticated grants"`
}

// RateLimitConfig holds the shared token bucket settings.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps" validate:"required_if=Enabled true,gte=0"`
	Burst   int     `mapstructure:"burst" validate:"required_if=Enabled true,gte=0"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"omitempty,startswith=/"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"required,oneof=text json"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"min=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"min=0"`
	Compress   bool   `mapstructure:"compress"`
}

// ServerConfig converts the media settings into the core configuration. The
// root directory is made absolute.
func (c *Config) ServerConfig() (privatemedia.ServerConfig, error) {
	root, err := filepath.Abs(c.Media.Root)
	if err != nil {
		return privatemedia.ServerConfig{}, fmt.Errorf("resolve media root: %w", err)
	}

	backend, err := privatemedia.ParseBackendKind(c.Media.Backend)
	if err != nil {
		return privatemedia.ServerConfig{}, err
	}

	cfg := privatemedia.ServerConfig{
		RootDirectory:        root,
		InternalURLPrefix:    c.Media.InternalURL,
		ForceDownloadDefault: c.Media.ForceDownload,
		Backend:              backend,
		Debug:                c.Server.Debug,
	}

	if err := cfg.Validate(); err != nil {
		return privatemedia.ServerConfig{}, err
	}

	return cfg, nil
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"db-type": "database.type",
	"db-dsn":  "database.dsn",
	"root":    "media.root",
	"backend": "media.backend",
	"port":    "server.port",
	"debug":   "server.debug",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		// Use custom mapping if it exists, otherwise use flag name as-is
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

// setDefaults configures default values on the viper instance. Every key
// needs a default so AutomaticEnv can find it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5708)
	v.SetDefault("server.url_prefix", "/private-media")
	v.SetDefault("server.debug", false)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", time.Duration(0))
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("media.root", "./media")
	v.SetDefault("media.internal_url", "")
	v.SetDefault("media.force_download", false)
	v.SetDefault("media.backend", string(privatemedia.BackendDirect))

	v.SetDefault("auth.mode", "none")
	v.SetDefault("auth.header", "")
	v.SetDefault("auth.aws.region", "us-east-1")
	v.SetDefault("auth.aws.service", "s3")
	v.SetDefault("auth.keys.file", "")

	v.SetDefault("permissions.policy", "authenticated")

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "privatemedia.db")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.tables.grants", "privatemedia_grants")

	v.SetDefault("cors.enabled", false)

	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.rps", 100)
	v.SetDefault("rate_limit.burst", 200)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.compress", false)
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	setDefaults(v)

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

	v.SetEnvPrefix("PRIVATEMEDIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		bindFlags(v, flags)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if cfg.Permissions.Policy == "grants" {
		if err := cfg.Database.Tables.Validate(); err != nil {
			return nil, fmt.Errorf("validate config: %w", err)
		}
	}

	return &cfg, nil
}
