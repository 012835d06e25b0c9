package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DatabaseConfig holds the postgres connection used by the postgres
// storage backend and the user store.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr               string        `mapstructure:"addr"`
	CORSOrigins        []string      `mapstructure:"cors_origins"`
	MaxUploadMB        int64         `mapstructure:"max_upload_mb"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute"`
	RateLimitBurst     int           `mapstructure:"rate_limit_burst"`
	Metrics            bool          `mapstructure:"metrics"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"`
}

// S3Config holds settings for the s3 media backend.
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// MediaConfig selects where attachments are kept.
type MediaConfig struct {
	Backend    string   `mapstructure:"backend"`
	Dir        string   `mapstructure:"dir"`
	Thumbnails bool     `mapstructure:"thumbnails"`
	S3         S3Config `mapstructure:"s3"`
}

// AuthConfig holds bearer-token settings for the server and the CLI client.
type AuthConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Secret    string        `mapstructure:"secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
	TokenFile string        `mapstructure:"token_file"`
}

// ClientConfig configures the CLI and TUI when they talk to a remote server.
type ClientConfig struct {
	ServerURL string        `mapstructure:"server_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ThemeConfig holds TUI colour overrides on top of a named preset.
type ThemeConfig struct {
	Preset        string `mapstructure:"preset"`
	Primary       string `mapstructure:"primary"`
	Secondary     string `mapstructure:"secondary"`
	Accent        string `mapstructure:"accent"`
	Muted         string `mapstructure:"muted"`
	Danger        string `mapstructure:"danger"`
	Background    string `mapstructure:"background"`
	MarkdownStyle string `mapstructure:"markdown_style"`
}

// Config holds the application configuration.
type Config struct {
	Storage  string         `mapstructure:"storage"`
	DataDir  string         `mapstructure:"data_dir"`
	Editor   string         `mapstructure:"editor"`
	MaxWidth int            `mapstructure:"max_width"`
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Media    MediaConfig    `mapstructure:"media"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Client   ClientConfig   `mapstructure:"client"`
	Log      LogConfig      `mapstructure:"log"`
	Theme    ThemeConfig    `mapstructure:"theme"`
}

// MediaDir returns the local media directory, defaulting to <data_dir>/media.
func (c *Config) MediaDir() string {
	if c.Media.Dir != "" {
		return c.Media.Dir
	}
	return filepath.Join(c.DataDir, "media")
}

// TokenFile returns where the CLI keeps its bearer token.
func (c *Config) TokenFile() string {
	if c.Auth.TokenFile != "" {
		return c.Auth.TokenFile
	}
	return filepath.Join(c.DataDir, "token")
}

// DefaultDataDir returns the default data directory (~/.diaryweb/).
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".diaryweb")
	}
	return filepath.Join(home, ".diaryweb")
}

// Load reads configuration from file, a .env file in the working directory,
// environment variables, and defaults.
func Load(configPath string) (*Config, error) {
	// A missing .env is normal; variables already set win.
	_ = godotenv.Load()

	v := viper.New()

	// Defaults
	v.SetDefault("storage", "markdown")
	v.SetDefault("data_dir", DefaultDataDir())
	v.SetDefault("editor", "")
	v.SetDefault("max_width", 0)
	v.SetDefault("database.dsn", "")
	v.SetDefault("server.addr", "localhost:8080")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.max_upload_mb", 64)
	v.SetDefault("server.rate_limit_per_minute", 600)
	v.SetDefault("server.rate_limit_burst", 20)
	v.SetDefault("server.metrics", true)
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("media.backend", "local")
	v.SetDefault("media.dir", "")
	v.SetDefault("media.thumbnails", true)
	v.SetDefault("media.s3.endpoint", "")
	v.SetDefault("media.s3.bucket", "")
	v.SetDefault("media.s3.region", "")
	v.SetDefault("media.s3.access_key", "")
	v.SetDefault("media.s3.secret_key", "")
	v.SetDefault("media.s3.prefix", "")
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.secret", "dev-secret-key")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("auth.token_file", "")
	v.SetDefault("client.server_url", "http://localhost:8080")
	v.SetDefault("client.timeout", "0s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("theme.preset", "default-dark")
	v.SetDefault("theme.primary", "")
	v.SetDefault("theme.secondary", "")
	v.SetDefault("theme.accent", "")
	v.SetDefault("theme.muted", "")
	v.SetDefault("theme.danger", "")
	v.SetDefault("theme.background", "")
	v.SetDefault("theme.markdown_style", "")

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// XDG support
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			v.AddConfigPath(filepath.Join(xdg, "diaryweb"))
		}
		v.AddConfigPath(DefaultDataDir())
		v.SetConfigName("config")
		v.SetConfigType("toml")
	}

	// Environment variables: DIARYWEB_STORAGE, DIARYWEB_SERVER_ADDR, etc.
	v.SetEnvPrefix("DIARYWEB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && configPath != "" {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
