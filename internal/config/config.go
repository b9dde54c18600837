// Package config loads the process configuration from flags, environment
// variables and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sevigo/build-warden/internal/core"
	"github.com/sevigo/build-warden/internal/logger"
)

// Supported CI platforms.
const (
	PlatformActions   = "actions"
	PlatformBuildkite = "buildkite"
)

// Supported index backends.
const (
	BackendFile     = "file"
	BackendS3       = "s3"
	BackendPostgres = "postgres"
)

// Config holds the application's configuration values.
type Config struct {
	Server    ServerConfig
	Index     IndexConfig
	GitHub    GitHubConfig
	Buildkite BuildkiteConfig
	Analyzer  AnalyzerConfig
	Logging   logger.Config

	CIPlatform    string
	Repositories  core.RepositorySet
	DebugTarget   *core.DebugTarget
	WebhookVerify bool

	// CallTimeout bounds each external call the worker makes for one event.
	CallTimeout time.Duration
	MaxLogBytes int64
}

// ServerConfig configures the webhook listener.
type ServerConfig struct {
	Bind string
	Port int
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Bind, strconv.Itoa(s.Port))
}

// IndexConfig selects where the analyzer index is persisted.
type IndexConfig struct {
	Backend  string
	File     string
	S3Bucket string
	S3Key    string
	S3Region string
	// DatabaseURL is the PostgreSQL connection string of the postgres backend.
	DatabaseURL string
	// Name identifies the snapshot row, so several services can share a database.
	Name string
}

// GitHubConfig holds the credentials used to read logs and post comments.
type GitHubConfig struct {
	WebhookSecret  string
	Token          string
	AppID          int64
	InstallationID int64
	PrivateKeyPath string
	// BaseURL is set for GitHub Enterprise; empty means api.github.com.
	BaseURL string
}

// BuildkiteConfig holds the Buildkite API settings.
type BuildkiteConfig struct {
	Token   string
	BaseURL string
}

// AnalyzerConfig tunes the log analyzer.
type AnalyzerConfig struct {
	RareThreshold uint32
	ContextLines  int
	MaxLines      int
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("bind", "127.0.0.1")
	v.SetDefault("port", 8080)
	v.SetDefault("index-backend", BackendFile)
	v.SetDefault("index-name", "default")
	v.SetDefault("ci", PlatformActions)
	v.SetDefault("call-timeout", 2*time.Minute)
	v.SetDefault("max-log-bytes", int64(64<<20))
	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "text")
	v.SetDefault("log-output", "stderr")
	v.SetDefault("analyzer-rare-threshold", 1)
	v.SetDefault("analyzer-context-lines", 2)
	v.SetDefault("analyzer-max-lines", 40)
	v.SetDefault("buildkite-base-url", "https://api.buildkite.com")
}

// LoadConfig reads configuration from the global viper instance, which the
// command line binds its flags to, and validates it.
func LoadConfig() (*Config, error) {
	return Load(viper.GetViper())
}

// Load builds a Config from v. Environment variables use the BW_ prefix, except
// for secrets which keep the names GitHub and Buildkite documentation uses. A
// .env file in the working directory may provide the secrets.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix("BW")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for key, env := range map[string]string{
		"github_webhook_secret":   "GITHUB_WEBHOOK_SECRET",
		"github_token":            "GITHUB_TOKEN",
		"github_app_id":           "GITHUB_APP_ID",
		"github_installation_id":  "GITHUB_INSTALLATION_ID",
		"github_private_key_path": "GITHUB_PRIVATE_KEY_PATH",
		"buildkite_token":         "BUILDKITE_TOKEN",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			slog.Error("failed to read config file", "error", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Bind: v.GetString("bind"),
			Port: v.GetInt("port"),
		},
		Index: IndexConfig{
			Backend:  strings.ToLower(v.GetString("index-backend")),
			File:     v.GetString("index-file"),
			S3Bucket: v.GetString("index-s3-bucket"),
			S3Key:    v.GetString("index-s3-key"),
			S3Region: v.GetString("index-s3-region"),

			DatabaseURL: v.GetString("index-database-url"),
			Name:        v.GetString("index-name"),
		},
		GitHub: GitHubConfig{
			WebhookSecret:  v.GetString("github_webhook_secret"),
			Token:          v.GetString("github_token"),
			AppID:          v.GetInt64("github_app_id"),
			InstallationID: v.GetInt64("github_installation_id"),
			PrivateKeyPath: v.GetString("github_private_key_path"),
			BaseURL:        v.GetString("github-base-url"),
		},
		Buildkite: BuildkiteConfig{
			Token:   v.GetString("buildkite_token"),
			BaseURL: v.GetString("buildkite-base-url"),
		},
		Analyzer: AnalyzerConfig{
			RareThreshold: v.GetUint32("analyzer-rare-threshold"),
			ContextLines:  v.GetInt("analyzer-context-lines"),
			MaxLines:      v.GetInt("analyzer-max-lines"),
		},
		Logging: logger.Config{
			Level:  v.GetString("log-level"),
			Format: v.GetString("log-format"),
			Output: v.GetString("log-output"),
		},
		CIPlatform: strings.ToLower(v.GetString("ci")),
		Repositories: core.RepositorySet{
			Primary:                v.GetString("repo"),
			Secondary:              v.GetStringSlice("secondary-repo"),
			QueryBuildsFromPrimary: v.GetBool("query-builds-from-primary-repo"),
		},
		WebhookVerify: v.GetBool("webhook-verify"),
		CallTimeout:   v.GetDuration("call-timeout"),
		MaxLogBytes:   v.GetInt64("max-log-bytes"),
	}

	if post := v.GetString("debug-post"); post != "" {
		target, err := core.ParseDebugTarget(post)
		if err != nil {
			return nil, err
		}
		cfg.DebugTarget = target
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration describes a runnable process.
func (c *Config) Validate() error {
	if _, _, err := core.SplitRepo(c.Repositories.Primary); err != nil {
		return fmt.Errorf("repo: %w", err)
	}
	for _, r := range c.Repositories.Secondary {
		if _, _, err := core.SplitRepo(r); err != nil {
			return fmt.Errorf("secondary-repo: %w", err)
		}
	}

	switch c.CIPlatform {
	case PlatformActions:
	case PlatformBuildkite:
		if c.Buildkite.Token == "" {
			return fmt.Errorf("BUILDKITE_TOKEN must be set for the buildkite platform")
		}
	default:
		return fmt.Errorf("unsupported CI platform: %q", c.CIPlatform)
	}

	switch c.Index.Backend {
	case BackendFile:
		if c.Index.File == "" {
			return fmt.Errorf("index-file must be set")
		}
	case BackendS3:
		if c.Index.S3Bucket == "" || c.Index.S3Key == "" {
			return fmt.Errorf("index-s3-bucket and index-s3-key must be set for the s3 backend")
		}
	case BackendPostgres:
		if c.Index.DatabaseURL == "" || c.Index.Name == "" {
			return fmt.Errorf("index-database-url and index-name must be set for the postgres backend")
		}
	default:
		return fmt.Errorf("unsupported index backend: %q", c.Index.Backend)
	}

	if c.WebhookVerify && c.GitHub.WebhookSecret == "" {
		return fmt.Errorf("GITHUB_WEBHOOK_SECRET must be set when webhook verification is enabled")
	}
	if c.GitHub.Token == "" && c.GitHub.AppID == 0 {
		return fmt.Errorf("either GITHUB_TOKEN or GITHUB_APP_ID must be set")
	}
	if c.GitHub.AppID != 0 && (c.GitHub.InstallationID == 0 || c.GitHub.PrivateKeyPath == "") {
		return fmt.Errorf("GITHUB_INSTALLATION_ID and GITHUB_PRIVATE_KEY_PATH must be set with GITHUB_APP_ID")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.CallTimeout <= 0 {
		return fmt.Errorf("call-timeout must be positive")
	}
	return nil
}
