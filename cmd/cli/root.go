package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sevigo/build-warden/internal/config"
	"github.com/sevigo/build-warden/internal/core"
	"github.com/sevigo/build-warden/internal/index"
)

var rootCmd = &cobra.Command{
	Use:   "warden-cli",
	Short: "warden-cli is the command-line interface for build-warden.",
	Long: `A CLI for inspecting and training the build-warden index offline, and for
trying the analyzer on a build log before it is posted anywhere.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringP("github-token", "t", "", "GitHub token used to download Actions logs")
	flags.StringP("index-file", "i", "", "index file")
	flags.String("index-backend", config.BackendFile, "where the index is stored (file|s3|postgres)")
	flags.String("index-s3-bucket", "", "S3 bucket of the index")
	flags.String("index-s3-key", "", "S3 key of the index")
	flags.String("index-s3-region", "", "AWS region of the index bucket")
	flags.String("index-database-url", "", "PostgreSQL URL of the index database")
	flags.String("index-name", "default", "name of the index snapshot in the database")

	for key, flag := range map[string]string{
		"github_token":    "github-token",
		"index-file":      "index-file",
		"index-backend":   "index-backend",
		"index-s3-bucket": "index-s3-bucket",
		"index-s3-key":    "index-s3-key",
		"index-s3-region": "index-s3-region",

		"index-database-url": "index-database-url",
		"index-name":         "index-name",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			slog.Error("Error binding flag", "error", err)
			os.Exit(1)
		}
	}
}

// initConfig reads in ENV variables if set.
func initConfig() {
	viper.SetEnvPrefix("BW")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if err := viper.BindEnv("github_token", "GITHUB_TOKEN"); err != nil {
		slog.Error("Error binding environment", "error", err)
	}
}

func indexConfig() config.IndexConfig {
	return config.IndexConfig{
		Backend:  strings.ToLower(viper.GetString("index-backend")),
		File:     viper.GetString("index-file"),
		S3Bucket: viper.GetString("index-s3-bucket"),
		S3Key:    viper.GetString("index-s3-key"),
		S3Region: viper.GetString("index-s3-region"),

		DatabaseURL: viper.GetString("index-database-url"),
		Name:        viper.GetString("index-name"),
	}
}

// openIndex loads the configured index. The returned function releases the
// store and must be called once the store is no longer used.
func openIndex(ctx context.Context) (core.IndexStore, *index.Index, func(), error) {
	cfg := indexConfig()
	if cfg.Backend == config.BackendFile && cfg.File == "" {
		return nil, nil, nil, fmt.Errorf("--index-file is required")
	}

	store, cleanup, err := index.NewStore(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	loaded, err := store.Load(ctx)
	if err != nil {
		cleanup()
		return nil, nil, nil, fmt.Errorf("failed to load index from %s: %w", store.Location(), err)
	}
	idx, ok := loaded.(*index.Index)
	if !ok {
		cleanup()
		return nil, nil, nil, fmt.Errorf("unexpected index type %T", loaded)
	}
	return store, idx, cleanup, nil
}
