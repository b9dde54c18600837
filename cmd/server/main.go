package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sevigo/build-warden/internal/config"
	"github.com/sevigo/build-warden/internal/wire"
)

var rootCmd = &cobra.Command{
	Use:   "build-warden",
	Short: "build-warden explains failed CI builds on their pull requests.",
	Long: `build-warden receives GitHub webhooks for failed builds, downloads the build
log, picks out the lines it has rarely seen in earlier build logs and posts them
as a comment on the pull request.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context())
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	registerFlags(rootCmd.Flags())
	if err := viper.BindPFlags(rootCmd.Flags()); err != nil {
		slog.Error("Error binding flags", "error", err)
		os.Exit(1)
	}
}

// registerFlags defines the server flags. Every flag name is also the viper
// key it is read from, so BW_<NAME> environment variables work too.
func registerFlags(flags *pflag.FlagSet) {
	flags.IntP("port", "p", 8080, "port to listen on")
	flags.StringP("bind", "b", "127.0.0.1", "address to bind to")
	flags.StringP("index-file", "i", "", "index file to load and update")
	flags.String("index-backend", config.BackendFile, "where the index is stored (file|s3|postgres)")
	flags.String("debug-post", "", "post every comment to this issue instead (owner/repo#123)")
	flags.Bool("webhook-verify", false, "verify webhook signatures with GITHUB_WEBHOOK_SECRET")
	flags.String("ci", config.PlatformActions, "CI platform the builds run on (actions|buildkite)")
	flags.String("repo", "", "primary repository (owner/name)")
	flags.StringSlice("secondary-repo", nil, "additional repositories to watch, may be repeated")
	flags.Bool("query-builds-from-primary-repo", false, "fetch build logs from the primary repository")
	flags.String("log-level", "info", "log level (debug|info|warn|error)")
	flags.String("log-format", "text", "log format (text|json)")
	flags.Duration("call-timeout", 2*time.Minute, "timeout of each CI and GitHub call")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("application failed to run", "error", err)
		os.Exit(1)
	}
}

func run(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	app, cleanup, err := wire.InitializeApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer cleanup()

	return app.Run(ctx)
}
