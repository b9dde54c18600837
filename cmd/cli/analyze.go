package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sevigo/build-warden/internal/analyzer"
	"github.com/sevigo/build-warden/internal/config"
	"github.com/sevigo/build-warden/internal/core"
	"github.com/sevigo/build-warden/internal/github"
)

var warnColor = color.New(color.FgYellow)

var (
	analyzeLearn   bool
	analyzeRepo    string
	analyzeJob     string
	analyzeJobURL  string
	analyzeMaxLog  int64
	analyzerConfig config.AnalyzerConfig
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [logfile]",
	Short: "Run the analyzer on a build log",
	Long: `Run the analyzer on a build log and print the lines that would be posted.

The log is read from a file, from stdin when the file is "-", or downloaded
from GitHub Actions with --repo and --job, or --job-url. With --learn the index is updated
with the log, which is how an index is trained from known good builds.

Examples:
  warden-cli analyze --index-file rust.idx build.log
  warden-cli analyze --index-file rust.idx --learn good-build.log
  warden-cli analyze --index-file rust.idx --repo rust-lang/rust --job 123456789
  warden-cli analyze --index-file rust.idx --job-url https://github.com/rust-lang/rust/actions/runs/1/job/2`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	flags := analyzeCmd.Flags()
	flags.BoolVar(&analyzeLearn, "learn", false, "save the updated index")
	flags.StringVar(&analyzeRepo, "repo", "", "repository of the Actions job (owner/name)")
	flags.StringVar(&analyzeJob, "job", "", "GitHub Actions job ID to download the log of")
	flags.StringVar(&analyzeJobURL, "job-url", "", "GitHub Actions job page to download the log of")
	flags.Int64Var(&analyzeMaxLog, "max-log-bytes", 64<<20, "keep at most this many bytes from the end of the log")
	flags.Uint32Var(&analyzerConfig.RareThreshold, "rare-threshold", 1, "lines seen in fewer logs than this are unusual")
	flags.IntVar(&analyzerConfig.ContextLines, "context-lines", 2, "lines of context around each unusual line")
	flags.IntVar(&analyzerConfig.MaxLines, "max-lines", 40, "maximum number of unusual lines to report")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, idx, cleanup, err := openIndex(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	text, err := readLog(ctx, cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	diag, updated, err := analyzer.New(analyzerConfig).Analyze(ctx, text, idx)
	if err != nil {
		return fmt.Errorf("failed to analyze log: %w", err)
	}

	printDiagnosis(cmd.OutOrStdout(), idx.Stats(), diag)

	if !analyzeLearn {
		return nil
	}
	if err := store.Save(ctx, updated); err != nil {
		return fmt.Errorf("failed to save index to %s: %w", store.Location(), err)
	}
	stats := updated.Stats()
	dimColor.Fprintf(cmd.OutOrStdout(), "index saved to %s (%d logs, %d distinct lines)\n",
		store.Location(), stats.Processed, stats.DistinctLines)
	return nil
}

func readLog(ctx context.Context, stdin io.Reader, args []string) (string, error) {
	switch {
	case analyzeJob != "" || analyzeJobURL != "":
		if len(args) > 0 {
			return "", fmt.Errorf("a log file and --job cannot be used together")
		}
		return downloadLog(ctx)
	case len(args) == 0:
		return "", fmt.Errorf("a log file, --job or --job-url is required")
	case args[0] == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read log from stdin: %w", err)
		}
		return string(data), nil
	default:
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("failed to read log: %w", err)
		}
		return string(data), nil
	}
}

// jobToDownload resolves the job named on the command line.
func jobToDownload() (owner, repo string, jobID int64, err error) {
	if analyzeJobURL != "" {
		return github.ParseJobURL(analyzeJobURL)
	}
	owner, repo, err = core.SplitRepo(analyzeRepo)
	if err != nil {
		return "", "", 0, err
	}
	jobID, err = github.ParseJobID(analyzeJob)
	if err != nil {
		return "", "", 0, err
	}
	return owner, repo, jobID, nil
}

func downloadLog(ctx context.Context) (string, error) {
	owner, repo, jobID, err := jobToDownload()
	if err != nil {
		return "", err
	}
	token := viper.GetString("github_token")
	if token == "" {
		return "", fmt.Errorf("GITHUB_TOKEN or --github-token is required to download logs")
	}

	client := github.NewPATClient(ctx, token, analyzeMaxLog, slog.Default())
	text, err := client.GetJobLog(ctx, owner, repo, jobID)
	if err != nil {
		return "", fmt.Errorf("failed to download log of job %d: %w", jobID, err)
	}
	return text, nil
}

func printDiagnosis(w io.Writer, before core.IndexStats, diag *core.Diagnosis) {
	if before.Processed == 0 {
		warnColor.Fprintln(w, "The index is empty, nothing can be reported until it has learned from a log.")
		return
	}
	if diag.Empty() {
		dimColor.Fprintln(w, "Nothing unusual found in this log.")
		return
	}

	titleColor.Fprintf(w, "Possible cause of the failure (%.1f%% of the log is unusual)\n", diag.Score*100)
	fmt.Fprintln(w, strings.Join(diag.Lines, "\n"))
}
