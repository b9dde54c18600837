// Package ci selects and implements the CI platforms the worker reads build
// logs from. Comments always go to GitHub, whichever platform ran the build.
package ci

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sevigo/build-warden/internal/buildkite"
	"github.com/sevigo/build-warden/internal/config"
	"github.com/sevigo/build-warden/internal/core"
	"github.com/sevigo/build-warden/internal/github"
)

// New builds the platform named by cfg.CIPlatform. Credential problems are
// returned here so the process fails before it starts accepting webhooks.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (core.CIPlatform, error) {
	api, err := github.NewAPIClient(ctx, cfg.GitHub, logger)
	if err != nil {
		return nil, err
	}
	download := &http.Client{Timeout: cfg.CallTimeout}
	gh := github.NewGitHubClient(api, download, cfg.MaxLogBytes, logger)

	switch cfg.CIPlatform {
	case config.PlatformActions:
		return NewActions(gh), nil
	case config.PlatformBuildkite:
		bk := buildkite.NewClient(ctx, cfg.Buildkite.BaseURL, cfg.Buildkite.Token, logger)
		return NewBuildkite(bk, gh), nil
	default:
		return nil, fmt.Errorf("unsupported CI platform: %s", cfg.CIPlatform)
	}
}

// commenter posts diagnoses through the GitHub issues API.
type commenter struct {
	gh github.Client
}

func (c commenter) PostComment(ctx context.Context, target core.CommentTarget, body string) error {
	return c.gh.CreateComment(ctx, target.Owner, target.Repo, target.Number, body)
}

// Actions reads logs of GitHub Actions jobs.
type Actions struct {
	commenter
}

// NewActions returns the GitHub Actions platform.
func NewActions(gh github.Client) *Actions {
	return &Actions{commenter{gh: gh}}
}

// Name implements core.CIPlatform.
func (a *Actions) Name() string { return config.PlatformActions }

// FetchLog implements core.CIPlatform. The job ID of a check run reported by
// Actions is the ID of the workflow job.
func (a *Actions) FetchLog(ctx context.Context, ref core.BuildRef) (string, error) {
	owner, repo, err := core.SplitRepo(ref.Repo)
	if err != nil {
		return "", err
	}
	jobID, err := github.ParseJobID(ref.JobID)
	if err != nil {
		return "", err
	}
	return a.gh.GetJobLog(ctx, owner, repo, jobID)
}

// LogReader reads Buildkite job logs.
type LogReader interface {
	GetJobLog(ctx context.Context, ref buildkite.BuildRef) (string, error)
}

// Buildkite reads logs from Buildkite and comments through GitHub.
type Buildkite struct {
	commenter
	logs LogReader
}

// NewBuildkite returns the Buildkite platform.
func NewBuildkite(logs LogReader, gh github.Client) *Buildkite {
	return &Buildkite{commenter: commenter{gh: gh}, logs: logs}
}

// Name implements core.CIPlatform.
func (b *Buildkite) Name() string { return config.PlatformBuildkite }

// FetchLog implements core.CIPlatform. The repository in ref does not matter:
// the Buildkite pipeline is part of the build ID.
func (b *Buildkite) FetchLog(ctx context.Context, ref core.BuildRef) (string, error) {
	bkRef, err := buildkite.ParseBuildID(ref.BuildID, ref.JobID)
	if err != nil {
		return "", err
	}
	return b.logs.GetJobLog(ctx, bkRef)
}

var (
	_ core.CIPlatform = (*Actions)(nil)
	_ core.CIPlatform = (*Buildkite)(nil)
	_ LogReader       = (*buildkite.Client)(nil)
)
