package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"

	"github.com/sevigo/build-warden/internal/config"
)

// NewAPIClient creates a go-github client authenticated either as a GitHub App
// installation or with a personal access token, depending on the configuration.
func NewAPIClient(ctx context.Context, cfg config.GitHubConfig, logger *slog.Logger) (*github.Client, error) {
	var client *github.Client

	if cfg.AppID != 0 {
		logger.Info("authenticating as GitHub App installation",
			"app_id", cfg.AppID,
			"installation_id", cfg.InstallationID)

		transport, err := ghinstallation.NewKeyFromFile(http.DefaultTransport, cfg.AppID, cfg.InstallationID, cfg.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create GitHub App transport: %w", err)
		}
		if cfg.BaseURL != "" {
			transport.BaseURL = cfg.BaseURL
		}

		// Fetch a token now so bad credentials stop the process at startup.
		if _, err := transport.Token(ctx); err != nil {
			return nil, fmt.Errorf("failed to create installation token for installation ID %d: %w", cfg.InstallationID, err)
		}
		client = github.NewClient(&http.Client{Transport: transport, Timeout: 2 * time.Minute})
	} else {
		logger.Info("authenticating with GitHub token")
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		client = github.NewClient(oauth2.NewClient(ctx, ts))
	}

	if cfg.BaseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(cfg.BaseURL, cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub base URL %q: %w", cfg.BaseURL, err)
		}
	}
	return client, nil
}

// NewPATClient creates a Client authenticated with a personal access token.
// It is used by the CLI, which never needs the GitHub App flow.
func NewPATClient(ctx context.Context, token string, maxLogBytes int64, logger *slog.Logger) Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := github.NewClient(oauth2.NewClient(ctx, ts))
	return NewGitHubClient(client, nil, maxLogBytes, logger)
}
