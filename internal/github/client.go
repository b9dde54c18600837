// Package github provides functionality for interacting with the GitHub API.
package github

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/go-github/v73/github"

	"github.com/sevigo/build-warden/internal/core"
)

// maxRedirects is passed to the logs endpoint, which answers with a redirect
// to short-lived blob storage.
const maxRedirects = 4

// Client defines the GitHub operations the worker needs: reading Actions job
// logs and commenting on issues and pull requests.
//
//go:generate mockgen -destination=../mocks/mock_github_client.go -package=mocks . Client
type Client interface {
	GetJobLog(ctx context.Context, owner, repo string, jobID int64) (string, error)
	CreateComment(ctx context.Context, owner, repo string, number int, body string) error
}

type gitHubClient struct {
	client      *github.Client
	download    *http.Client
	maxLogBytes int64
	logger      *slog.Logger
}

// NewGitHubClient wraps the official go-github client. Logs are downloaded with
// download, which must not carry GitHub credentials because the log URL points
// to pre-signed storage. Logs longer than maxLogBytes keep only their tail.
func NewGitHubClient(client *github.Client, download *http.Client, maxLogBytes int64, logger *slog.Logger) Client {
	if download == nil {
		download = http.DefaultClient
	}
	return &gitHubClient{client: client, download: download, maxLogBytes: maxLogBytes, logger: logger}
}

// GetJobLog downloads the plain text log of a GitHub Actions job.
func (g *gitHubClient) GetJobLog(ctx context.Context, owner, repo string, jobID int64) (string, error) {
	logURL, resp, err := g.client.Actions.GetWorkflowJobLogs(ctx, owner, repo, jobID, maxRedirects)
	if err != nil {
		g.logger.Error("failed to get job log url", "owner", owner, "repo", repo, "job", jobID, "error", err)
		// The logs endpoint is read without go-github's response checking, so
		// the status code has to be inspected here.
		if resp != nil {
			switch resp.StatusCode {
			case http.StatusNotFound, http.StatusGone:
				return "", fmt.Errorf("log for job %d: %w", jobID, core.ErrNotFound)
			case http.StatusUnauthorized:
				return "", core.Fatal(fmt.Errorf("github rejected credentials: %w", err))
			}
		}
		return "", classify(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, logURL.String(), nil)
	if err != nil {
		return "", fmt.Errorf("building log request: %w", err)
	}
	download, err := g.download.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading log for job %d: %w", jobID, err)
	}
	defer download.Body.Close()

	switch {
	case download.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("log for job %d: %w", jobID, core.ErrNotFound)
	case download.StatusCode != http.StatusOK:
		return "", fmt.Errorf("downloading log for job %d: unexpected status %s", jobID, download.Status)
	}

	data, err := ReadTail(download.Body, g.maxLogBytes)
	if err != nil {
		return "", fmt.Errorf("reading log for job %d: %w", jobID, err)
	}
	return string(data), nil
}

// CreateComment creates a new comment on an issue or pull request.
func (g *gitHubClient) CreateComment(ctx context.Context, owner, repo string, number int, body string) error {
	comment := &github.IssueComment{Body: &body}
	_, _, err := g.client.Issues.CreateComment(ctx, owner, repo, number, comment)
	if err != nil {
		g.logger.Error("failed to create comment", "owner", owner, "repo", repo, "number", number, "error", err)
		return classify(err)
	}
	return nil
}

// classify maps GitHub API errors onto the worker's error taxonomy. Bad or
// revoked credentials are fatal, a missing resource is ErrNotFound, anything
// else is returned unchanged and treated as local to the event. A 403 is
// event-local too: GitHub sends it for locked issues and for repositories the
// token cannot write to, neither of which affects the next event.
func classify(err error) error {
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return err
	}

	var respErr *github.ErrorResponse
	if !errors.As(err, &respErr) || respErr.Response == nil {
		return err
	}
	switch respErr.Response.StatusCode {
	case http.StatusUnauthorized:
		return core.Fatal(fmt.Errorf("github rejected credentials: %w", err))
	case http.StatusNotFound, http.StatusGone:
		return fmt.Errorf("%w: %w", core.ErrNotFound, err)
	default:
		return err
	}
}

// ReadTail reads r to the end and returns at most the last limit bytes.
// A limit of zero or less means no limit.
func ReadTail(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}

	var buf bytes.Buffer
	chunk := make([]byte, 32*1024)
	for {
		n, err := r.Read(chunk)
		buf.Write(chunk[:n])
		if over := int64(buf.Len()) - 2*limit; over > 0 {
			buf.Next(int(over))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	data := buf.Bytes()
	if int64(len(data)) > limit {
		data = data[int64(len(data))-limit:]
		// Drop the partial first line.
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			data = data[i+1:]
		}
	}
	return bytes.Clone(data), nil
}

// ParseJobID parses the numeric job identifier GitHub uses for check runs.
func ParseJobID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid job id %q", s)
	}
	return id, nil
}
