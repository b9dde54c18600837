// Package buildkite reads job logs from the Buildkite REST API.
package buildkite

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	json "github.com/goccy/go-json"
	"golang.org/x/oauth2"

	"github.com/sevigo/build-warden/internal/core"
)

// DefaultBaseURL is the public Buildkite API.
const DefaultBaseURL = "https://api.buildkite.com"

// buildURLPattern matches build pages such as
// https://buildkite.com/org/pipeline/builds/123#0190-job-uuid
var buildURLPattern = regexp.MustCompile(`^https?://[^/]+/([^/]+)/([^/]+)/builds/(\d+)(?:#([0-9a-fA-F-]+))?`)

// BuildRef locates a single job of a Buildkite build.
type BuildRef struct {
	Org      string
	Pipeline string
	Number   string
	JobID    string
}

// BuildID returns the identifier stored in core.BuildEvent.BuildID.
func (r BuildRef) BuildID() string {
	return r.Org + "/" + r.Pipeline + "/" + r.Number
}

// ParseBuildURL extracts the build and job from a Buildkite build page URL,
// as reported in commit status target URLs.
func ParseBuildURL(raw string) (BuildRef, error) {
	m := buildURLPattern.FindStringSubmatch(raw)
	if m == nil {
		return BuildRef{}, fmt.Errorf("not a buildkite build url: %q", raw)
	}
	return BuildRef{Org: m[1], Pipeline: m[2], Number: m[3], JobID: m[4]}, nil
}

// ParseBuildID is the inverse of BuildRef.BuildID.
func ParseBuildID(buildID, jobID string) (BuildRef, error) {
	parts := strings.Split(buildID, "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return BuildRef{}, fmt.Errorf("invalid buildkite build id %q", buildID)
	}
	if jobID == "" {
		return BuildRef{}, fmt.Errorf("buildkite build %s: missing job id", buildID)
	}
	return BuildRef{Org: parts[0], Pipeline: parts[1], Number: parts[2], JobID: jobID}, nil
}

type jobLog struct {
	URL     string `json:"url"`
	Content string `json:"content"`
	Size    int64  `json:"size"`
}

// Client talks to the Buildkite REST API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient returns a client authenticated with an API access token.
func NewClient(ctx context.Context, baseURL, token string, logger *slog.Logger) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	return newClient(baseURL, oauth2.NewClient(ctx, ts), logger)
}

func newClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}
}

// GetJobLog returns the log output of one job.
func (c *Client) GetJobLog(ctx context.Context, ref BuildRef) (string, error) {
	endpoint := fmt.Sprintf("%s/v2/organizations/%s/pipelines/%s/builds/%s/jobs/%s/log",
		c.baseURL,
		url.PathEscape(ref.Org),
		url.PathEscape(ref.Pipeline),
		url.PathEscape(ref.Number),
		url.PathEscape(ref.JobID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("building buildkite request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting buildkite log: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return "", fmt.Errorf("buildkite log for %s job %s: %w", ref.BuildID(), ref.JobID, core.ErrNotFound)
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", core.Fatal(fmt.Errorf("buildkite rejected credentials: %s", resp.Status))
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Error("unexpected buildkite response", "status", resp.Status, "body", string(body))
		return "", fmt.Errorf("buildkite log for %s: unexpected status %s", ref.BuildID(), resp.Status)
	}

	var out jobLog
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding buildkite log: %w", err)
	}
	return out.Content, nil
}
