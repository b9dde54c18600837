package github

import (
	"fmt"
	"regexp"
	"strings"
)

var jobURLRegex = regexp.MustCompile(`github\.com/([^/]+)/([^/]+)/actions/runs/\d+/job/(\d+)$`)

// ParseJobURL extracts the repository and job ID from the URL of a GitHub
// Actions job page.
// Supported format: https://github.com/{owner}/{repo}/actions/runs/{run}/job/{job}
func ParseJobURL(url string) (owner, repo string, jobID int64, err error) {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	url = strings.TrimSuffix(url, "/")

	matches := jobURLRegex.FindStringSubmatch(url)
	if len(matches) != 4 {
		return "", "", 0, fmt.Errorf("invalid job URL format: %s", url)
	}

	jobID, err = ParseJobID(matches[3])
	if err != nil {
		return "", "", 0, err
	}
	return matches[1], matches[2], jobID, nil
}
