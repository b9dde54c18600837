// Package core defines the essential interfaces and data structures that form the
// backbone of the application. These components are designed to be abstract,
// allowing for flexible and decoupled implementations of the application's logic.
package core

import (
	"fmt"
	"strconv"
	"strings"
)

// BuildStatus is the normalized outcome reported by a CI webhook.
type BuildStatus string

// StatusFailed is the only status the handler lets through.
const StatusFailed BuildStatus = "failed"

// BuildEvent is the internal view of one CI completion notification.
// It is created by the webhook handler and is not modified after it has been dispatched.
type BuildEvent struct {
	// Repo is the full name (owner/name) of the repository that sent the webhook.
	Repo string
	// Primary is true when Repo is the primary repository of the RepositorySet.
	Primary bool

	Provider string
	BuildID  string
	JobID    string
	Name     string
	URL      string

	CommitSHA string
	Branch    string
	// PRNumber is the pull request or issue the build belongs to, 0 if unknown.
	PRNumber int
	// PRRepo is the repository PRNumber refers to. Merge bots building in a
	// mirror report pull requests of the primary repository.
	PRRepo string

	Status     BuildStatus
	DeliveryID string
}

// String returns a short identifier used in log lines.
func (e *BuildEvent) String() string {
	if e.JobID != "" {
		return fmt.Sprintf("%s build %s job %s", e.Repo, e.BuildID, e.JobID)
	}
	return fmt.Sprintf("%s build %s", e.Repo, e.BuildID)
}

// BuildRef identifies the log a CI platform should return for an event.
type BuildRef struct {
	Repo     string
	Provider string
	BuildID  string
	JobID    string
}

// CommentTarget is the issue or pull request a diagnosis is posted to.
type CommentTarget struct {
	Owner  string
	Repo   string
	Number int
}

// FullName returns owner/repo.
func (t CommentTarget) FullName() string {
	return t.Owner + "/" + t.Repo
}

func (t CommentTarget) String() string {
	return fmt.Sprintf("%s/%s#%d", t.Owner, t.Repo, t.Number)
}

// DebugTarget overrides the destination of every posted comment.
type DebugTarget = CommentTarget

// ParseDebugTarget parses a target in the form "owner/repo#123".
func ParseDebugTarget(s string) (*DebugTarget, error) {
	s = strings.TrimSpace(s)
	repoPart, numPart, ok := strings.Cut(s, "#")
	if !ok {
		return nil, fmt.Errorf("debug target %q: missing '#'", s)
	}
	owner, repo, ok := strings.Cut(repoPart, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return nil, fmt.Errorf("debug target %q: repository must be owner/repo", s)
	}
	number, err := strconv.Atoi(numPart)
	if err != nil || number <= 0 {
		return nil, fmt.Errorf("debug target %q: invalid issue number %q", s, numPart)
	}
	return &DebugTarget{Owner: owner, Repo: repo, Number: number}, nil
}

// SplitRepo splits a full repository name into owner and name.
func SplitRepo(fullName string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("invalid repository name %q, expected owner/name", fullName)
	}
	return owner, name, nil
}

// Diagnosis is the analyzer's guess at the cause of a failed build.
type Diagnosis struct {
	Lines []string
	// Score is the fraction of log lines the analyzer considered unusual.
	Score float64
}

// Empty reports whether the diagnosis carries nothing worth posting.
func (d *Diagnosis) Empty() bool {
	return d == nil || len(d.Lines) == 0
}
