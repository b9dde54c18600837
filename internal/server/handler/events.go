package handler

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/google/go-github/v73/github"

	"github.com/sevigo/build-warden/internal/buildkite"
	"github.com/sevigo/build-warden/internal/config"
	"github.com/sevigo/build-warden/internal/core"
)

// autoMergePattern matches the merge commits created by merge bots such as
// bors and homu, e.g. "Auto merge of #12345 - user:branch, r=reviewer".
var autoMergePattern = regexp.MustCompile(`^Auto merge of #(\d+)`)

var (
	errNotFailed     = errors.New("build did not fail")
	errUnwatchedRepo = errors.New("repository is not watched")
)

// eventFromCheckRun converts a completed, failed GitHub Actions check run.
func eventFromCheckRun(e *github.CheckRunEvent, repos core.RepositorySet) (*core.BuildEvent, error) {
	if e.GetAction() != "completed" {
		return nil, fmt.Errorf("check run action %q: %w", e.GetAction(), errNotFailed)
	}

	run := e.GetCheckRun()
	switch run.GetConclusion() {
	case "failure", "timed_out":
	default:
		return nil, fmt.Errorf("check run conclusion %q: %w", run.GetConclusion(), errNotFailed)
	}

	repo := e.GetRepo().GetFullName()
	primary, ok := repos.Contains(repo)
	if !ok {
		return nil, fmt.Errorf("%s: %w", repo, errUnwatchedRepo)
	}

	event := &core.BuildEvent{
		Repo:      repo,
		Primary:   primary,
		Provider:  config.PlatformActions,
		BuildID:   strconv.FormatInt(run.GetCheckSuite().GetID(), 10),
		JobID:     strconv.FormatInt(run.GetID(), 10),
		Name:      run.GetName(),
		URL:       run.GetHTMLURL(),
		CommitSHA: run.GetHeadSHA(),
		Branch:    run.GetCheckSuite().GetHeadBranch(),
		Status:    core.StatusFailed,
	}
	if len(run.PullRequests) > 0 {
		event.PRNumber = run.PullRequests[0].GetNumber()
		event.PRRepo = repo
	}
	return event, nil
}

// eventFromStatus converts a failed commit status reported by Buildkite.
func eventFromStatus(e *github.StatusEvent, repos core.RepositorySet) (*core.BuildEvent, error) {
	switch e.GetState() {
	case "failure", "error":
	default:
		return nil, fmt.Errorf("status state %q: %w", e.GetState(), errNotFailed)
	}

	repo := e.GetRepo().GetFullName()
	primary, ok := repos.Contains(repo)
	if !ok {
		return nil, fmt.Errorf("%s: %w", repo, errUnwatchedRepo)
	}

	ref, err := buildkite.ParseBuildURL(e.GetTargetURL())
	if err != nil {
		return nil, err
	}
	if ref.JobID == "" {
		return nil, fmt.Errorf("status target %q does not name a job", e.GetTargetURL())
	}

	event := &core.BuildEvent{
		Repo:      repo,
		Primary:   primary,
		Provider:  config.PlatformBuildkite,
		BuildID:   ref.BuildID(),
		JobID:     ref.JobID,
		Name:      e.GetContext(),
		URL:       e.GetTargetURL(),
		CommitSHA: e.GetSHA(),
		Status:    core.StatusFailed,
	}
	if len(e.Branches) > 0 {
		event.Branch = e.Branches[0].GetName()
	}
	if n := autoMergePR(e.GetCommit().GetCommit().GetMessage()); n > 0 {
		event.PRNumber = n
		event.PRRepo = repos.Primary
	}
	return event, nil
}

// autoMergePR returns the pull request number of a merge bot commit, or 0.
func autoMergePR(message string) int {
	m := autoMergePattern.FindStringSubmatch(message)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}
