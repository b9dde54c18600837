package core

import "strings"

// RepositorySet is the family of repositories a process watches. It is configured
// once at startup and never modified.
type RepositorySet struct {
	Primary   string
	Secondary []string
	// QueryBuildsFromPrimary makes every log query go to the primary repository,
	// for mirrors and forks that share build infrastructure with it.
	QueryBuildsFromPrimary bool
}

// Contains reports whether name belongs to the set and whether it is the primary.
// GitHub repository names are case-insensitive.
func (s RepositorySet) Contains(name string) (primary bool, ok bool) {
	if strings.EqualFold(name, s.Primary) {
		return true, true
	}
	for _, r := range s.Secondary {
		if strings.EqualFold(name, r) {
			return false, true
		}
	}
	return false, false
}

// QueryRepo returns the repository build logs for the event should be fetched from.
func (s RepositorySet) QueryRepo(event *BuildEvent) string {
	if s.QueryBuildsFromPrimary {
		return s.Primary
	}
	return event.Repo
}
