package workspace

import (
	"sort"
	"time"

	"github.com/tyemirov/wrknv/internal/tasks"
)

// RepositoryOutcome is one repository's entry in a workspace result.
//
// Skipped marks repositories that defined no resolvable task; such entries
// carry a zero Outcome. Repositories omitted by sequential fail-fast have no
// entry at all.
type RepositoryOutcome struct {
	Skipped bool
	Outcome tasks.TaskOutcome
}

// Result aggregates one orchestration run across a workspace.
//
// A result is created fresh inside a single RunTask call, fully populated
// before return, and never persisted.
type Result struct {
	TaskName          string
	TotalRepositories int
	Succeeded         int
	Failed            int
	Skipped           int
	RepositoryResults map[string]RepositoryOutcome
	Duration          time.Duration
}

// Success reports whether no repository failed.
func (result Result) Success() bool {
	return result.Failed == 0
}

// FailedRepositories returns the names of repositories whose task failed, sorted.
func (result Result) FailedRepositories() []string {
	return result.repositoriesMatching(func(outcome RepositoryOutcome) bool {
		return !outcome.Skipped && !outcome.Outcome.Success
	})
}

// SucceededRepositories returns the names of repositories whose task succeeded, sorted.
func (result Result) SucceededRepositories() []string {
	return result.repositoriesMatching(func(outcome RepositoryOutcome) bool {
		return !outcome.Skipped && outcome.Outcome.Success
	})
}

// SkippedRepositories returns the names of repositories without a resolvable task, sorted.
func (result Result) SkippedRepositories() []string {
	return result.repositoriesMatching(func(outcome RepositoryOutcome) bool {
		return outcome.Skipped
	})
}

func (result Result) repositoriesMatching(predicate func(RepositoryOutcome) bool) []string {
	names := make([]string, 0, len(result.RepositoryResults))
	for repositoryName, repositoryOutcome := range result.RepositoryResults {
		if predicate(repositoryOutcome) {
			names = append(names, repositoryName)
		}
	}
	sort.Strings(names)
	return names
}
