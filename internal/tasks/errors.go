package tasks

import (
	"fmt"
	"strings"
	"time"
)

const (
	invalidTaskDefinitionMessageTemplateConstant = "invalid task definition %q: %s"
	taskNotFoundMessageTemplateConstant          = "task %q not found"
	taskNotFoundHintTemplateConstant             = " (available: %s)"
	availableTaskPreviewLimitConstant            = 5
	availableTaskEllipsisConstant                = "..."
	taskTimeoutMessageTemplateConstant           = "task %q timed out after %s"
	dependencyCycleMessageTemplateConstant       = "dependency cycle detected: %s"
	dependencyCycleSeparatorConstant             = " -> "
	taskSpawnMessageTemplateConstant             = "task %q could not start: %v"
)

// InvalidTaskDefinitionError reports construction-time validation failures.
type InvalidTaskDefinitionError struct {
	TaskName string
	Reason   string
}

// Error describes the rejected definition.
func (definitionError InvalidTaskDefinitionError) Error() string {
	return fmt.Sprintf(invalidTaskDefinitionMessageTemplateConstant, definitionError.TaskName, definitionError.Reason)
}

// TaskNotFoundError reports a task reference that no registry entry satisfies.
type TaskNotFoundError struct {
	TaskName       string
	AvailableTasks []string
}

// Error lists the missing task alongside a short preview of known tasks.
func (notFoundError TaskNotFoundError) Error() string {
	message := fmt.Sprintf(taskNotFoundMessageTemplateConstant, notFoundError.TaskName)
	if len(notFoundError.AvailableTasks) == 0 {
		return message
	}
	preview := notFoundError.AvailableTasks
	truncated := false
	if len(preview) > availableTaskPreviewLimitConstant {
		preview = preview[:availableTaskPreviewLimitConstant]
		truncated = true
	}
	joined := strings.Join(preview, ", ")
	if truncated {
		joined += availableTaskEllipsisConstant
	}
	return message + fmt.Sprintf(taskNotFoundHintTemplateConstant, joined)
}

// TaskTimeoutError reports a task terminated at its deadline.
//
// TaskName carries the fully-qualified task name and Timeout the deadline that
// was armed for the execution.
type TaskTimeoutError struct {
	TaskName string
	Timeout  time.Duration
}

// Error describes the missed deadline.
func (timeoutError TaskTimeoutError) Error() string {
	return fmt.Sprintf(taskTimeoutMessageTemplateConstant, timeoutError.TaskName, timeoutError.Timeout)
}

// DependencyCycleError reports a dependency chain that revisits a task still being resolved.
type DependencyCycleError struct {
	CycleMembers []string
}

// Error names every task participating in the cycle, in resolution order.
func (cycleError DependencyCycleError) Error() string {
	return fmt.Sprintf(dependencyCycleMessageTemplateConstant, strings.Join(cycleError.CycleMembers, dependencyCycleSeparatorConstant))
}

// TaskSpawnError reports a process that could not be started at all.
type TaskSpawnError struct {
	TaskName string
	Cause    error
}

// Error describes the spawn failure.
func (spawnError TaskSpawnError) Error() string {
	return fmt.Sprintf(taskSpawnMessageTemplateConstant, spawnError.TaskName, spawnError.Cause)
}

// Unwrap exposes the underlying error.
func (spawnError TaskSpawnError) Unwrap() error {
	return spawnError.Cause
}
