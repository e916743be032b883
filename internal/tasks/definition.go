package tasks

import (
	"time"
)

const (
	emptyTaskNameReasonConstant      = "task name must not be empty"
	missingRunReasonConstant         = "task must define either a command or a task sequence"
	conflictingRunReasonConstant     = "task cannot define both a command and a task sequence"
	emptySequenceEntryReasonConstant = "composite task references must not be empty"
	parallelLeafReasonConstant       = "parallel execution applies only to composite tasks"
)

// TaskDefinitionConfig carries the raw fields used to construct a TaskDefinition.
type TaskDefinitionConfig struct {
	Name                 string
	Namespace            string
	Command              string
	TaskSequence         []string
	Description          string
	EnvironmentVariables map[string]string
	DependsOn            []string
	WorkingDirectory     string
	Timeout              time.Duration
	Parallel             bool
}

// TaskDefinition is an immutable description of one unit of work.
//
// A definition is either a leaf (a shell command string) or a composite (an
// ordered sequence of task-name references). All fields are fixed at
// construction; accessors return copies of slice and map state.
type TaskDefinition struct {
	name                 string
	namespace            string
	command              string
	taskSequence         []string
	description          string
	environmentVariables map[string]string
	dependsOn            []string
	workingDirectory     string
	timeout              time.Duration
	parallel             bool
}

// NewTaskDefinition validates the configuration and constructs an immutable definition.
func NewTaskDefinition(config TaskDefinitionConfig) (TaskDefinition, error) {
	trimmedName := config.Name
	if len(trimmedName) == 0 {
		return TaskDefinition{}, InvalidTaskDefinitionError{TaskName: config.Name, Reason: emptyTaskNameReasonConstant}
	}

	hasCommand := len(config.Command) > 0
	hasSequence := len(config.TaskSequence) > 0
	fullName := QualifiedTaskName(config.Namespace, config.Name)
	if !hasCommand && !hasSequence {
		return TaskDefinition{}, InvalidTaskDefinitionError{TaskName: fullName, Reason: missingRunReasonConstant}
	}
	if hasCommand && hasSequence {
		return TaskDefinition{}, InvalidTaskDefinitionError{TaskName: fullName, Reason: conflictingRunReasonConstant}
	}
	for _, reference := range config.TaskSequence {
		if len(reference) == 0 {
			return TaskDefinition{}, InvalidTaskDefinitionError{TaskName: fullName, Reason: emptySequenceEntryReasonConstant}
		}
	}
	if config.Parallel && hasCommand {
		return TaskDefinition{}, InvalidTaskDefinitionError{TaskName: fullName, Reason: parallelLeafReasonConstant}
	}

	return TaskDefinition{
		name:                 config.Name,
		namespace:            config.Namespace,
		command:              config.Command,
		taskSequence:         copyStringSlice(config.TaskSequence),
		description:          config.Description,
		environmentVariables: copyStringMap(config.EnvironmentVariables),
		dependsOn:            copyStringSlice(config.DependsOn),
		workingDirectory:     config.WorkingDirectory,
		timeout:              config.Timeout,
		parallel:             config.Parallel,
	}, nil
}

// Name returns the leaf task name.
func (definition TaskDefinition) Name() string {
	return definition.name
}

// Namespace returns the dot-separated grouping prefix, empty for flat tasks.
func (definition TaskDefinition) Namespace() string {
	return definition.namespace
}

// FullName returns the namespace-qualified task name.
func (definition TaskDefinition) FullName() string {
	return QualifiedTaskName(definition.namespace, definition.name)
}

// IsComposite reports whether the task runs other tasks instead of a command.
func (definition TaskDefinition) IsComposite() bool {
	return len(definition.taskSequence) > 0
}

// Command returns the leaf shell command, empty for composite tasks.
func (definition TaskDefinition) Command() string {
	return definition.command
}

// TaskSequence returns the ordered sub-task references of a composite task.
func (definition TaskDefinition) TaskSequence() []string {
	return copyStringSlice(definition.taskSequence)
}

// Description returns optional human-readable text.
func (definition TaskDefinition) Description() string {
	return definition.description
}

// EnvironmentVariables returns per-task environment overrides.
func (definition TaskDefinition) EnvironmentVariables() map[string]string {
	return copyStringMap(definition.environmentVariables)
}

// DependsOn returns task references that must succeed before this task runs.
func (definition TaskDefinition) DependsOn() []string {
	return copyStringSlice(definition.dependsOn)
}

// WorkingDirectory returns the execution directory override, empty for the repository root.
func (definition TaskDefinition) WorkingDirectory() string {
	return definition.workingDirectory
}

// Timeout returns the per-task deadline override; zero means the executor default applies.
func (definition TaskDefinition) Timeout() time.Duration {
	return definition.timeout
}

// Parallel reports whether a composite task runs its sub-tasks concurrently.
func (definition TaskDefinition) Parallel() bool {
	return definition.parallel
}

// IsDefaultTask reports whether this is a namespace _default task.
func (definition TaskDefinition) IsDefaultTask() bool {
	return definition.name == defaultTaskLeafNameConstant
}

func copyStringSlice(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	copied := make([]string, len(values))
	copy(copied, values)
	return copied
}

func copyStringMap(values map[string]string) map[string]string {
	if len(values) == 0 {
		return nil
	}
	copied := make(map[string]string, len(values))
	for key, value := range values {
		copied[key] = value
	}
	return copied
}
