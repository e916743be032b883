package tasks

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tyemirov/wrknv/internal/execshell"
)

const (
	// DefaultTaskTimeout applies when a definition carries no timeout override.
	DefaultTaskTimeout = 300 * time.Second

	executorRegistryMissingMessageConstant = "task executor registry not configured"
	taskStartMessageConstant               = "task starting"
	taskCompletedMessageConstant           = "task completed"
	taskDryRunMessageConstant              = "task dry run"
	taskDependencyFailedMessageConstant    = "task dependency failed"
	compositeSubtaskFailedMessageConstant  = "composite sub-task failed"
	parallelCompositeMessageConstant       = "running composite sub-tasks in parallel"
	taskFieldNameConstant                  = "task"
	commandFieldForTaskConstant            = "command"
	timeoutFieldForTaskConstant            = "timeout"
	dependencyFieldNameConstant            = "dependency"
	subtaskFieldNameConstant               = "subtask"
	successFieldNameConstant               = "success"
	taskExitCodeFieldNameConstant          = "exit_code"
	taskDurationFieldNameConstant          = "duration"
	parallelFailureSummaryTemplateConstant = "parallel task %q had %d failure(s): %s"
	parallelFailureSectionTemplateConstant = "\n--- %s stderr ---\n%s"
	shellSingleQuoteConstant               = "'"
	shellEscapedSingleQuoteConstant        = `'\''`
	failureExitCodeConstant                = 1
)

// ErrExecutorRegistryMissing indicates the executor was built without a registry.
var ErrExecutorRegistryMissing = errors.New(executorRegistryMissingMessageConstant)

// ExecutorConfig captures the collaborators of a task executor.
type ExecutorConfig struct {
	Registry             Registry
	Logger               *zap.Logger
	CommandRunner        execshell.CommandRunner
	DefaultTimeout       time.Duration
	EnvironmentVariables map[string]string
	DryRun               bool
}

// Executor runs one task definition to completion inside one repository.
//
// An executor shares no mutable state between Execute calls; independent calls
// on the same instance may run concurrently without synchronization.
type Executor struct {
	registry             Registry
	logger               *zap.Logger
	shellExecutor        *execshell.ShellExecutor
	defaultTimeout       time.Duration
	environmentVariables map[string]string
	dryRun               bool
}

// NewExecutor validates the configuration and constructs an executor.
func NewExecutor(config ExecutorConfig) (*Executor, error) {
	if config.Registry.definitions == nil {
		return nil, ErrExecutorRegistryMissing
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	commandRunner := config.CommandRunner
	if commandRunner == nil {
		commandRunner = execshell.NewOSCommandRunner()
	}
	shellExecutor, shellExecutorError := execshell.NewShellExecutor(logger, commandRunner)
	if shellExecutorError != nil {
		return nil, shellExecutorError
	}
	defaultTimeout := config.DefaultTimeout
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultTaskTimeout
	}
	return &Executor{
		registry:             config.Registry,
		logger:               logger,
		shellExecutor:        shellExecutor,
		defaultTimeout:       defaultTimeout,
		environmentVariables: copyStringMap(config.EnvironmentVariables),
		dryRun:               config.DryRun,
	}, nil
}

// executionState tracks one Execute invocation.
//
// completedDependencies de-duplicates dependency runs so a task shared by two
// dependents executes at most once. resolutionOrder records the active
// resolution chain for cycle reporting.
type executionState struct {
	completedDependencies map[string]TaskOutcome
	resolving             map[string]struct{}
	resolutionOrder       []string
}

func newExecutionState() *executionState {
	return &executionState{
		completedDependencies: make(map[string]TaskOutcome),
		resolving:             make(map[string]struct{}),
	}
}

// branch snapshots the active resolution chain for a concurrent sub-execution.
func (state *executionState) branch() *executionState {
	cloned := newExecutionState()
	for taskName := range state.resolving {
		cloned.resolving[taskName] = struct{}{}
	}
	cloned.resolutionOrder = append(cloned.resolutionOrder, state.resolutionOrder...)
	return cloned
}

// Execute runs the definition, its dependencies, and any composite sequence.
func (executor *Executor) Execute(executionContext context.Context, definition TaskDefinition, arguments []string) (TaskOutcome, error) {
	return executor.run(executionContext, newExecutionState(), definition, arguments)
}

func (executor *Executor) run(executionContext context.Context, state *executionState, definition TaskDefinition, arguments []string) (TaskOutcome, error) {
	fullName := definition.FullName()
	if _, beingResolved := state.resolving[fullName]; beingResolved {
		return TaskOutcome{}, DependencyCycleError{CycleMembers: cycleMembers(state.resolutionOrder, fullName)}
	}
	state.resolving[fullName] = struct{}{}
	state.resolutionOrder = append(state.resolutionOrder, fullName)
	defer func() {
		delete(state.resolving, fullName)
		state.resolutionOrder = state.resolutionOrder[:len(state.resolutionOrder)-1]
	}()

	dependencyOutcome, dependencyError := executor.runDependencies(executionContext, state, definition)
	if dependencyError != nil {
		return TaskOutcome{}, dependencyError
	}
	if dependencyOutcome != nil {
		return *dependencyOutcome, nil
	}

	if definition.IsComposite() {
		return executor.runComposite(executionContext, state, definition)
	}
	return executor.runLeaf(executionContext, definition, arguments)
}

// runDependencies executes depends_on entries in declared order. A failing
// dependency short-circuits the task: the returned outcome mirrors the
// failure and is attributed to the dependent definition.
func (executor *Executor) runDependencies(executionContext context.Context, state *executionState, definition TaskDefinition) (*TaskOutcome, error) {
	for _, reference := range definition.DependsOn() {
		resolvedDefinition, resolutionError := executor.resolveReference(reference, definition.Namespace())
		if resolutionError != nil {
			return nil, resolutionError
		}

		resolvedName := resolvedDefinition.FullName()
		outcome, alreadyRan := state.completedDependencies[resolvedName]
		if !alreadyRan {
			var runError error
			outcome, runError = executor.run(executionContext, state, resolvedDefinition, nil)
			if runError != nil {
				return nil, runError
			}
			state.completedDependencies[resolvedName] = outcome
		}

		if !outcome.Success {
			executor.logger.Warn(taskDependencyFailedMessageConstant,
				zap.String(taskFieldNameConstant, definition.FullName()),
				zap.String(dependencyFieldNameConstant, resolvedName),
				zap.Int(taskExitCodeFieldNameConstant, outcome.ExitCode),
			)
			mirrored := TaskOutcome{
				Definition:    definition,
				Success:       false,
				ExitCode:      outcome.ExitCode,
				StandardError: outcome.StandardError,
				Duration:      outcome.Duration,
			}
			return &mirrored, nil
		}
	}
	return nil, nil
}

func (executor *Executor) runComposite(executionContext context.Context, state *executionState, definition TaskDefinition) (TaskOutcome, error) {
	if definition.Parallel() {
		return executor.runParallelComposite(executionContext, state, definition)
	}

	var totalDuration time.Duration
	var lastOutcome TaskOutcome
	for _, reference := range definition.TaskSequence() {
		resolvedDefinition, resolutionError := executor.resolveReference(reference, definition.Namespace())
		if resolutionError != nil {
			return TaskOutcome{}, resolutionError
		}

		subtaskOutcome, subtaskError := executor.run(executionContext, state, resolvedDefinition, nil)
		if subtaskError != nil {
			return TaskOutcome{}, subtaskError
		}
		totalDuration += subtaskOutcome.Duration

		if !subtaskOutcome.Success {
			executor.logger.Warn(compositeSubtaskFailedMessageConstant,
				zap.String(taskFieldNameConstant, definition.FullName()),
				zap.String(subtaskFieldNameConstant, subtaskOutcome.Definition.FullName()),
				zap.Int(taskExitCodeFieldNameConstant, subtaskOutcome.ExitCode),
			)
			return TaskOutcome{
				Definition:     definition,
				Success:        false,
				ExitCode:       subtaskOutcome.ExitCode,
				StandardOutput: subtaskOutcome.StandardOutput,
				StandardError:  subtaskOutcome.StandardError,
				Duration:       totalDuration,
			}, nil
		}
		lastOutcome = subtaskOutcome
	}

	return TaskOutcome{
		Definition:     definition,
		Success:        true,
		ExitCode:       lastOutcome.ExitCode,
		StandardOutput: lastOutcome.StandardOutput,
		StandardError:  lastOutcome.StandardError,
		Duration:       totalDuration,
	}, nil
}

// runParallelComposite runs every sub-task concurrently and never fails fast;
// the aggregated stderr names each failed sub-task.
func (executor *Executor) runParallelComposite(executionContext context.Context, state *executionState, definition TaskDefinition) (TaskOutcome, error) {
	references := definition.TaskSequence()
	executor.logger.Info(parallelCompositeMessageConstant,
		zap.String(taskFieldNameConstant, definition.FullName()),
		zap.Int("subtask_count", len(references)),
	)

	resolvedDefinitions := make([]TaskDefinition, len(references))
	for referenceIndex, reference := range references {
		resolvedDefinition, resolutionError := executor.resolveReference(reference, definition.Namespace())
		if resolutionError != nil {
			return TaskOutcome{}, resolutionError
		}
		resolvedDefinitions[referenceIndex] = resolvedDefinition
	}

	startTime := time.Now()
	outcomes := make([]TaskOutcome, len(resolvedDefinitions))
	var executionGroup errgroup.Group
	for definitionIndex := range resolvedDefinitions {
		branchState := state.branch()
		subtaskDefinition := resolvedDefinitions[definitionIndex]
		outcomeSlot := &outcomes[definitionIndex]
		executionGroup.Go(func() error {
			subtaskOutcome, subtaskError := executor.run(executionContext, branchState, subtaskDefinition, nil)
			if subtaskError != nil {
				return subtaskError
			}
			*outcomeSlot = subtaskOutcome
			return nil
		})
	}
	if groupError := executionGroup.Wait(); groupError != nil {
		return TaskOutcome{}, groupError
	}

	failedSubtaskNames := make([]string, 0, len(outcomes))
	for _, subtaskOutcome := range outcomes {
		if !subtaskOutcome.Success {
			failedSubtaskNames = append(failedSubtaskNames, subtaskOutcome.Definition.FullName())
		}
	}

	aggregatedOutcome := TaskOutcome{
		Definition: definition,
		Success:    len(failedSubtaskNames) == 0,
		Duration:   time.Since(startTime),
	}
	if len(failedSubtaskNames) > 0 {
		aggregatedOutcome.ExitCode = failureExitCodeConstant
		sections := []string{fmt.Sprintf(parallelFailureSummaryTemplateConstant,
			definition.FullName(), len(failedSubtaskNames), strings.Join(failedSubtaskNames, ", "))}
		for _, subtaskOutcome := range outcomes {
			if !subtaskOutcome.Success && len(subtaskOutcome.StandardError) > 0 {
				sections = append(sections, fmt.Sprintf(parallelFailureSectionTemplateConstant,
					subtaskOutcome.Definition.FullName(), subtaskOutcome.StandardError))
			}
		}
		aggregatedOutcome.StandardError = strings.Join(sections, "")
	}
	return aggregatedOutcome, nil
}

func (executor *Executor) runLeaf(executionContext context.Context, definition TaskDefinition, arguments []string) (TaskOutcome, error) {
	fullName := definition.FullName()
	command := definition.Command()
	if len(arguments) > 0 {
		quotedArguments := make([]string, 0, len(arguments))
		for _, argument := range arguments {
			quotedArguments = append(quotedArguments, quoteShellArgument(argument))
		}
		command = command + " " + strings.Join(quotedArguments, " ")
	}

	timeout := definition.Timeout()
	if timeout <= 0 {
		timeout = executor.defaultTimeout
	}

	environment := copyStringMap(executor.environmentVariables)
	if environment == nil {
		environment = map[string]string{}
	}
	for key, value := range definition.EnvironmentVariables() {
		environment[key] = value
	}

	workingDirectory := executor.registry.RepositoryPath()
	if override := definition.WorkingDirectory(); len(override) > 0 {
		if filepath.IsAbs(override) {
			workingDirectory = override
		} else {
			workingDirectory = filepath.Join(workingDirectory, override)
		}
	}

	if executor.dryRun {
		executor.logger.Info(taskDryRunMessageConstant,
			zap.String(taskFieldNameConstant, fullName),
			zap.String(commandFieldForTaskConstant, command),
		)
		return TaskOutcome{Definition: definition, Success: true}, nil
	}

	executor.logger.Info(taskStartMessageConstant,
		zap.String(taskFieldNameConstant, fullName),
		zap.String(commandFieldForTaskConstant, command),
		zap.Duration(timeoutFieldForTaskConstant, timeout),
	)

	executionResult, executionError := executor.shellExecutor.Execute(executionContext, execshell.CommandDetails{
		Command:              command,
		WorkingDirectory:     workingDirectory,
		EnvironmentVariables: environment,
		Timeout:              timeout,
	})
	if executionError != nil {
		var timedOutError execshell.CommandTimedOutError
		if errors.As(executionError, &timedOutError) {
			return TaskOutcome{}, TaskTimeoutError{TaskName: fullName, Timeout: timeout}
		}
		var startError execshell.CommandStartError
		if errors.As(executionError, &startError) {
			return TaskOutcome{}, TaskSpawnError{TaskName: fullName, Cause: startError.Cause}
		}
		return TaskOutcome{}, executionError
	}

	outcome := TaskOutcome{
		Definition:     definition,
		Success:        executionResult.ExitCode == 0,
		ExitCode:       executionResult.ExitCode,
		StandardOutput: executionResult.StandardOutput,
		StandardError:  executionResult.StandardError,
		Duration:       executionResult.Duration,
	}
	executor.logger.Info(taskCompletedMessageConstant,
		zap.String(taskFieldNameConstant, fullName),
		zap.Bool(successFieldNameConstant, outcome.Success),
		zap.Int(taskExitCodeFieldNameConstant, outcome.ExitCode),
		zap.Duration(taskDurationFieldNameConstant, outcome.Duration),
	)
	return outcome, nil
}

// resolveReference resolves a dependency or composite reference, falling back
// to the referencing task's own namespace when the reference is unqualified.
func (executor *Executor) resolveReference(reference string, currentNamespace string) (TaskDefinition, error) {
	if definition, found := executor.registry.Lookup(reference); found {
		return definition, nil
	}
	if !IsQualifiedTaskName(reference) && len(currentNamespace) > 0 {
		qualifiedReference := QualifiedTaskName(currentNamespace, reference)
		if definition, found := executor.registry.Lookup(qualifiedReference); found {
			return definition, nil
		}
	}
	return TaskDefinition{}, TaskNotFoundError{TaskName: reference, AvailableTasks: executor.registry.TaskNames()}
}

func cycleMembers(resolutionOrder []string, revisitedName string) []string {
	for orderIndex, taskName := range resolutionOrder {
		if taskName == revisitedName {
			members := make([]string, 0, len(resolutionOrder)-orderIndex+1)
			members = append(members, resolutionOrder[orderIndex:]...)
			members = append(members, revisitedName)
			return members
		}
	}
	return []string{revisitedName}
}

func quoteShellArgument(argument string) string {
	if len(argument) == 0 {
		return shellSingleQuoteConstant + shellSingleQuoteConstant
	}
	return shellSingleQuoteConstant +
		strings.ReplaceAll(argument, shellSingleQuoteConstant, shellEscapedSingleQuoteConstant) +
		shellSingleQuoteConstant
}
