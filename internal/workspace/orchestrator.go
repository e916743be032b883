package workspace

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tyemirov/wrknv/internal/execshell"
	"github.com/tyemirov/wrknv/internal/tasks"
)

const (
	repositoryFilterTemplateConstant      = "invalid repository filter %q: %w"
	runStartingMessageConstant            = "running task across workspace"
	repositorySkippedMessageConstant      = "task not found in repository, skipping"
	repositorySucceededMessageConstant    = "repository task succeeded"
	repositoryFailedMessageConstant       = "repository task failed"
	failFastStopMessageConstant           = "stopping after failure (fail-fast)"
	repositoryFieldNameConstant           = "repository"
	orchestratorTaskFieldNameConstant     = "task"
	parallelFieldNameConstant             = "parallel"
	failFastFieldNameConstant             = "fail_fast"
	filteredCountFieldNameConstant        = "repositories"
	orchestratorExitCodeFieldNameConstant = "exit_code"
	repositoryErrorExitCodeConstant       = -1
)

// OrchestratorConfig captures the collaborators of a workspace orchestrator.
type OrchestratorConfig struct {
	Discoverer           RepositoryDiscoverer
	Logger               *zap.Logger
	CommandRunner        execshell.CommandRunner
	DefaultTaskTimeout   time.Duration
	EnvironmentVariables map[string]string
}

// RunOptions selects repositories and the scheduling discipline for one run.
type RunOptions struct {
	RepositoryFilter string
	Parallel         bool
	FailFast         bool
	MaxParallel      int
	DryRun           bool
}

// Orchestrator runs one named task across every selected repository.
type Orchestrator struct {
	discoverer           RepositoryDiscoverer
	logger               *zap.Logger
	commandRunner        execshell.CommandRunner
	defaultTaskTimeout   time.Duration
	environmentVariables map[string]string
}

// NewOrchestrator constructs an orchestrator, defaulting absent collaborators.
func NewOrchestrator(config OrchestratorConfig) *Orchestrator {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	discoverer := config.Discoverer
	if discoverer == nil {
		discoverer = NewFilesystemRepositoryDiscoverer(logger)
	}
	commandRunner := config.CommandRunner
	if commandRunner == nil {
		commandRunner = execshell.NewOSCommandRunner()
	}
	return &Orchestrator{
		discoverer:           discoverer,
		logger:               logger,
		commandRunner:        commandRunner,
		defaultTaskTimeout:   config.DefaultTaskTimeout,
		environmentVariables: config.EnvironmentVariables,
	}
}

// RunTask executes the named task across the workspace and aggregates outcomes.
//
// Per-repository failures never abort the run; they are recorded and tallied.
// Only the fail-fast policy stops scheduling early: sequential mode halts the
// loop after the first failure and omits unattempted repositories from the
// result, while parallel mode checks a shared failure flag before dispatching
// each repository and lets in-flight executions finish normally.
func (orchestrator *Orchestrator) RunTask(executionContext context.Context, workspaceRoot string, taskName string, options RunOptions) (Result, error) {
	candidates, discoveryError := orchestrator.discoverer.DiscoverRepositories(workspaceRoot)
	if discoveryError != nil {
		return Result{}, discoveryError
	}

	if len(options.RepositoryFilter) > 0 {
		filtered := make([]RepositoryCandidate, 0, len(candidates))
		for _, candidate := range candidates {
			matched, matchError := path.Match(options.RepositoryFilter, candidate.Name)
			if matchError != nil {
				return Result{}, fmt.Errorf(repositoryFilterTemplateConstant, options.RepositoryFilter, matchError)
			}
			if matched {
				filtered = append(filtered, candidate)
			}
		}
		candidates = filtered
	}

	orchestrator.logger.Info(runStartingMessageConstant,
		zap.String(orchestratorTaskFieldNameConstant, taskName),
		zap.Int(filteredCountFieldNameConstant, len(candidates)),
		zap.Bool(parallelFieldNameConstant, options.Parallel),
		zap.Bool(failFastFieldNameConstant, options.FailFast),
	)

	startTime := time.Now()
	repositoryResults := make(map[string]RepositoryOutcome, len(candidates))
	if options.Parallel {
		orchestrator.runParallel(executionContext, candidates, taskName, options, repositoryResults)
	} else {
		orchestrator.runSequential(executionContext, candidates, taskName, options, repositoryResults)
	}

	result := Result{
		TaskName:          taskName,
		TotalRepositories: len(candidates),
		RepositoryResults: repositoryResults,
		Duration:          time.Since(startTime),
	}
	for _, repositoryOutcome := range repositoryResults {
		switch {
		case repositoryOutcome.Skipped:
			result.Skipped++
		case repositoryOutcome.Outcome.Success:
			result.Succeeded++
		default:
			result.Failed++
		}
	}
	return result, nil
}

func (orchestrator *Orchestrator) runSequential(executionContext context.Context, candidates []RepositoryCandidate, taskName string, options RunOptions, repositoryResults map[string]RepositoryOutcome) {
	for _, candidate := range candidates {
		repositoryOutcome := orchestrator.executeRepository(executionContext, candidate, taskName, options)
		repositoryResults[candidate.Name] = repositoryOutcome

		if options.FailFast && !repositoryOutcome.Skipped && !repositoryOutcome.Outcome.Success {
			orchestrator.logger.Warn(failFastStopMessageConstant,
				zap.String(repositoryFieldNameConstant, candidate.Name),
			)
			return
		}
	}
}

func (orchestrator *Orchestrator) runParallel(executionContext context.Context, candidates []RepositoryCandidate, taskName string, options RunOptions, repositoryResults map[string]RepositoryOutcome) {
	var executionGroup errgroup.Group
	if options.MaxParallel > 0 {
		executionGroup.SetLimit(options.MaxParallel)
	}

	var resultsMutex sync.Mutex
	var failureObserved atomic.Bool

	for _, candidate := range candidates {
		// The fail-fast boundary is dispatch time: the flag is consulted only
		// before launching the next repository, never against in-flight work.
		if options.FailFast && failureObserved.Load() {
			break
		}

		dispatchedCandidate := candidate
		executionGroup.Go(func() error {
			repositoryOutcome := orchestrator.executeRepository(executionContext, dispatchedCandidate, taskName, options)
			if !repositoryOutcome.Skipped && !repositoryOutcome.Outcome.Success {
				failureObserved.Store(true)
			}
			resultsMutex.Lock()
			repositoryResults[dispatchedCandidate.Name] = repositoryOutcome
			resultsMutex.Unlock()
			return nil
		})
	}
	_ = executionGroup.Wait()
}

// executeRepository isolates one repository: resolution and execution errors
// become a failed outcome for that entry instead of aborting the run.
func (orchestrator *Orchestrator) executeRepository(executionContext context.Context, candidate RepositoryCandidate, taskName string, options RunOptions) RepositoryOutcome {
	definition, arguments, resolutionError := candidate.Registry.ResolveTask(taskName, nil)
	if resolutionError != nil {
		var notFoundError tasks.TaskNotFoundError
		if errors.As(resolutionError, &notFoundError) {
			orchestrator.logger.Warn(repositorySkippedMessageConstant,
				zap.String(repositoryFieldNameConstant, candidate.Name),
				zap.String(orchestratorTaskFieldNameConstant, taskName),
			)
			return RepositoryOutcome{Skipped: true}
		}
		return RepositoryOutcome{Outcome: orchestrator.failedOutcome(candidate, resolutionError)}
	}

	taskExecutor, executorError := tasks.NewExecutor(tasks.ExecutorConfig{
		Registry:             candidate.Registry,
		Logger:               orchestrator.logger,
		CommandRunner:        orchestrator.commandRunner,
		DefaultTimeout:       orchestrator.defaultTaskTimeout,
		EnvironmentVariables: orchestrator.environmentVariables,
		DryRun:               options.DryRun,
	})
	if executorError != nil {
		return RepositoryOutcome{Outcome: orchestrator.failedOutcome(candidate, executorError)}
	}

	outcome, executionError := taskExecutor.Execute(executionContext, definition, arguments)
	if executionError != nil {
		return RepositoryOutcome{Outcome: orchestrator.failedOutcome(candidate, executionError)}
	}

	if outcome.Success {
		orchestrator.logger.Info(repositorySucceededMessageConstant,
			zap.String(repositoryFieldNameConstant, candidate.Name),
			zap.String(orchestratorTaskFieldNameConstant, outcome.Definition.FullName()),
		)
	} else {
		orchestrator.logger.Error(repositoryFailedMessageConstant,
			zap.String(repositoryFieldNameConstant, candidate.Name),
			zap.String(orchestratorTaskFieldNameConstant, outcome.Definition.FullName()),
			zap.Int(orchestratorExitCodeFieldNameConstant, outcome.ExitCode),
		)
	}
	return RepositoryOutcome{Outcome: outcome}
}

func (orchestrator *Orchestrator) failedOutcome(candidate RepositoryCandidate, cause error) tasks.TaskOutcome {
	orchestrator.logger.Error(repositoryFailedMessageConstant,
		zap.String(repositoryFieldNameConstant, candidate.Name),
		zap.Error(cause),
	)
	return tasks.TaskOutcome{
		Success:       false,
		ExitCode:      repositoryErrorExitCodeConstant,
		StandardError: cause.Error(),
	}
}
