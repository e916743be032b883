package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/wrknv/internal/workspace"
	"github.com/tyemirov/wrknv/pkg/taskrunner"
)

const (
	workspaceCommandUseConstant              = "workspace"
	workspaceCommandShortDescriptionConstant = "Run tasks across every repository in a workspace"
	workspaceRunUseConstant                  = "run <name>"
	workspaceRunShortDescriptionConstant     = "Run one task across selected workspace repositories"
	workspaceRootFlagNameConstant            = "root"
	workspaceRootFlagDescriptionConstant     = "workspace root directory"
	filterFlagNameConstant                   = "filter"
	filterFlagDescriptionConstant            = "glob pattern selecting repositories by name"
	parallelFlagNameConstant                 = "parallel"
	parallelFlagDescriptionConstant          = "run repositories concurrently"
	failFastFlagNameConstant                 = "fail-fast"
	failFastFlagDescriptionConstant          = "stop scheduling after the first failure"
	maxParallelFlagNameConstant              = "max-parallel"
	maxParallelFlagDescriptionConstant       = "bound on concurrently running repositories (0 = unbounded)"
	workspaceRunFailedTemplateConstant       = "task %q failed in %d of %d repositories"
)

// WorkspaceRunFailedError signals that at least one repository failed.
type WorkspaceRunFailedError struct {
	TaskName          string
	FailedCount       int
	TotalRepositories int
}

// Error summarizes the failed workspace run.
func (runError WorkspaceRunFailedError) Error() string {
	return fmt.Sprintf(workspaceRunFailedTemplateConstant, runError.TaskName, runError.FailedCount, runError.TotalRepositories)
}

func (application *Application) newWorkspaceCommand() *cobra.Command {
	workspaceCommand := &cobra.Command{
		Use:   workspaceCommandUseConstant,
		Short: workspaceCommandShortDescriptionConstant,
	}
	workspaceCommand.AddCommand(application.newWorkspaceRunCommand())
	return workspaceCommand
}

func (application *Application) newWorkspaceRunCommand() *cobra.Command {
	var workspaceRoot string
	var repositoryFilter string
	var parallel bool
	var failFast bool
	var maxParallel int
	var dryRun bool
	var environmentAssignments []string

	runCommand := &cobra.Command{
		Use:   workspaceRunUseConstant,
		Short: workspaceRunShortDescriptionConstant,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			environmentVariables, environmentError := parseEnvironmentAssignments(environmentAssignments)
			if environmentError != nil {
				return environmentError
			}

			selectedRoot := workspaceRoot
			if len(selectedRoot) == 0 {
				selectedRoot = application.configuration.Workspace.Root
			}

			dependencies := taskrunner.BuildDependencies(
				taskrunner.DependenciesConfig{
					LoggerProvider:       func() *zap.Logger { return application.logger },
					DefaultTaskTimeout:   application.configuration.Tasks.DefaultTaskTimeout(),
					EnvironmentVariables: environmentVariables,
				},
				taskrunner.DependenciesOptions{
					Output: command.OutOrStdout(),
					Errors: command.ErrOrStderr(),
				},
			)

			runner := taskrunner.Resolve(nil, dependencies)
			result, runError := runner.RunTask(command.Context(), selectedRoot, arguments[0], workspace.RunOptions{
				RepositoryFilter: repositoryFilter,
				Parallel:         parallel,
				FailFast:         failFast,
				MaxParallel:      maxParallel,
				DryRun:           dryRun,
			})
			if runError != nil {
				return runError
			}
			if !result.Success() {
				return WorkspaceRunFailedError{
					TaskName:          result.TaskName,
					FailedCount:       result.Failed,
					TotalRepositories: result.TotalRepositories,
				}
			}
			return nil
		},
	}

	runCommand.Flags().StringVar(&workspaceRoot, workspaceRootFlagNameConstant, "", workspaceRootFlagDescriptionConstant)
	runCommand.Flags().StringVar(&repositoryFilter, filterFlagNameConstant, "", filterFlagDescriptionConstant)
	runCommand.Flags().BoolVar(&parallel, parallelFlagNameConstant, false, parallelFlagDescriptionConstant)
	runCommand.Flags().BoolVar(&failFast, failFastFlagNameConstant, false, failFastFlagDescriptionConstant)
	runCommand.Flags().IntVar(&maxParallel, maxParallelFlagNameConstant, 0, maxParallelFlagDescriptionConstant)
	runCommand.Flags().BoolVar(&dryRun, dryRunFlagNameConstant, false, dryRunFlagDescriptionConstant)
	runCommand.Flags().StringArrayVar(&environmentAssignments, environmentFlagNameConstant, nil, environmentFlagDescriptionConstant)
	return runCommand
}
