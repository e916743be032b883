package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	yaml "gopkg.in/yaml.v3"

	"github.com/tyemirov/wrknv/internal/tasks"
)

const (
	taskCommandUseConstant              = "task"
	taskCommandShortDescriptionConstant = "Inspect and run tasks of a single repository"
	taskRunUseConstant                  = "run <name> [args...]"
	taskRunShortDescriptionConstant     = "Run one task inside a repository"
	taskListUseConstant                 = "list"
	taskListShortDescriptionConstant    = "List tasks defined by a repository"
	repositoryFlagNameConstant          = "dir"
	repositoryFlagDescriptionConstant   = "repository root directory"
	timeoutFlagNameConstant             = "timeout"
	timeoutFlagDescriptionConstant      = "default task timeout in seconds"
	dryRunFlagNameConstant              = "dry-run"
	dryRunFlagDescriptionConstant       = "show what would run without executing"
	environmentFlagNameConstant         = "env"
	environmentFlagDescriptionConstant  = "additional KEY=VALUE environment entries"
	outputFlagNameConstant              = "output"
	outputFlagDescriptionConstant       = "output format (text or yaml)"
	outputFormatTextConstant            = "text"
	outputFormatYAMLConstant            = "yaml"
	unknownOutputFormatTemplateConstant = "unsupported output format %q"
	taskListEntryTemplateConstant       = "%-32s %s\n"
	taskFailedMessageTemplateConstant   = "task %q failed with exit code %d"
	defaultRepositoryDirectoryConstant  = "."
)

// TaskFailedError signals a completed task with a non-zero exit code.
type TaskFailedError struct {
	TaskName string
	ExitCode int
}

// Error describes the failed task.
func (failedError TaskFailedError) Error() string {
	return fmt.Sprintf(taskFailedMessageTemplateConstant, failedError.TaskName, failedError.ExitCode)
}

func (application *Application) newTaskCommand() *cobra.Command {
	taskCommand := &cobra.Command{
		Use:   taskCommandUseConstant,
		Short: taskCommandShortDescriptionConstant,
	}
	taskCommand.AddCommand(application.newTaskRunCommand())
	taskCommand.AddCommand(application.newTaskListCommand())
	return taskCommand
}

func (application *Application) newTaskRunCommand() *cobra.Command {
	var repositoryDirectory string
	var timeoutSeconds int
	var dryRun bool
	var environmentAssignments []string

	runCommand := &cobra.Command{
		Use:   taskRunUseConstant,
		Short: taskRunShortDescriptionConstant,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			environmentVariables, environmentError := parseEnvironmentAssignments(environmentAssignments)
			if environmentError != nil {
				return environmentError
			}

			registry, registryError := tasks.LoadRegistry(repositoryDirectory)
			if registryError != nil {
				return registryError
			}

			definition, resolvedArguments, resolutionError := registry.ResolveTask(arguments[0], arguments[1:])
			if resolutionError != nil {
				return resolutionError
			}

			defaultTimeout := application.configuration.Tasks.DefaultTaskTimeout()
			if timeoutSeconds > 0 {
				defaultTimeout = time.Duration(timeoutSeconds) * time.Second
			}

			taskExecutor, executorError := tasks.NewExecutor(tasks.ExecutorConfig{
				Registry:             registry,
				Logger:               application.logger,
				DefaultTimeout:       defaultTimeout,
				EnvironmentVariables: environmentVariables,
				DryRun:               dryRun,
			})
			if executorError != nil {
				return executorError
			}

			outcome, executionError := taskExecutor.Execute(command.Context(), definition, resolvedArguments)
			if executionError != nil {
				return executionError
			}

			if len(outcome.StandardOutput) > 0 {
				fmt.Fprint(command.OutOrStdout(), outcome.StandardOutput)
			}
			if len(outcome.StandardError) > 0 {
				fmt.Fprint(command.ErrOrStderr(), outcome.StandardError)
			}
			if !outcome.Success {
				return TaskFailedError{TaskName: outcome.Definition.FullName(), ExitCode: outcome.ExitCode}
			}
			return nil
		},
	}

	runCommand.Flags().StringVar(&repositoryDirectory, repositoryFlagNameConstant, defaultRepositoryDirectoryConstant, repositoryFlagDescriptionConstant)
	runCommand.Flags().IntVar(&timeoutSeconds, timeoutFlagNameConstant, 0, timeoutFlagDescriptionConstant)
	runCommand.Flags().BoolVar(&dryRun, dryRunFlagNameConstant, false, dryRunFlagDescriptionConstant)
	runCommand.Flags().StringArrayVar(&environmentAssignments, environmentFlagNameConstant, nil, environmentFlagDescriptionConstant)
	return runCommand
}

type taskListEntry struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Composite   bool     `yaml:"composite,omitempty"`
	DependsOn   []string `yaml:"depends_on,omitempty"`
}

func (application *Application) newTaskListCommand() *cobra.Command {
	var repositoryDirectory string
	var outputFormat string

	listCommand := &cobra.Command{
		Use:   taskListUseConstant,
		Short: taskListShortDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			registry, registryError := tasks.LoadRegistry(repositoryDirectory)
			if registryError != nil {
				return registryError
			}

			entries := make([]taskListEntry, 0, len(registry.TaskNames()))
			for _, definition := range registry.Definitions() {
				entries = append(entries, taskListEntry{
					Name:        definition.FullName(),
					Description: definition.Description(),
					Composite:   definition.IsComposite(),
					DependsOn:   definition.DependsOn(),
				})
			}

			switch outputFormat {
			case outputFormatTextConstant:
				for _, entry := range entries {
					fmt.Fprintf(command.OutOrStdout(), taskListEntryTemplateConstant, entry.Name, entry.Description)
				}
				return nil
			case outputFormatYAMLConstant:
				encoded, encodeError := yaml.Marshal(entries)
				if encodeError != nil {
					return encodeError
				}
				fmt.Fprint(command.OutOrStdout(), string(encoded))
				return nil
			default:
				return fmt.Errorf(unknownOutputFormatTemplateConstant, outputFormat)
			}
		},
	}

	listCommand.Flags().StringVar(&repositoryDirectory, repositoryFlagNameConstant, defaultRepositoryDirectoryConstant, repositoryFlagDescriptionConstant)
	listCommand.Flags().StringVar(&outputFormat, outputFlagNameConstant, outputFormatTextConstant, outputFlagDescriptionConstant)
	return listCommand
}
