package execshell

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

const (
	loggerNotConfiguredMessageConstant        = "shell executor logger not configured"
	commandRunnerNotConfiguredMessageConstant = "shell executor command runner not configured"
	commandMissingMessageConstant             = "shell command not provided"
	commandStartMessageConstant               = "command execution starting"
	commandSuccessMessageConstant             = "command execution completed"
	commandFailureMessageConstant             = "command returned non-zero status"
	commandTimeoutMessageConstant             = "command terminated at deadline"
	commandRunnerErrorMessageConstant         = "command execution error"
	commandFieldNameConstant                  = "command"
	workingDirectoryFieldNameConstant         = "working_directory"
	timeoutFieldNameConstant                  = "timeout"
	exitCodeFieldNameConstant                 = "exit_code"
	standardErrorFieldNameConstant            = "stderr"
	durationFieldNameConstant                 = "duration"
)

var (
	// ErrLoggerNotConfigured indicates the logger dependency was missing.
	ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)
	// ErrCommandRunnerNotConfigured indicates the command runner dependency was missing.
	ErrCommandRunnerNotConfigured = errors.New(commandRunnerNotConfiguredMessageConstant)
	// ErrCommandMissing indicates the command string was not provided.
	ErrCommandMissing = errors.New(commandMissingMessageConstant)
)

// ShellExecutor orchestrates running shell commands with lifecycle logging.
//
// Non-zero exit codes are reported as data inside the returned ExecutionResult;
// only spawn failures, deadline expiry, and cancellation surface as errors.
type ShellExecutor struct {
	commandRunner CommandRunner
	logger        *zap.Logger
}

// NewShellExecutor builds an executor for the provided runner and logger.
func NewShellExecutor(logger *zap.Logger, commandRunner CommandRunner) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if commandRunner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}
	return &ShellExecutor{commandRunner: commandRunner, logger: logger}, nil
}

// Execute runs the provided shell command and logs lifecycle events.
func (executor *ShellExecutor) Execute(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	if len(details.Command) == 0 {
		return ExecutionResult{}, ErrCommandMissing
	}

	executor.logger.Info(commandStartMessageConstant,
		zap.String(commandFieldNameConstant, details.Command),
		zap.String(workingDirectoryFieldNameConstant, details.WorkingDirectory),
		zap.Duration(timeoutFieldNameConstant, details.Timeout),
	)

	executionResult, runnerError := executor.commandRunner.Run(executionContext, details)
	if runnerError != nil {
		var timeoutError CommandTimedOutError
		if errors.As(runnerError, &timeoutError) {
			executor.logger.Error(commandTimeoutMessageConstant,
				zap.String(commandFieldNameConstant, details.Command),
				zap.Duration(timeoutFieldNameConstant, timeoutError.Timeout),
			)
			return executionResult, runnerError
		}
		executor.logger.Error(commandRunnerErrorMessageConstant,
			zap.String(commandFieldNameConstant, details.Command),
			zap.Error(runnerError),
		)
		return executionResult, runnerError
	}

	if executionResult.ExitCode != 0 {
		executor.logger.Warn(commandFailureMessageConstant,
			zap.String(commandFieldNameConstant, details.Command),
			zap.Int(exitCodeFieldNameConstant, executionResult.ExitCode),
			zap.String(standardErrorFieldNameConstant, executionResult.StandardError),
		)
		return executionResult, nil
	}

	executor.logger.Info(commandSuccessMessageConstant,
		zap.String(commandFieldNameConstant, details.Command),
		zap.Int(exitCodeFieldNameConstant, executionResult.ExitCode),
		zap.Duration(durationFieldNameConstant, executionResult.Duration),
	)
	return executionResult, nil
}
