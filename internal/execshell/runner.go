package execshell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

const (
	shellExecutableNameConstant                = "/bin/sh"
	shellCommandFlagConstant                   = "-c"
	commandStartFailureMessageTemplateConstant = "unable to start command: %s"
	commandTimeoutMessageTemplateConstant      = "command exceeded deadline of %s"
	commandCancelledMessageTemplateConstant    = "command cancelled: %s"
	environmentEntryTemplateConstant           = "%s=%s"
)

// CommandDetails describes one shell command invocation.
type CommandDetails struct {
	Command              string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
	Timeout              time.Duration
}

// ExecutionResult captures observable command results.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
	Duration       time.Duration
}

// CommandRunner executes shell commands.
type CommandRunner interface {
	Run(executionContext context.Context, details CommandDetails) (ExecutionResult, error)
}

// CommandStartError indicates the process could not be spawned at all.
type CommandStartError struct {
	Details CommandDetails
	Cause   error
}

// Error describes the spawn failure.
func (startError CommandStartError) Error() string {
	return fmt.Sprintf(commandStartFailureMessageTemplateConstant, startError.Cause)
}

// Unwrap exposes the underlying error.
func (startError CommandStartError) Unwrap() error {
	return startError.Cause
}

// CommandTimedOutError indicates the process missed its deadline and was terminated.
type CommandTimedOutError struct {
	Details CommandDetails
	Timeout time.Duration
}

// Error describes the missed deadline.
func (timeoutError CommandTimedOutError) Error() string {
	return fmt.Sprintf(commandTimeoutMessageTemplateConstant, timeoutError.Timeout)
}

// CommandCancelledError indicates the caller cancelled the execution context.
type CommandCancelledError struct {
	Details CommandDetails
	Cause   error
}

// Error describes the cancellation.
func (cancelledError CommandCancelledError) Error() string {
	return fmt.Sprintf(commandCancelledMessageTemplateConstant, cancelledError.Cause)
}

// Unwrap exposes the context error.
func (cancelledError CommandCancelledError) Unwrap() error {
	return cancelledError.Cause
}

// OSCommandRunner runs shell commands against the host operating system.
//
// Every command is spawned inside its own process group so that a missed
// deadline terminates the entire process tree, not only the top-level shell.
type OSCommandRunner struct{}

// NewOSCommandRunner constructs an operating-system backed command runner.
func NewOSCommandRunner() OSCommandRunner {
	return OSCommandRunner{}
}

// Run executes the command and waits for completion, deadline expiry, or cancellation.
func (runner OSCommandRunner) Run(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	command := exec.Command(shellExecutableNameConstant, shellCommandFlagConstant, details.Command)
	command.Dir = details.WorkingDirectory
	command.Env = mergedEnvironment(details.EnvironmentVariables)
	command.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var standardOutputBuffer bytes.Buffer
	var standardErrorBuffer bytes.Buffer
	command.Stdout = &standardOutputBuffer
	command.Stderr = &standardErrorBuffer

	startTime := time.Now()
	if startError := command.Start(); startError != nil {
		return ExecutionResult{}, CommandStartError{Details: details, Cause: startError}
	}

	waitChannel := make(chan error, 1)
	go func() {
		waitChannel <- command.Wait()
	}()

	var deadlineChannel <-chan time.Time
	if details.Timeout > 0 {
		deadlineTimer := time.NewTimer(details.Timeout)
		defer deadlineTimer.Stop()
		deadlineChannel = deadlineTimer.C
	}

	select {
	case <-executionContext.Done():
		terminateProcessGroup(command)
		<-waitChannel
		result := capturedResult(&standardOutputBuffer, &standardErrorBuffer, -1, startTime)
		return result, CommandCancelledError{Details: details, Cause: executionContext.Err()}
	case <-deadlineChannel:
		terminateProcessGroup(command)
		<-waitChannel
		result := capturedResult(&standardOutputBuffer, &standardErrorBuffer, -1, startTime)
		return result, CommandTimedOutError{Details: details, Timeout: details.Timeout}
	case waitError := <-waitChannel:
		exitCode := 0
		if waitError != nil {
			var exitError *exec.ExitError
			if errors.As(waitError, &exitError) {
				exitCode = exitError.ExitCode()
			} else {
				return ExecutionResult{}, CommandStartError{Details: details, Cause: waitError}
			}
		}
		return capturedResult(&standardOutputBuffer, &standardErrorBuffer, exitCode, startTime), nil
	}
}

func capturedResult(standardOutputBuffer *bytes.Buffer, standardErrorBuffer *bytes.Buffer, exitCode int, startTime time.Time) ExecutionResult {
	return ExecutionResult{
		StandardOutput: standardOutputBuffer.String(),
		StandardError:  standardErrorBuffer.String(),
		ExitCode:       exitCode,
		Duration:       time.Since(startTime),
	}
}

func terminateProcessGroup(command *exec.Cmd) {
	if command.Process == nil {
		return
	}
	// Negative PID addresses the whole process group created by Setpgid.
	_ = syscall.Kill(-command.Process.Pid, syscall.SIGKILL)
}

func mergedEnvironment(overrides map[string]string) []string {
	if len(overrides) == 0 {
		return os.Environ()
	}
	merged := make([]string, 0, len(os.Environ())+len(overrides))
	overriddenKeys := make(map[string]struct{}, len(overrides))
	for key := range overrides {
		overriddenKeys[key] = struct{}{}
	}
	for _, entry := range os.Environ() {
		separatorIndex := strings.IndexByte(entry, '=')
		if separatorIndex >= 0 {
			if _, overridden := overriddenKeys[entry[:separatorIndex]]; overridden {
				continue
			}
		}
		merged = append(merged, entry)
	}
	for key, value := range overrides {
		merged = append(merged, fmt.Sprintf(environmentEntryTemplateConstant, key, value))
	}
	return merged
}
