package taskrunner

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/tyemirov/wrknv/internal/workspace"
)

// Runner executes one named task across every selected workspace repository.
type Runner interface {
	RunTask(ctx context.Context, workspaceRoot string, taskName string, options workspace.RunOptions) (workspace.Result, error)
}

// Factory constructs a Runner given resolved dependencies.
type Factory func(Dependencies) Runner

type orchestratorAdapter struct {
	orchestrator *workspace.Orchestrator
}

func (adapter orchestratorAdapter) RunTask(ctx context.Context, workspaceRoot string, taskName string, options workspace.RunOptions) (workspace.Result, error) {
	return adapter.orchestrator.RunTask(ctx, workspaceRoot, taskName, options)
}

// Resolve returns either the provided factory result or a default workspace runner.
func Resolve(factory Factory, dependencies Dependencies) Runner {
	var base Runner
	if factory != nil {
		base = factory(dependencies)
	}
	if base == nil {
		base = orchestratorAdapter{orchestrator: workspace.NewOrchestrator(workspace.OrchestratorConfig{
			Discoverer:           dependencies.Discoverer,
			Logger:               dependencies.Logger,
			CommandRunner:        dependencies.CommandRunner,
			DefaultTaskTimeout:   dependencies.DefaultTaskTimeout,
			EnvironmentVariables: dependencies.EnvironmentVariables,
		})}
	}
	return summaryRunner{
		delegate:     base,
		dependencies: dependencies,
	}
}

type summaryRunner struct {
	delegate     Runner
	dependencies Dependencies
}

func (runner summaryRunner) RunTask(ctx context.Context, workspaceRoot string, taskName string, options workspace.RunOptions) (workspace.Result, error) {
	result, runError := runner.delegate.RunTask(ctx, workspaceRoot, taskName, options)
	runner.printSummary(result)
	return result, runError
}

func (runner summaryRunner) printSummary(result workspace.Result) {
	if runner.dependencies.DisableSummary {
		return
	}
	writer := runner.summaryWriter()
	if writer == nil {
		return
	}

	summary := RenderSummaryLine(result)
	if len(strings.TrimSpace(summary)) == 0 {
		return
	}
	fmt.Fprintln(writer, summary)
}

func (runner summaryRunner) summaryWriter() io.Writer {
	if runner.dependencies.Errors != nil {
		return runner.dependencies.Errors
	}
	if runner.dependencies.Output != nil {
		return runner.dependencies.Output
	}
	return nil
}
