package taskrunner

import (
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/tyemirov/wrknv/internal/execshell"
	"github.com/tyemirov/wrknv/internal/workspace"
)

// Dependencies captures the collaborators required for workspace task execution.
type Dependencies struct {
	Logger               *zap.Logger
	Discoverer           workspace.RepositoryDiscoverer
	CommandRunner        execshell.CommandRunner
	Output               io.Writer
	Errors               io.Writer
	DefaultTaskTimeout   time.Duration
	EnvironmentVariables map[string]string
	DisableSummary       bool
}

// DependenciesConfig captures providers used to build Dependencies.
type DependenciesConfig struct {
	LoggerProvider       func() *zap.Logger
	Discoverer           workspace.RepositoryDiscoverer
	CommandRunner        execshell.CommandRunner
	DefaultTaskTimeout   time.Duration
	EnvironmentVariables map[string]string
}

// DependenciesOptions allows per-command overrides when resolving dependencies.
type DependenciesOptions struct {
	Output         io.Writer
	Errors         io.Writer
	DisableSummary bool
}

// BuildDependencies resolves logging, discovery, and process collaborators.
func BuildDependencies(config DependenciesConfig, options DependenciesOptions) Dependencies {
	logger := resolveLogger(config.LoggerProvider)

	discoverer := config.Discoverer
	if discoverer == nil {
		discoverer = workspace.NewFilesystemRepositoryDiscoverer(logger)
	}

	commandRunner := config.CommandRunner
	if commandRunner == nil {
		commandRunner = execshell.NewOSCommandRunner()
	}

	return Dependencies{
		Logger:               logger,
		Discoverer:           discoverer,
		CommandRunner:        commandRunner,
		Output:               resolveWriter(options.Output, os.Stdout),
		Errors:               resolveWriter(options.Errors, os.Stderr),
		DefaultTaskTimeout:   config.DefaultTaskTimeout,
		EnvironmentVariables: config.EnvironmentVariables,
		DisableSummary:       options.DisableSummary,
	}
}

func resolveLogger(provider func() *zap.Logger) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}
	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func resolveWriter(provided io.Writer, fallback io.Writer) io.Writer {
	if provided != nil {
		return provided
	}
	return fallback
}
