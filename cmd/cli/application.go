package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const (
	applicationUseConstant               = "wrknv"
	applicationShortDescriptionConstant  = "Developer environment and multi-repository task orchestration"
	applicationLongDescriptionConstant   = "wrknv runs declared shell tasks inside one repository or across every repository in a workspace."
	configurationFlagNameConstant        = "config"
	configurationFlagDescriptionConstant = "path to the application configuration file"
	logLevelFlagNameConstant             = "log-level"
	logLevelFlagDescriptionConstant      = "log level (debug, info, warn, error)"
	logFormatFlagNameConstant            = "log-format"
	logFormatFlagDescriptionConstant     = "log format (structured or console)"
	flagNameUnderscoreConstant           = "_"
	flagNameSeparatorConstant            = "-"
)

// Application wires configuration, logging, and the cobra command tree.
type Application struct {
	rootCommand   *cobra.Command
	configuration ApplicationConfiguration
	logger        *zap.Logger

	configurationFilePath string
	logLevelOverride      string
	logFormatOverride     string
}

// Execute builds the application and runs the command tree.
func Execute() error {
	return NewApplication().Execute()
}

// NewApplication constructs the wrknv command-line application.
func NewApplication() *Application {
	application := &Application{}

	rootCommand := &cobra.Command{
		Use:           applicationUseConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initialize()
		},
		PersistentPostRun: func(command *cobra.Command, arguments []string) {
			if application.logger != nil {
				_ = application.logger.Sync()
			}
		},
	}

	rootCommand.PersistentFlags().SetNormalizeFunc(normalizeFlagName)
	rootCommand.PersistentFlags().StringVar(&application.configurationFilePath, configurationFlagNameConstant, "", configurationFlagDescriptionConstant)
	rootCommand.PersistentFlags().StringVar(&application.logLevelOverride, logLevelFlagNameConstant, "", logLevelFlagDescriptionConstant)
	rootCommand.PersistentFlags().StringVar(&application.logFormatOverride, logFormatFlagNameConstant, "", logFormatFlagDescriptionConstant)

	rootCommand.AddCommand(application.newTaskCommand())
	rootCommand.AddCommand(application.newWorkspaceCommand())

	application.rootCommand = rootCommand
	return application
}

// Execute runs the root command.
func (application *Application) Execute() error {
	return application.rootCommand.Execute()
}

// RootCommand exposes the underlying cobra command, primarily for tests.
func (application *Application) RootCommand() *cobra.Command {
	return application.rootCommand
}

// normalizeFlagName accepts snake_case spellings of flag names.
func normalizeFlagName(flagSet *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, flagNameUnderscoreConstant, flagNameSeparatorConstant))
}

func (application *Application) initialize() error {
	configuration, configurationError := loadApplicationConfiguration(application.configurationFilePath)
	if configurationError != nil {
		return configurationError
	}
	if len(application.logLevelOverride) > 0 {
		configuration.Common.LogLevel = application.logLevelOverride
	}
	if len(application.logFormatOverride) > 0 {
		configuration.Common.LogFormat = application.logFormatOverride
	}
	application.configuration = configuration

	logger, loggerError := newApplicationLogger(configuration.Common.LogLevel, configuration.Common.LogFormat)
	if loggerError != nil {
		return loggerError
	}
	application.logger = logger
	return nil
}
