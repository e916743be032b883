package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	configurationFileBaseNameConstant      = ".wrknv"
	configurationFileTypeConstant          = "yaml"
	environmentVariablePrefixConstant      = "WRKNV"
	environmentKeySeparatorConstant        = "_"
	configurationNestedSeparatorConstant   = "."
	homeConfigurationPathConstant          = "$HOME"
	currentConfigurationPathConstant       = "."
	configurationDecodeTemplateConstant    = "unable to decode configuration: %w"
	configurationReadTemplateConstant      = "unable to read configuration file: %w"
	logLevelConfigurationKeyConstant       = "common.log_level"
	logFormatConfigurationKeyConstant      = "common.log_format"
	taskTimeoutConfigurationKeyConstant    = "tasks.default_timeout_seconds"
	workspaceRootConfigurationKeyConstant  = "workspace.root"
	defaultLogLevelConstant                = "info"
	defaultLogFormatConstant               = "structured"
	defaultTaskTimeoutSecondsConstant      = 300
	defaultWorkspaceRootConstant           = "."
	environmentAssignmentSeparatorConstant = "="
	environmentAssignmentTemplateConstant  = "invalid environment assignment %q (expected KEY=VALUE)"
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common    ApplicationCommonConfiguration    `mapstructure:"common"`
	Tasks     ApplicationTasksConfiguration     `mapstructure:"tasks"`
	Workspace ApplicationWorkspaceConfiguration `mapstructure:"workspace"`
}

// ApplicationCommonConfiguration stores logging defaults shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// ApplicationTasksConfiguration stores task execution defaults.
type ApplicationTasksConfiguration struct {
	DefaultTimeoutSeconds int `mapstructure:"default_timeout_seconds"`
}

// ApplicationWorkspaceConfiguration stores workspace orchestration defaults.
type ApplicationWorkspaceConfiguration struct {
	Root string `mapstructure:"root"`
}

// DefaultTaskTimeout converts the configured timeout into a duration.
func (configuration ApplicationTasksConfiguration) DefaultTaskTimeout() time.Duration {
	return time.Duration(configuration.DefaultTimeoutSeconds) * time.Second
}

func loadApplicationConfiguration(configurationFilePath string) (ApplicationConfiguration, error) {
	loader := viper.New()
	loader.SetDefault(logLevelConfigurationKeyConstant, defaultLogLevelConstant)
	loader.SetDefault(logFormatConfigurationKeyConstant, defaultLogFormatConstant)
	loader.SetDefault(taskTimeoutConfigurationKeyConstant, defaultTaskTimeoutSecondsConstant)
	loader.SetDefault(workspaceRootConfigurationKeyConstant, defaultWorkspaceRootConstant)

	loader.SetEnvPrefix(environmentVariablePrefixConstant)
	loader.SetEnvKeyReplacer(strings.NewReplacer(configurationNestedSeparatorConstant, environmentKeySeparatorConstant))
	loader.AutomaticEnv()

	if len(configurationFilePath) > 0 {
		loader.SetConfigFile(configurationFilePath)
		if readError := loader.ReadInConfig(); readError != nil {
			return ApplicationConfiguration{}, fmt.Errorf(configurationReadTemplateConstant, readError)
		}
	} else {
		loader.SetConfigName(configurationFileBaseNameConstant)
		loader.SetConfigType(configurationFileTypeConstant)
		loader.AddConfigPath(currentConfigurationPathConstant)
		loader.AddConfigPath(homeConfigurationPathConstant)
		if readError := loader.ReadInConfig(); readError != nil {
			var notFoundError viper.ConfigFileNotFoundError
			if !errors.As(readError, &notFoundError) {
				return ApplicationConfiguration{}, fmt.Errorf(configurationReadTemplateConstant, readError)
			}
		}
	}

	var configuration ApplicationConfiguration
	decodeHook := mapstructure.ComposeDecodeHookFunc(mapstructure.StringToTimeDurationHookFunc())
	if decodeError := loader.Unmarshal(&configuration, viper.DecodeHook(decodeHook)); decodeError != nil {
		return ApplicationConfiguration{}, fmt.Errorf(configurationDecodeTemplateConstant, decodeError)
	}
	return configuration, nil
}

func parseEnvironmentAssignments(assignments []string) (map[string]string, error) {
	if len(assignments) == 0 {
		return nil, nil
	}
	parsed := make(map[string]string, len(assignments))
	for _, assignment := range assignments {
		separatorIndex := strings.Index(assignment, environmentAssignmentSeparatorConstant)
		if separatorIndex <= 0 {
			return nil, fmt.Errorf(environmentAssignmentTemplateConstant, assignment)
		}
		parsed[assignment[:separatorIndex]] = assignment[separatorIndex+1:]
	}
	return parsed, nil
}
