package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	partialConfigurationContentConstant = "common:\n  log_level: debug\nworkspace:\n  root: /srv/workspace\n"
)

func writeConfigurationFile(testFramework *testing.T, content string) string {
	testFramework.Helper()
	configurationPath := filepath.Join(testFramework.TempDir(), ".wrknv.yaml")
	require.NoError(testFramework, os.WriteFile(configurationPath, []byte(content), 0o644))
	return configurationPath
}

func TestLoadApplicationConfigurationMergesFileOverDefaults(testFramework *testing.T) {
	configurationPath := writeConfigurationFile(testFramework, partialConfigurationContentConstant)

	configuration, loadError := loadApplicationConfiguration(configurationPath)
	require.NoError(testFramework, loadError)
	require.Equal(testFramework, "debug", configuration.Common.LogLevel)
	require.Equal(testFramework, "structured", configuration.Common.LogFormat)
	require.Equal(testFramework, 300, configuration.Tasks.DefaultTimeoutSeconds)
	require.Equal(testFramework, "/srv/workspace", configuration.Workspace.Root)
}

func TestLoadApplicationConfigurationReadsEnvironmentOverrides(testFramework *testing.T) {
	configurationPath := writeConfigurationFile(testFramework, partialConfigurationContentConstant)
	testFramework.Setenv("WRKNV_TASKS_DEFAULT_TIMEOUT_SECONDS", "45")

	configuration, loadError := loadApplicationConfiguration(configurationPath)
	require.NoError(testFramework, loadError)
	require.Equal(testFramework, 45, configuration.Tasks.DefaultTimeoutSeconds)
	require.Equal(testFramework, 45*time.Second, configuration.Tasks.DefaultTaskTimeout())
}

func TestLoadApplicationConfigurationFailsOnMissingExplicitFile(testFramework *testing.T) {
	_, loadError := loadApplicationConfiguration(filepath.Join(testFramework.TempDir(), "absent.yaml"))
	require.Error(testFramework, loadError)
}

func TestParseEnvironmentAssignments(testFramework *testing.T) {
	scenarios := []struct {
		name          string
		assignments   []string
		expected      map[string]string
		expectFailure bool
	}{
		{
			name:        "empty",
			assignments: nil,
			expected:    nil,
		},
		{
			name:        "keyValuePairs",
			assignments: []string{"CI=1", "PATH_SUFFIX=/opt/bin"},
			expected:    map[string]string{"CI": "1", "PATH_SUFFIX": "/opt/bin"},
		},
		{
			name:        "valueContainingSeparator",
			assignments: []string{"FLAGS=-a=-b"},
			expected:    map[string]string{"FLAGS": "-a=-b"},
		},
		{
			name:          "missingSeparator",
			assignments:   []string{"NOEQUALS"},
			expectFailure: true,
		},
		{
			name:          "emptyKey",
			assignments:   []string{"=value"},
			expectFailure: true,
		},
	}

	for _, scenario := range scenarios {
		testFramework.Run(scenario.name, func(subtest *testing.T) {
			parsed, parseError := parseEnvironmentAssignments(scenario.assignments)
			if scenario.expectFailure {
				require.Error(subtest, parseError)
				return
			}
			require.NoError(subtest, parseError)
			require.Equal(subtest, scenario.expected, parsed)
		})
	}
}

func TestNewApplicationLogger(testFramework *testing.T) {
	scenarios := []struct {
		name          string
		logLevel      string
		logFormat     string
		expectFailure bool
	}{
		{name: "structuredInfo", logLevel: "info", logFormat: "structured"},
		{name: "consoleDebug", logLevel: "debug", logFormat: "console"},
		{name: "unknownLevel", logLevel: "verbose", logFormat: "structured", expectFailure: true},
		{name: "unknownFormat", logLevel: "info", logFormat: "plain", expectFailure: true},
	}

	for _, scenario := range scenarios {
		testFramework.Run(scenario.name, func(subtest *testing.T) {
			logger, loggerError := newApplicationLogger(scenario.logLevel, scenario.logFormat)
			if scenario.expectFailure {
				require.Error(subtest, loggerError)
				return
			}
			require.NoError(subtest, loggerError)
			require.NotNil(subtest, logger)
		})
	}
}
