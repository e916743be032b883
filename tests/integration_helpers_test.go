package tests

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	integrationTimeoutConstant                  = 60 * time.Second
	integrationUnexpectedSuccessMessageConstant = "command succeeded unexpectedly"
	integrationUnexpectedSuccessFormatConstant  = "%s\n%s"
	integrationCommandFailureFormatConstant     = "command failed: %v\n%s"
	goExecutableNameConstant                    = "go"
	goRunSubcommandConstant                     = "run"
	modulePathArgumentConstant                  = "."
	taskConfigurationFileNameConstant           = "wrknv.toml"
	gitMetadataDirectoryNameConstant            = ".git"
)

func runIntegrationCommand(testInstance *testing.T, arguments []string) string {
	testInstance.Helper()
	outputText, commandError := executeIntegrationCommand(testInstance, arguments)
	if commandError != nil {
		testInstance.Fatalf(integrationCommandFailureFormatConstant, commandError, outputText)
	}
	return outputText
}

func runFailingIntegrationCommand(testInstance *testing.T, arguments []string) string {
	testInstance.Helper()
	outputText, commandError := executeIntegrationCommand(testInstance, arguments)
	if commandError == nil {
		testInstance.Fatalf(integrationUnexpectedSuccessFormatConstant, integrationUnexpectedSuccessMessageConstant, outputText)
	}
	return outputText
}

func executeIntegrationCommand(testInstance *testing.T, arguments []string) (string, error) {
	testInstance.Helper()
	executionContext, cancel := context.WithTimeout(context.Background(), integrationTimeoutConstant)
	defer cancel()

	commandArguments := append([]string{goRunSubcommandConstant, modulePathArgumentConstant}, arguments...)
	command := exec.CommandContext(executionContext, goExecutableNameConstant, commandArguments...)
	command.Dir = moduleRoot(testInstance)

	outputBytes, runError := command.CombinedOutput()
	return string(outputBytes), runError
}

func moduleRoot(testInstance *testing.T) string {
	testInstance.Helper()
	workingDirectory, workingDirectoryError := os.Getwd()
	require.NoError(testInstance, workingDirectoryError)
	return filepath.Dir(workingDirectory)
}

func writeIntegrationRepository(testInstance *testing.T, workspaceRoot string, repositoryName string, taskConfiguration string) string {
	testInstance.Helper()
	repositoryPath := filepath.Join(workspaceRoot, repositoryName)
	require.NoError(testInstance, os.MkdirAll(filepath.Join(repositoryPath, gitMetadataDirectoryNameConstant), 0o755))
	configurationPath := filepath.Join(repositoryPath, taskConfigurationFileNameConstant)
	require.NoError(testInstance, os.WriteFile(configurationPath, []byte(taskConfiguration), 0o644))
	return repositoryPath
}
