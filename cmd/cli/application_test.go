package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	emptyConfigurationContentConstant   = "common:\n  log_level: error\n"
	repositoryConfigurationFileConstant = "wrknv.toml"
)

func newTestRepository(testFramework *testing.T, taskConfiguration string) string {
	testFramework.Helper()
	repositoryPath := testFramework.TempDir()
	configurationPath := filepath.Join(repositoryPath, repositoryConfigurationFileConstant)
	require.NoError(testFramework, os.WriteFile(configurationPath, []byte(taskConfiguration), 0o644))
	return repositoryPath
}

func executeApplication(testFramework *testing.T, arguments []string) (string, string, error) {
	testFramework.Helper()
	configurationPath := writeConfigurationFile(testFramework, emptyConfigurationContentConstant)

	application := NewApplication()
	outputBuffer := &bytes.Buffer{}
	errorsBuffer := &bytes.Buffer{}
	application.RootCommand().SetOut(outputBuffer)
	application.RootCommand().SetErr(errorsBuffer)
	application.RootCommand().SetArgs(append([]string{"--config", configurationPath}, arguments...))

	executionError := application.Execute()
	return outputBuffer.String(), errorsBuffer.String(), executionError
}

func TestTaskRunCommandPrintsTaskOutput(testFramework *testing.T) {
	repositoryPath := newTestRepository(testFramework, "[tasks]\ngreet = \"echo hello\"\n")

	standardOutput, _, executionError := executeApplication(testFramework, []string{
		"task", "run", "greet", "--dir", repositoryPath,
	})
	require.NoError(testFramework, executionError)
	require.Contains(testFramework, standardOutput, "hello\n")
}

func TestTaskRunCommandPropagatesTaskFailure(testFramework *testing.T) {
	repositoryPath := newTestRepository(testFramework, "[tasks]\nbroken = \"echo why 1>&2; exit 7\"\n")

	_, standardError, executionError := executeApplication(testFramework, []string{
		"task", "run", "broken", "--dir", repositoryPath,
	})
	require.Error(testFramework, executionError)

	var failedError TaskFailedError
	require.ErrorAs(testFramework, executionError, &failedError)
	require.Equal(testFramework, "broken", failedError.TaskName)
	require.Equal(testFramework, 7, failedError.ExitCode)
	require.Contains(testFramework, standardError, "why\n")
}

func TestTaskRunCommandForwardsArguments(testFramework *testing.T) {
	repositoryPath := newTestRepository(testFramework, "[tasks]\nsay = \"echo\"\n")

	standardOutput, _, executionError := executeApplication(testFramework, []string{
		"task", "run", "say", "hello world", "second", "--dir", repositoryPath,
	})
	require.NoError(testFramework, executionError)
	require.Contains(testFramework, standardOutput, "hello world second\n")
}

func TestTaskListCommandRendersText(testFramework *testing.T) {
	repositoryPath := newTestRepository(testFramework,
		"[tasks]\nbuild = { run = \"echo build\", description = \"compile everything\" }\ncheck = [\"build\"]\n")

	standardOutput, _, executionError := executeApplication(testFramework, []string{
		"task", "list", "--dir", repositoryPath,
	})
	require.NoError(testFramework, executionError)
	require.Contains(testFramework, standardOutput, "build")
	require.Contains(testFramework, standardOutput, "compile everything")
	require.Contains(testFramework, standardOutput, "check")
}

func TestTaskListCommandRendersYAML(testFramework *testing.T) {
	repositoryPath := newTestRepository(testFramework, "[tasks]\ncheck = [\"build\"]\nbuild = \"echo build\"\n")

	standardOutput, _, executionError := executeApplication(testFramework, []string{
		"task", "list", "--dir", repositoryPath, "--output", "yaml",
	})
	require.NoError(testFramework, executionError)
	require.Contains(testFramework, standardOutput, "name: build")
	require.Contains(testFramework, standardOutput, "name: check")
	require.Contains(testFramework, standardOutput, "composite: true")
}

func TestTaskListCommandRejectsUnknownFormat(testFramework *testing.T) {
	repositoryPath := newTestRepository(testFramework, "[tasks]\nbuild = \"echo build\"\n")

	_, _, executionError := executeApplication(testFramework, []string{
		"task", "list", "--dir", repositoryPath, "--output", "json",
	})
	require.Error(testFramework, executionError)
}

func TestWorkspaceRunCommandAggregatesRepositories(testFramework *testing.T) {
	workspaceRoot := testFramework.TempDir()
	for _, repositoryName := range []string{"service-a", "service-b"} {
		repositoryPath := filepath.Join(workspaceRoot, repositoryName)
		require.NoError(testFramework, os.MkdirAll(filepath.Join(repositoryPath, ".git"), 0o755))
		require.NoError(testFramework, os.WriteFile(
			filepath.Join(repositoryPath, repositoryConfigurationFileConstant),
			[]byte("[tasks]\nbuild = \"echo built\"\n"), 0o644))
	}

	_, standardError, executionError := executeApplication(testFramework, []string{
		"workspace", "run", "build", "--root", workspaceRoot,
	})
	require.NoError(testFramework, executionError)
	require.Contains(testFramework, standardError, "Summary: total.repos=2 succeeded=2 failed=0 skipped=0")
}

func TestWorkspaceRunCommandFailsWhenAnyRepositoryFails(testFramework *testing.T) {
	workspaceRoot := testFramework.TempDir()
	repositoryPath := filepath.Join(workspaceRoot, "only")
	require.NoError(testFramework, os.MkdirAll(filepath.Join(repositoryPath, ".git"), 0o755))
	require.NoError(testFramework, os.WriteFile(
		filepath.Join(repositoryPath, repositoryConfigurationFileConstant),
		[]byte("[tasks]\nbuild = \"exit 1\"\n"), 0o644))

	_, _, executionError := executeApplication(testFramework, []string{
		"workspace", "run", "build", "--root", workspaceRoot,
	})
	require.Error(testFramework, executionError)

	var runFailedError WorkspaceRunFailedError
	require.ErrorAs(testFramework, executionError, &runFailedError)
	require.Equal(testFramework, "build", runFailedError.TaskName)
	require.Equal(testFramework, 1, runFailedError.FailedCount)
}
