package tasks_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/wrknv/internal/tasks"
)

const (
	sampleTaskNameConstant    = "unit"
	sampleNamespaceConstant   = "test"
	sampleCommandConstant     = "go test ./..."
	sampleFullNameConstant    = "test.unit"
	sampleDescriptionConstant = "runs unit tests"
	sampleTimeoutConstant     = 90 * time.Second
)

func TestNewTaskDefinitionRejectsInvalidConfigurations(testFramework *testing.T) {
	testScenarios := []struct {
		scenarioName string
		config       tasks.TaskDefinitionConfig
	}{
		{
			scenarioName: "emptyName",
			config:       tasks.TaskDefinitionConfig{Command: sampleCommandConstant},
		},
		{
			scenarioName: "missingRun",
			config:       tasks.TaskDefinitionConfig{Name: sampleTaskNameConstant},
		},
		{
			scenarioName: "conflictingRunForms",
			config: tasks.TaskDefinitionConfig{
				Name:         sampleTaskNameConstant,
				Command:      sampleCommandConstant,
				TaskSequence: []string{"lint"},
			},
		},
		{
			scenarioName: "emptySequenceReference",
			config: tasks.TaskDefinitionConfig{
				Name:         sampleTaskNameConstant,
				TaskSequence: []string{"lint", ""},
			},
		},
		{
			scenarioName: "parallelLeaf",
			config: tasks.TaskDefinitionConfig{
				Name:     sampleTaskNameConstant,
				Command:  sampleCommandConstant,
				Parallel: true,
			},
		},
	}

	for _, testScenario := range testScenarios {
		testFramework.Run(testScenario.scenarioName, func(subtestFramework *testing.T) {
			_, definitionError := tasks.NewTaskDefinition(testScenario.config)
			require.Error(subtestFramework, definitionError)

			var invalidDefinitionError tasks.InvalidTaskDefinitionError
			require.ErrorAs(subtestFramework, definitionError, &invalidDefinitionError)
		})
	}
}

func TestTaskDefinitionExposesConstructionValues(testFramework *testing.T) {
	definition, definitionError := tasks.NewTaskDefinition(tasks.TaskDefinitionConfig{
		Name:                 sampleTaskNameConstant,
		Namespace:            sampleNamespaceConstant,
		Command:              sampleCommandConstant,
		Description:          sampleDescriptionConstant,
		EnvironmentVariables: map[string]string{"CI": "1"},
		DependsOn:            []string{"lint"},
		WorkingDirectory:     "subdir",
		Timeout:              sampleTimeoutConstant,
	})
	require.NoError(testFramework, definitionError)

	require.Equal(testFramework, sampleTaskNameConstant, definition.Name())
	require.Equal(testFramework, sampleNamespaceConstant, definition.Namespace())
	require.Equal(testFramework, sampleFullNameConstant, definition.FullName())
	require.Equal(testFramework, sampleCommandConstant, definition.Command())
	require.Equal(testFramework, sampleDescriptionConstant, definition.Description())
	require.Equal(testFramework, map[string]string{"CI": "1"}, definition.EnvironmentVariables())
	require.Equal(testFramework, []string{"lint"}, definition.DependsOn())
	require.Equal(testFramework, "subdir", definition.WorkingDirectory())
	require.Equal(testFramework, sampleTimeoutConstant, definition.Timeout())
	require.False(testFramework, definition.IsComposite())
	require.False(testFramework, definition.IsDefaultTask())
}

func TestTaskDefinitionAccessorsReturnCopies(testFramework *testing.T) {
	definition, definitionError := tasks.NewTaskDefinition(tasks.TaskDefinitionConfig{
		Name:                 sampleTaskNameConstant,
		Command:              sampleCommandConstant,
		EnvironmentVariables: map[string]string{"CI": "1"},
		DependsOn:            []string{"lint"},
	})
	require.NoError(testFramework, definitionError)

	mutatedEnvironment := definition.EnvironmentVariables()
	mutatedEnvironment["CI"] = "changed"
	require.Equal(testFramework, map[string]string{"CI": "1"}, definition.EnvironmentVariables())

	mutatedDependencies := definition.DependsOn()
	mutatedDependencies[0] = "changed"
	require.Equal(testFramework, []string{"lint"}, definition.DependsOn())
}

func TestTaskDefinitionIdentifiesCompositeAndDefaultTasks(testFramework *testing.T) {
	compositeDefinition, compositeError := tasks.NewTaskDefinition(tasks.TaskDefinitionConfig{
		Name:         "_default",
		Namespace:    sampleNamespaceConstant,
		TaskSequence: []string{"unit", "integration"},
	})
	require.NoError(testFramework, compositeError)

	require.True(testFramework, compositeDefinition.IsComposite())
	require.True(testFramework, compositeDefinition.IsDefaultTask())
	require.Equal(testFramework, []string{"unit", "integration"}, compositeDefinition.TaskSequence())
}
