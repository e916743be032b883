package tasks

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	taskConfigurationFileNameConstant       = "wrknv.toml"
	tasksSectionKeyConstant                 = "tasks"
	taskRunKeyConstant                      = "run"
	taskDescriptionKeyConstant              = "description"
	taskEnvironmentKeyConstant              = "env"
	taskDependsOnKeyConstant                = "depends_on"
	taskWorkingDirectoryKeyConstant         = "working_dir"
	taskTimeoutKeyConstant                  = "timeout"
	taskParallelKeyConstant                 = "parallel"
	taskNestingDepthMessageTemplateConstant = "task nesting too deep under %q (max %d levels)"
	taskConfigurationParseTemplateConstant  = "unable to parse %s: %w"
	taskRunValueMessageTemplateConstant     = "task %q: run must be a string or a list of task names"
	taskEnvironmentValueTemplateConstant    = "task %q: env values must be strings"
	taskDependsOnValueTemplateConstant      = "task %q: depends_on entries must be strings"
	taskTimeoutValueTemplateConstant        = "task %q: timeout must be a number of seconds"
)

// Registry holds the parsed task set of one repository.
//
// Registries are assembled explicitly at load time; no ambient global state
// survives between orchestration runs.
type Registry struct {
	repositoryPath string
	definitions    map[string]TaskDefinition
}

// NewRegistry constructs a registry from explicit task definitions.
func NewRegistry(repositoryPath string, definitions []TaskDefinition) Registry {
	indexed := make(map[string]TaskDefinition, len(definitions))
	for _, definition := range definitions {
		indexed[definition.FullName()] = definition
	}
	return Registry{repositoryPath: repositoryPath, definitions: indexed}
}

// LoadRegistry reads wrknv.toml from the repository root.
//
// A repository without a configuration file yields an empty registry rather
// than an error; the orchestrator treats such repositories as skipped.
func LoadRegistry(repositoryPath string) (Registry, error) {
	configurationPath := filepath.Join(repositoryPath, taskConfigurationFileNameConstant)
	configurationBytes, readError := os.ReadFile(configurationPath)
	if readError != nil {
		if os.IsNotExist(readError) {
			return NewRegistry(repositoryPath, nil), nil
		}
		return Registry{}, fmt.Errorf(taskConfigurationParseTemplateConstant, configurationPath, readError)
	}

	var rawConfiguration map[string]any
	if unmarshalError := toml.Unmarshal(configurationBytes, &rawConfiguration); unmarshalError != nil {
		return Registry{}, fmt.Errorf(taskConfigurationParseTemplateConstant, configurationPath, unmarshalError)
	}

	rawTasks, tasksPresent := rawConfiguration[tasksSectionKeyConstant].(map[string]any)
	if !tasksPresent {
		return NewRegistry(repositoryPath, nil), nil
	}

	definitions := make([]TaskDefinition, 0, len(rawTasks))
	if parseError := parseTaskTable(rawTasks, "", 1, &definitions); parseError != nil {
		return Registry{}, parseError
	}
	return NewRegistry(repositoryPath, definitions), nil
}

// RepositoryPath returns the repository root the registry was loaded from.
func (registry Registry) RepositoryPath() string {
	return registry.repositoryPath
}

// Lookup returns the definition registered under the given fully-qualified name.
func (registry Registry) Lookup(fullName string) (TaskDefinition, bool) {
	definition, found := registry.definitions[fullName]
	return definition, found
}

// TaskNames returns every registered fully-qualified task name, sorted.
func (registry Registry) TaskNames() []string {
	names := make([]string, 0, len(registry.definitions))
	for name := range registry.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns every registered definition, sorted by full name.
func (registry Registry) Definitions() []TaskDefinition {
	definitions := make([]TaskDefinition, 0, len(registry.definitions))
	for _, name := range registry.TaskNames() {
		definitions = append(definitions, registry.definitions[name])
	}
	return definitions
}

// ResolveTask resolves a requested name to a definition with hierarchical fallback.
//
// Resolution order: exact match, the namespace _default task, the parent task
// with the leaf re-attached as an argument, the parent _default likewise, and
// finally the grandparent with the last two components as arguments.
func (registry Registry) ResolveTask(requestedName string, arguments []string) (TaskDefinition, []string, error) {
	namespace, namespaceError := ParseTaskNamespace(requestedName)
	if namespaceError != nil {
		return TaskDefinition{}, nil, namespaceError
	}

	if definition, found := registry.definitions[namespace.FullName()]; found {
		return definition, copyStringSlice(arguments), nil
	}
	if definition, found := registry.definitions[namespace.DefaultTaskName()]; found {
		return definition, copyStringSlice(arguments), nil
	}

	if namespace.Depth() >= 2 {
		parentNamespace, hasParent := namespace.Parent()
		if hasParent {
			widenedArguments := append([]string{namespace.LeafName()}, arguments...)
			if definition, found := registry.definitions[parentNamespace.FullName()]; found {
				return definition, widenedArguments, nil
			}
			if definition, found := registry.definitions[parentNamespace.DefaultTaskName()]; found {
				return definition, widenedArguments, nil
			}

			if namespace.Depth() >= 3 {
				grandparentNamespace, hasGrandparent := parentNamespace.Parent()
				if hasGrandparent {
					if definition, found := registry.definitions[grandparentNamespace.FullName()]; found {
						doubledArguments := append([]string{parentNamespace.LeafName(), namespace.LeafName()}, arguments...)
						return definition, doubledArguments, nil
					}
				}
			}
		}
	}

	return TaskDefinition{}, nil, TaskNotFoundError{TaskName: requestedName, AvailableTasks: registry.TaskNames()}
}

func parseTaskTable(rawTasks map[string]any, namespaceName string, depth int, definitions *[]TaskDefinition) error {
	if depth > maximumNamespaceDepthConstant {
		return fmt.Errorf(taskNestingDepthMessageTemplateConstant, namespaceName, maximumNamespaceDepthConstant)
	}

	names := make([]string, 0, len(rawTasks))
	for name := range rawTasks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		rawValue := rawTasks[name]
		fullName := QualifiedTaskName(namespaceName, name)

		nestedTable, isTable := rawValue.(map[string]any)
		if isTable {
			if _, definesRun := nestedTable[taskRunKeyConstant]; !definesRun {
				if nestedError := parseTaskTable(nestedTable, fullName, depth+1, definitions); nestedError != nil {
					return nestedError
				}
				continue
			}
		}

		definition, definitionError := parseTaskDefinition(name, namespaceName, rawValue)
		if definitionError != nil {
			return definitionError
		}
		*definitions = append(*definitions, definition)
	}
	return nil
}

func parseTaskDefinition(name string, namespaceName string, rawValue any) (TaskDefinition, error) {
	fullName := QualifiedTaskName(namespaceName, name)

	switch typedValue := rawValue.(type) {
	case string:
		return NewTaskDefinition(TaskDefinitionConfig{Name: name, Namespace: namespaceName, Command: typedValue})
	case []any:
		sequence, sequenceError := stringSliceFromAny(typedValue)
		if sequenceError != nil {
			return TaskDefinition{}, fmt.Errorf(taskRunValueMessageTemplateConstant, fullName)
		}
		return NewTaskDefinition(TaskDefinitionConfig{Name: name, Namespace: namespaceName, TaskSequence: sequence})
	case map[string]any:
		return parseTaskDefinitionTable(name, namespaceName, typedValue)
	default:
		return TaskDefinition{}, fmt.Errorf(taskRunValueMessageTemplateConstant, fullName)
	}
}

func parseTaskDefinitionTable(name string, namespaceName string, table map[string]any) (TaskDefinition, error) {
	fullName := QualifiedTaskName(namespaceName, name)
	config := TaskDefinitionConfig{Name: name, Namespace: namespaceName}

	switch runValue := table[taskRunKeyConstant].(type) {
	case string:
		config.Command = runValue
	case []any:
		sequence, sequenceError := stringSliceFromAny(runValue)
		if sequenceError != nil {
			return TaskDefinition{}, fmt.Errorf(taskRunValueMessageTemplateConstant, fullName)
		}
		config.TaskSequence = sequence
	default:
		return TaskDefinition{}, fmt.Errorf(taskRunValueMessageTemplateConstant, fullName)
	}

	if description, present := table[taskDescriptionKeyConstant].(string); present {
		config.Description = description
	}
	if workingDirectory, present := table[taskWorkingDirectoryKeyConstant].(string); present {
		config.WorkingDirectory = workingDirectory
	}
	if parallel, present := table[taskParallelKeyConstant].(bool); present {
		config.Parallel = parallel
	}

	if rawEnvironment, present := table[taskEnvironmentKeyConstant]; present {
		environmentTable, isTable := rawEnvironment.(map[string]any)
		if !isTable {
			return TaskDefinition{}, fmt.Errorf(taskEnvironmentValueTemplateConstant, fullName)
		}
		environment := make(map[string]string, len(environmentTable))
		for key, value := range environmentTable {
			stringValue, isString := value.(string)
			if !isString {
				return TaskDefinition{}, fmt.Errorf(taskEnvironmentValueTemplateConstant, fullName)
			}
			environment[key] = stringValue
		}
		config.EnvironmentVariables = environment
	}

	if rawDependsOn, present := table[taskDependsOnKeyConstant]; present {
		dependsOnValues, isList := rawDependsOn.([]any)
		if !isList {
			return TaskDefinition{}, fmt.Errorf(taskDependsOnValueTemplateConstant, fullName)
		}
		dependsOn, dependsOnError := stringSliceFromAny(dependsOnValues)
		if dependsOnError != nil {
			return TaskDefinition{}, fmt.Errorf(taskDependsOnValueTemplateConstant, fullName)
		}
		config.DependsOn = dependsOn
	}

	if rawTimeout, present := table[taskTimeoutKeyConstant]; present {
		timeoutSeconds, timeoutError := secondsFromAny(rawTimeout)
		if timeoutError != nil {
			return TaskDefinition{}, fmt.Errorf(taskTimeoutValueTemplateConstant, fullName)
		}
		config.Timeout = timeoutSeconds
	}

	return NewTaskDefinition(config)
}

func stringSliceFromAny(values []any) ([]string, error) {
	converted := make([]string, 0, len(values))
	for _, value := range values {
		stringValue, isString := value.(string)
		if !isString {
			return nil, fmt.Errorf("expected string entries")
		}
		converted = append(converted, stringValue)
	}
	return converted, nil
}

func secondsFromAny(value any) (time.Duration, error) {
	switch typedValue := value.(type) {
	case int64:
		return time.Duration(typedValue) * time.Second, nil
	case float64:
		return time.Duration(typedValue * float64(time.Second)), nil
	default:
		return 0, fmt.Errorf("expected numeric seconds")
	}
}
