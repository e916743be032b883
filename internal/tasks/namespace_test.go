package tasks_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/wrknv/internal/tasks"
)

func TestParseTaskNamespaceNormalizesColonSyntax(testFramework *testing.T) {
	namespace, parseError := tasks.ParseTaskNamespace("test:unit")
	require.NoError(testFramework, parseError)
	require.Equal(testFramework, "test.unit", namespace.FullName())
	require.Equal(testFramework, "unit", namespace.LeafName())
	require.Equal(testFramework, 2, namespace.Depth())
}

func TestParseTaskNamespaceRejectsExcessiveDepth(testFramework *testing.T) {
	_, parseError := tasks.ParseTaskNamespace("one.two.three.four")
	require.Error(testFramework, parseError)
}

func TestTaskNamespaceParentAndDefaultName(testFramework *testing.T) {
	namespace, parseError := tasks.ParseTaskNamespace("test.unit.fast")
	require.NoError(testFramework, parseError)

	parentNamespace, hasParent := namespace.Parent()
	require.True(testFramework, hasParent)
	require.Equal(testFramework, "test.unit", parentNamespace.FullName())
	require.Equal(testFramework, "test.unit._default", parentNamespace.DefaultTaskName())

	flatNamespace, flatParseError := tasks.ParseTaskNamespace("build")
	require.NoError(testFramework, flatParseError)
	_, flatHasParent := flatNamespace.Parent()
	require.False(testFramework, flatHasParent)
}

func TestQualifiedTaskNameHelpers(testFramework *testing.T) {
	require.Equal(testFramework, "test.unit", tasks.QualifiedTaskName("test", "unit"))
	require.Equal(testFramework, "unit", tasks.QualifiedTaskName("", "unit"))
	require.True(testFramework, tasks.IsQualifiedTaskName("test.unit"))
	require.True(testFramework, tasks.IsQualifiedTaskName("test:unit"))
	require.False(testFramework, tasks.IsQualifiedTaskName("unit"))
}
