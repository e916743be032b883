package tasks

import (
	"fmt"
	"strings"
)

const (
	namespaceSeparatorConstant            = "."
	namespaceColonSeparatorConstant       = ":"
	maximumNamespaceDepthConstant         = 3
	namespaceDepthMessageTemplateConstant = "task nesting too deep: %s (max %d levels)"
	defaultTaskLeafNameConstant           = "_default"
)

// TaskNamespace models a hierarchical task name such as test.unit.fast.
type TaskNamespace struct {
	parts []string
}

// ParseTaskNamespace splits a task name into namespace components.
//
// Both dot (test.unit) and colon (test:unit) syntax are accepted; colons are
// normalized to dots. Nesting beyond three levels is rejected.
func ParseTaskNamespace(name string) (TaskNamespace, error) {
	normalized := strings.ReplaceAll(name, namespaceColonSeparatorConstant, namespaceSeparatorConstant)
	parts := strings.Split(normalized, namespaceSeparatorConstant)
	if len(parts) > maximumNamespaceDepthConstant {
		return TaskNamespace{}, fmt.Errorf(namespaceDepthMessageTemplateConstant, name, maximumNamespaceDepthConstant)
	}
	return TaskNamespace{parts: parts}, nil
}

// FullName returns the complete dotted name.
func (namespace TaskNamespace) FullName() string {
	return strings.Join(namespace.parts, namespaceSeparatorConstant)
}

// LeafName returns the last name component.
func (namespace TaskNamespace) LeafName() string {
	if len(namespace.parts) == 0 {
		return ""
	}
	return namespace.parts[len(namespace.parts)-1]
}

// Depth reports the number of name components.
func (namespace TaskNamespace) Depth() int {
	return len(namespace.parts)
}

// Parent returns the enclosing namespace and whether one exists.
func (namespace TaskNamespace) Parent() (TaskNamespace, bool) {
	if len(namespace.parts) <= 1 {
		return TaskNamespace{}, false
	}
	return TaskNamespace{parts: namespace.parts[:len(namespace.parts)-1]}, true
}

// DefaultTaskName returns the _default task name inside this namespace.
func (namespace TaskNamespace) DefaultTaskName() string {
	return namespace.FullName() + namespaceSeparatorConstant + defaultTaskLeafNameConstant
}

// QualifiedTaskName joins an optional namespace with a leaf task name.
func QualifiedTaskName(namespaceName string, leafName string) string {
	if len(namespaceName) == 0 {
		return leafName
	}
	return namespaceName + namespaceSeparatorConstant + leafName
}

// IsQualifiedTaskName reports whether the reference already carries a namespace.
func IsQualifiedTaskName(reference string) bool {
	return strings.Contains(reference, namespaceSeparatorConstant) ||
		strings.Contains(reference, namespaceColonSeparatorConstant)
}
