package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/tyemirov/wrknv/internal/tasks"
)

const (
	gitMetadataDirectoryNameConstant      = ".git"
	taskConfigurationFileNameConstant     = "wrknv.toml"
	workspaceRootReadTemplateConstant     = "unable to read workspace root %s: %w"
	repositoriesDiscoveredMessageConstant = "repositories discovered"
	workspaceRootFieldNameConstant        = "workspace_root"
	repositoryCountFieldNameConstant      = "repository_count"
)

// RepositoryCandidate describes one discovered repository and its task set.
//
// Candidates are read-only inputs to the orchestrator; the core never mutates
// them.
type RepositoryCandidate struct {
	Name     string
	Path     string
	Registry tasks.Registry
}

// RepositoryDiscoverer locates candidate repositories beneath a workspace root.
type RepositoryDiscoverer interface {
	DiscoverRepositories(workspaceRoot string) ([]RepositoryCandidate, error)
}

// FilesystemRepositoryDiscoverer finds repositories on the local filesystem.
//
// A directory qualifies when it is a direct child of the workspace root and
// contains both a .git directory and a wrknv.toml task file. Candidates are
// returned in lexical name order, which fixes the discovery order used by
// sequential scheduling.
type FilesystemRepositoryDiscoverer struct {
	logger *zap.Logger
}

// NewFilesystemRepositoryDiscoverer constructs a filesystem-backed discoverer.
func NewFilesystemRepositoryDiscoverer(logger *zap.Logger) FilesystemRepositoryDiscoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return FilesystemRepositoryDiscoverer{logger: logger}
}

// DiscoverRepositories lists qualifying repositories under the workspace root.
func (discoverer FilesystemRepositoryDiscoverer) DiscoverRepositories(workspaceRoot string) ([]RepositoryCandidate, error) {
	rootEntries, readError := os.ReadDir(workspaceRoot)
	if readError != nil {
		return nil, fmt.Errorf(workspaceRootReadTemplateConstant, workspaceRoot, readError)
	}

	candidates := make([]RepositoryCandidate, 0, len(rootEntries))
	for _, rootEntry := range rootEntries {
		if !rootEntry.IsDir() {
			continue
		}
		repositoryPath := filepath.Join(workspaceRoot, rootEntry.Name())
		if !directoryExists(filepath.Join(repositoryPath, gitMetadataDirectoryNameConstant)) {
			continue
		}
		if !fileExists(filepath.Join(repositoryPath, taskConfigurationFileNameConstant)) {
			continue
		}

		registry, registryError := tasks.LoadRegistry(repositoryPath)
		if registryError != nil {
			return nil, registryError
		}
		candidates = append(candidates, RepositoryCandidate{
			Name:     rootEntry.Name(),
			Path:     repositoryPath,
			Registry: registry,
		})
	}

	sort.Slice(candidates, func(firstIndex int, secondIndex int) bool {
		return candidates[firstIndex].Name < candidates[secondIndex].Name
	})

	discoverer.logger.Info(repositoriesDiscoveredMessageConstant,
		zap.String(workspaceRootFieldNameConstant, workspaceRoot),
		zap.Int(repositoryCountFieldNameConstant, len(candidates)),
	)
	return candidates, nil
}

func directoryExists(path string) bool {
	information, statError := os.Stat(path)
	return statError == nil && information.IsDir()
}

func fileExists(path string) bool {
	information, statError := os.Stat(path)
	return statError == nil && !information.IsDir()
}
