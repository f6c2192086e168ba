package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Load reads and merges a project definition from global and project
// paths. Order of precedence (highest to lowest): project file, global
// file, defaults. Missing files are not errors; malformed JSON returns an
// error. Start date and buffer strategy are replaced wholesale by
// whichever file sets them last; resources and tasks are merged by key.
func Load(globalPath, projectPath string) (*ProjectDefinition, error) {
	def := DefaultProjectDefinition()

	if globalPath != "" {
		if err := mergeProjectFile(def, globalPath); err != nil {
			return nil, fmt.Errorf("loading global config: %w", err)
		}
	}
	if projectPath != "" {
		if err := mergeProjectFile(def, projectPath); err != nil {
			return nil, fmt.Errorf("loading project config: %w", err)
		}
	}

	return def, nil
}

// LoadDefault loads a project definition from conventional paths.
// Global: ~/.ccpm/project.json
// Project: .ccpm/project.json (relative to cwd)
func LoadDefault() (*ProjectDefinition, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting home directory: %w", err)
	}

	globalPath := filepath.Join(homeDir, ".ccpm", "project.json")
	projectPath := filepath.Join(".ccpm", "project.json")

	return Load(globalPath, projectPath)
}

// mergeProjectFile reads a JSON project file and merges it into base.
// Missing files are silently skipped. Malformed JSON returns an error.
func mergeProjectFile(base *ProjectDefinition, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var loaded ProjectDefinition
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	if loaded.StartDate != "" {
		base.StartDate = loaded.StartDate
	}
	if loaded.BufferStrategy != "" {
		base.BufferStrategy = loaded.BufferStrategy
	}
	for key, res := range loaded.Resources {
		base.Resources[key] = res
	}
	for key, task := range loaded.Tasks {
		base.Tasks[key] = task
	}

	return nil
}
