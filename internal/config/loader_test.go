package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name              string
		globalConfig      *ProjectDefinition
		projectConfig     *ProjectDefinition
		expectResources   int
		expectTasks       int
		expectStrategy    string
		checkResource     string
		expectCapacity    float64
		checkTask         string
		expectAggressive  float64
	}{
		{
			name:            "No config files - returns defaults",
			expectResources: 0,
			expectTasks:     0,
			expectStrategy:  "cut_and_paste",
		},
		{
			name: "Global only - adds new resource",
			globalConfig: &ProjectDefinition{
				Resources: map[string]ResourceDefinition{
					"Designer": {Capacity: 1},
				},
			},
			expectResources: 1,
			expectTasks:     0,
			expectStrategy:  "cut_and_paste",
			checkResource:   "Designer",
			expectCapacity:  1,
		},
		{
			name: "Project only - overrides buffer strategy",
			projectConfig: &ProjectDefinition{
				BufferStrategy: "sum_of_squares",
				Tasks: map[string]TaskDefinition{
					"T1": {AggressiveDuration: 5, SafeDuration: 8},
				},
			},
			expectResources:  0,
			expectTasks:      1,
			expectStrategy:   "sum_of_squares",
			checkTask:        "T1",
			expectAggressive: 5,
		},
		{
			name: "Both with merge - global adds, project overrides",
			globalConfig: &ProjectDefinition{
				Resources: map[string]ResourceDefinition{
					"Designer": {Capacity: 1},
				},
				Tasks: map[string]TaskDefinition{
					"T1": {AggressiveDuration: 5, SafeDuration: 8},
				},
			},
			projectConfig: &ProjectDefinition{
				Tasks: map[string]TaskDefinition{
					"T1": {AggressiveDuration: 10, SafeDuration: 15},
				},
			},
			expectResources:  1,
			expectTasks:      1,
			expectStrategy:   "cut_and_paste",
			checkTask:        "T1",
			expectAggressive: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()

			globalPath := ""
			if tt.globalConfig != nil {
				globalPath = filepath.Join(tmpDir, "global.json")
				data, err := json.Marshal(tt.globalConfig)
				if err != nil {
					t.Fatalf("marshaling global config: %v", err)
				}
				if err := os.WriteFile(globalPath, data, 0644); err != nil {
					t.Fatalf("writing global config: %v", err)
				}
			}

			projectPath := ""
			if tt.projectConfig != nil {
				projectPath = filepath.Join(tmpDir, "project.json")
				data, err := json.Marshal(tt.projectConfig)
				if err != nil {
					t.Fatalf("marshaling project config: %v", err)
				}
				if err := os.WriteFile(projectPath, data, 0644); err != nil {
					t.Fatalf("writing project config: %v", err)
				}
			}

			def, err := Load(globalPath, projectPath)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got := len(def.Resources); got != tt.expectResources {
				t.Errorf("resources count = %d, want %d", got, tt.expectResources)
			}
			if got := len(def.Tasks); got != tt.expectTasks {
				t.Errorf("tasks count = %d, want %d", got, tt.expectTasks)
			}
			if def.BufferStrategy != tt.expectStrategy {
				t.Errorf("buffer strategy = %q, want %q", def.BufferStrategy, tt.expectStrategy)
			}

			if tt.checkResource != "" {
				res, exists := def.Resources[tt.checkResource]
				if !exists {
					t.Fatalf("expected resource %q not found", tt.checkResource)
				}
				if res.Capacity != tt.expectCapacity {
					t.Errorf("resource %q capacity = %v, want %v", tt.checkResource, res.Capacity, tt.expectCapacity)
				}
			}

			if tt.checkTask != "" {
				task, exists := def.Tasks[tt.checkTask]
				if !exists {
					t.Fatalf("expected task %q not found", tt.checkTask)
				}
				if task.AggressiveDuration != tt.expectAggressive {
					t.Errorf("task %q aggressive_duration = %v, want %v", tt.checkTask, task.AggressiveDuration, tt.expectAggressive)
				}
			}
		})
	}
}

func TestLoad_MalformedJSON(t *testing.T) {
	tmpDir := t.TempDir()

	globalPath := filepath.Join(tmpDir, "global.json")
	if err := os.WriteFile(globalPath, []byte("{invalid json"), 0644); err != nil {
		t.Fatalf("writing malformed config: %v", err)
	}

	_, err := Load(globalPath, "")
	if err == nil {
		t.Fatal("expected error for malformed JSON, got nil")
	}
	if err.Error() == "" {
		t.Error("expected descriptive error message")
	}
}

func TestLoad_MissingFilesNotError(t *testing.T) {
	def, err := Load("/nonexistent/global.json", "/nonexistent/project.json")
	if err != nil {
		t.Fatalf("expected no error for missing files, got: %v", err)
	}
	if len(def.Resources) != 0 {
		t.Errorf("resources count = %d, want 0", len(def.Resources))
	}
	if len(def.Tasks) != 0 {
		t.Errorf("tasks count = %d, want 0", len(def.Tasks))
	}
	if def.BufferStrategy != "cut_and_paste" {
		t.Errorf("buffer strategy = %q, want cut_and_paste", def.BufferStrategy)
	}
}
