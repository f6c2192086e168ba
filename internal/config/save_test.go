package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestSaveCreatesFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "project.json")

	def := &ProjectDefinition{
		StartDate:      "2025-04-07",
		BufferStrategy: "cut_and_paste",
		Resources: map[string]ResourceDefinition{
			"Red": {Capacity: 1},
		},
		Tasks: map[string]TaskDefinition{
			"T1": {Name: "T1", AggressiveDuration: 30, SafeDuration: 45},
		},
	}

	if err := Save(def, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatalf("project file was not created: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read project file: %v", err)
	}

	var loaded ProjectDefinition
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("project file contains invalid JSON: %v", err)
	}

	if loaded.Resources["Red"].Capacity != 1 {
		t.Errorf("expected resource capacity 1, got %v", loaded.Resources["Red"].Capacity)
	}
}

func TestSaveCreatesParentDir(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nested", "deep", "project.json")

	def := DefaultProjectDefinition()
	if err := Save(def, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatalf("project file was not created: %s", path)
	}

	parentDir := filepath.Dir(path)
	if _, err := os.Stat(parentDir); os.IsNotExist(err) {
		t.Fatalf("parent directory was not created: %s", parentDir)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "project.json")

	def := &ProjectDefinition{
		StartDate:      "2025-04-07",
		BufferStrategy: "adaptive",
		Resources: map[string]ResourceDefinition{
			"Red":   {Capacity: 1},
			"Green": {Capacity: 2, AllowOverallocation: true},
		},
		Tasks: map[string]TaskDefinition{
			"T1": {
				Name:               "Design",
				AggressiveDuration: 30,
				SafeDuration:       45,
				Resources:          []ResourceRequirementDefinition{{Name: "Red", Units: 1}},
				Tags:               []string{"design", "phase1"},
			},
			"T2": {
				Name:               "Build",
				AggressiveDuration: 20,
				SafeDuration:       30,
				Dependencies:       []string{"T1"},
			},
		},
	}

	if err := Save(def, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Resources["Green"].Capacity != 2 || !loaded.Resources["Green"].AllowOverallocation {
		t.Errorf("Green resource mismatch: got %+v", loaded.Resources["Green"])
	}

	t1 := loaded.Tasks["T1"]
	if t1.AggressiveDuration != 30 {
		t.Errorf("T1 aggressive_duration mismatch: got %v", t1.AggressiveDuration)
	}
	if len(t1.Tags) != 2 {
		t.Errorf("T1 tags count mismatch: got %d", len(t1.Tags))
	}

	t2 := loaded.Tasks["T2"]
	if len(t2.Dependencies) != 1 || t2.Dependencies[0] != "T1" {
		t.Errorf("T2 dependencies mismatch: got %v", t2.Dependencies)
	}
}

func TestSaveOverwritesExisting(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "project.json")

	def1 := &ProjectDefinition{
		BufferStrategy: "cut_and_paste",
		Resources: map[string]ResourceDefinition{
			"Red": {Capacity: 1},
		},
		Tasks: map[string]TaskDefinition{},
	}
	if err := Save(def1, path); err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	def2 := &ProjectDefinition{
		BufferStrategy: "cut_and_paste",
		Resources: map[string]ResourceDefinition{
			"Red": {Capacity: 2},
		},
		Tasks: map[string]TaskDefinition{},
	}
	if err := Save(def2, path); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read project file: %v", err)
	}

	var loaded ProjectDefinition
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("failed to parse project: %v", err)
	}

	if loaded.Resources["Red"].Capacity != 2 {
		t.Errorf("expected capacity 2, got %v", loaded.Resources["Red"].Capacity)
	}
}
