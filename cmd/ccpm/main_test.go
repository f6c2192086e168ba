package main

import (
	"strings"
	"testing"

	"github.com/aristath/ccpm/internal/config"
)

func TestBuildScheduleLinearChain(t *testing.T) {
	def := &config.ProjectDefinition{
		StartDate:      "2025-04-07",
		BufferStrategy: "cut_and_paste",
		Tasks: map[string]config.TaskDefinition{
			"T1": {Name: "Design", AggressiveDuration: 10, SafeDuration: 15},
			"T2": {Name: "Build", AggressiveDuration: 20, SafeDuration: 30, Dependencies: []string{"T1"}},
		},
	}

	sched, snap, cal, err := buildSchedule(def)
	if err != nil {
		t.Fatalf("buildSchedule failed: %v", err)
	}
	defer sched.Events().Close()

	if cal == nil {
		t.Fatal("expected a non-nil project calendar")
	}
	if len(snap.CriticalChainID) != 2 {
		t.Fatalf("critical chain length = %d, want 2", len(snap.CriticalChainID))
	}
	if snap.CriticalChainID[0] != "T1" || snap.CriticalChainID[1] != "T2" {
		t.Errorf("critical chain = %v, want [T1 T2]", snap.CriticalChainID)
	}
}

func TestBuildScheduleWithResources(t *testing.T) {
	def := &config.ProjectDefinition{
		StartDate:      "2025-04-07",
		BufferStrategy: "sum_of_squares",
		Resources: map[string]config.ResourceDefinition{
			"Red": {
				Capacity: 1,
				UnavailablePeriods: []config.UnavailablePeriod{
					{Start: "2025-04-10", End: "2025-04-11"},
				},
			},
		},
		Tasks: map[string]config.TaskDefinition{
			"T1": {
				Name:               "Task 1",
				AggressiveDuration: 10,
				SafeDuration:       15,
				Resources:          []config.ResourceRequirementDefinition{{Name: "Red", Units: 1}},
			},
		},
	}

	sched, snap, _, err := buildSchedule(def)
	if err != nil {
		t.Fatalf("buildSchedule failed: %v", err)
	}
	defer sched.Events().Close()

	if _, exists := snap.Tasks["T1"]; !exists {
		t.Fatal("expected task T1 in snapshot")
	}
}

func TestBuildScheduleInvalidStartDate(t *testing.T) {
	def := &config.ProjectDefinition{StartDate: "not-a-date"}

	if _, _, _, err := buildSchedule(def); err == nil {
		t.Fatal("expected error for invalid start date, got nil")
	}
}

func TestBuildScheduleInvalidDependency(t *testing.T) {
	def := &config.ProjectDefinition{
		StartDate: "2025-04-07",
		Tasks: map[string]config.TaskDefinition{
			"T1": {Name: "Task 1", AggressiveDuration: 10, SafeDuration: 15, Dependencies: []string{"missing"}},
		},
	}

	_, _, _, err := buildSchedule(def)
	if err == nil {
		t.Fatal("expected error for unresolved dependency, got nil")
	}
	if !strings.Contains(err.Error(), "T1") {
		t.Errorf("expected error to reference task T1, got: %v", err)
	}
}
