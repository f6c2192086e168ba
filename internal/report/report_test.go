package report

import (
	"strings"
	"testing"
	"time"

	"github.com/aristath/ccpm/internal/calendar"
	"github.com/aristath/ccpm/internal/scheduler"
	"github.com/aristath/ccpm/internal/task"
)

var monday = time.Date(2025, time.April, 7, 0, 0, 0, 0, time.UTC)

func addTask(t *testing.T, s *scheduler.Scheduler, id string, agg float64, deps []string, resources ...string) {
	t.Helper()
	var reqs []task.ResourceRequirement
	for _, r := range resources {
		reqs = append(reqs, task.ResourceRequirement{Name: r, Units: 1})
	}
	if _, err := s.AddTask(scheduler.TaskInput{ID: id, Name: id, AggressiveDuration: agg, SafeDuration: agg * 1.5, Dependencies: deps, Resources: reqs}); err != nil {
		t.Fatalf("AddTask(%s) error = %v", id, err)
	}
}

func buildSnapshot(t *testing.T) (*scheduler.Snapshot, *scheduler.Scheduler) {
	t.Helper()
	s := scheduler.New(monday, "cut_and_paste")
	if err := s.SetResources([]scheduler.ResourceInput{
		{Name: "Red", Capacity: 1},
		{Name: "Green", Capacity: 1},
		{Name: "Magenta", Capacity: 1},
		{Name: "Blue", Capacity: 1},
	}); err != nil {
		t.Fatalf("SetResources() error = %v", err)
	}
	addTask(t, s, "T1", 30, nil, "Red")
	addTask(t, s, "T2", 20, []string{"T1"}, "Green")
	addTask(t, s, "T4", 20, nil, "Blue")
	addTask(t, s, "T5", 10, []string{"T4"}, "Green")
	addTask(t, s, "T3", 30, []string{"T2", "T5"}, "Magenta")

	snap, err := s.Schedule()
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	return snap, s
}

func TestScheduleReportSectionsAndOrder(t *testing.T) {
	snap, _ := buildSnapshot(t)
	out := Schedule(snap, calendar.New())

	sections := []string{"PROJECT", "CRITICAL CHAIN TASKS", "FEEDING CHAINS", "COMPLETE TASK SCHEDULE", "BUFFER INFORMATION"}
	lastIdx := -1
	for _, section := range sections {
		idx := strings.Index(out, section)
		if idx == -1 {
			t.Fatalf("report missing section %q:\n%s", section, out)
		}
		if idx <= lastIdx {
			t.Errorf("section %q out of order (idx=%d, previous=%d)", section, idx, lastIdx)
		}
		lastIdx = idx
	}

	for _, id := range []string{"T1", "T2", "T3", "T4", "T5"} {
		if !strings.Contains(out, id) {
			t.Errorf("report missing task %q", id)
		}
	}
}

func TestExecutionReportAddsExecutionSections(t *testing.T) {
	snap, s := buildSnapshot(t)

	asOf := monday.AddDate(0, 0, 14)
	if err := s.UpdateTaskProgress("T4", 20, asOf); err != nil {
		t.Fatalf("UpdateTaskProgress() error = %v", err)
	}
	if err := s.RecalculateNetworkFromProgress(asOf); err != nil {
		t.Fatalf("RecalculateNetworkFromProgress() error = %v", err)
	}
	current, err := s.Current()
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	_ = snap

	out := Execution(current, calendar.New(), asOf)

	for _, section := range []string{"BUFFER STATUS", "TASKS IN PROGRESS", "COMPLETED TASKS", "UPCOMING TASKS"} {
		if !strings.Contains(out, section) {
			t.Errorf("execution report missing section %q:\n%s", section, out)
		}
	}
	if !strings.Contains(out, "(none)") {
		t.Errorf("execution report should list (none) for at least one empty section (no task is completed at this point)")
	}
}
