// Package task defines the inert data model shared by the scheduling core:
// Task, Chain, and Buffer, plus their validated mutators. None of these
// types own the task registry or resource registry — back-references (a
// task's chain, a buffer's source chain) are modeled by id, looked up
// through the owning Scheduler, never by pointer, so the graph never has
// reference cycles.
package task

import (
	"fmt"
	"time"

	"github.com/aristath/ccpm/internal/calendar"
	"github.com/aristath/ccpm/internal/ccpmerrors"
)

// Status is a task's position in the Planned -> InProgress -> Completed
// state machine. There are no backward transitions.
type Status int

const (
	Planned Status = iota
	InProgress
	Completed
)

func (s Status) String() string {
	switch s {
	case Planned:
		return "planned"
	case InProgress:
		return "in_progress"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// ResourceRequirement names a resource and the units of it a task needs for
// its full duration.
type ResourceRequirement struct {
	Name  string
	Units float64
}

// ProgressRecord is one self-contained entry in a task's append-only
// progress history.
type ProgressRecord struct {
	Date          time.Time
	Remaining     float64
	CompletedWork float64
	ProgressPct   float64
}

// Task is a unit of work in the dependency DAG.
type Task struct {
	ID                 string
	Name               string
	AggressiveDuration float64
	SafeDuration       float64
	PlannedDuration    float64
	Resources          []ResourceRequirement
	Dependencies       []string
	Tags               []string

	// Scheduling attributes, assigned by the forward/backward pass and by
	// leveling. Early/Late/Slack are expressed in workdays from the project
	// start; StartDate/EndDate are the corresponding calendar dates.
	EarlyStart  float64
	EarlyFinish float64
	LateStart   float64
	LateFinish  float64
	Slack       float64
	IsCritical  bool
	StartDate   time.Time
	EndDate     time.Time
	ChainID     string
	Color       int

	// Execution attributes.
	Status            Status
	ActualStartDate   *time.Time
	ActualEndDate     *time.Time
	RemainingDuration float64
	ProgressHistory   []ProgressRecord

	// Full-kitting: whether every input this task needs is in hand.
	FullKitted   bool
	FullKittedAt *time.Time
}

// New constructs a Task, validating the fields that do not require the
// surrounding task/resource registries: non-empty id, non-negative
// durations, and safe >= aggressive.
func New(id, name string, aggressiveDuration, safeDuration float64, dependencies []string, resources []ResourceRequirement) (*Task, error) {
	if id == "" {
		return nil, &ccpmerrors.InvalidTask{TaskID: id, Reason: "id must not be empty"}
	}
	if aggressiveDuration < 0 {
		return nil, &ccpmerrors.InvalidTask{TaskID: id, Reason: "aggressive_duration must be non-negative"}
	}
	if safeDuration < aggressiveDuration {
		return nil, &ccpmerrors.InvalidTask{TaskID: id, Reason: "safe_duration must be >= aggressive_duration"}
	}

	deps := append([]string(nil), dependencies...)
	res := append([]ResourceRequirement(nil), resources...)

	return &Task{
		ID:                 id,
		Name:               name,
		AggressiveDuration: aggressiveDuration,
		SafeDuration:       safeDuration,
		PlannedDuration:    aggressiveDuration,
		Dependencies:       deps,
		Resources:          res,
		RemainingDuration:  aggressiveDuration,
		Status:             Planned,
	}, nil
}

// ValidateReferences checks that every dependency id and resource name this
// task references is known to the caller's registries. knownTasks and
// knownResources are membership sets.
func (t *Task) ValidateReferences(knownTasks, knownResources map[string]bool) error {
	for _, dep := range t.Dependencies {
		if !knownTasks[dep] {
			return &ccpmerrors.InvalidTask{TaskID: t.ID, Reason: fmt.Sprintf("depends on non-existent task %q", dep)}
		}
	}
	for _, r := range t.Resources {
		if !knownResources[r.Name] {
			return &ccpmerrors.InvalidTask{TaskID: t.ID, Reason: fmt.Sprintf("references unknown resource %q", r.Name)}
		}
	}
	return nil
}

// Start transitions a task from Planned to InProgress. Starting a task that
// is already InProgress is a no-op; starting a Completed task fails with
// TaskAlreadyCompleted.
func (t *Task) Start(date time.Time) error {
	if t.Status == Completed {
		return &ccpmerrors.TaskAlreadyCompleted{TaskID: t.ID}
	}
	if t.Status != Planned {
		return nil
	}

	t.Status = InProgress
	t.ActualStartDate = &date
	t.RemainingDuration = t.PlannedDuration
	return nil
}

// UpdateRemaining records a new remaining-duration observation as of date.
// It appends to ProgressHistory, computes completed_work and
// progress_percentage from planned_duration, and transitions the task to
// Completed when remaining reaches zero.
func (t *Task) UpdateRemaining(remaining float64, date time.Time) error {
	if t.Status == Completed {
		return &ccpmerrors.TaskAlreadyCompleted{TaskID: t.ID}
	}
	if t.Status == Planned {
		if err := t.Start(date); err != nil {
			return err
		}
	}

	if remaining < 0 {
		remaining = 0
	}
	t.RemainingDuration = remaining

	completedWork := t.PlannedDuration - remaining
	var pct float64
	if t.PlannedDuration > 0 {
		pct = completedWork / t.PlannedDuration * 100
	}

	t.ProgressHistory = append(t.ProgressHistory, ProgressRecord{
		Date:          date,
		Remaining:     remaining,
		CompletedWork: completedWork,
		ProgressPct:   pct,
	})

	if remaining <= 1e-9 {
		t.Status = Completed
		t.ActualEndDate = &date
		t.RemainingDuration = 0
	}

	return nil
}

// ActualDuration returns the elapsed working days between ActualStartDate
// and ActualEndDate under cal. It is only meaningful once the task is
// Completed.
func (t *Task) ActualDuration(cal *calendar.Calendar) float64 {
	if t.ActualStartDate == nil || t.ActualEndDate == nil {
		return 0
	}
	return cal.WorkdaysBetween(*t.ActualStartDate, *t.ActualEndDate)
}

// AddTag adds tag to the task's tag set if not already present.
func (t *Task) AddTag(tag string) {
	if !t.HasTag(tag) {
		t.Tags = append(t.Tags, tag)
	}
}

// HasTag reports whether the task carries tag.
func (t *Task) HasTag(tag string) bool {
	for _, existing := range t.Tags {
		if existing == tag {
			return true
		}
	}
	return false
}

// FilterByTags reports whether the task carries every tag in tags.
func (t *Task) FilterByTags(tags []string) bool {
	for _, tag := range tags {
		if !t.HasTag(tag) {
			return false
		}
	}
	return true
}

// SetFullKitted marks whether every input this task needs is in hand.
// Becoming full-kitted for the first time stamps FullKittedAt.
func (t *Task) SetFullKitted(kitted bool, date time.Time) {
	wasKitted := t.FullKitted
	t.FullKitted = kitted
	if kitted && !wasKitted {
		d := date
		t.FullKittedAt = &d
	}
}

// Clone returns a deep copy of the task so callers can hand out snapshots
// without exposing internal storage to mutation.
func (t *Task) Clone() *Task {
	cp := *t
	cp.Dependencies = append([]string(nil), t.Dependencies...)
	cp.Resources = append([]ResourceRequirement(nil), t.Resources...)
	cp.Tags = append([]string(nil), t.Tags...)
	cp.ProgressHistory = append([]ProgressRecord(nil), t.ProgressHistory...)
	if t.ActualStartDate != nil {
		d := *t.ActualStartDate
		cp.ActualStartDate = &d
	}
	if t.ActualEndDate != nil {
		d := *t.ActualEndDate
		cp.ActualEndDate = &d
	}
	if t.FullKittedAt != nil {
		d := *t.FullKittedAt
		cp.FullKittedAt = &d
	}
	return &cp
}
