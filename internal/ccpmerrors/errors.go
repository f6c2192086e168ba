// Package ccpmerrors defines the structured error kinds the scheduling core
// returns to callers. Every error here is a plain Go error type so callers
// can distinguish kinds with errors.As instead of parsing messages.
package ccpmerrors

import (
	"fmt"
	"time"
)

// InvalidTask is returned when a task fails field validation: negative
// duration, empty id, or a dependency/resource reference that does not
// exist.
type InvalidTask struct {
	TaskID string
	Reason string
}

func (e *InvalidTask) Error() string {
	return fmt.Sprintf("invalid task %q: %s", e.TaskID, e.Reason)
}

// CycleDetected is returned when the dependency graph contains a cycle.
type CycleDetected struct {
	Path []string
}

func (e *CycleDetected) Error() string {
	return fmt.Sprintf("dependency cycle detected: %v", e.Path)
}

// ResourceOverallocationError is returned when leveling cannot place a task
// without exceeding a resource's availability on some day.
type ResourceOverallocationError struct {
	Resource  string
	Day       time.Time
	Requested float64
	Available float64
}

func (e *ResourceOverallocationError) Error() string {
	return fmt.Sprintf("resource %q overallocated on %s: requested %.4f, available %.4f",
		e.Resource, e.Day.Format("2006-01-02"), e.Requested, e.Available)
}

// LevelingDidNotConverge is returned when the leveling service exhausts its
// iteration bound without reaching a fixed point.
type LevelingDidNotConverge struct {
	Iterations int
}

func (e *LevelingDidNotConverge) Error() string {
	return fmt.Sprintf("resource leveling did not converge after %d iterations", e.Iterations)
}

// ScheduleAlreadyBuilt is returned when a planning-phase setter is called
// after schedule() has already returned.
type ScheduleAlreadyBuilt struct{}

func (e *ScheduleAlreadyBuilt) Error() string {
	return "schedule already built: planning phase is closed"
}

// TaskAlreadyCompleted is returned when a progress update targets a
// completed task.
type TaskAlreadyCompleted struct {
	TaskID string
}

func (e *TaskAlreadyCompleted) Error() string {
	return fmt.Sprintf("task %q is already completed", e.TaskID)
}

// UnknownTaskID is returned by referential lookups against a task id that
// does not exist.
type UnknownTaskID struct {
	TaskID string
}

func (e *UnknownTaskID) Error() string {
	return fmt.Sprintf("unknown task id %q", e.TaskID)
}

// UnknownResourceName is returned by referential lookups against a resource
// name that was never registered.
type UnknownResourceName struct {
	Name string
}

func (e *UnknownResourceName) Error() string {
	return fmt.Sprintf("unknown resource %q", e.Name)
}
