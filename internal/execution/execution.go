// Package execution implements the execution tracker (C10): the
// fever-chart zone function, chain completion percentage, and the delay/
// remaining arithmetic recalculate_network_from_progress uses to update
// buffer consumption after re-propagation.
package execution

import (
	"time"

	"github.com/aristath/ccpm/internal/calendar"
	"github.com/aristath/ccpm/internal/task"
)

// Zone is a fever-chart status: green, yellow, or red.
type Zone string

const (
	ZoneGreen  Zone = "green"
	ZoneYellow Zone = "yellow"
	ZoneRed    Zone = "red"
)

// FeverZone classifies a chain's (completion%, consumption%) pair per
// spec.md §4.10: green if y < 10 + 0.6x, yellow if y < 30 + 0.6x, red
// otherwise.
func FeverZone(completionPct, consumptionPct float64) Zone {
	switch {
	case consumptionPct < 10+0.6*completionPct:
		return ZoneGreen
	case consumptionPct < 30+0.6*completionPct:
		return ZoneYellow
	default:
		return ZoneRed
	}
}

// ChainCompletionPct measures a chain's completion as the sum of completed
// work across its tasks over the sum of planned duration, expressed as a
// percentage. This resolves spec.md §9's open question (elapsed workdays vs.
// sum of completed work) in favor of completed work: it is well-defined for
// a chain whose tasks have not all started, and it matches the per-task
// progress_percentage computation task.Task.UpdateRemaining already uses, so
// a chain's completion is consistent with the completion its member tasks
// report individually.
func ChainCompletionPct(tasks []*task.Task) float64 {
	var plannedSum, completedSum float64
	for _, t := range tasks {
		plannedSum += t.PlannedDuration
		completedSum += t.PlannedDuration - t.RemainingDuration
	}
	if plannedSum <= 0 {
		return 0
	}
	if completedSum < 0 {
		completedSum = 0
	}
	return completedSum / plannedSum * 100
}

// RemainingAfterDelay applies a workday delay to a buffer's original size,
// floored at zero: remaining = max(0, original_size - delay).
func RemainingAfterDelay(originalSize, delayWorkdays float64) float64 {
	remaining := originalSize - delayWorkdays
	if remaining < 0 {
		return 0
	}
	return remaining
}

// DelayWorkdays returns the elapsed working days between a baseline date and
// a later observed date, floored at zero — spec.md §4.10's
// "max(0, new_end - original_start)" pattern, shared by both the project
// and feeding buffer consumption calculations. A newDate at or before
// baseline yields zero delay (the chain finished on time or early).
func DelayWorkdays(cal *calendar.Calendar, baseline, newDate time.Time) float64 {
	if !newDate.After(baseline) {
		return 0
	}
	return cal.WorkdaysBetween(baseline, newDate)
}
