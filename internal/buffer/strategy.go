// Package buffer implements the pluggable buffer-sizing policies (C8): a
// small Strategy interface with several concrete implementations selected
// by name, the same "one interface, several named implementations" shape
// used elsewhere in this lineage for pluggable backends.
package buffer

import (
	"math"

	"github.com/aristath/ccpm/internal/task"
)

// TaskDurations is the minimal view a Strategy needs of a chain's tasks.
type TaskDurations interface {
	AggressiveDur() float64
	SafeDur() float64
}

// taskView adapts *task.Task to TaskDurations without exposing the rest of
// the Task struct to the strategies.
type taskView struct{ t *task.Task }

func (v taskView) AggressiveDur() float64 { return v.t.AggressiveDuration }
func (v taskView) SafeDur() float64       { return v.t.SafeDuration }

// Views wraps a slice of tasks for use with a Strategy.
func Views(tasks []*task.Task) []TaskDurations {
	views := make([]TaskDurations, len(tasks))
	for i, t := range tasks {
		views[i] = taskView{t}
	}
	return views
}

// Strategy computes a chain buffer's size in working days, given the
// chain's tasks and its buffer_ratio.
type Strategy interface {
	Name() string
	CalculateSize(tasks []TaskDurations, bufferRatio float64) float64
}

// New resolves a strategy by name. Unknown names default to CutAndPaste,
// matching spec.md's silence on invalid-name handling by falling back to
// the simplest, always-defined policy rather than erroring the whole
// scheduler construction over a typo.
func New(name string) Strategy {
	switch name {
	case "sum_of_squares", "ssq":
		return SumOfSquares{}
	case "root_square_error", "rsem":
		return RootSquareError{}
	case "adaptive":
		return Adaptive{}
	default:
		return CutAndPaste{}
	}
}

// CutAndPaste sizes a buffer as buffer_ratio times the sum of aggressive
// durations across the chain.
type CutAndPaste struct{}

func (CutAndPaste) Name() string { return "cut_and_paste" }

func (CutAndPaste) CalculateSize(tasks []TaskDurations, bufferRatio float64) float64 {
	var sum float64
	for _, t := range tasks {
		sum += t.AggressiveDur()
	}
	return roundUp(sum * bufferRatio)
}

// SumOfSquares sizes a buffer as the square root of the sum of squared
// (safe - aggressive) differences across the chain.
type SumOfSquares struct{}

func (SumOfSquares) Name() string { return "sum_of_squares" }

func (SumOfSquares) CalculateSize(tasks []TaskDurations, _ float64) float64 {
	return roundUp(math.Sqrt(sumSquaredDiffs(tasks)))
}

// RootSquareError doubles SumOfSquares, giving a more conservative buffer.
type RootSquareError struct{}

func (RootSquareError) Name() string { return "root_square_error" }

func (RootSquareError) CalculateSize(tasks []TaskDurations, _ float64) float64 {
	return roundUp(2 * math.Sqrt(sumSquaredDiffs(tasks)))
}

// Adaptive picks SumOfSquares when the chain's safe/aggressive ratios vary
// a lot (std dev > 0.3), CutAndPaste otherwise, then floors the result at
// 15% of the chain's aggressive-duration sum.
type Adaptive struct{}

func (Adaptive) Name() string { return "adaptive" }

func (Adaptive) CalculateSize(tasks []TaskDurations, bufferRatio float64) float64 {
	if len(tasks) == 0 {
		return 0
	}

	var aggressiveSum float64
	var ratios []float64
	for _, t := range tasks {
		aggressiveSum += t.AggressiveDur()
		if t.AggressiveDur() > 0 {
			ratios = append(ratios, t.SafeDur()/t.AggressiveDur())
		}
	}

	avgRatio := 1.5
	if len(ratios) > 0 {
		var sum float64
		for _, r := range ratios {
			sum += r
		}
		avgRatio = sum / float64(len(ratios))
	}

	var variance float64
	if len(ratios) > 0 {
		var sumSq float64
		for _, r := range ratios {
			d := r - avgRatio
			sumSq += d * d
		}
		variance = sumSq / float64(len(ratios))
	}
	stdDev := math.Sqrt(variance)

	var raw float64
	if stdDev > 0.3 {
		raw = math.Sqrt(sumSquaredDiffs(tasks))
	} else {
		raw = aggressiveSum * bufferRatio
	}

	minBuffer := aggressiveSum * 0.15
	if raw < minBuffer {
		raw = minBuffer
	}
	return roundUp(raw)
}

func sumSquaredDiffs(tasks []TaskDurations) float64 {
	var sum float64
	for _, t := range tasks {
		d := t.SafeDur() - t.AggressiveDur()
		sum += d * d
	}
	return sum
}

// roundUp rounds a buffer size up to whole working days, per spec.md §4.8.
func roundUp(size float64) float64 {
	return math.Ceil(size - 1e-9)
}
