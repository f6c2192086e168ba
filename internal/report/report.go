// Package report renders a built schedule as the plain-text documents
// external collaborators display: generate_schedule_report() and
// generate_execution_report(), per spec.md §6. Section order is fixed;
// header wording is not.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aristath/ccpm/internal/calendar"
	"github.com/aristath/ccpm/internal/scheduler"
	"github.com/aristath/ccpm/internal/task"
)

const dateFormat = "2006-01-02"

// Schedule renders the schedule_report(): Project header, Critical Chain
// Tasks, Feeding Chains, Complete Task Schedule, Buffer Information.
func Schedule(snap *scheduler.Snapshot, cal *calendar.Calendar) string {
	var b strings.Builder

	writeProjectHeader(&b, snap, cal)
	writeCriticalChainTasks(&b, snap)
	writeFeedingChains(&b, snap)
	writeCompleteTaskSchedule(&b, snap)
	writeBufferInformation(&b, snap, nil)

	return b.String()
}

// Execution renders the execution_report(): everything schedule_report()
// has, plus Buffer Status, Tasks In Progress, Completed Tasks (with
// schedule variance in days), and Upcoming Tasks.
func Execution(snap *scheduler.Snapshot, cal *calendar.Calendar, asOf time.Time) string {
	var b strings.Builder

	writeProjectHeader(&b, snap, cal)
	writeCriticalChainTasks(&b, snap)
	writeFeedingChains(&b, snap)
	writeCompleteTaskSchedule(&b, snap)
	writeBufferInformation(&b, snap, nil)

	writeBufferStatus(&b, snap)
	writeTasksInProgress(&b, snap)
	writeCompletedTasks(&b, snap, cal)
	writeUpcomingTasks(&b, snap, asOf)

	return b.String()
}

func writeProjectHeader(b *strings.Builder, snap *scheduler.Snapshot, cal *calendar.Calendar) {
	duration := cal.WorkdaysBetween(snap.ProjectStart, snap.ProjectEnd)

	var projectBuffer *task.Buffer
	for _, buf := range snap.Buffers {
		if buf.Kind == task.BufferProject {
			projectBuffer = buf
		}
	}

	b.WriteString("PROJECT\n")
	fmt.Fprintf(b, "  Start:           %s\n", snap.ProjectStart.Format(dateFormat))
	fmt.Fprintf(b, "  Projected end:   %s\n", snap.ProjectEnd.Format(dateFormat))
	fmt.Fprintf(b, "  Duration:        %.0f workdays\n", duration)
	if projectBuffer != nil {
		fmt.Fprintf(b, "  Project buffer:  %.0f workdays\n", projectBuffer.OriginalSize)
	}
	b.WriteString("\n")
}

func writeCriticalChainTasks(b *strings.Builder, snap *scheduler.Snapshot) {
	b.WriteString("CRITICAL CHAIN TASKS\n")
	for _, id := range snap.CriticalChainID {
		t := snap.Tasks[id]
		fmt.Fprintf(b, "  %-8s %-24s %s -> %s\n", t.ID, t.Name, t.StartDate.Format(dateFormat), t.EndDate.Format(dateFormat))
	}
	b.WriteString("\n")
}

func writeFeedingChains(b *strings.Builder, snap *scheduler.Snapshot) {
	b.WriteString("FEEDING CHAINS\n")
	if len(snap.FeedingChains) == 0 {
		b.WriteString("  (none)\n\n")
		return
	}

	chains := append([]*task.Chain(nil), snap.FeedingChains...)
	sort.Slice(chains, func(i, j int) bool { return chains[i].ID < chains[j].ID })

	buffersByID := buffersByID(snap)
	for _, chain := range chains {
		buf := buffersByID[chain.BufferID]
		fmt.Fprintf(b, "  Chain %s -> connects to %s, buffer %.0f workdays\n", chain.ID, buf.AttachesTo, buf.OriginalSize)
		for _, id := range chain.Tasks {
			t := snap.Tasks[id]
			fmt.Fprintf(b, "    %-8s %-24s %s -> %s\n", t.ID, t.Name, t.StartDate.Format(dateFormat), t.EndDate.Format(dateFormat))
		}
	}
	b.WriteString("\n")
}

func writeCompleteTaskSchedule(b *strings.Builder, snap *scheduler.Snapshot) {
	b.WriteString("COMPLETE TASK SCHEDULE\n")
	for _, id := range sortedByStartThenID(snap) {
		t := snap.Tasks[id]
		fmt.Fprintf(b, "  %-8s %-24s %-12s %s -> %s\n", t.ID, t.Name, t.Status, t.StartDate.Format(dateFormat), t.EndDate.Format(dateFormat))
	}
	b.WriteString("\n")
}

func writeBufferInformation(b *strings.Builder, snap *scheduler.Snapshot, _ interface{}) {
	b.WriteString("BUFFER INFORMATION\n")
	for _, buf := range sortedBuffers(snap) {
		fmt.Fprintf(b, "  %-16s %-8s size=%.0f attaches_to=%s\n", buf.ID, buf.Kind, buf.OriginalSize, buf.AttachesTo)
	}
	b.WriteString("\n")
}

func writeBufferStatus(b *strings.Builder, snap *scheduler.Snapshot) {
	b.WriteString("BUFFER STATUS\n")
	for _, buf := range sortedBuffers(snap) {
		fmt.Fprintf(b, "  %-16s size=%.0f consumed=%.0f remaining=%.0f zone=%s\n",
			buf.ID, buf.OriginalSize, buf.OriginalSize-buf.Remaining, buf.Remaining, bufferZone(buf))
	}
	b.WriteString("\n")
}

func writeTasksInProgress(b *strings.Builder, snap *scheduler.Snapshot) {
	b.WriteString("TASKS IN PROGRESS\n")
	any := false
	for _, id := range snap.SortedTaskIDs() {
		t := snap.Tasks[id]
		if t.Status != task.InProgress {
			continue
		}
		any = true
		fmt.Fprintf(b, "  %-8s %-24s remaining=%.1f full_kitted=%v\n", t.ID, t.Name, t.RemainingDuration, t.FullKitted)
	}
	if !any {
		b.WriteString("  (none)\n")
	}
	b.WriteString("\n")
}

func writeCompletedTasks(b *strings.Builder, snap *scheduler.Snapshot, cal *calendar.Calendar) {
	b.WriteString("COMPLETED TASKS\n")
	any := false
	for _, id := range snap.SortedTaskIDs() {
		t := snap.Tasks[id]
		if t.Status != task.Completed {
			continue
		}
		any = true
		variance := cal.WorkdaysBetween(t.EndDate, *t.ActualEndDate)
		if t.ActualEndDate.Before(t.EndDate) {
			variance = -cal.WorkdaysBetween(*t.ActualEndDate, t.EndDate)
		}
		fmt.Fprintf(b, "  %-8s %-24s variance=%+.0f workdays\n", t.ID, t.Name, variance)
	}
	if !any {
		b.WriteString("  (none)\n")
	}
	b.WriteString("\n")
}

func writeUpcomingTasks(b *strings.Builder, snap *scheduler.Snapshot, asOf time.Time) {
	b.WriteString("UPCOMING TASKS\n")
	any := false
	for _, id := range sortedByStartThenID(snap) {
		t := snap.Tasks[id]
		if t.Status != task.Planned || t.StartDate.Before(asOf) {
			continue
		}
		any = true
		fmt.Fprintf(b, "  %-8s %-24s starts %s\n", t.ID, t.Name, t.StartDate.Format(dateFormat))
	}
	if !any {
		b.WriteString("  (none)\n")
	}
}

func buffersByID(snap *scheduler.Snapshot) map[string]*task.Buffer {
	out := make(map[string]*task.Buffer, len(snap.Buffers))
	for _, buf := range snap.Buffers {
		out[buf.ID] = buf
	}
	return out
}

func sortedBuffers(snap *scheduler.Snapshot) []*task.Buffer {
	bufs := append([]*task.Buffer(nil), snap.Buffers...)
	sort.Slice(bufs, func(i, j int) bool { return bufs[i].ID < bufs[j].ID })
	return bufs
}

func sortedByStartThenID(snap *scheduler.Snapshot) []string {
	ids := snap.SortedTaskIDs()
	sort.Slice(ids, func(i, j int) bool {
		a, b := snap.Tasks[ids[i]], snap.Tasks[ids[j]]
		if !a.StartDate.Equal(b.StartDate) {
			return a.StartDate.Before(b.StartDate)
		}
		return a.ID < b.ID
	})
	return ids
}

// bufferZone classifies a buffer on the same green/yellow/red scale as the
// fever chart, by consumption percentage alone (a buffer-status line has no
// paired chain-completion figure to weigh against).
func bufferZone(buf *task.Buffer) string {
	switch pct := buf.ConsumptionPct(); {
	case pct < 33:
		return "green"
	case pct < 67:
		return "yellow"
	default:
		return "red"
	}
}
