package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/ccpm/internal/events"
	"github.com/aristath/ccpm/internal/task"
)

// TaskState is the dashboard's view of one scheduled task: its baseline
// dates plus whatever execution updates have arrived since.
type TaskState struct {
	ID          string
	Name        string
	StartDate   time.Time
	EndDate     time.Time
	Status      string // "planned", "in_progress", "completed"
	Remaining   float64
	ProgressPct float64
	History     []string
}

// TaskPaneModel lists every task in the order SeedTasks receives them
// (ascending id, as the dashboard passes them) and shows the
// selected task's progress history in a scrollable viewport.
type TaskPaneModel struct {
	tasks       map[string]*TaskState
	taskOrder   []string
	selectedIdx int
	viewport    viewport.Model
	width       int
	height      int
	focused     bool
}

// NewTaskPaneModel creates a new task pane model.
func NewTaskPaneModel() TaskPaneModel {
	vp := viewport.New(0, 0)
	return TaskPaneModel{
		tasks:    make(map[string]*TaskState),
		viewport: vp,
	}
}

// SeedTasks populates the pane from a freshly built baseline, replacing any
// prior content. Called once after schedule() succeeds.
func (m *TaskPaneModel) SeedTasks(tasks map[string]*task.Task, order []string) {
	m.tasks = make(map[string]*TaskState, len(tasks))
	m.taskOrder = append([]string(nil), order...)
	for _, id := range order {
		t := tasks[id]
		m.tasks[id] = &TaskState{
			ID:        t.ID,
			Name:      t.Name,
			StartDate: t.StartDate,
			EndDate:   t.EndDate,
			Status:    t.Status.String(),
			Remaining: t.RemainingDuration,
		}
	}
	if len(m.taskOrder) > 0 {
		m.selectedIdx = 0
		m.updateViewportContent()
	}
}

// Update handles messages for the task pane.
func (m TaskPaneModel) Update(msg tea.Msg) (TaskPaneModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeViewport()

	case tea.KeyMsg:
		if !m.focused {
			break
		}
		switch msg.String() {
		case KeyJ, KeyDown:
			if m.selectedIdx < len(m.taskOrder)-1 {
				m.selectedIdx++
				m.updateViewportContent()
			}
		case KeyK, KeyUp:
			if m.selectedIdx > 0 {
				m.selectedIdx--
				m.updateViewportContent()
			}
		default:
			m.viewport, cmd = m.viewport.Update(msg)
		}

	case events.TaskProgressUpdatedEvent:
		if t, exists := m.tasks[msg.ID]; exists {
			t.Remaining = msg.Remaining
			t.ProgressPct = msg.ProgressPct
			t.History = append(t.History, fmt.Sprintf("%s: remaining=%.1f progress=%.0f%%", msg.AsOf.Format("2006-01-02"), msg.Remaining, msg.ProgressPct))
			if t.Status == task.Planned.String() {
				t.Status = task.InProgress.String()
			}
			if m.getSelectedTaskID() == msg.ID {
				m.updateViewportContent()
			}
		}

	case events.TaskCompletedEvent:
		if t, exists := m.tasks[msg.ID]; exists {
			t.Status = task.Completed.String()
			t.History = append(t.History, fmt.Sprintf("completed: actual=%.1f planned=%.1f", msg.ActualDuration, msg.PlannedDuration))
			if m.getSelectedTaskID() == msg.ID {
				m.updateViewportContent()
			}
		}
	}

	return m, cmd
}

// View renders the task pane.
func (m TaskPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	listWidth := 25
	viewportWidth := m.width - listWidth - 4

	listContent := m.renderTaskList(listWidth)
	viewportContent := m.viewport.View()

	content := lipgloss.JoinHorizontal(
		lipgloss.Top,
		listContent,
		lipgloss.NewStyle().
			Width(viewportWidth).
			Height(m.height-2).
			Render(viewportContent),
	)

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}

	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(content)
}

func (m TaskPaneModel) renderTaskList(width int) string {
	var b strings.Builder

	title := StyleTitle.Render("Tasks")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", min(width, lipgloss.Width(title))))
	b.WriteString("\n\n")

	if len(m.taskOrder) == 0 {
		b.WriteString(StyleStatusPending.Render("No schedule built yet"))
	} else {
		for i, id := range m.taskOrder {
			t := m.tasks[id]
			icon := m.StatusIcon(t.Status)
			name := t.Name
			if len(name) > width-6 {
				name = name[:width-9] + "..."
			}

			line := fmt.Sprintf("%s %s", icon, name)
			if i == m.selectedIdx {
				line = lipgloss.NewStyle().
					Background(lipgloss.Color("62")).
					Foreground(lipgloss.Color("0")).
					Render(line)
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	return lipgloss.NewStyle().
		Width(width).
		Height(m.height - 2).
		Render(b.String())
}

// StatusIcon returns a styled status indicator for a task's state string.
func (m TaskPaneModel) StatusIcon(status string) string {
	switch status {
	case task.InProgress.String():
		return StyleStatusRunning.Render("●")
	case task.Completed.String():
		return StyleStatusComplete.Render("✓")
	default:
		return StyleStatusPending.Render("○")
	}
}

func (m TaskPaneModel) getSelectedTaskID() string {
	if m.selectedIdx >= 0 && m.selectedIdx < len(m.taskOrder) {
		return m.taskOrder[m.selectedIdx]
	}
	return ""
}

func (m *TaskPaneModel) updateViewportContent() {
	id := m.getSelectedTaskID()
	if id == "" {
		m.viewport.SetContent("No schedule built yet")
		return
	}

	t, exists := m.tasks[id]
	if !exists {
		m.viewport.SetContent("No schedule built yet")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", t.Name, t.ID)
	fmt.Fprintf(&b, "baseline: %s -> %s\n", t.StartDate.Format("2006-01-02"), t.EndDate.Format("2006-01-02"))
	fmt.Fprintf(&b, "status:   %s\n\n", t.Status)
	if len(t.History) == 0 {
		b.WriteString("no progress updates yet")
	} else {
		b.WriteString(strings.Join(t.History, "\n"))
	}

	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func (m *TaskPaneModel) resizeViewport() {
	listWidth := 25
	viewportWidth := m.width - listWidth - 4
	viewportHeight := m.height - 4

	if viewportWidth < 10 {
		viewportWidth = 10
	}
	if viewportHeight < 5 {
		viewportHeight = 5
	}

	m.viewport.Width = viewportWidth
	m.viewport.Height = viewportHeight
}

// SetSize updates the pane dimensions.
func (m *TaskPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.resizeViewport()
}

// SetFocused updates the focus state.
func (m *TaskPaneModel) SetFocused(focused bool) {
	m.focused = focused
}
