package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/ccpm/internal/config"
	"github.com/aristath/ccpm/internal/events"
	"github.com/aristath/ccpm/internal/scheduler"
)

// PaneID identifies which pane is focused.
type PaneID int

const (
	PaneTaskList PaneID = iota
	PaneTaskDetail
	PaneChains
)

// Model is the root Bubble Tea model for the schedule/execution dashboard.
type Model struct {
	taskPane          TaskPaneModel
	chainPane         ChainPaneModel
	settingsPane      SettingsPaneModel
	focusedPane       PaneID
	eventSub          <-chan events.Event
	width             int
	height            int
	quitting          bool
	showSettings      bool
	globalConfigPath  string
	projectConfigPath string
}

// New creates a new dashboard model. It seeds the task and chain panes from
// snap (nil if schedule() has not yet been called) and subscribes to every
// event sched publishes from here on.
func New(sched *scheduler.Scheduler, snap *scheduler.Snapshot, def *config.ProjectDefinition, globalPath, projectPath string) Model {
	taskPane := NewTaskPaneModel()
	chainPane := NewChainPaneModel()
	if snap != nil {
		taskPane.SeedTasks(snap.Tasks, snap.SortedTaskIDs())
		chainPane.SeedChains(len(snap.CriticalChainID), len(snap.FeedingChains))
	}

	return Model{
		taskPane:          taskPane,
		chainPane:         chainPane,
		settingsPane:      NewSettingsPaneModel(def, globalPath, projectPath),
		focusedPane:       PaneTaskList,
		eventSub:          sched.Events().SubscribeAll(256),
		showSettings:      false,
		globalConfigPath:  globalPath,
		projectConfigPath: projectPath,
	}
}

// Init initializes the model and returns the initial command.
func (m Model) Init() tea.Cmd {
	return waitForEvent(m.eventSub)
}

// waitForEvent returns a command that waits for the next event from the event bus.
func waitForEvent(sub <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-sub
		if !ok {
			return nil // bus closed
		}
		return event
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		// If settings panel is open, route all keys to it (modal behavior).
		if m.showSettings {
			switch msg.String() {
			case "esc":
				m.showSettings = false
				m.settingsPane.SetVisible(false)
			default:
				var cmd tea.Cmd
				m.settingsPane, cmd = m.settingsPane.Update(msg)
				cmds = append(cmds, cmd)

				if !m.settingsPane.IsVisible() {
					m.showSettings = false
				}
			}
			return m, tea.Batch(cmds...)
		}

		switch msg.String() {
		case KeyQuit, KeyCtrlC:
			m.quitting = true
			return m, tea.Quit

		case KeySettings:
			m.showSettings = true
			m.settingsPane.SetVisible(true)
			cmds = append(cmds, m.settingsPane.Init())

		case KeyTab:
			m.focusedPane = (m.focusedPane + 1) % 3
			m.updateFocusStates()

		case KeyShiftTab:
			m.focusedPane = (m.focusedPane + 2) % 3 // +2 is equivalent to -1 mod 3
			m.updateFocusStates()

		case KeyPane1:
			m.focusedPane = PaneTaskList
			m.updateFocusStates()

		case KeyPane2:
			m.focusedPane = PaneTaskDetail
			m.updateFocusStates()

		case KeyPane3:
			m.focusedPane = PaneChains
			m.updateFocusStates()

		default:
			switch m.focusedPane {
			case PaneTaskList, PaneTaskDetail:
				var cmd tea.Cmd
				m.taskPane, cmd = m.taskPane.Update(msg)
				cmds = append(cmds, cmd)
			case PaneChains:
				var cmd tea.Cmd
				m.chainPane, cmd = m.chainPane.Update(msg)
				cmds = append(cmds, cmd)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.computeLayout()
		m.settingsPane.SetSize(msg.Width, msg.Height)

	case events.TaskProgressUpdatedEvent, events.TaskCompletedEvent:
		var cmd tea.Cmd
		m.taskPane, cmd = m.taskPane.Update(msg)
		cmds = append(cmds, cmd)
		cmds = append(cmds, waitForEvent(m.eventSub))

	case events.BufferConsumptionUpdatedEvent:
		var cmd tea.Cmd
		m.chainPane, cmd = m.chainPane.Update(msg)
		cmds = append(cmds, cmd)
		cmds = append(cmds, waitForEvent(m.eventSub))

	case events.ScheduleBuiltEvent, events.ResourceOverallocatedEvent:
		// Not rendered directly; keep draining the bus.
		cmds = append(cmds, waitForEvent(m.eventSub))
	}

	return m, tea.Batch(cmds...)
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	if m.showSettings {
		return m.settingsPane.View()
	}

	leftWidth := (m.width * 60) / 100 // 60% for task list/detail
	rightWidth := m.width - leftWidth
	availableHeight := m.height - 1 // reserve 1 line for help bar

	leftPane := m.taskPane.View()
	rightPane := lipgloss.NewStyle().
		Width(rightWidth).
		Height(availableHeight).
		Render(m.chainPane.View())

	mainContent := lipgloss.JoinHorizontal(lipgloss.Top, leftPane, rightPane)
	helpBar := HelpView()

	return lipgloss.JoinVertical(lipgloss.Left, mainContent, helpBar)
}

// computeLayout calculates pane dimensions and updates all child models.
func (m *Model) computeLayout() {
	leftWidth := (m.width * 60) / 100
	rightWidth := m.width - leftWidth
	availableHeight := m.height - 1

	m.taskPane.SetSize(leftWidth, availableHeight)
	m.chainPane.SetSize(rightWidth, availableHeight)

	m.updateFocusStates()
}

// updateFocusStates updates the focus state of all panes.
func (m *Model) updateFocusStates() {
	m.taskPane.SetFocused(m.focusedPane == PaneTaskList || m.focusedPane == PaneTaskDetail)
	m.chainPane.SetFocused(m.focusedPane == PaneChains)
}
