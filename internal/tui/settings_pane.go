package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/ccpm/internal/config"
)

// SettingsPaneModel manages the project-settings form overlay: buffer
// strategy and the project start date, saved back to a ProjectDefinition
// JSON file. Resource and task edits go through the project file directly
// -- this form covers the two fields a user is likely to tweak live.
type SettingsPaneModel struct {
	form        *huh.Form
	def         *config.ProjectDefinition
	globalPath  string
	projectPath string
	width       int
	height      int
	visible     bool
	saved       bool
	err         error

	saveTarget     string
	startDate      string
	bufferStrategy string
}

// NewSettingsPaneModel creates a new settings pane.
func NewSettingsPaneModel(def *config.ProjectDefinition, globalPath, projectPath string) SettingsPaneModel {
	m := SettingsPaneModel{
		def:         def,
		globalPath:  globalPath,
		projectPath: projectPath,
		visible:     false,
		saved:       false,

		saveTarget:     "project",
		startDate:      def.StartDate,
		bufferStrategy: def.BufferStrategy,
	}

	m.buildForm()
	return m
}

// buildForm constructs the Huh form with the editable settings fields.
func (m *SettingsPaneModel) buildForm() {
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("saveTarget").
				Title("Save To").
				Options(
					huh.NewOption("Global (~/.ccpm/project.json)", "global"),
					huh.NewOption("Project (.ccpm/project.json)", "project"),
				).
				Value(&m.saveTarget),
		).Title("Save Target"),

		huh.NewGroup(
			huh.NewInput().
				Key("startDate").
				Title("Project Start (YYYY-MM-DD)").
				Value(&m.startDate).
				Placeholder("2025-04-07"),

			huh.NewSelect[string]().
				Key("bufferStrategy").
				Title("Buffer Strategy").
				Options(
					huh.NewOption("Cut and Paste", "cut_and_paste"),
					huh.NewOption("Sum of Squares", "sum_of_squares"),
					huh.NewOption("Root Square Error", "root_square_error"),
					huh.NewOption("Adaptive", "adaptive"),
				).
				Value(&m.bufferStrategy),
		).Title("Project Settings"),
	)
}

// Init initializes the settings pane.
func (m SettingsPaneModel) Init() tea.Cmd {
	return m.form.Init()
}

// Update handles messages for the settings pane.
func (m SettingsPaneModel) Update(msg tea.Msg) (SettingsPaneModel, tea.Cmd) {
	if !m.visible {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			m.visible = false
			m.saved = false
			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		if err := m.validate(); err != nil {
			m.err = err
			m.saved = false
			return m, cmd
		}

		m.applyFormToDefinition()

		targetPath := m.projectPath
		if m.saveTarget == "global" {
			targetPath = m.globalPath
		}

		if err := config.Save(m.def, targetPath); err != nil {
			m.err = err
			m.saved = false
		} else {
			m.saved = true
			m.err = nil
		}

		if m.saved {
			m.visible = false
		}
	}

	return m, cmd
}

func (m *SettingsPaneModel) validate() error {
	if m.startDate == "" {
		return nil
	}
	if _, err := time.Parse("2006-01-02", m.startDate); err != nil {
		return fmt.Errorf("invalid start date %q, want YYYY-MM-DD", m.startDate)
	}
	return nil
}

// applyFormToDefinition copies form field values back to the project
// definition.
func (m *SettingsPaneModel) applyFormToDefinition() {
	m.def.StartDate = m.startDate
	m.def.BufferStrategy = m.bufferStrategy
}

// View renders the settings pane.
func (m SettingsPaneModel) View() string {
	if !m.visible {
		return ""
	}

	var content string

	if m.saved && m.form.State == huh.StateCompleted {
		content = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true).
			Render("✓ Project settings saved successfully!")
	} else if m.err != nil {
		content = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true).
			Render(fmt.Sprintf("✗ Error saving: %v", m.err))
	} else {
		content = m.form.View()
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2).
		Width(m.width - 4).
		Height(m.height - 4)

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("62")).
		Render("⚙ Project Settings")

	body := style.Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, title, body)
}

// SetSize updates the dimensions of the settings pane.
func (m *SettingsPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	if m.form != nil {
		m.form.WithWidth(w - 8).WithHeight(h - 8)
	}
}

// SetVisible shows or hides the settings pane.
func (m *SettingsPaneModel) SetVisible(v bool) {
	m.visible = v
	m.saved = false
	m.err = nil

	if v && m.form != nil {
		m.buildForm()
	}
}

// IsVisible returns whether the settings pane is currently visible.
func (m SettingsPaneModel) IsVisible() bool {
	return m.visible
}
