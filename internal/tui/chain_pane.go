package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/ccpm/internal/events"
)

// BufferState is the dashboard's view of one buffer's consumption.
type BufferState struct {
	ID             string
	Kind           string
	ConsumptionPct float64
	Zone           string
}

// ChainPaneModel shows the critical chain and feeding-chain buffer
// consumption, updated as recalculate_network_from_progress runs.
type ChainPaneModel struct {
	criticalChainLen int
	feedingChains    int
	buffers          map[string]*BufferState
	bufferOrder      []string
	width            int
	height           int
	focused          bool
}

// NewChainPaneModel creates a new chain pane model.
func NewChainPaneModel() ChainPaneModel {
	return ChainPaneModel{buffers: make(map[string]*BufferState)}
}

// SeedChains populates the pane from a freshly built baseline.
func (m *ChainPaneModel) SeedChains(criticalChainLen, feedingChains int) {
	m.criticalChainLen = criticalChainLen
	m.feedingChains = feedingChains
}

// Update handles messages for the chain pane.
func (m ChainPaneModel) Update(msg tea.Msg) (ChainPaneModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case events.BufferConsumptionUpdatedEvent:
		buf, exists := m.buffers[msg.BufferID]
		if !exists {
			buf = &BufferState{ID: msg.BufferID, Kind: msg.Kind}
			m.buffers[msg.BufferID] = buf
			m.bufferOrder = append(m.bufferOrder, msg.BufferID)
		}
		buf.ConsumptionPct = msg.ConsumptionPct
		buf.Zone = msg.Zone
	}

	return m, nil
}

// View renders the chain pane.
func (m ChainPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder

	title := StyleTitle.Render("Chains & Buffers")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", min(m.width-2, lipgloss.Width(title))))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Critical chain: %d tasks\n", m.criticalChainLen)
	fmt.Fprintf(&b, "Feeding chains: %d\n\n", m.feedingChains)

	if len(m.bufferOrder) == 0 {
		b.WriteString(StyleStatusPending.Render("No buffer updates yet"))
	} else {
		for _, id := range m.bufferOrder {
			buf := m.buffers[id]
			fmt.Fprintf(&b, "%s %-16s %-8s %.0f%%\n", m.zoneIcon(buf.Zone), buf.ID, buf.Kind, buf.ConsumptionPct)
		}
	}

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}

	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(b.String())
}

func (m ChainPaneModel) zoneIcon(zone string) string {
	switch zone {
	case "green":
		return StyleStatusComplete.Render("●")
	case "yellow":
		return StyleStatusRunning.Render("●")
	case "red":
		return StyleStatusFailed.Render("●")
	default:
		return StyleStatusPending.Render("○")
	}
}

// SetSize updates the pane dimensions.
func (m *ChainPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetFocused updates the focus state.
func (m *ChainPaneModel) SetFocused(focused bool) {
	m.focused = focused
}
