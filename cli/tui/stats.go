package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kolsys/allure-phpunit/cli/reader"
)

// StatsModel is a Bubble Tea model for stats views.
type StatsModel struct {
	viewType string
	data     any
	width    int
	height   int
	quitting bool
}

// NewStatsModel creates a new stats model.
func NewStatsModel(viewType string, data any) StatsModel {
	return StatsModel{
		viewType: viewType,
		data:     data,
	}
}

// Init implements tea.Model.
func (m StatsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m StatsModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case "stats_run":
		content = m.renderStatsRun()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

func (m StatsModel) renderStatsRun() string {
	data, ok := m.data.(*reader.StatsResponse)
	if !ok {
		return "Invalid data type for stats_run"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Results Statistics"))
	b.WriteString("\n\n")

	// Volume boxes
	volume := []string{
		m.renderStatBox("Suites", data.Suites, lipgloss.Color("#3B82F6")),
		m.renderStatBox("Cases", data.Cases, primaryColor),
		m.renderStatBox("Attachments", data.Attachments, highlightColor),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, volume...))
	b.WriteString("\n")

	// Status boxes
	statuses := []string{
		m.renderStatBox("Passed", data.Passed, successColor),
		m.renderStatBox("Failed", data.Failed, errorColor),
		m.renderStatBox("Broken", data.Broken, warningColor),
		m.renderStatBox("Canceled", data.Canceled, mutedColor),
		m.renderStatBox("Pending", data.Pending, mutedColor),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, statuses...))

	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Directory:"),
		ValueStyle.Render(data.Dir)))
	b.WriteString(fmt.Sprintf("%s %s",
		LabelStyle.Render("Duration:"),
		ValueStyle.Render(fmt.Sprintf("%dms", data.DurationMs))))

	return b.String()
}

func (m StatsModel) renderStatBox(label string, value int, color lipgloss.Color) string {
	boxStyle := StatBoxStyle.BorderForeground(color)

	valueStr := StatValueStyle.Foreground(color).Render(fmt.Sprintf("%d", value))
	labelStr := StatLabelStyle.Render(label)

	content := lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr)

	return boxStyle.Render(content)
}

// RunStatsTUI runs the stats TUI.
func RunStatsTUI(viewType string, data any) error {
	model := NewStatsModel(viewType, data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderStatsStatic renders stats data without full TUI (for fallback).
func RenderStatsStatic(viewType string, data any) string {
	model := NewStatsModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
