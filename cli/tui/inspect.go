package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kolsys/allure-phpunit/cli/reader"
)

// InspectModel is a Bubble Tea model for inspect views.
type InspectModel struct {
	viewType string
	data     any
	width    int
	height   int
	quitting bool
}

// NewInspectModel creates a new inspect model.
func NewInspectModel(viewType string, data any) InspectModel {
	return InspectModel{
		viewType: viewType,
		data:     data,
	}
}

// Init implements tea.Model.
func (m InspectModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m InspectModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case "inspect_suite":
		content = m.renderInspectSuite()
	case "inspect_test":
		content = m.renderInspectTest()
	case "inspect_run":
		content = m.renderInspectRun()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

func (m InspectModel) renderInspectSuite() string {
	data, ok := m.data.(*reader.SuiteDetail)
	if !ok {
		return "Invalid data type for inspect_suite"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Suite Details"))
	b.WriteString("\n\n")

	rows := [][]string{
		{"UUID", data.UUID},
		{"Name", data.Name},
	}
	if data.Title != "" {
		rows = append(rows, []string{"Title", data.Title})
	}
	rows = append(rows,
		[]string{"Cases", fmt.Sprintf("%d", len(data.Tests))},
		[]string{"Duration", fmt.Sprintf("%dms", data.DurationMs)},
	)

	for _, row := range rows {
		b.WriteString(fmt.Sprintf("%s %s\n",
			LabelStyle.Render(row[0]+":"),
			ValueStyle.Render(row[1])))
	}

	if len(data.Labels) > 0 {
		b.WriteString("\n")
		b.WriteString(LabelStyle.Render("Labels:\n"))
		for _, l := range data.Labels {
			b.WriteString(fmt.Sprintf("  • %s\n",
				ValueStyle.Render(l.Name+"="+l.Value)))
		}
	}

	if len(data.Tests) > 0 {
		b.WriteString("\n")
		b.WriteString(TitleStyle.Render("Tests"))
		b.WriteString("\n")
		for _, tc := range data.Tests {
			b.WriteString(fmt.Sprintf("  %s %s (%dms)\n",
				StatusStyle(tc.Status).Render(fmt.Sprintf("%-8s", tc.Status)),
				ValueStyle.Render(tc.Name),
				tc.DurationMs))
		}
	}

	return BoxStyle.Render(b.String())
}

func (m InspectModel) renderInspectTest() string {
	data, ok := m.data.(*reader.TestDetail)
	if !ok {
		return "Invalid data type for inspect_test"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Test Details"))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Suite:"),
		ValueStyle.Render(data.Suite)))
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Name:"),
		ValueStyle.Render(data.Name)))
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Status:"),
		StatusStyle(data.Status).Render(data.Status)))
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Duration:"),
		ValueStyle.Render(fmt.Sprintf("%dms", data.DurationMs))))

	if data.Description != "" {
		b.WriteString(fmt.Sprintf("%s %s\n",
			LabelStyle.Render("Description:"),
			ValueStyle.Render(data.Description)))
	}

	if data.Message != "" {
		b.WriteString("\n")
		b.WriteString(TitleStyle.Render("Failure"))
		b.WriteString("\n")
		b.WriteString(ErrorStyle.Render(data.Message))
		b.WriteString("\n")
		if data.Trace != "" {
			b.WriteString(SkippedStyle.Render(data.Trace))
			b.WriteString("\n")
		}
	}

	if len(data.Labels) > 0 {
		b.WriteString("\n")
		b.WriteString(LabelStyle.Render("Labels:\n"))
		for _, l := range data.Labels {
			b.WriteString(fmt.Sprintf("  • %s\n",
				ValueStyle.Render(l.Name+"="+l.Value)))
		}
	}

	if len(data.Attachments) > 0 {
		b.WriteString("\n")
		b.WriteString(LabelStyle.Render("Attachments:\n"))
		for _, att := range data.Attachments {
			b.WriteString(fmt.Sprintf("  • %s (%s)\n",
				ValueStyle.Render(att.Title),
				att.MediaType))
		}
	}

	return BoxStyle.Render(b.String())
}

func (m InspectModel) renderInspectRun() string {
	data, ok := m.data.(*reader.RunReportView)
	if !ok {
		return "Invalid data type for inspect_run"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Run Report"))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Run ID:"),
		ValueStyle.Render(data.RunID)))
	if data.ParentRunID != "" {
		b.WriteString(fmt.Sprintf("%s %s\n",
			LabelStyle.Render("Parent Run:"),
			ValueStyle.Render(data.ParentRunID)))
	}
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Attempt:"),
		ValueStyle.Render(fmt.Sprintf("%d", data.Attempt))))
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Outcome:"),
		StatusStyle(data.Outcome).Render(data.Outcome)))
	if data.Message != "" {
		b.WriteString(fmt.Sprintf("%s %s\n",
			LabelStyle.Render("Message:"),
			ValueStyle.Render(data.Message)))
	}
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Exit Code:"),
		ValueStyle.Render(fmt.Sprintf("%d", data.ExitCode))))
	if data.Runner != "" {
		b.WriteString(fmt.Sprintf("%s %s\n",
			LabelStyle.Render("Runner:"),
			ValueStyle.Render(strings.TrimSpace(data.Runner+" "+data.RunnerVersion))))
	}
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Duration:"),
		ValueStyle.Render(fmt.Sprintf("%dms", data.DurationMs))))

	b.WriteString("\n")
	b.WriteString(TitleStyle.Render("Summary"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Tests:"),
		ValueStyle.Render(fmt.Sprintf("%d", data.Tests))))
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Passed:"),
		SuccessStyle.Render(fmt.Sprintf("%d", data.Passed))))
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Failures:"),
		ErrorStyle.Render(fmt.Sprintf("%d", data.Failures))))
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Errors:"),
		ErrorStyle.Render(fmt.Sprintf("%d", data.Errors))))
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Skipped:"),
		SkippedStyle.Render(fmt.Sprintf("%d", data.Skipped))))
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Suites Written:"),
		ValueStyle.Render(fmt.Sprintf("%d", data.SuitesWritten))))

	if len(data.Notifiers) > 0 {
		b.WriteString("\n")
		b.WriteString(TitleStyle.Render("Notifiers"))
		b.WriteString("\n")
		for _, n := range data.Notifiers {
			mark := SuccessStyle.Render("✓")
			detail := fmt.Sprintf("%dms", n.DurationMs)
			if !n.Delivered {
				mark = ErrorStyle.Render("✗")
				if n.Error != "" {
					detail = n.Error
				}
			}
			b.WriteString(fmt.Sprintf("  %s %s (%s)\n",
				mark, ValueStyle.Render(n.Name), detail))
		}
	}

	return BoxStyle.Render(b.String())
}

// keyMap defines key bindings.
type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// RunInspectTUI runs the inspect TUI.
func RunInspectTUI(viewType string, data any) error {
	model := NewInspectModel(viewType, data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderInspectStatic renders inspect data without full TUI (for fallback).
func RenderInspectStatic(viewType string, data any) string {
	model := NewInspectModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
