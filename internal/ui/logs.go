package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"
)

// LogsModel shows the tail of the client log.
type LogsModel struct {
	app      *App
	viewport viewport.Model
}

func NewLogsModel(app *App) LogsModel {
	m := LogsModel{app: app, viewport: viewport.New(80, 20)}
	m.refresh()
	return m
}

func (m LogsModel) Init() tea.Cmd {
	return nil
}

func (m *LogsModel) refresh() {
	if m.app.Logs == nil {
		m.viewport.SetContent(helpStyle.Render("Logging to the screen is disabled."))
		return
	}
	lines := m.app.Logs.Lines(0)
	if len(lines) == 0 {
		m.viewport.SetContent(helpStyle.Render("Nothing logged yet."))
		return
	}
	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}
	m.viewport.SetContent(wordwrap.String(strings.Join(lines, "\n"), width))
	m.viewport.GotoBottom()
}

func (m LogsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.app.resize(msg)
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = msg.Height - 5
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "esc":
			return switchTo(m.app, NewMenuModel(m.app))
		case "r":
			m.refresh()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m LogsModel) View() string {
	s := titleStyle.Render("📜 Logs") + "\n"
	s += m.viewport.View() + "\n"
	s += helpStyle.Render("↑↓/jk: scroll • r: refresh • esc: back • q: quit")
	return s
}
