package ui

import (
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

type menuItem struct {
	title string
	desc  string
	open  func(*App) tea.Model
}

func (i menuItem) FilterValue() string { return i.title }
func (i menuItem) Title() string       { return i.title }
func (i menuItem) Description() string { return i.desc }

type loggedOutMsg struct {
	token token
}

type MenuModel struct {
	app   *App
	token token
	list  list.Model
}

// NewMenuModel creates the main menu shown once logged in.
func NewMenuModel(app *App) MenuModel {
	items := []list.Item{
		menuItem{title: "💬 Chat rooms", desc: "Your conversations and notifications",
			open: func(a *App) tea.Model { return NewRoomsModel(a) }},
		menuItem{title: "📋 Bulletin board", desc: "Read and write posts",
			open: func(a *App) tea.Model { return NewPostsModel(a) }},
		menuItem{title: "📜 Logs", desc: "Recent client log output",
			open: func(a *App) tea.Model { return NewLogsModel(a) }},
		menuItem{title: "🚪 Log out", desc: "End this session"},
	}

	l := newList(items, "Parley - logged in as "+app.Identity)
	l.SetHeight(14)

	return MenuModel{app: app, token: newToken(), list: l}
}

func (m MenuModel) Init() tea.Cmd {
	return nil
}

func (m MenuModel) logoutCmd() tea.Cmd {
	a, tok, identity := m.app, m.token, m.app.Identity
	return func() tea.Msg {
		ctx, cancel := a.context()
		defer cancel()
		if err := a.Backend.Logout(ctx); err != nil {
			logBackground("Logout", err)
		}
		if a.Cache != nil {
			if err := a.Cache.Forget(identity); err != nil {
				logBackground("Clearing cached history", err)
			}
		}
		return loggedOutMsg{token: tok}
	}
}

func (m MenuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.app.resize(msg)
		m.list.SetWidth(msg.Width)
		m.list.SetHeight(msg.Height - 4)
		return m, nil

	case loggedOutMsg:
		if msg.token != m.token {
			return m, nil
		}
		m.app.Identity = ""
		return switchTo(m.app, NewLoginModel(m.app))

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}

		if msg.String() == "enter" {
			selectedItem, ok := m.list.SelectedItem().(menuItem)
			if !ok {
				return m, nil
			}
			if selectedItem.open == nil {
				return m, m.logoutCmd()
			}
			return switchTo(m.app, selectedItem.open(m.app))
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m MenuModel) View() string {
	s := m.list.View() + "\n"
	s += helpStyle.Render("↑↓/jk: navigate • enter: select • q: quit")
	return s
}
