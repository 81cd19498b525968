package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"

	"github.com/saravenpi/parley/internal/backend"
	"github.com/saravenpi/parley/internal/session"
)

type sessionResolvedMsg struct {
	identity string
	err      error
	cause    error // what the backend reported, before mapping to ErrAuthRequired
}

// StartupModel shows a spinner while the session is looked up.
type StartupModel struct {
	app     *App
	spinner spinner.Model
}

func NewStartupModel(app *App) StartupModel {
	return StartupModel{app: app, spinner: newSpinner()}
}

func (m StartupModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, resolveSessionCmd(m.app))
}

func resolveSessionCmd(a *App) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := a.context()
		defer cancel()
		var cause error
		identity, err := session.Resolve(ctx, func(ctx context.Context) (string, error) {
			identity, err := a.Backend.Me(ctx)
			cause = err
			return identity, err
		})
		return sessionResolvedMsg{identity: identity, err: err, cause: cause}
	}
}

func (m StartupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.app.resize(msg)
		return m, nil

	case sessionResolvedMsg:
		if msg.err != nil {
			login := NewLoginModel(m.app)
			if msg.cause != nil && !errors.Is(msg.cause, backend.ErrAuthRequired) {
				login.err = msg.cause
			}
			return switchTo(m.app, login)
		}
		m.app.Identity = msg.identity
		return switchTo(m.app, NewMenuModel(m.app))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m StartupModel) View() string {
	return fmt.Sprintf("\n  %s Connecting to the chat server...\n", m.spinner.View())
}
