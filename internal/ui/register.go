package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
)

type registerDoneMsg struct {
	token    token
	username string
	err      error
}

type RegisterModel struct {
	app        *App
	token      token
	inputs     []textinput.Model
	focusIndex int
	submitting bool
	err        error
}

func NewRegisterModel(app *App) RegisterModel {
	return RegisterModel{
		app:    app,
		token:  newToken(),
		inputs: newCredentialInputs("Username", "Password", "Repeat password"),
	}
}

func (m RegisterModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m RegisterModel) registerCmd(username, password string) tea.Cmd {
	a, tok := m.app, m.token
	return func() tea.Msg {
		ctx, cancel := a.context()
		defer cancel()
		err := a.Backend.Register(ctx, username, password)
		return registerDoneMsg{token: tok, username: username, err: err}
	}
}

func (m RegisterModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.app.resize(msg)
		for i := range m.inputs {
			m.inputs[i].Width = msg.Width - 20
		}
		return m, nil

	case registerDoneMsg:
		if msg.token != m.token {
			return m, nil
		}
		m.submitting = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		login := NewLoginModel(m.app)
		login.inputs[0].SetValue(msg.username)
		login.focusIndex = cycleFocus(login.inputs, 0, "tab")
		login.status = "Account created. Log in to continue."
		return switchTo(m.app, login)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "esc":
			return switchTo(m.app, NewLoginModel(m.app))

		case "tab", "shift+tab", "up", "down":
			m.focusIndex = cycleFocus(m.inputs, m.focusIndex, msg.String())
			return m, nil

		case "enter":
			if m.submitting {
				return m, nil
			}
			username := strings.TrimSpace(m.inputs[0].Value())
			password := m.inputs[1].Value()
			switch {
			case username == "" || password == "":
				m.err = errors.New("username and password are required")
				return m, nil
			case strings.Contains(username, ":"):
				m.err = errors.New("usernames cannot contain ':'")
				return m, nil
			case password != m.inputs[2].Value():
				m.err = errors.New("passwords do not match")
				return m, nil
			}
			m.err = nil
			m.submitting = true
			return m, m.registerCmd(username, password)
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focusIndex], cmd = m.inputs[m.focusIndex].Update(msg)
	return m, cmd
}

func (m RegisterModel) View() string {
	content := titleStyle.Render("Parley - Create account") + "\n\n"
	content += panelStyle.Render(renderInputs(
		[]string{"Username:", "Password:", "Repeat password:"}, m.inputs, m.focusIndex))

	if m.submitting {
		content += "\n\n" + statusStyle.Render("Creating account...")
	}
	if m.err != nil {
		content += "\n\n" + errorStyle.Render(credentialError(m.err))
	}

	content += "\n\n" + helpStyle.Render("tab: switch field • enter: create • esc: back to log in")
	return content
}
