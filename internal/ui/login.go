package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"

	"github.com/saravenpi/parley/internal/backend"
	"github.com/saravenpi/parley/internal/session"
)

type loginDoneMsg struct {
	token    token
	identity string
	err      error
}

// LoginModel is the credential form shown whenever the session is missing.
type LoginModel struct {
	app        *App
	token      token
	inputs     []textinput.Model
	focusIndex int
	submitting bool
	status     string
	err        error
}

func newCredentialInputs(placeholders ...string) []textinput.Model {
	inputs := make([]textinput.Model, len(placeholders))
	for i, placeholder := range placeholders {
		inputs[i] = textinput.New()
		inputs[i].Placeholder = placeholder
		inputs[i].CharLimit = 64
		inputs[i].Width = 40
		if i > 0 {
			inputs[i].EchoMode = textinput.EchoPassword
			inputs[i].EchoCharacter = '•'
		}
	}
	inputs[0].Focus()
	return inputs
}

func NewLoginModel(app *App) LoginModel {
	return LoginModel{
		app:    app,
		token:  newToken(),
		inputs: newCredentialInputs("Username", "Password"),
	}
}

func (m LoginModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m LoginModel) loginCmd(username, password string) tea.Cmd {
	a, tok := m.app, m.token
	return func() tea.Msg {
		ctx, cancel := a.context()
		defer cancel()
		if err := a.Backend.Login(ctx, username, password); err != nil {
			return loginDoneMsg{token: tok, err: err}
		}
		identity, err := session.Resolve(ctx, a.Backend.Me)
		return loginDoneMsg{token: tok, identity: identity, err: err}
	}
}

func (m LoginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.app.resize(msg)
		for i := range m.inputs {
			m.inputs[i].Width = msg.Width - 20
		}
		return m, nil

	case loginDoneMsg:
		if msg.token != m.token {
			return m, nil
		}
		m.submitting = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.app.Identity = msg.identity
		return switchTo(m.app, NewMenuModel(m.app))

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "esc":
			return m, tea.Quit

		case "ctrl+r":
			return switchTo(m.app, NewRegisterModel(m.app))

		case "tab", "shift+tab", "up", "down":
			m.focusIndex = cycleFocus(m.inputs, m.focusIndex, msg.String())
			return m, nil

		case "enter":
			if m.submitting {
				return m, nil
			}
			username := strings.TrimSpace(m.inputs[0].Value())
			password := m.inputs[1].Value()
			if username == "" || password == "" {
				m.err = errors.New("username and password are required")
				return m, nil
			}
			m.err = nil
			m.status = ""
			m.submitting = true
			return m, m.loginCmd(username, password)
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focusIndex], cmd = m.inputs[m.focusIndex].Update(msg)
	return m, cmd
}

// cycleFocus moves the focus between inputs and returns the new index.
func cycleFocus(inputs []textinput.Model, index int, key string) int {
	if key == "shift+tab" || key == "up" {
		index = (index - 1 + len(inputs)) % len(inputs)
	} else {
		index = (index + 1) % len(inputs)
	}
	for i := range inputs {
		if i == index {
			inputs[i].Focus()
		} else {
			inputs[i].Blur()
		}
	}
	return index
}

func credentialError(err error) string {
	switch {
	case errors.Is(err, backend.ErrBadCredentials):
		return "Wrong username or password."
	case errors.Is(err, backend.ErrUserExists):
		return "That username is already taken."
	case errors.Is(err, backend.ErrNetwork):
		return "Cannot reach the chat server."
	}
	return "Error: " + err.Error()
}

func renderInputs(labels []string, inputs []textinput.Model, focusIndex int) string {
	var b strings.Builder
	for i, input := range inputs {
		label := normalStyle.Render("  " + labels[i])
		if i == focusIndex {
			label = selectedStyle.Render("> " + labels[i])
		}
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(label + "\n" + input.View())
	}
	return b.String()
}

func (m LoginModel) View() string {
	content := titleStyle.Render("Parley - Log in") + "\n\n"
	content += panelStyle.Render(renderInputs([]string{"Username:", "Password:"}, m.inputs, m.focusIndex))

	if m.submitting {
		content += "\n\n" + statusStyle.Render("Logging in...")
	}
	if m.status != "" {
		content += "\n\n" + statusStyle.Render(m.status)
	}
	if m.err != nil {
		content += "\n\n" + errorStyle.Render(credentialError(m.err))
	}

	content += "\n\n" + helpStyle.Render("tab: switch field • enter: log in • ctrl+r: create account • esc: quit")
	return content
}
