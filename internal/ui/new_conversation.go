package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"

	"github.com/saravenpi/parley/internal/roomid"
)

type userCheckedMsg struct {
	token    token
	receiver string
	exists   bool
	err      error
}

// NewConversationModel asks for the other party of a new conversation.
type NewConversationModel struct {
	app           *App
	token         token
	receiverInput textinput.Model
	checking      bool
	err           error
}

func NewNewConversationModel(app *App) NewConversationModel {
	receiverInput := textinput.New()
	receiverInput.Placeholder = "Username of the person to talk to"
	receiverInput.Focus()
	receiverInput.CharLimit = 64
	receiverInput.Width = 60

	return NewConversationModel{
		app:           app,
		token:         newToken(),
		receiverInput: receiverInput,
	}
}

func (m NewConversationModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m NewConversationModel) checkUserCmd(receiver string) tea.Cmd {
	a, tok := m.app, m.token
	return func() tea.Msg {
		ctx, cancel := a.context()
		defer cancel()
		exists, err := a.Backend.UserExists(ctx, receiver)
		return userCheckedMsg{token: tok, receiver: receiver, exists: exists, err: err}
	}
}

func (m NewConversationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.app.resize(msg)
		m.receiverInput.Width = msg.Width - 20
		return m, nil

	case userCheckedMsg:
		if msg.token != m.token {
			return m, nil
		}
		m.checking = false
		switch {
		case msg.err != nil:
			m.err = msg.err
			return m, nil
		case !msg.exists:
			m.err = fmt.Errorf("there is no user named %q", msg.receiver)
			return m, nil
		}
		return switchTo(m.app, NewRoomModel(m.app, roomid.Target{Receiver: msg.receiver}, backToRooms))

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "esc":
			return switchTo(m.app, NewRoomsModel(m.app))

		case "enter":
			if m.checking {
				return m, nil
			}
			receiver := strings.TrimSpace(m.receiverInput.Value())
			if _, _, err := roomid.Resolve(m.app.Identity, roomid.Target{Receiver: receiver}); err != nil {
				m.err = err
				return m, nil
			}
			if strings.Contains(receiver, ":") {
				m.err = errors.New("usernames cannot contain ':'")
				return m, nil
			}
			m.err = nil
			m.checking = true
			return m, m.checkUserCmd(receiver)
		}
	}

	var cmd tea.Cmd
	m.receiverInput, cmd = m.receiverInput.Update(msg)
	return m, cmd
}

func (m NewConversationModel) View() string {
	content := titleStyle.Render("New Conversation") + "\n\n"
	content += panelStyle.Render("> Talk to:\n" + m.receiverInput.View())

	if m.checking {
		content += "\n\n" + statusStyle.Render("Looking up user...")
	}
	if m.err != nil {
		text := "Error: " + m.err.Error()
		if errors.Is(m.err, roomid.ErrInvalidIdentity) {
			text = "Enter a username first."
		}
		content += "\n\n" + errorStyle.Render(text)
	}

	content += "\n\n" + helpStyle.Render("enter: open conversation • esc: back")
	return content
}
