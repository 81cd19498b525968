package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/pkg/errors"

	"github.com/saravenpi/parley/internal/models"
	"github.com/saravenpi/parley/internal/realtime"
	"github.com/saravenpi/parley/internal/roomid"
	"github.com/saravenpi/parley/internal/session"
	"github.com/saravenpi/parley/internal/state"
)

// backFunc builds the screen a room returns to.
type backFunc func(*App) tea.Model

func backToRooms(a *App) tea.Model { return NewRoomsModel(a) }

type cachedHistoryMsg struct {
	token    token
	messages []models.ChatMessage
}

type historyFetchedMsg struct {
	token    token
	messages []models.ChatMessage
	err      error
}

type messageSentMsg struct {
	token token
	err   error
}

type fileUploadedMsg struct {
	token  token
	result models.UploadResult
	err    error
}

type receiptFiredMsg struct {
	token  token
	reason session.Reason
	ok     bool
}

// RoomModel is one open conversation.
type RoomModel struct {
	app         *App
	token       token
	back        backFunc
	roomID      string
	counterpart string
	resolveErr  error

	manager   *realtime.Manager
	connected bool
	receipts  *session.Receipts

	messages      []models.ChatMessage
	historyLoaded bool
	viewport      viewport.Model
	textarea      textarea.Model
	fileInput     textinput.Model
	loading       bool
	sending       bool
	composing     bool
	attaching     bool
	err           error
	spinner       spinner.Model
}

// NewRoomModel opens the room named by target. When the target cannot be
// resolved the screen only shows the error.
func NewRoomModel(app *App, target roomid.Target, back backFunc) RoomModel {
	vp := viewport.New(80, 20)

	ta := textarea.New()
	ta.Placeholder = "Type your message..."
	ta.CharLimit = 1000
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	fi := textinput.New()
	fi.Placeholder = "Path of the file to send"
	fi.CharLimit = 1024
	fi.Width = 60

	m := RoomModel{
		app:       app,
		token:     newToken(),
		back:      back,
		viewport:  vp,
		textarea:  ta,
		fileInput: fi,
		spinner:   newSpinner(),
	}

	m.roomID, m.counterpart, m.resolveErr = roomid.Resolve(app.Identity, target)
	if m.resolveErr != nil {
		return m
	}
	m.loading = true
	m.manager = realtime.NewManager(app.Dialer, false)
	m.receipts = session.NewReceipts(app.Identity, m.roomID, app.Backend.MarkRead)
	return m
}

func (m RoomModel) Init() tea.Cmd {
	if m.resolveErr != nil {
		return nil
	}
	return tea.Batch(
		m.spinner.Tick,
		m.loadCachedCmd(),
		m.fetchHistoryCmd(),
		connectCmd(m.app, m.token, m.manager),
		m.receiptCmd(session.Enter),
	)
}

func (m RoomModel) loadCachedCmd() tea.Cmd {
	a, tok, roomID := m.app, m.token, m.roomID
	if a.Cache == nil {
		return nil
	}
	return func() tea.Msg {
		messages, err := a.Cache.History(a.Identity, roomID)
		if err != nil {
			logBackground("Reading cached history", err)
		}
		return cachedHistoryMsg{token: tok, messages: messages}
	}
}

// fetchHistoryCmd loads the room history and writes it back to the cache.
func (m RoomModel) fetchHistoryCmd() tea.Cmd {
	a, tok, roomID, identity := m.app, m.token, m.roomID, m.app.Identity
	return func() tea.Msg {
		ctx, cancel := a.context()
		defer cancel()
		messages, err := a.Backend.History(ctx, roomID)
		if err == nil && a.Cache != nil {
			if cerr := a.Cache.ReplaceHistory(identity, roomID, messages); cerr != nil {
				logBackground("Caching history", cerr)
			}
		}
		return historyFetchedMsg{token: tok, messages: messages, err: err}
	}
}

func (m RoomModel) cacheAppendCmd(msg models.ChatMessage) tea.Cmd {
	a, roomID, identity := m.app, m.roomID, m.app.Identity
	if a.Cache == nil {
		return nil
	}
	return func() tea.Msg {
		if err := a.Cache.Append(identity, roomID, msg); err != nil {
			logBackground("Caching message", err)
		}
		return nil
	}
}

func (m RoomModel) receiptCmd(reason session.Reason) tea.Cmd {
	a, tok, receipts := m.app, m.token, m.receipts
	if !receipts.Ready() {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := a.context()
		defer cancel()
		return receiptFiredMsg{token: tok, reason: reason, ok: receipts.Fire(ctx, reason)}
	}
}

func (m RoomModel) outgoing(content, fileURL string) models.ChatMessage {
	return models.ChatMessage{
		RoomID:    m.roomID,
		Sender:    m.app.Identity,
		Receiver:  m.counterpart,
		Content:   content,
		FileURL:   fileURL,
		Timestamp: models.NewTimestamp(time.Now()),
	}
}

func (m RoomModel) sendCmd(msg models.ChatMessage) tea.Cmd {
	tok, manager := m.token, m.manager
	return func() tea.Msg {
		return messageSentMsg{token: tok, err: manager.Send(msg)}
	}
}

func (m RoomModel) uploadCmd(path string) tea.Cmd {
	a, tok := m.app, m.token
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return fileUploadedMsg{token: tok, err: errors.Wrap(err, "cannot open file")}
		}
		defer f.Close()

		ctx, cancel := a.context()
		defer cancel()
		result, err := a.Backend.UploadFile(ctx, filepath.Base(path), f)
		return fileUploadedMsg{token: tok, result: result, err: err}
	}
}

// leave unmounts the room: one last read receipt, then the connection is
// closed in the background.
func (m RoomModel) leave() (tea.Model, tea.Cmd) {
	next, cmd := switchTo(m.app, m.back(m.app))
	return next, tea.Batch(m.closeCmd(), cmd)
}

// closeCmd fires the Leave receipt and then tears the connection down.
func (m RoomModel) closeCmd() tea.Cmd {
	receipt, manager := m.receiptCmd(session.Leave), m.manager
	if receipt == nil && manager == nil {
		return nil
	}
	return func() tea.Msg {
		var msg tea.Msg
		if receipt != nil {
			msg = receipt()
		}
		if manager != nil {
			manager.Teardown()
		}
		return msg
	}
}

func (m RoomModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.app.resize(msg)
		m.layout()
		m.updateViewportContent()
		return m, nil

	case tea.FocusMsg:
		return m, m.receiptCmd(session.Focus)

	case cachedHistoryMsg:
		if msg.token != m.token || m.historyLoaded || len(msg.messages) == 0 {
			return m, nil
		}
		m.messages = msg.messages
		m.updateViewportContent()
		m.viewport.GotoBottom()
		return m, nil

	case historyFetchedMsg:
		if msg.token != m.token {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			logBackground("History load for "+m.roomID, msg.err)
			if isAuthError(msg.err) {
				return m.leaveTo(NewLoginModel(m.app))
			}
			return m, nil
		}
		m.historyLoaded = true
		m.messages = msg.messages
		m.updateViewportContent()
		m.viewport.GotoBottom()
		return m, nil

	case realtimeConnectedMsg:
		if msg.token != m.token {
			return m, nil
		}
		if msg.err != nil {
			m.err = errors.Wrap(msg.err, "live updates unavailable")
			return m, nil
		}
		m.connected = true
		return m, tea.Batch(
			listenCmd(m.token, m.manager),
			subscribeRoomsCmd(m.token, m.manager, 1, []string{m.roomID}),
		)

	case roomsSubscribedMsg:
		if msg.token == m.token && msg.err != nil {
			m.err = errors.Wrap(msg.err, "live updates unavailable")
		}
		return m, nil

	case realtimeEventMsg:
		if msg.token != m.token {
			return m, nil
		}
		var cmd tea.Cmd
		if ev, ok := msg.event.(realtime.MessageEvent); ok && ev.RoomID == m.roomID {
			atBottom := m.viewport.AtBottom()
			m.messages = state.AppendMessage(m.messages, ev.Message)
			m.updateViewportContent()
			if atBottom {
				m.viewport.GotoBottom()
			}
			cmd = m.cacheAppendCmd(ev.Message)
		}
		return m, tea.Batch(cmd, listenCmd(m.token, m.manager))

	case realtimeClosedMsg:
		if msg.token == m.token {
			m.connected = false
		}
		return m, nil

	case messageSentMsg:
		if msg.token != m.token {
			return m, nil
		}
		m.sending = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.textarea.Reset()
		m.fileInput.Reset()
		return m, nil

	case fileUploadedMsg:
		if msg.token != m.token {
			return m, nil
		}
		if msg.err != nil {
			m.sending = false
			m.err = errors.Wrap(msg.err, "upload failed")
			return m, nil
		}
		return m, m.sendCmd(m.outgoing("", msg.result.FileURL))

	case receiptFiredMsg:
		return m, nil

	case spinner.TickMsg:
		if m.loading || m.sending {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Sequence(m.receiptCmd(session.Leave), tea.Quit)
		}

		if msg.String() == "esc" {
			if m.composing || m.attaching {
				m.composing = false
				m.attaching = false
				m.textarea.Blur()
				m.fileInput.Blur()
				m.err = nil
				m.layout()
				return m, nil
			}
			return m.leave()
		}

		if m.resolveErr != nil {
			return m, nil
		}

		if m.composing {
			switch msg.String() {
			case "ctrl+s":
				return m.submitText()
			default:
				var cmd tea.Cmd
				m.textarea, cmd = m.textarea.Update(msg)
				return m, cmd
			}
		}

		if m.attaching {
			switch msg.String() {
			case "enter":
				return m.submitFile()
			default:
				var cmd tea.Cmd
				m.fileInput, cmd = m.fileInput.Update(msg)
				return m, cmd
			}
		}

		if m.sending {
			return m, nil
		}

		switch msg.String() {
		case "q":
			return m, tea.Sequence(m.receiptCmd(session.Leave), tea.Quit)

		case "n", "c":
			m.composing = true
			m.err = nil
			m.layout()
			m.textarea.Focus()
			return m, textarea.Blink

		case "f":
			m.attaching = true
			m.err = nil
			m.layout()
			m.fileInput.Focus()
			return m, textinput.Blink

		case "r":
			m.loading = true
			return m, tea.Batch(m.spinner.Tick, m.fetchHistoryCmd())

		default:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	return m, nil
}

func (m RoomModel) leaveTo(next tea.Model) (tea.Model, tea.Cmd) {
	next, cmd := switchTo(m.app, next)
	return next, tea.Batch(teardownCmd(m.manager), cmd)
}

func (m RoomModel) submitText() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.textarea.Value())
	switch {
	case text == "":
		m.err = errors.New("message is empty")
		return m, nil
	case !m.connected:
		m.err = realtime.ErrNotConnected
		return m, nil
	}
	m.err = nil
	m.sending = true
	m.composing = false
	m.textarea.Blur()
	m.layout()
	return m, tea.Batch(m.spinner.Tick, m.sendCmd(m.outgoing(text, "")))
}

func (m RoomModel) submitFile() (tea.Model, tea.Cmd) {
	path := strings.TrimSpace(m.fileInput.Value())
	switch {
	case path == "":
		m.err = errors.New("no file chosen")
		return m, nil
	case !m.connected:
		m.err = realtime.ErrNotConnected
		return m, nil
	}
	m.err = nil
	m.sending = true
	m.attaching = false
	m.fileInput.Blur()
	m.layout()
	return m, tea.Batch(m.spinner.Tick, m.uploadCmd(path))
}

func (m *RoomModel) layout() {
	width, height := m.app.width, m.app.height
	if width == 0 {
		width, height = 80, 30
	}

	headerHeight := 4
	helpHeight := 2
	inputHeight := 0
	if m.composing {
		inputHeight = 6
	} else if m.attaching {
		inputHeight = 3
	}

	m.viewport.Width = width - 4
	m.viewport.Height = max(height-headerHeight-helpHeight-inputHeight, 3)
	m.textarea.SetWidth(width - 4)
	m.fileInput.Width = width - 10
}

func (m *RoomModel) updateViewportContent() {
	if len(m.messages) == 0 {
		m.viewport.SetContent("")
		return
	}

	var content strings.Builder
	wrapWidth := m.viewport.Width
	if wrapWidth <= 0 {
		wrapWidth = 80
	}
	right := lipgloss.NewStyle().Align(lipgloss.Right).Width(wrapWidth)

	for i, message := range m.messages {
		if i > 0 {
			content.WriteString("\n")
		}

		timestamp := ""
		if t := message.Time(); !t.IsZero() {
			timestamp = " • " + t.Local().Format("3:04 PM")
		}

		fromMe := message.Sender == m.app.Identity
		sender := message.Sender
		if fromMe {
			sender = "You"
		}
		header := messageHeaderStyle.Render(sender + timestamp)

		var lines []string
		if message.Content != "" {
			wrapped := wordwrap.String(message.Content, wrapWidth-10)
			if fromMe {
				lines = append(lines, messageFromMeStyle.Render(wrapped))
			} else {
				lines = append(lines, messageFromOtherStyle.Render(wrapped))
			}
		}
		if message.FileURL != "" {
			lines = append(lines, messageHeaderStyle.Render(fmt.Sprintf("📎 [File: %s]", message.FileURL)))
		}

		if fromMe {
			content.WriteString(right.Render(header) + "\n")
			for _, line := range lines {
				content.WriteString(right.Render(line) + "\n")
			}
		} else {
			content.WriteString(header + "\n")
			for _, line := range lines {
				content.WriteString(line + "\n")
			}
		}
	}

	m.viewport.SetContent(content.String())
}

func (m RoomModel) View() string {
	if m.resolveErr != nil {
		s := titleStyle.Render("Conversation") + "\n\n"
		s += errorStyle.Render("Cannot open this conversation: "+m.resolveErr.Error()) + "\n\n"
		s += helpStyle.Render("esc: back")
		return s
	}

	if m.loading && len(m.messages) == 0 {
		return fmt.Sprintf("\n  %s Loading messages...\n", m.spinner.View())
	}

	title := fmt.Sprintf("💬 %s", roomid.DisplayName(m.roomID, m.app.Identity))
	if !m.connected {
		title += helpStyle.Render("  (offline)")
	}
	s := titleStyle.Render(title) + "\n"

	if m.err != nil {
		s += errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n"
	}

	if m.sending {
		s += fmt.Sprintf("  %s Sending...\n", m.spinner.View())
	} else if len(m.messages) == 0 {
		s += normalStyle.Render("  No messages yet. Say hello!") + "\n"
	} else {
		s += m.viewport.View() + "\n"
	}

	switch {
	case m.composing:
		s += "\n" + inputStyle.Render("New Message:") + "\n"
		s += m.textarea.View() + "\n"
		s += helpStyle.Render("ctrl+s: send • esc: cancel")
	case m.attaching:
		s += "\n" + inputStyle.Render("Send File:") + "\n"
		s += m.fileInput.View() + "\n"
		s += helpStyle.Render("enter: upload and send • esc: cancel")
	default:
		scrollPercent := int(m.viewport.ScrollPercent() * 100)
		s += "\n" + helpStyle.Render(fmt.Sprintf(
			"↑↓/jk: scroll • n: new message • f: send file • r: reload • esc: back • q: quit • %d%%", scrollPercent))
	}

	return s
}
