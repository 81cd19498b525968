package ui

import (
	"fmt"
	"strings"

	"github.com/aquilax/truncate"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	jww "github.com/spf13/jwalterweatherman"

	"github.com/saravenpi/parley/internal/models"
	"github.com/saravenpi/parley/internal/realtime"
	"github.com/saravenpi/parley/internal/roomid"
	"github.com/saravenpi/parley/internal/session"
	"github.com/saravenpi/parley/internal/state"
)

const previewLength = 50

type roomItem struct {
	room     models.ChatRoomSummary
	identity string
}

type roomsFetchedMsg struct {
	token token
	rooms []models.ChatRoomSummary
	err   error
}

type roomMarkedReadMsg struct {
	token  token
	roomID string
	ok     bool
}

type roomLeftMsg struct {
	token  token
	roomID string
	err    error
}

func roomName(room models.ChatRoomSummary, identity string) string {
	if room.DisplayName != "" {
		return room.DisplayName
	}
	return roomid.DisplayName(room.RoomID, identity)
}

func (i roomItem) Title() string {
	name := roomName(i.room, i.identity)
	if i.room.UnreadCount > 0 {
		name += " " + unreadBadgeStyle.Render(fmt.Sprint(i.room.UnreadCount))
	}
	return name
}

func (i roomItem) Description() string {
	timeAgo := "no messages yet"
	if t, ok := models.ParseTimestamp(i.room.LastMessageTime); ok {
		timeAgo = formatTimeAgo(t)
	}
	preview := truncate.Truncate(i.room.LastMessage, previewLength, "...", truncate.PositionEnd)
	if preview == "" {
		return timeAgo
	}
	return fmt.Sprintf("%s • %s", timeAgo, preview)
}

func (i roomItem) FilterValue() string {
	return roomName(i.room, i.identity)
}

// RoomsModel is the room list. It owns one realtime connection that keeps
// unread counts, last messages and notifications current.
type RoomsModel struct {
	app           *App
	token         token
	manager       *realtime.Manager
	connected     bool
	rooms         []models.ChatRoomSummary
	roomsVersion  uint64 // bumped on every fetched room list
	notifications state.NotificationGroups
	list          list.Model
	loading       bool
	refreshing    bool
	err           error
	spinner       spinner.Model
	confirmLeave  *models.ChatRoomSummary
}

func NewRoomsModel(app *App) RoomsModel {
	return RoomsModel{
		app:     app,
		token:   newToken(),
		manager: realtime.NewManager(app.Dialer, true),
		list:    newList([]list.Item{}, "Chat rooms"),
		loading: true,
		spinner: newSpinner(),
	}
}

func (m RoomsModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetchRoomsCmd(), connectCmd(m.app, m.token, m.manager))
}

func (m RoomsModel) fetchRoomsCmd() tea.Cmd {
	a, tok, identity := m.app, m.token, m.app.Identity
	return func() tea.Msg {
		ctx, cancel := a.context()
		defer cancel()
		rooms, err := a.Backend.ChatRooms(ctx, identity)
		return roomsFetchedMsg{token: tok, rooms: rooms, err: err}
	}
}

func (m RoomsModel) leaveRoomCmd(roomID string) tea.Cmd {
	a, tok, identity := m.app, m.token, m.app.Identity
	return func() tea.Msg {
		ctx, cancel := a.context()
		defer cancel()
		return roomLeftMsg{token: tok, roomID: roomID, err: a.Backend.Leave(ctx, roomID, identity)}
	}
}

func (m RoomsModel) markReadCmd(roomID string) tea.Cmd {
	a, tok := m.app, m.token
	receipts := session.NewReceipts(a.Identity, roomID, a.Backend.MarkRead)
	return func() tea.Msg {
		ctx, cancel := a.context()
		defer cancel()
		return roomMarkedReadMsg{token: tok, roomID: roomID, ok: receipts.Fire(ctx, session.Manual)}
	}
}

// subscribeCmd refreshes the room topics from the current room list.
func (m RoomsModel) subscribeCmd() tea.Cmd {
	if !m.connected {
		return nil
	}
	ids := make([]string, 0, len(m.rooms))
	for _, r := range m.rooms {
		ids = append(ids, r.RoomID)
	}
	return subscribeRoomsCmd(m.token, m.manager, m.roomsVersion, ids)
}

func (m *RoomsModel) setRooms(rooms []models.ChatRoomSummary) {
	m.rooms = rooms
	items := make([]list.Item, len(rooms))
	for i, room := range rooms {
		items[i] = roomItem{room: room, identity: m.app.Identity}
	}
	m.list.SetItems(items)
	m.list.Title = fmt.Sprintf("Chat rooms - %d rooms, %d unread", len(rooms), state.TotalUnread(rooms))
}

// leave unmounts the screen: the realtime connection is closed in the
// background and late results are dropped by token.
func (m RoomsModel) leave(next tea.Model) (tea.Model, tea.Cmd) {
	next, cmd := switchTo(m.app, next)
	return next, tea.Batch(teardownCmd(m.manager), cmd)
}

func (m RoomsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.app.resize(msg)
		m.list.SetWidth(msg.Width)
		m.list.SetHeight(msg.Height - 4 - m.notificationHeight())
		return m, nil

	case roomsFetchedMsg:
		if msg.token != m.token {
			return m, nil
		}
		wasLoading := m.loading
		m.loading = false
		m.refreshing = false
		if msg.err != nil {
			if wasLoading {
				m.err = msg.err
			} else {
				logBackground("Room list refresh", msg.err)
			}
			if isAuthError(msg.err) {
				return m.leave(NewLoginModel(m.app))
			}
			return m, nil
		}
		m.err = nil
		m.roomsVersion++
		m.setRooms(msg.rooms)
		return m, m.subscribeCmd()

	case realtimeConnectedMsg:
		if msg.token != m.token {
			return m, nil
		}
		if msg.err != nil {
			logBackground("Realtime connect", msg.err)
			return m, nil
		}
		m.connected = true
		return m, tea.Batch(listenCmd(m.token, m.manager), m.subscribeCmd())

	case roomsSubscribedMsg:
		if msg.token == m.token && msg.err != nil {
			logBackground("Room topic subscription", msg.err)
		}
		return m, nil

	case realtimeEventMsg:
		if msg.token != m.token {
			return m, nil
		}
		var cmd tea.Cmd
		m, cmd = m.applyEvent(msg.event)
		return m, tea.Batch(cmd, listenCmd(m.token, m.manager))

	case realtimeClosedMsg:
		if msg.token == m.token {
			m.connected = false
		}
		return m, nil

	case roomMarkedReadMsg:
		if msg.token == m.token && msg.ok {
			m.setRooms(state.MarkRoomRead(m.rooms, msg.roomID))
		}
		return m, nil

	case roomLeftMsg:
		if msg.token != m.token {
			return m, nil
		}
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.refreshing = true
		return m, m.fetchRoomsCmd()

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.confirmLeave != nil {
			switch msg.String() {
			case "y", "Y":
				roomID := m.confirmLeave.RoomID
				m.confirmLeave = nil
				return m, m.leaveRoomCmd(roomID)
			case "n", "N", "esc":
				m.confirmLeave = nil
			}
			return m, nil
		}

		switch msg.String() {
		case "q":
			return m, tea.Quit

		case "esc":
			return m.leave(NewMenuModel(m.app))

		case "r":
			if !m.loading {
				m.refreshing = true
				return m, m.fetchRoomsCmd()
			}
			return m, nil

		case "n":
			return m.leave(NewNewConversationModel(m.app))

		case "c":
			m.notifications = state.ClearAllNotifications(m.notifications)
			return m, nil

		case "a":
			if item, ok := m.list.SelectedItem().(roomItem); ok && item.room.UnreadCount > 0 {
				return m, m.markReadCmd(item.room.RoomID)
			}
			return m, nil

		case "x", "delete":
			if item, ok := m.list.SelectedItem().(roomItem); ok {
				room := item.room
				m.confirmLeave = &room
			}
			return m, nil

		case "enter":
			if item, ok := m.list.SelectedItem().(roomItem); ok && !m.loading {
				return m.leave(NewRoomModel(m.app, roomid.Target{RoomID: item.room.RoomID}, backToRooms))
			}
			return m, nil
		}

		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	return m, nil
}

// applyEvent folds one realtime event into the room list and notifications.
func (m RoomsModel) applyEvent(ev realtime.Event) (RoomsModel, tea.Cmd) {
	switch ev := ev.(type) {
	case realtime.UnreadEvent:
		if !state.HasRoom(m.rooms, ev.Update.RoomID) {
			// A room we do not list yet; the backend's list includes it now.
			jww.DEBUG.Printf("Unread update for unknown room %s, refreshing", ev.Update.RoomID)
			if m.refreshing {
				return m, nil
			}
			m.refreshing = true
			return m, m.fetchRoomsCmd()
		}
		m.setRooms(state.ApplyUnreadUpdate(m.rooms, ev.Update))

	case realtime.MessageEvent:
		m.setRooms(state.ApplyRoomMessage(m.rooms, ev.Message))

	case realtime.NotificationEvent:
		m.notifications = state.ApplyNotification(m.notifications, ev.Notification)
	}
	return m, nil
}

func (m RoomsModel) notificationHeight() int {
	if m.notifications.Len() == 0 {
		return 0
	}
	return min(m.notifications.Len(), 5) + 2
}

func (m RoomsModel) notificationsView() string {
	if m.notifications.Len() == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(notificationStyle.Render(fmt.Sprintf("🔔 %d new messages", m.notifications.Total())) + "\n")
	for i, sender := range m.notifications.Senders() {
		if i == 5 {
			b.WriteString(helpStyle.Render(fmt.Sprintf("  …and %d more senders", m.notifications.Len()-5)) + "\n")
			break
		}
		notifs := m.notifications.For(sender)
		latest := truncate.Truncate(notifs[0].ContentSnippet, previewLength, "...", truncate.PositionEnd)
		b.WriteString(fmt.Sprintf("  %s (%d): %s\n", sender, len(notifs), latest))
	}
	return b.String()
}

func (m RoomsModel) View() string {
	if m.confirmLeave != nil {
		name := roomName(*m.confirmLeave, m.app.Identity)
		s := titleStyle.Render("Leave Room") + "\n\n"
		s += normalStyle.Render(fmt.Sprintf("Leave the conversation with '%s'?", name)) + "\n\n"
		s += helpStyle.Render("y: leave • n/esc: cancel")
		return s
	}

	if m.loading {
		return fmt.Sprintf("\n  %s Loading chat rooms...\n", m.spinner.View())
	}

	if m.err != nil {
		s := titleStyle.Render("Chat rooms") + "\n\n"
		s += errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n"
		s += helpStyle.Render("r: retry • esc: back • q: quit")
		return s
	}

	s := ""
	if len(m.rooms) == 0 {
		s += titleStyle.Render("Chat rooms") + "\n\n"
		s += normalStyle.Render("  No conversations yet. Press 'n' to start one.") + "\n\n"
	} else {
		s += m.list.View() + "\n"
	}

	s += m.notificationsView()

	help := fmt.Sprintf("↑↓/jk: navigate • enter: open • n: new room • a: mark read • x: leave • r: refresh • esc: back • q: quit • %s",
		m.manager.State())
	if m.notifications.Len() > 0 {
		help = "c: clear notifications • " + help
	}
	s += helpStyle.Render(help)
	return s
}
