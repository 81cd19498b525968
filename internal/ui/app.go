package ui

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"

	"github.com/saravenpi/parley/internal/backend"
	"github.com/saravenpi/parley/internal/cache"
	"github.com/saravenpi/parley/internal/logging"
	"github.com/saravenpi/parley/internal/models"
	"github.com/saravenpi/parley/internal/realtime"
)

// Backend is the part of the backend client the screens use.
type Backend interface {
	Me(ctx context.Context) (string, error)
	Login(ctx context.Context, username, password string) error
	Register(ctx context.Context, username, password string) error
	Logout(ctx context.Context) error
	UserExists(ctx context.Context, username string) (bool, error)

	History(ctx context.Context, roomID string) ([]models.ChatMessage, error)
	ChatRooms(ctx context.Context, username string) ([]models.ChatRoomSummary, error)
	MarkRead(ctx context.Context, roomID, username string) error
	Leave(ctx context.Context, roomID, username string) error
	UploadFile(ctx context.Context, name string, r io.Reader) (models.UploadResult, error)

	Posts(ctx context.Context) ([]models.Post, error)
	PostsByAuthor(ctx context.Context, username string) ([]models.Post, error)
	Post(ctx context.Context, id int64) (models.Post, error)
	CreatePost(ctx context.Context, description string) (models.Post, error)
	UpdatePost(ctx context.Context, id int64, description string) (models.Post, error)
	DeletePost(ctx context.Context, id int64) error
}

// App holds what every screen shares. It is only touched from the UI loop.
type App struct {
	Backend Backend
	Dialer  realtime.Dialer
	Cache   *cache.Cache  // nil disables the history cache
	Logs    *logging.Tail // nil hides the log screen's content
	Timeout time.Duration

	Identity string

	width  int
	height int
}

// NewRootModel is the first screen: it resolves the session and moves on to
// the menu or the login form.
func NewRootModel(app *App) tea.Model {
	return NewStartupModel(app)
}

func (a *App) context() (context.Context, context.CancelFunc) {
	if a.Timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), a.Timeout)
}

func (a *App) resize(msg tea.WindowSizeMsg) {
	a.width = msg.Width
	a.height = msg.Height
}

// switchTo mounts next with the last known window size.
func switchTo(a *App, next tea.Model) (tea.Model, tea.Cmd) {
	var sizeCmd tea.Cmd
	if a.width > 0 {
		next, sizeCmd = next.Update(tea.WindowSizeMsg{Width: a.width, Height: a.height})
	}
	return next, tea.Batch(next.Init(), sizeCmd)
}

// token identifies one mount of a screen. Async results carry the token of
// the screen that started them and are dropped by any other screen.
type token uuid.UUID

func newToken() token { return token(uuid.New()) }

type realtimeEventMsg struct {
	token token
	event realtime.Event
}

type realtimeClosedMsg struct {
	token token
}

type realtimeConnectedMsg struct {
	token token
	err   error
}

type roomsSubscribedMsg struct {
	token token
	err   error
}

func connectCmd(a *App, tok token, m *realtime.Manager) tea.Cmd {
	identity := a.Identity
	return func() tea.Msg {
		ctx, cancel := a.context()
		defer cancel()
		return realtimeConnectedMsg{token: tok, err: m.Connect(ctx, identity)}
	}
}

// listenCmd waits for the next realtime event of m.
func listenCmd(tok token, m *realtime.Manager) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.Events()
		if !ok {
			return realtimeClosedMsg{token: tok}
		}
		return realtimeEventMsg{token: tok, event: ev}
	}
}

// subscribeRoomsCmd applies one version of the room set. Commands run
// concurrently, so the manager drops any version older than one it applied.
func subscribeRoomsCmd(tok token, m *realtime.Manager, version uint64, roomIDs []string) tea.Cmd {
	return func() tea.Msg {
		return roomsSubscribedMsg{token: tok, err: m.SubscribeRooms(version, roomIDs)}
	}
}

func teardownCmd(m *realtime.Manager) tea.Cmd {
	if m == nil {
		return nil
	}
	return func() tea.Msg {
		m.Teardown()
		return nil
	}
}

func newSpinner() spinner.Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle
	return s
}

func newList(items []list.Item, title string) list.Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.Color("5")).
		Bold(true)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(lipgloss.Color("8"))

	l := list.New(items, delegate, 80, 20)
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	return l
}

func formatTimeAgo(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}

	duration := time.Since(t)

	if duration < time.Minute {
		return "just now"
	}
	if duration < 2*time.Minute {
		return "1 min ago"
	}
	if duration < time.Hour {
		return fmt.Sprintf("%dm ago", int(duration.Minutes()))
	}
	if duration < 2*time.Hour {
		return "1h ago"
	}
	if duration < 24*time.Hour {
		return fmt.Sprintf("%dh ago", int(duration.Hours()))
	}
	if duration < 48*time.Hour {
		return "yesterday"
	}
	if duration < 7*24*time.Hour {
		return fmt.Sprintf("%dd ago", int(duration.Hours()/24))
	}
	return t.Format("Jan 2")
}

func isAuthError(err error) bool {
	return errors.Is(err, backend.ErrAuthRequired)
}

// logBackground records the failure of work the user did not ask for.
func logBackground(what string, err error) {
	jww.WARN.Printf("%s failed: %+v", what, err)
}
