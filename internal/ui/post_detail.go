package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"

	"github.com/saravenpi/parley/internal/models"
	"github.com/saravenpi/parley/internal/roomid"
)

type postFetchedMsg struct {
	token token
	post  models.Post
	err   error
}

type postDeletedMsg struct {
	token token
	err   error
}

// PostDetailModel shows one post. Other people's posts can be answered with
// a private conversation; one's own posts can be edited or deleted.
type PostDetailModel struct {
	app           *App
	token         token
	postID        int64
	post          models.Post
	viewport      viewport.Model
	loading       bool
	confirmDelete bool
	err           error
	spinner       spinner.Model
}

func NewPostDetailModel(app *App, postID int64) PostDetailModel {
	return PostDetailModel{
		app:      app,
		token:    newToken(),
		postID:   postID,
		viewport: viewport.New(80, 20),
		loading:  true,
		spinner:  newSpinner(),
	}
}

func (m PostDetailModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetchPostCmd())
}

func (m PostDetailModel) fetchPostCmd() tea.Cmd {
	a, tok, id := m.app, m.token, m.postID
	return func() tea.Msg {
		ctx, cancel := a.context()
		defer cancel()
		post, err := a.Backend.Post(ctx, id)
		return postFetchedMsg{token: tok, post: post, err: err}
	}
}

func (m PostDetailModel) deletePostCmd() tea.Cmd {
	a, tok, id := m.app, m.token, m.postID
	return func() tea.Msg {
		ctx, cancel := a.context()
		defer cancel()
		return postDeletedMsg{token: tok, err: a.Backend.DeletePost(ctx, id)}
	}
}

func (m PostDetailModel) isMine() bool {
	return !m.loading && m.post.Author == m.app.Identity
}

// backToPost returns to this post after a conversation about it.
func backToPost(id int64) backFunc {
	return func(a *App) tea.Model { return NewPostDetailModel(a, id) }
}

func (m PostDetailModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.app.resize(msg)
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = msg.Height - 8
		m.updateViewportContent()
		return m, nil

	case postFetchedMsg:
		if msg.token != m.token {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.post = msg.post
		m.updateViewportContent()
		return m, nil

	case postDeletedMsg:
		if msg.token != m.token {
			return m, nil
		}
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		return switchTo(m.app, NewPostsModel(m.app))

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

		if m.confirmDelete {
			switch msg.String() {
			case "y", "Y":
				m.confirmDelete = false
				return m, m.deletePostCmd()
			case "n", "N", "esc":
				m.confirmDelete = false
			}
			return m, nil
		}

		switch msg.String() {
		case "q":
			return m, tea.Quit

		case "esc":
			return switchTo(m.app, NewPostsModel(m.app))

		case "i":
			if !m.loading && m.err == nil && !m.isMine() {
				target := roomid.Target{Receiver: m.post.Author}
				return switchTo(m.app, NewRoomModel(m.app, target, backToPost(m.postID)))
			}
			return m, nil

		case "e":
			if m.isMine() {
				post := m.post
				return switchTo(m.app, NewPostFormModel(m.app, &post))
			}
			return m, nil

		case "d":
			if m.isMine() {
				m.confirmDelete = true
			}
			return m, nil
		}

		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *PostDetailModel) updateViewportContent() {
	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}
	m.viewport.SetContent(normalStyle.Render(wordwrap.String(m.post.Description, width-2)))
}

func (m PostDetailModel) View() string {
	if m.confirmDelete {
		s := titleStyle.Render("Delete Post") + "\n\n"
		s += normalStyle.Render("Are you sure you want to delete this post?") + "\n\n"
		s += errorStyle.Render("This action cannot be undone.") + "\n\n"
		s += helpStyle.Render("y: confirm delete • n/esc: cancel")
		return s
	}

	if m.loading {
		return fmt.Sprintf("\n  %s Loading post...\n", m.spinner.View())
	}

	if m.err != nil && m.post.ID == 0 {
		s := titleStyle.Render("Post") + "\n\n"
		s += errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n"
		s += helpStyle.Render("esc: back • q: quit")
		return s
	}

	when := m.post.CreatedAt
	if t, ok := models.ParseTimestamp(m.post.CreatedAt); ok {
		when = t.Local().Format("Jan 2, 2006 3:04 PM")
	}

	s := titleStyle.Render(fmt.Sprintf("📋 Post by %s", m.post.Author)) + "\n"
	s += messageHeaderStyle.Render(when) + "\n\n"
	s += m.viewport.View() + "\n"

	if m.err != nil {
		s += errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n"
	}

	help := "↑↓/jk: scroll • i: message the author • esc: back • q: quit"
	if m.isMine() {
		help = "↑↓/jk: scroll • e: edit • d: delete • esc: back • q: quit"
	}
	s += "\n" + helpStyle.Render(help)
	return s
}
