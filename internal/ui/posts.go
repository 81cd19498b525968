package ui

import (
	"fmt"
	"strings"

	"github.com/aquilax/truncate"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/saravenpi/parley/internal/models"
)

type postItem struct {
	post models.Post
}

type postsFetchedMsg struct {
	token token
	posts []models.Post
	err   error
}

func (i postItem) Title() string {
	firstLine, _, _ := strings.Cut(strings.TrimSpace(i.post.Description), "\n")
	return truncate.Truncate(firstLine, previewLength, "...", truncate.PositionEnd)
}

func (i postItem) Description() string {
	when := "unknown"
	if t, ok := models.ParseTimestamp(i.post.CreatedAt); ok {
		when = formatTimeAgo(t)
	}
	return fmt.Sprintf("%s • %s", i.post.Author, when)
}

func (i postItem) FilterValue() string {
	return i.post.Description
}

// PostsModel lists bulletin board posts, everyone's or only the user's own.
type PostsModel struct {
	app      *App
	token    token
	mineOnly bool
	posts    []models.Post
	list     list.Model
	loading  bool
	err      error
	spinner  spinner.Model
}

func NewPostsModel(app *App) PostsModel {
	return PostsModel{
		app:     app,
		token:   newToken(),
		list:    newList([]list.Item{}, "Bulletin board"),
		loading: true,
		spinner: newSpinner(),
	}
}

func (m PostsModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetchPostsCmd())
}

func (m PostsModel) fetchPostsCmd() tea.Cmd {
	a, tok, mineOnly := m.app, m.token, m.mineOnly
	return func() tea.Msg {
		ctx, cancel := a.context()
		defer cancel()
		var posts []models.Post
		var err error
		if mineOnly {
			posts, err = a.Backend.PostsByAuthor(ctx, a.Identity)
		} else {
			posts, err = a.Backend.Posts(ctx)
		}
		return postsFetchedMsg{token: tok, posts: posts, err: err}
	}
}

func (m PostsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.app.resize(msg)
		m.list.SetWidth(msg.Width)
		m.list.SetHeight(msg.Height - 4)
		return m, nil

	case postsFetchedMsg:
		if msg.token != m.token {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			if isAuthError(msg.err) {
				return switchTo(m.app, NewLoginModel(m.app))
			}
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.posts = msg.posts
		items := make([]list.Item, len(m.posts))
		for i, post := range m.posts {
			items[i] = postItem{post: post}
		}
		m.list.SetItems(items)
		scope := "all posts"
		if m.mineOnly {
			scope = "my posts"
		}
		m.list.Title = fmt.Sprintf("Bulletin board - %s (%d)", scope, len(m.posts))
		return m, nil

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "esc":
			return switchTo(m.app, NewMenuModel(m.app))

		case "r":
			m.loading = true
			return m, tea.Batch(m.spinner.Tick, m.fetchPostsCmd())

		case "m":
			m.mineOnly = !m.mineOnly
			m.loading = true
			return m, tea.Batch(m.spinner.Tick, m.fetchPostsCmd())

		case "n":
			return switchTo(m.app, NewPostFormModel(m.app, nil))

		case "enter":
			if item, ok := m.list.SelectedItem().(postItem); ok && !m.loading {
				return switchTo(m.app, NewPostDetailModel(m.app, item.post.ID))
			}
			return m, nil
		}

		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m PostsModel) View() string {
	if m.loading {
		return fmt.Sprintf("\n  %s Loading posts...\n", m.spinner.View())
	}

	if m.err != nil {
		s := titleStyle.Render("Bulletin board") + "\n\n"
		s += errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n"
		s += helpStyle.Render("r: retry • esc: back • q: quit")
		return s
	}

	if len(m.posts) == 0 {
		s := titleStyle.Render("Bulletin board") + "\n\n"
		s += normalStyle.Render("  No posts yet. Press 'n' to write one.") + "\n"
		s += "\n" + helpStyle.Render("n: new post • m: mine/all • r: refresh • esc: back • q: quit")
		return s
	}

	s := m.list.View() + "\n"
	s += helpStyle.Render("↑↓/jk: navigate • enter: read • n: new post • m: mine/all • r: refresh • esc: back • q: quit")
	return s
}
