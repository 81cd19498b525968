package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"

	"github.com/saravenpi/parley/internal/models"
)

type postSavedMsg struct {
	token token
	post  models.Post
	err   error
}

// PostFormModel writes a new post, or edits an existing one.
type PostFormModel struct {
	app      *App
	token    token
	original *models.Post
	textarea textarea.Model
	saving   bool
	err      error
}

func NewPostFormModel(app *App, post *models.Post) PostFormModel {
	ta := textarea.New()
	ta.Placeholder = "What do you want to tell everyone?"
	ta.CharLimit = 4000
	ta.ShowLineNumbers = false
	ta.SetHeight(10)
	ta.Focus()

	if post != nil {
		ta.SetValue(post.Description)
	}

	return PostFormModel{
		app:      app,
		token:    newToken(),
		original: post,
		textarea: ta,
	}
}

func (m PostFormModel) Init() tea.Cmd {
	return textarea.Blink
}

func (m PostFormModel) savePostCmd(description string) tea.Cmd {
	a, tok, original := m.app, m.token, m.original
	return func() tea.Msg {
		ctx, cancel := a.context()
		defer cancel()
		var post models.Post
		var err error
		if original != nil {
			post, err = a.Backend.UpdatePost(ctx, original.ID, description)
		} else {
			post, err = a.Backend.CreatePost(ctx, description)
		}
		return postSavedMsg{token: tok, post: post, err: err}
	}
}

func (m PostFormModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.app.resize(msg)
		m.textarea.SetWidth(msg.Width - 4)
		m.textarea.SetHeight(max(msg.Height-10, 3))
		return m, nil

	case postSavedMsg:
		if msg.token != m.token {
			return m, nil
		}
		m.saving = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		if m.original != nil {
			return switchTo(m.app, NewPostDetailModel(m.app, m.original.ID))
		}
		return switchTo(m.app, NewPostsModel(m.app))

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "esc":
			if m.original != nil {
				return switchTo(m.app, NewPostDetailModel(m.app, m.original.ID))
			}
			return switchTo(m.app, NewPostsModel(m.app))

		case "ctrl+s":
			if m.saving {
				return m, nil
			}
			description := strings.TrimSpace(m.textarea.Value())
			if description == "" {
				m.err = errors.New("a post cannot be empty")
				return m, nil
			}
			m.err = nil
			m.saving = true
			return m, m.savePostCmd(description)
		}
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m PostFormModel) View() string {
	title := "New Post"
	if m.original != nil {
		title = "Edit Post"
	}

	s := titleStyle.Render(title) + "\n\n"
	s += m.textarea.View() + "\n"

	if m.saving {
		s += "\n" + statusStyle.Render("Saving...")
	}
	if m.err != nil {
		s += "\n" + errorStyle.Render("Error: "+m.err.Error())
	}

	s += "\n\n" + helpStyle.Render("ctrl+s: save • esc: cancel")
	return s
}
