package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/saravenpi/parley/internal/models"
)

// Posts returns every bulletin board post.
func (c *Client) Posts(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	err := c.getJSON(ctx, "/api/posts", nil, &posts)
	return posts, err
}

// PostsByAuthor returns the posts written by username.
func (c *Client) PostsByAuthor(ctx context.Context, username string) ([]models.Post, error) {
	var posts []models.Post
	err := c.getJSON(ctx, "/api/posts/user/"+url.PathEscape(username), nil, &posts)
	return posts, err
}

func (c *Client) Post(ctx context.Context, id int64) (models.Post, error) {
	var post models.Post
	err := c.getJSON(ctx, "/api/posts/"+strconv.FormatInt(id, 10), nil, &post)
	return post, err
}

// CreatePost publishes a post as the current session's user.
func (c *Client) CreatePost(ctx context.Context, description string) (models.Post, error) {
	var post models.Post
	err := c.sendJSON(ctx, http.MethodPost, "/api/posts/create",
		struct {
			Description string `json:"description"`
		}{description}, &post)
	return post, err
}

// UpdatePost replaces a post's description. The backend takes the raw text
// as the request body.
func (c *Client) UpdatePost(ctx context.Context, id int64, description string) (models.Post, error) {
	var post models.Post
	path := "/api/posts/update/" + strconv.FormatInt(id, 10)
	data, err := c.do(ctx, http.MethodPut, path, nil, "text/plain; charset=utf-8",
		strings.NewReader(description))
	if err != nil {
		return post, err
	}
	err = decodeJSON(data, &post, path)
	return post, err
}

func (c *Client) DeletePost(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/posts/delete/"+strconv.FormatInt(id, 10), nil, "", nil)
	return err
}
