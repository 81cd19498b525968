package backend

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/saravenpi/parley/internal/models"
)

// History returns the messages of a room in backend order.
func (c *Client) History(ctx context.Context, roomID string) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	err := c.getJSON(ctx, "/api/chat/historyByRoom", url.Values{"roomId": {roomID}}, &messages)
	return messages, err
}

// ChatRooms returns the rooms username takes part in.
func (c *Client) ChatRooms(ctx context.Context, username string) ([]models.ChatRoomSummary, error) {
	var rooms []models.ChatRoomSummary
	err := c.getJSON(ctx, "/api/chatrooms", url.Values{"username": {username}}, &rooms)
	return rooms, err
}

// MarkRead resets username's unread count for roomID.
func (c *Client) MarkRead(ctx context.Context, roomID, username string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/chatrooms/"+url.PathEscape(roomID)+"/read",
		url.Values{"username": {username}}, "", nil)
	return err
}

// Leave removes username from roomID.
func (c *Client) Leave(ctx context.Context, roomID, username string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/chatrooms/leave",
		url.Values{"roomId": {roomID}, "username": {username}}, "", nil)
	return err
}

// UploadFile uploads r as a multipart form file and returns where it is
// served from.
func (c *Client) UploadFile(ctx context.Context, name string, r io.Reader) (models.UploadResult, error) {
	var result models.UploadResult

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(name))
	if err != nil {
		return result, errors.Wrap(err, "failed to create form file")
	}
	if _, err := io.Copy(part, r); err != nil {
		return result, errors.Wrapf(err, "failed to read %s", name)
	}
	if err := mw.Close(); err != nil {
		return result, errors.Wrap(err, "failed to finish multipart body")
	}

	data, err := c.do(ctx, http.MethodPost, "/api/files/upload", nil, mw.FormDataContentType(), &buf)
	if err != nil {
		return result, err
	}
	if err := decodeJSON(data, &result, "/api/files/upload"); err != nil {
		return result, err
	}
	if result.FileURL == "" {
		return result, errors.Errorf("upload of %s returned no file url: %s", name, result.Message)
	}
	return result, nil
}
