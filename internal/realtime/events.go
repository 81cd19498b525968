package realtime

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/saravenpi/parley/internal/models"
)

// ErrDecode marks a frame whose payload could not be turned into an event.
var ErrDecode = errors.New("malformed realtime frame")

// Event is one decoded inbound frame.
type Event interface {
	isEvent()
}

// MessageEvent is a chat message published on a room topic.
type MessageEvent struct {
	RoomID  string
	Message models.ChatMessage
}

// UnreadEvent is a new unread count for one of the identity's rooms.
type UnreadEvent struct {
	Update models.UnreadCountUpdate
}

// NotificationEvent announces a message in a room that is not open.
type NotificationEvent struct {
	Notification models.Notification
}

func (MessageEvent) isEvent()      {}
func (UnreadEvent) isEvent()       {}
func (NotificationEvent) isEvent() {}

// Decode turns the payload received on destination into an event.
func Decode(destination string, body []byte) (Event, error) {
	switch {
	case strings.HasPrefix(destination, chatTopicPrefix):
		roomID := strings.TrimPrefix(destination, chatTopicPrefix)
		var msg models.ChatMessage
		if err := unmarshal(destination, body, &msg); err != nil {
			return nil, err
		}
		if msg.RoomID == "" {
			msg.RoomID = roomID
		}
		return MessageEvent{RoomID: roomID, Message: msg}, nil

	case strings.HasPrefix(destination, unreadTopicPrefix):
		var update models.UnreadCountUpdate
		if err := unmarshal(destination, body, &update); err != nil {
			return nil, err
		}
		if update.RoomID == "" {
			return nil, errors.Wrapf(ErrDecode, "%s: missing roomId", destination)
		}
		return UnreadEvent{Update: update}, nil

	case strings.HasPrefix(destination, notificationTopicPrefix):
		var n models.Notification
		if err := unmarshal(destination, body, &n); err != nil {
			return nil, err
		}
		return NotificationEvent{Notification: n}, nil
	}

	return nil, errors.Wrapf(ErrDecode, "unknown destination %q", destination)
}

func unmarshal(destination string, body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return errors.Wrapf(ErrDecode, "%s: %v", destination, err)
	}
	return nil
}
