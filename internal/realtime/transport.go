// Package realtime owns the push connection of one mounted view: it connects
// to the broker, keeps topic subscriptions in step with the room list and
// turns inbound frames into typed events.
package realtime

import (
	"context"
)

// Frame is one inbound broker message. Err is set when the broker reported
// an error instead of delivering a message.
type Frame struct {
	Destination string
	Body        []byte
	Err         error
}

// Subscription delivers the frames of one topic until it is unsubscribed or
// the connection closes, at which point Frames is closed.
type Subscription interface {
	Frames() <-chan Frame
	Unsubscribe() error
}

// Conn is an open broker session.
type Conn interface {
	Subscribe(destination string) (Subscription, error)
	Send(destination string, body []byte) error
	Disconnect() error
}

// Dialer opens broker sessions.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

const (
	// SendDestination receives outbound chat messages.
	SendDestination = "/app/chat.send"

	chatTopicPrefix         = "/topic/chat/"
	unreadTopicPrefix       = "/topic/unreadCount/"
	notificationTopicPrefix = "/topic/notification/"
)

// ChatTopic carries the messages of one room.
func ChatTopic(roomID string) string { return chatTopicPrefix + roomID }

// UnreadTopic carries unread count changes for one identity.
func UnreadTopic(identity string) string { return unreadTopicPrefix + identity }

// NotificationTopic carries new message notifications for one identity.
func NotificationTopic(identity string) string { return notificationTopicPrefix + identity }
