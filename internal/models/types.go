package models

import (
	"strings"
	"time"
)

// ChatMessage is a single message exchanged between two identities. Timestamp
// is an ISO-8601 string assigned by the sender at send time and kept as text so
// the backend's local date-time format round-trips unchanged.
type ChatMessage struct {
	ID        int64  `json:"id,omitempty"`
	RoomID    string `json:"roomId,omitempty"`
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Content   string `json:"content"`
	FileURL   string `json:"fileUrl,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// ChatRoomSummary is the room list projection returned by the backend and
// patched in place by realtime events.
type ChatRoomSummary struct {
	ID              int64  `json:"id"`
	RoomID          string `json:"roomId"`
	DisplayName     string `json:"displayName"`
	UnreadCount     int64  `json:"unreadCount"`
	LastMessage     string `json:"lastMessage,omitempty"`
	LastMessageTime string `json:"lastMessageTime,omitempty"`
}

type Notification struct {
	RoomID         string `json:"roomId"`
	Sender         string `json:"sender"`
	ContentSnippet string `json:"contentSnippet"`
}

type UnreadCountUpdate struct {
	RoomID      string `json:"roomId"`
	UnreadCount int64  `json:"unreadCount"`
}

type Post struct {
	ID          int64  `json:"id"`
	Author      string `json:"author"`
	Description string `json:"description"`
	CreatedAt   string `json:"createdAt"`
}

type UploadResult struct {
	Status   string `json:"status"`
	FileName string `json:"fileName"`
	FileURL  string `json:"fileUrl"`
	Message  string `json:"message,omitempty"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp accepts both zoned (client-assigned) and zone-less
// (backend-assigned) timestamps. Zone-less values are read as local time.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NewTimestamp formats t the way messages are stamped at send time.
func NewTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// Time returns the parsed message timestamp, or the zero time.
func (m ChatMessage) Time() time.Time {
	t, _ := ParseTimestamp(m.Timestamp)
	return t
}

// Preview is the text shown for a message in list contexts.
func (m ChatMessage) Preview() string {
	if m.Content != "" {
		return m.Content
	}
	if m.FileURL != "" {
		return "[file]"
	}
	return ""
}
