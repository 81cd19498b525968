// Package state folds realtime events into the view state of the room list
// and of an open room. Every function is pure: inputs are never mutated and
// the result is a new value.
package state

import (
	"github.com/saravenpi/parley/internal/models"
	"github.com/saravenpi/parley/internal/roomid"
)

func copyRooms(rooms []models.ChatRoomSummary) []models.ChatRoomSummary {
	if rooms == nil {
		return nil
	}
	out := make([]models.ChatRoomSummary, len(rooms))
	copy(out, rooms)
	return out
}

// HasRoom reports whether roomID is in rooms.
func HasRoom(rooms []models.ChatRoomSummary, roomID string) bool {
	for _, room := range rooms {
		if room.RoomID == roomID {
			return true
		}
	}
	return false
}

// ApplyUnreadUpdate replaces the unread count of the room named by the
// update. Rooms are never inserted; an update for an unknown room leaves the
// list unchanged. Negative counts are stored as zero.
func ApplyUnreadUpdate(rooms []models.ChatRoomSummary, update models.UnreadCountUpdate) []models.ChatRoomSummary {
	out := copyRooms(rooms)
	count := update.UnreadCount
	if count < 0 {
		count = 0
	}
	for i := range out {
		if out[i].RoomID == update.RoomID {
			out[i].UnreadCount = count
		}
	}
	return out
}

// ApplyRoomMessage updates the last-message preview of the room msg belongs
// to. The room is taken from msg.RoomID or, when absent, derived from the
// sender and receiver.
func ApplyRoomMessage(rooms []models.ChatRoomSummary, msg models.ChatMessage) []models.ChatRoomSummary {
	roomID := msg.RoomID
	if roomID == "" {
		derived, err := roomid.Derive(msg.Sender, msg.Receiver)
		if err != nil {
			return copyRooms(rooms)
		}
		roomID = derived
	}

	out := copyRooms(rooms)
	for i := range out {
		if out[i].RoomID == roomID {
			out[i].LastMessage = msg.Preview()
			out[i].LastMessageTime = msg.Timestamp
		}
	}
	return out
}

// MarkRoomRead resets a room's unread count. It is applied only after a read
// receipt for that room has succeeded.
func MarkRoomRead(rooms []models.ChatRoomSummary, roomID string) []models.ChatRoomSummary {
	out := copyRooms(rooms)
	for i := range out {
		if out[i].RoomID == roomID {
			out[i].UnreadCount = 0
		}
	}
	return out
}

// TotalUnread sums the unread counts of all rooms.
func TotalUnread(rooms []models.ChatRoomSummary) int64 {
	var total int64
	for _, room := range rooms {
		total += room.UnreadCount
	}
	return total
}

// AppendMessage appends msg to the open room's messages. Duplicate delivery
// is not filtered.
func AppendMessage(messages []models.ChatMessage, msg models.ChatMessage) []models.ChatMessage {
	out := make([]models.ChatMessage, len(messages), len(messages)+1)
	copy(out, messages)
	return append(out, msg)
}
