package state

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saravenpi/parley/internal/models"
)

func testRooms() []models.ChatRoomSummary {
	return []models.ChatRoomSummary{
		{ID: 1, RoomID: "alice:bob", DisplayName: "bob", UnreadCount: 0},
		{ID: 2, RoomID: "x:y", DisplayName: "y", UnreadCount: 1},
	}
}

func TestApplyUnreadUpdate(t *testing.T) {
	rooms := testRooms()
	updated := ApplyUnreadUpdate(rooms, models.UnreadCountUpdate{RoomID: "alice:bob", UnreadCount: 3})

	expected := []models.ChatRoomSummary{
		{ID: 1, RoomID: "alice:bob", DisplayName: "bob", UnreadCount: 3},
		{ID: 2, RoomID: "x:y", DisplayName: "y", UnreadCount: 1},
	}
	if !reflect.DeepEqual(expected, updated) {
		t.Errorf("Unexpected rooms.\nexpected: %+v\nreceived: %+v", expected, updated)
	}

	// Input must be untouched
	if !reflect.DeepEqual(testRooms(), rooms) {
		t.Errorf("Input rooms were mutated: %+v", rooms)
	}
}

func TestApplyUnreadUpdate_UnknownRoom(t *testing.T) {
	rooms := testRooms()
	updated := ApplyUnreadUpdate(rooms, models.UnreadCountUpdate{RoomID: "nobody:here", UnreadCount: 9})
	assert.Equal(t, rooms, updated)
	assert.Len(t, updated, 2)
}

func TestApplyUnreadUpdate_NeverNegative(t *testing.T) {
	updated := ApplyUnreadUpdate(testRooms(), models.UnreadCountUpdate{RoomID: "x:y", UnreadCount: -4})
	assert.Equal(t, int64(0), updated[1].UnreadCount)
}

func TestApplyRoomMessage(t *testing.T) {
	msg := models.ChatMessage{
		Sender:    "bob",
		Receiver:  "alice",
		Content:   "hi",
		Timestamp: "2024-05-01T10:00:00.000Z",
	}
	updated := ApplyRoomMessage(testRooms(), msg)
	assert.Equal(t, "hi", updated[0].LastMessage)
	assert.Equal(t, "2024-05-01T10:00:00.000Z", updated[0].LastMessageTime)
	assert.Equal(t, testRooms()[1], updated[1])

	// Explicit room id wins over sender/receiver
	msg.RoomID = "x:y"
	updated = ApplyRoomMessage(testRooms(), msg)
	assert.Equal(t, "", updated[0].LastMessage)
	assert.Equal(t, "hi", updated[1].LastMessage)
}

func TestApplyRoomMessage_AbsentRoom(t *testing.T) {
	msg := models.ChatMessage{Sender: "carol", Receiver: "dave", Content: "hey"}
	assert.Equal(t, testRooms(), ApplyRoomMessage(testRooms(), msg))

	msg = models.ChatMessage{Sender: "", Receiver: "dave", Content: "hey"}
	assert.Equal(t, testRooms(), ApplyRoomMessage(testRooms(), msg))
}

func TestApplyRoomMessage_FileOnly(t *testing.T) {
	msg := models.ChatMessage{Sender: "bob", Receiver: "alice", FileURL: "http://files/x.png"}
	updated := ApplyRoomMessage(testRooms(), msg)
	assert.Equal(t, "[file]", updated[0].LastMessage)
}

func TestMarkRoomRead(t *testing.T) {
	rooms := MarkRoomRead(testRooms(), "x:y")
	assert.Equal(t, int64(0), rooms[1].UnreadCount)
	assert.Equal(t, int64(1), TotalUnread(testRooms()))
	assert.Equal(t, int64(0), TotalUnread(rooms))
}

func TestHasRoom(t *testing.T) {
	assert.True(t, HasRoom(testRooms(), "x:y"))
	assert.False(t, HasRoom(testRooms(), "y:z"))
	assert.False(t, HasRoom(nil, "x:y"))
}

func TestAppendMessage(t *testing.T) {
	first := models.ChatMessage{Sender: "a", Receiver: "b", Content: "1"}
	second := models.ChatMessage{Sender: "b", Receiver: "a", Content: "2"}

	messages := AppendMessage(nil, first)
	messages = AppendMessage(messages, second)
	// Duplicate delivery shows twice
	messages = AppendMessage(messages, second)

	require.Len(t, messages, 3)
	assert.Equal(t, []models.ChatMessage{first, second, second}, messages)
}

func TestAppendMessage_DoesNotAlias(t *testing.T) {
	base := make([]models.ChatMessage, 1, 10)
	base[0] = models.ChatMessage{Content: "base"}

	a := AppendMessage(base, models.ChatMessage{Content: "a"})
	b := AppendMessage(base, models.ChatMessage{Content: "b"})
	assert.Equal(t, "a", a[1].Content)
	assert.Equal(t, "b", b[1].Content)
}
