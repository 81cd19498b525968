package cache

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saravenpi/parley/internal/models"
)

func newTestCache(t *testing.T) *Cache {
	c, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func msg(id int64, sender, receiver, content string) models.ChatMessage {
	return models.ChatMessage{ID: id, RoomID: "alice:bob", Sender: sender, Receiver: receiver, Content: content}
}

func TestHistory_Empty(t *testing.T) {
	c := newTestCache(t)
	history, err := c.History("alice", "alice:bob")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestReplaceHistory_KeepsOrderAndReplaces(t *testing.T) {
	c := newTestCache(t)

	first := []models.ChatMessage{msg(1, "bob", "alice", "hi"), msg(2, "alice", "bob", "hey")}
	require.NoError(t, c.ReplaceHistory("alice", "alice:bob", first))

	history, err := c.History("alice", "alice:bob")
	require.NoError(t, err)
	assert.Equal(t, first, history)

	second := []models.ChatMessage{msg(3, "bob", "alice", "new")}
	require.NoError(t, c.ReplaceHistory("alice", "alice:bob", second))

	history, err = c.History("alice", "alice:bob")
	require.NoError(t, err)
	assert.Equal(t, second, history)
}

func TestAppend(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.ReplaceHistory("alice", "alice:bob", []models.ChatMessage{msg(1, "bob", "alice", "hi")}))

	withFile := msg(0, "alice", "bob", "")
	withFile.FileURL = "http://files.example/cat.png"
	withFile.Timestamp = "2024-05-01T10:00:00.000Z"
	require.NoError(t, c.Append("alice", "alice:bob", withFile))

	history, err := c.History("alice", "alice:bob")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "hi", history[0].Content)
	assert.Equal(t, withFile, history[1])
}

func TestAppend_TrimsToLimit(t *testing.T) {
	c := newTestCache(t)
	c.limit = 3

	for i := 1; i <= 5; i++ {
		require.NoError(t, c.Append("alice", "alice:bob", msg(int64(i), "bob", "alice", fmt.Sprint(i))))
	}

	history, err := c.History("alice", "alice:bob")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "3", history[0].Content)
	assert.Equal(t, "5", history[2].Content)
}

// Tests that histories are separated by owner and by room.
func TestHistory_Isolation(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Append("alice", "alice:bob", msg(1, "bob", "alice", "for alice")))
	require.NoError(t, c.Append("bob", "alice:bob", msg(1, "bob", "alice", "for bob")))
	require.NoError(t, c.Append("alice", "alice:carol", msg(2, "carol", "alice", "other room")))

	history, err := c.History("alice", "alice:bob")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "for alice", history[0].Content)

	require.NoError(t, c.Forget("alice"))
	history, err = c.History("alice", "alice:carol")
	require.NoError(t, err)
	assert.Empty(t, history)

	history, err = c.History("bob", "alice:bob")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.db")
	c, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, c.Append("alice", "alice:bob", msg(1, "bob", "alice", "persisted")))
	require.NoError(t, c.Close())

	c, err = Open(path)
	require.NoError(t, err)
	defer c.Close()
	history, err := c.History("alice", "alice:bob")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "persisted", history[0].Content)
}
