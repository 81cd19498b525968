package realtime

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saravenpi/parley/internal/models"
)

type fakeSub struct {
	dest   string
	frames chan Frame

	mux    sync.Mutex
	closed bool
}

func (s *fakeSub) Frames() <-chan Frame { return s.frames }

func (s *fakeSub) Unsubscribe() error {
	s.mux.Lock()
	defer s.mux.Unlock()
	if !s.closed {
		s.closed = true
		close(s.frames)
	}
	return nil
}

func (s *fakeSub) deliver(f Frame) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if !s.closed {
		s.frames <- f
	}
}

type sent struct {
	dest string
	body []byte
}

type fakeConn struct {
	mux          sync.Mutex
	subs         []*fakeSub
	sent         []sent
	refuse       string // destination whose SUBSCRIBE fails
	disconnected bool
}

func (c *fakeConn) Subscribe(dest string) (Subscription, error) {
	c.mux.Lock()
	defer c.mux.Unlock()
	if dest == c.refuse {
		return nil, errors.New("broker refused")
	}
	s := &fakeSub{dest: dest, frames: make(chan Frame, 16)}
	c.subs = append(c.subs, s)
	return s, nil
}

func (c *fakeConn) Send(dest string, body []byte) error {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.sent = append(c.sent, sent{dest, body})
	return nil
}

func (c *fakeConn) Disconnect() error {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.disconnected = true
	return nil
}

// active returns the destinations of subscriptions that are still open.
func (c *fakeConn) active() []string {
	c.mux.Lock()
	defer c.mux.Unlock()
	var out []string
	for _, s := range c.subs {
		s.mux.Lock()
		if !s.closed {
			out = append(out, s.dest)
		}
		s.mux.Unlock()
	}
	sort.Strings(out)
	return out
}

// publish delivers body to every open subscription of dest.
func (c *fakeConn) publish(dest string, body string) {
	c.mux.Lock()
	defer c.mux.Unlock()
	for _, s := range c.subs {
		if s.dest == dest {
			s.deliver(Frame{Destination: dest, Body: []byte(body)})
		}
	}
}

type fakeDialer struct {
	conn  *fakeConn
	err   error
	dials int
}

func (d *fakeDialer) Dial(context.Context) (Conn, error) {
	d.dials++
	if d.err != nil {
		return nil, d.err
	}
	return d.conn, nil
}

func nextEvent(t *testing.T, m *Manager) Event {
	t.Helper()
	select {
	case ev, ok := <-m.Events():
		require.True(t, ok, "events channel closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestManager_ConnectSubscribesIdentityTopics(t *testing.T) {
	conn := &fakeConn{}
	d := &fakeDialer{conn: conn}
	m := NewManager(d, true)
	defer m.Teardown()

	assert.Equal(t, Disconnected, m.State())
	require.NoError(t, m.Connect(context.Background(), "alice"))
	assert.Equal(t, Connected, m.State())
	assert.Equal(t, []string{"/topic/notification/alice", "/topic/unreadCount/alice"}, conn.active())

	// Exactly one connection per identity.
	require.NoError(t, m.Connect(context.Background(), "alice"))
	assert.Equal(t, 1, d.dials)

	err := m.Connect(context.Background(), "bob")
	assert.True(t, errors.Is(err, ErrIdentityMismatch), "received %v", err)
}

func TestManager_ConnectFailure(t *testing.T) {
	d := &fakeDialer{err: errors.New("connection refused")}
	m := NewManager(d, false)
	defer m.Teardown()

	assert.Error(t, m.Connect(context.Background(), "alice"))
	assert.Equal(t, Disconnected, m.State())
	assert.True(t, errors.Is(m.Send(models.ChatMessage{Content: "x"}), ErrNotConnected))
	assert.True(t, errors.Is(m.SubscribeRooms(1, []string{"alice:bob"}), ErrNotConnected))
}

// Tests that a failed identity subscription leaves the manager disconnected
// and that Connect can then be retried.
func TestManager_ConnectSubscribeFailure(t *testing.T) {
	conn := &fakeConn{refuse: "/topic/notification/alice"}
	d := &fakeDialer{conn: conn}
	m := NewManager(d, true)
	defer m.Teardown()

	err := m.Connect(context.Background(), "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/topic/notification/alice")
	assert.Equal(t, Disconnected, m.State())
	assert.True(t, conn.disconnected)
	assert.Empty(t, conn.active())
	assert.True(t, errors.Is(m.Send(models.ChatMessage{Content: "x"}), ErrNotConnected))

	conn.mux.Lock()
	conn.refuse = ""
	conn.disconnected = false
	conn.mux.Unlock()

	require.NoError(t, m.Connect(context.Background(), "alice"))
	assert.Equal(t, 2, d.dials)
	assert.Equal(t, Connected, m.State())
	assert.Equal(t, []string{"/topic/notification/alice", "/topic/unreadCount/alice"}, conn.active())
}

// Tests that a room set older than the applied one is ignored.
func TestManager_SubscribeRoomsIgnoresStaleVersion(t *testing.T) {
	conn := &fakeConn{}
	m := NewManager(&fakeDialer{conn: conn}, false)
	defer m.Teardown()
	require.NoError(t, m.Connect(context.Background(), "alice"))

	require.NoError(t, m.SubscribeRooms(2, []string{"alice:bob", "alice:carol"}))
	require.NoError(t, m.SubscribeRooms(1, nil))
	assert.Equal(t, []string{"/topic/chat/alice:bob", "/topic/chat/alice:carol"}, conn.active())

	require.NoError(t, m.SubscribeRooms(2, []string{"alice:dave"}))
	assert.Equal(t, []string{"/topic/chat/alice:bob", "/topic/chat/alice:carol"}, conn.active())

	require.NoError(t, m.SubscribeRooms(3, []string{"alice:dave"}))
	assert.Equal(t, []string{"/topic/chat/alice:dave"}, conn.active())
}

// Tests that a failed room subscription does not consume its version.
func TestManager_SubscribeRoomsFailureRetries(t *testing.T) {
	conn := &fakeConn{refuse: "/topic/chat/alice:carol"}
	m := NewManager(&fakeDialer{conn: conn}, false)
	defer m.Teardown()
	require.NoError(t, m.Connect(context.Background(), "alice"))

	assert.Error(t, m.SubscribeRooms(1, []string{"alice:bob", "alice:carol"}))

	conn.mux.Lock()
	conn.refuse = ""
	conn.mux.Unlock()

	require.NoError(t, m.SubscribeRooms(1, []string{"alice:bob", "alice:carol"}))
	assert.Equal(t, []string{"/topic/chat/alice:bob", "/topic/chat/alice:carol"}, conn.active())
}

// Tests that refreshing the room list replaces the room subscriptions rather
// than adding to them.
func TestManager_SubscribeRoomsReplaces(t *testing.T) {
	conn := &fakeConn{}
	m := NewManager(&fakeDialer{conn: conn}, false)
	defer m.Teardown()
	require.NoError(t, m.Connect(context.Background(), "alice"))

	require.NoError(t, m.SubscribeRooms(1, []string{"alice:bob", "alice:carol"}))
	assert.Equal(t, []string{"/topic/chat/alice:bob", "/topic/chat/alice:carol"}, conn.active())

	require.NoError(t, m.SubscribeRooms(2, []string{"alice:bob", "alice:dave", "alice:bob"}))
	assert.Equal(t, []string{"/topic/chat/alice:bob", "/topic/chat/alice:dave"}, conn.active())

	conn.publish("/topic/chat/alice:bob", `{"sender":"bob","receiver":"alice","content":"once"}`)
	ev := nextEvent(t, m)
	me, ok := ev.(MessageEvent)
	require.True(t, ok, "unexpected event %T", ev)
	assert.Equal(t, "alice:bob", me.RoomID)
	assert.Equal(t, "once", me.Message.Content)

	select {
	case ev := <-m.Events():
		t.Errorf("Duplicate delivery: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

// Tests that a malformed frame is skipped and later frames still arrive.
func TestManager_SkipsMalformedFrames(t *testing.T) {
	conn := &fakeConn{}
	m := NewManager(&fakeDialer{conn: conn}, true)
	defer m.Teardown()
	require.NoError(t, m.Connect(context.Background(), "alice"))

	conn.publish("/topic/unreadCount/alice", `{not json`)
	conn.publish("/topic/unreadCount/alice", `{"roomId":"alice:bob","unreadCount":3}`)
	conn.publish("/topic/notification/alice", `{"roomId":"alice:bob","sender":"bob","contentSnippet":"hi"}`)

	// Topics are forwarded independently, so only per-topic order holds.
	got := []Event{nextEvent(t, m), nextEvent(t, m)}
	assert.ElementsMatch(t, []Event{
		UnreadEvent{Update: models.UnreadCountUpdate{RoomID: "alice:bob", UnreadCount: 3}},
		NotificationEvent{Notification: models.Notification{
			RoomID: "alice:bob", Sender: "bob", ContentSnippet: "hi"}},
	}, got)
}

func TestManager_Send(t *testing.T) {
	conn := &fakeConn{}
	m := NewManager(&fakeDialer{conn: conn}, false)
	defer m.Teardown()
	require.NoError(t, m.Connect(context.Background(), "alice"))

	msg := models.ChatMessage{RoomID: "alice:bob", Sender: "alice", Receiver: "bob", Content: "hello"}
	require.NoError(t, m.Send(msg))

	require.Len(t, conn.sent, 1)
	assert.Equal(t, SendDestination, conn.sent[0].dest)
	var decoded models.ChatMessage
	require.NoError(t, json.Unmarshal(conn.sent[0].body, &decoded))
	assert.Equal(t, msg, decoded)
}

func TestManager_Teardown(t *testing.T) {
	conn := &fakeConn{}
	m := NewManager(&fakeDialer{conn: conn}, true)
	require.NoError(t, m.Connect(context.Background(), "alice"))
	require.NoError(t, m.SubscribeRooms(1, []string{"alice:bob"}))

	m.Teardown()
	m.Teardown()

	assert.True(t, conn.disconnected)
	assert.Equal(t, Disconnected, m.State())
	_, ok := <-m.Events()
	assert.False(t, ok, "events channel still open")

	assert.True(t, errors.Is(m.Connect(context.Background(), "alice"), ErrClosed))
	assert.True(t, errors.Is(m.Send(models.ChatMessage{}), ErrNotConnected))
}
