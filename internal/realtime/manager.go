package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"

	"github.com/saravenpi/parley/internal/models"
)

var (
	// ErrNotConnected is returned by operations that need an open connection.
	ErrNotConnected = errors.New("realtime connection is not open")

	// ErrIdentityMismatch is returned when a manager already bound to one
	// identity is asked to connect as another.
	ErrIdentityMismatch = errors.New("realtime manager is bound to another identity")

	// ErrClosed is returned once the manager has been torn down.
	ErrClosed = errors.New("realtime manager is torn down")
)

// State is the connection state of a Manager.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Manager owns the single broker connection of one mounted view. It is safe
// for concurrent use; events are delivered on Events until Teardown.
type Manager struct {
	dialer         Dialer
	identityTopics bool

	mux      sync.Mutex
	state    State
	identity string
	conn     Conn
	rooms    map[string]*route
	version  uint64 // of the last applied room set
	closed   bool

	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup
}

// route is one subscription and the goroutine forwarding its frames.
type route struct {
	sub  Subscription
	stop chan struct{}
}

// NewManager creates a disconnected Manager. With identityTopics set, Connect
// also subscribes the identity's unread count and notification topics.
func NewManager(dialer Dialer, identityTopics bool) *Manager {
	return &Manager{
		dialer:         dialer,
		identityTopics: identityTopics,
		rooms:          make(map[string]*route),
		events:         make(chan Event, 64),
		done:           make(chan struct{}),
	}
}

// Events delivers decoded events. It is closed by Teardown.
func (m *Manager) Events() <-chan Event {
	return m.events
}

func (m *Manager) State() State {
	m.mux.Lock()
	defer m.mux.Unlock()
	return m.state
}

// Connect opens the connection for identity. Connecting again as the same
// identity is a no-op; a different identity is refused.
func (m *Manager) Connect(ctx context.Context, identity string) error {
	if identity == "" {
		return errors.New("cannot connect without an identity")
	}

	m.mux.Lock()
	switch {
	case m.closed:
		m.mux.Unlock()
		return ErrClosed
	case m.identity != "" && m.identity != identity:
		m.mux.Unlock()
		return errors.Wrapf(ErrIdentityMismatch, "bound to %s, asked for %s", m.identity, identity)
	case m.state != Disconnected:
		m.mux.Unlock()
		return nil
	}
	m.identity = identity
	m.state = Connecting
	m.mux.Unlock()

	conn, err := m.dialer.Dial(ctx)

	m.mux.Lock()
	defer m.mux.Unlock()
	if err != nil {
		m.state = Disconnected
		return errors.Wrap(err, "failed to open realtime connection")
	}
	if m.closed {
		if err := conn.Disconnect(); err != nil {
			jww.WARN.Printf("Failed to close connection opened after teardown: %+v", err)
		}
		return ErrClosed
	}
	m.conn = conn
	m.state = Connected

	if m.identityTopics {
		var started []*route
		for _, topic := range []string{UnreadTopic(identity), NotificationTopic(identity)} {
			r, err := m.subscribe(topic)
			if err != nil {
				m.abortConnect(started)
				return err
			}
			started = append(started, r)
		}
	}

	jww.INFO.Printf("Realtime connection open for %s", identity)
	return nil
}

// abortConnect undoes a half-open connection so that Connect can be retried.
// It must be called with mux held.
func (m *Manager) abortConnect(started []*route) {
	for _, r := range started {
		close(r.stop)
		if err := r.sub.Unsubscribe(); err != nil {
			jww.WARN.Printf("Failed to unsubscribe after failed connect: %+v", err)
		}
	}
	if err := m.conn.Disconnect(); err != nil {
		jww.WARN.Printf("Failed to close half-open connection: %+v", err)
	}
	m.conn = nil
	m.state = Disconnected
}

// SubscribeRooms replaces every room topic subscription with one per roomID,
// so a message is never delivered twice through stale subscriptions.
//
// version orders room sets taken from a changing room list: a call whose
// version is not newer than the last applied one is ignored, so a stale list
// cannot replace a current one. Versions start at 1.
func (m *Manager) SubscribeRooms(version uint64, roomIDs []string) error {
	m.mux.Lock()
	defer m.mux.Unlock()

	if m.closed {
		return ErrClosed
	}
	if m.state != Connected {
		return ErrNotConnected
	}
	if version <= m.version {
		jww.DEBUG.Printf("Ignoring room set %d, already at %d", version, m.version)
		return nil
	}

	for id, r := range m.rooms {
		close(r.stop)
		if err := r.sub.Unsubscribe(); err != nil {
			jww.WARN.Printf("Failed to unsubscribe from room %s: %+v", id, err)
		}
		delete(m.rooms, id)
	}

	for _, id := range roomIDs {
		if _, ok := m.rooms[id]; ok || id == "" {
			continue
		}
		r, err := m.subscribe(ChatTopic(id))
		if err != nil {
			return err
		}
		m.rooms[id] = r
	}

	m.version = version
	jww.DEBUG.Printf("Subscribed to %d room topics (set %d)", len(m.rooms), version)
	return nil
}

// subscribe must be called with mux held.
func (m *Manager) subscribe(topic string) (*route, error) {
	sub, err := m.conn.Subscribe(topic)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to subscribe to %s", topic)
	}
	r := &route{sub: sub, stop: make(chan struct{})}
	m.wg.Add(1)
	go m.forward(topic, r)
	return r, nil
}

// forward decodes the frames of one subscription. A frame that fails to
// decode is logged and skipped.
func (m *Manager) forward(topic string, r *route) {
	defer m.wg.Done()
	for {
		select {
		case <-m.done:
			return
		case <-r.stop:
			return
		case f, ok := <-r.sub.Frames():
			if !ok {
				return
			}
			if f.Err != nil {
				jww.WARN.Printf("Broker error on %s: %v", topic, f.Err)
				continue
			}
			dest := f.Destination
			if dest == "" {
				dest = topic
			}
			ev, err := Decode(dest, f.Body)
			if err != nil {
				jww.WARN.Printf("Skipping frame: %v", err)
				continue
			}
			select {
			case m.events <- ev:
			case <-m.done:
				return
			case <-r.stop:
				return
			}
		}
	}
}

// Send publishes msg to the chat send destination.
func (m *Manager) Send(msg models.ChatMessage) error {
	m.mux.Lock()
	defer m.mux.Unlock()

	if m.state != Connected || m.conn == nil {
		return ErrNotConnected
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "failed to encode chat message")
	}
	return m.conn.Send(SendDestination, body)
}

// Teardown closes the connection and the Events channel. Subscriptions go
// away with the connection. It is safe to call more than once.
func (m *Manager) Teardown() {
	m.mux.Lock()
	if m.closed {
		m.mux.Unlock()
		return
	}
	m.closed = true
	close(m.done)
	conn := m.conn
	m.conn = nil
	m.state = Disconnected
	m.rooms = make(map[string]*route)
	m.mux.Unlock()

	if conn != nil {
		if err := conn.Disconnect(); err != nil {
			jww.WARN.Printf("Failed to disconnect: %+v", err)
		}
	}

	m.wg.Wait()
	close(m.events)
	jww.DEBUG.Printf("Realtime manager for %s torn down", m.identity)
}
