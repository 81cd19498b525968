package realtime

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-stomp/stomp/v3"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
)

// StompDialer speaks STOMP over a WebSocket, the way the backend's message
// broker expects.
type StompDialer struct {
	// URL is the WebSocket endpoint, e.g. ws://localhost:8080/ws-chat/websocket.
	URL string

	// Header returns extra handshake headers, normally the session cookie.
	Header func() http.Header

	// HeartBeat is the send and receive heart-beat interval. Zero disables
	// heart-beating.
	HeartBeat time.Duration

	// Dialer is the WebSocket dialer; websocket.DefaultDialer when nil.
	Dialer *websocket.Dialer
}

// Dial connects the WebSocket and completes the STOMP handshake.
func (d *StompDialer) Dial(ctx context.Context) (Conn, error) {
	u, err := url.Parse(d.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid websocket url %q", d.URL)
	}

	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	var header http.Header
	if d.Header != nil {
		header = d.Header()
	}

	ws, resp, err := dialer.DialContext(ctx, d.URL, header)
	if err != nil {
		if resp != nil {
			return nil, errors.Wrapf(err, "websocket handshake with %s failed: %s", d.URL, resp.Status)
		}
		return nil, errors.Wrapf(err, "failed to dial %s", d.URL)
	}

	sc, err := stomp.Connect(&wsStream{ws: ws},
		stomp.ConnOpt.Host(u.Hostname()),
		stomp.ConnOpt.HeartBeat(d.HeartBeat, d.HeartBeat))
	if err != nil {
		ws.Close()
		return nil, errors.Wrapf(err, "stomp handshake with %s failed", d.URL)
	}

	jww.INFO.Printf("Connected to broker at %s (session %s)", d.URL, sc.Session())
	return &stompConn{conn: sc}, nil
}

type stompConn struct {
	conn *stomp.Conn
}

func (c *stompConn) Subscribe(destination string) (Subscription, error) {
	sub, err := c.conn.Subscribe(destination, stomp.AckAuto)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to subscribe to %s", destination)
	}

	s := &stompSubscription{
		sub:    sub,
		frames: make(chan Frame),
		stop:   make(chan struct{}),
	}
	go s.forward()
	return s, nil
}

func (c *stompConn) Send(destination string, body []byte) error {
	return errors.Wrapf(c.conn.Send(destination, "application/json", body),
		"failed to send to %s", destination)
}

func (c *stompConn) Disconnect() error {
	return errors.Wrap(c.conn.Disconnect(), "failed to disconnect from broker")
}

type stompSubscription struct {
	sub    *stomp.Subscription
	frames chan Frame
	stop   chan struct{}
	once   sync.Once
}

func (s *stompSubscription) Frames() <-chan Frame { return s.frames }

// forward drains the library channel until it closes. Messages arriving
// after Unsubscribe are dropped.
func (s *stompSubscription) forward() {
	defer close(s.frames)
	for msg := range s.sub.C {
		f := Frame{Destination: msg.Destination, Body: msg.Body, Err: msg.Err}
		if f.Destination == "" {
			f.Destination = s.sub.Destination()
		}
		select {
		case <-s.stop:
			continue
		default:
		}
		select {
		case s.frames <- f:
		case <-s.stop:
		}
	}
}

func (s *stompSubscription) Unsubscribe() error {
	s.once.Do(func() { close(s.stop) })
	if !s.sub.Active() {
		return nil
	}
	return errors.Wrapf(s.sub.Unsubscribe(), "failed to unsubscribe from %s", s.sub.Destination())
}

// wsStream adapts a WebSocket to the byte stream the STOMP client reads and
// writes. Each write becomes one text message.
type wsStream struct {
	ws *websocket.Conn
	r  io.Reader
}

func (s *wsStream) Read(p []byte) (int, error) {
	for {
		if s.r == nil {
			_, r, err := s.ws.NextReader()
			if err != nil {
				return 0, err
			}
			s.r = r
		}
		n, err := s.r.Read(p)
		if err == io.EOF {
			s.r = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (s *wsStream) Write(p []byte) (int, error) {
	if err := s.ws.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *wsStream) Close() error {
	return s.ws.Close()
}
