package client

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"chatrelay/internal/protocol"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	DefaultReconnectDelay = 3 * time.Second

	writeWait = 10 * time.Second
)

var (
	ErrNotConnected = errors.New("not connected")
	ErrClosed       = errors.New("session closed")
)

// Session keeps one connection to the relay joined to a room. Lost
// connections are re‑dialed after a fixed delay until Close is called.
type Session struct {
	url      string
	username string
	room     string

	dialer         *websocket.Dialer
	reconnectDelay time.Duration
	onEvent        func(id string, ev protocol.Event)
	onStatus       func(connected bool)
	dedup          *idSet

	ctx    context.Context
	cancel context.CancelFunc

	writeMu sync.Mutex // gorilla allows one concurrent writer

	mu      sync.Mutex
	conn    *websocket.Conn
	dialing bool
	timer   *time.Timer
	closed  bool
}

type Option func(*Session)

// WithReconnectDelay overrides the 3 s delay between a drop and the next dial.
func WithReconnectDelay(d time.Duration) Option {
	return func(s *Session) { s.reconnectDelay = d }
}

func WithDialer(d *websocket.Dialer) Option {
	return func(s *Session) { s.dialer = d }
}

// WithEventHandler receives every frame that survives dedup.
func WithEventHandler(fn func(id string, ev protocol.Event)) Option {
	return func(s *Session) { s.onEvent = fn }
}

// WithStatusHandler is told when the session connects or drops.
func WithStatusHandler(fn func(connected bool)) Option {
	return func(s *Session) { s.onStatus = fn }
}

func WithDedupCapacity(n int) Option {
	return func(s *Session) { s.dedup = newIDSet(n) }
}

func NewSession(url, username, room string, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		url:            url,
		username:       username,
		room:           room,
		dialer:         websocket.DefaultDialer,
		reconnectDelay: DefaultReconnectDelay,
		onEvent:        func(string, protocol.Event) {},
		onStatus:       func(bool) {},
		dedup:          newIDSet(defaultDedupCapacity),
		ctx:            ctx,
		cancel:         cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start dials the relay and performs the join handshake in the background.
func (s *Session) Start() error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	go s.connect()
	return nil
}

// Connected reports whether a transport is currently open.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Send broadcasts a chat message to the room. Blank messages are ignored.
func (s *Session) Send(message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil
	}

	s.mu.Lock()
	conn, closed := s.conn, s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if conn == nil {
		return ErrNotConnected
	}
	return s.write(conn, protocol.Chat{Message: message})
}

// Close cancels a pending reconnect and then closes the transport.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	s.cancel()
	if conn == nil {
		return nil
	}

	s.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	s.writeMu.Unlock()
	err := conn.Close()
	s.onStatus(false)
	return err
}

// ---------------------------------------------------------------------------
//  Private helpers
// ---------------------------------------------------------------------------

func (s *Session) connect() {
	s.mu.Lock()
	if s.closed || s.conn != nil || s.dialing {
		s.mu.Unlock()
		return
	}
	s.dialing = true
	s.mu.Unlock()

	conn, _, err := s.dialer.DialContext(s.ctx, s.url, nil)

	s.mu.Lock()
	s.dialing = false
	if err != nil {
		s.mu.Unlock()
		zap.L().Debug("session.dial", zap.String("url", s.url), zap.Error(err))
		s.scheduleReconnect()
		return
	}
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.conn = conn
	s.mu.Unlock()

	zap.L().Debug("session.connected", zap.String("url", s.url), zap.String("room", s.room))
	s.onStatus(true)

	if err := s.write(conn, protocol.Join{Username: s.username, Room: s.room}); err != nil {
		zap.L().Warn("session.join", zap.Error(err))
		_ = conn.Close() // the read loop notices and reconnects
	}
	s.readLoop(conn)
}

func (s *Session) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		s.handleFrame(data)
	}

	s.mu.Lock()
	current := s.conn == conn
	if current {
		s.conn = nil
	}
	intentional := s.closed
	s.mu.Unlock()
	_ = conn.Close()

	if !current || intentional {
		return
	}
	zap.L().Debug("session.disconnected", zap.String("url", s.url))
	s.onStatus(false)
	s.scheduleReconnect()
}

// handleFrame decodes one inbound frame and drops ids seen before. Frames
// without an id are always delivered.
func (s *Session) handleFrame(data []byte) {
	id, ev, err := protocol.Decode(data)
	if err != nil {
		zap.L().Warn("session.decode", zap.Error(err))
		return
	}
	if id != "" && !s.dedup.add(id) {
		return
	}
	s.onEvent(id, ev)
}

// scheduleReconnect arms exactly one timer; the callback re‑checks Close.
func (s *Session) scheduleReconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.timer != nil {
		return
	}
	s.timer = time.AfterFunc(s.reconnectDelay, func() {
		s.mu.Lock()
		s.timer = nil
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return
		}
		zap.L().Debug("session.reconnect", zap.String("url", s.url))
		s.connect()
	})
}

func (s *Session) write(conn *websocket.Conn, ev protocol.Event) error {
	msg, err := protocol.Encode("", ev)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, msg)
}
