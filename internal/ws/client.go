package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type connState int

const (
	stateUnjoined connState = iota
	stateJoined
	stateClosed
)

func (s connState) String() string {
	switch s {
	case stateUnjoined:
		return "unjoined"
	case stateJoined:
		return "joined"
	default:
		return "closed"
	}
}

// transport is the part of *websocket.Conn a connection relies on.
type transport interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type clientConn struct {
	id      string
	rawConn transport
	send    chan []byte
	done    chan struct{}
	once    sync.Once

	mu       sync.Mutex
	state    connState
	username string
	room     string
}

func newClientConn(raw transport, sendBuffer int) *clientConn {
	return &clientConn{
		id:      uuid.NewString(),
		rawConn: raw,
		send:    make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
	}
}

// enqueue hands msg to the writer without blocking. It reports false when the
// connection is closed or its queue is full.
func (c *clientConn) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// writeLoop is the only goroutine writing data frames to the socket.
func (c *clientConn) writeLoop(pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			if err := c.rawConn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.close()
				return
			}
		}
	}
}

func (c *clientConn) write(mt int, data []byte) error {
	_ = c.rawConn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.rawConn.WriteMessage(mt, data) // Text/Binary only
}

func (c *clientConn) close() {
	c.closeWith(websocket.CloseNormalClosure, "")
}

// closeWith sends a best‑effort close frame and tears the socket down once.
func (c *clientConn) closeWith(code int, reason string) {
	c.once.Do(func() {
		close(c.done)
		_ = c.rawConn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
		_ = c.rawConn.Close()
	})
}

func (c *clientConn) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// ─────────────────────────────── session state ───────────────────────────────

func (c *clientConn) snapshot() (connState, string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.username, c.room
}

// bind moves the connection to joined. A closed connection stays closed.
func (c *clientConn) bind(room, username string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateClosed {
		return false
	}
	c.state = stateJoined
	c.room = room
	c.username = username
	return true
}

// markClosed moves the connection to closed and returns what it was joined to.
func (c *clientConn) markClosed() (username, room string, wasJoined bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	wasJoined = c.state == stateJoined
	username, room = c.username, c.room
	c.state = stateClosed
	c.room = ""
	return username, room, wasJoined
}
