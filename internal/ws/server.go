package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"chatrelay/internal/metrics"
	"chatrelay/internal/protocol"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait = 10 * time.Second

	defaultSendBuffer = 256
	defaultReadLimit  = 100 << 20
	defaultPingPeriod = 30 * time.Second
)

// Options tunes per‑connection resources. Zero values fall back to defaults.
type Options struct {
	SendBuffer int
	ReadLimit  int64
	PingPeriod time.Duration
}

// WsServer accepts relay connections and runs the per‑connection state
// machine: unjoined → joined → closed.
type WsServer struct {
	hub      *Hub
	router   *Router
	upgrader websocket.Upgrader
	opts     Options
	now      func() time.Time

	mu    sync.Mutex
	conns map[*clientConn]struct{}
}

func NewWsServer(h *Hub, opts Options) *WsServer {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = defaultReadLimit
	}
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = defaultPingPeriod
	}
	srv := &WsServer{
		hub:    h,
		router: NewRouter(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		opts:  opts,
		now:   time.Now,
		conns: make(map[*clientConn]struct{}),
	}
	srv.registerHandlers() // ← all relay events configured here
	return srv
}

// ---------------------------------------------------------------------------
//  Public: HTTP entry‑point
// ---------------------------------------------------------------------------

func (s *WsServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rawConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Warn("ws.accept", zap.Error(err))
		return
	}
	rawConn.SetReadLimit(s.opts.ReadLimit)

	conn := newClientConn(rawConn, s.opts.SendBuffer)
	s.track(conn)
	metrics.Connections.Inc()
	zap.L().Debug("ws.accept", zap.String("conn", conn.id), zap.String("remote", r.RemoteAddr))

	go conn.writeLoop(s.opts.PingPeriod)
	s.reader(conn)
}

// Close shuts every open connection down. Their close handlers still run.
func (s *WsServer) Close() {
	s.mu.Lock()
	conns := make([]*clientConn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.closeWith(websocket.CloseGoingAway, "server shutting down")
	}
}

// ---------------------------------------------------------------------------
//  Private helpers
// ---------------------------------------------------------------------------

func (s *WsServer) registerHandlers() {
	// 🔹 join ----------------------------------------------------------------
	Register(
		s.router,
		protocol.TypeJoin,
		func(c *clientConn, req joinRequest) error {
			s.join(c, req.Room, req.Username)
			return nil
		},
	)

	// 🔹 chat ----------------------------------------------------------------
	Register(
		s.router,
		protocol.TypeChat,
		func(c *clientConn, req chatRequest) error {
			s.chat(c, *req.Message)
			return nil
		},
	)
}

func (s *WsServer) reader(conn *clientConn) {
	defer s.disconnect(conn)

	for {
		_, data, err := conn.rawConn.ReadMessage()
		if err != nil {
			return // client closed or errored
		}

		var f protocol.Frame
		if err := json.Unmarshal(data, &f); err != nil {
			metrics.FramesDropped.WithLabelValues("malformed").Inc()
			zap.L().Warn("ws.malformed_frame", zap.String("conn", conn.id), zap.Error(err))
			continue
		}

		if err := s.router.dispatch(conn, f); err != nil {
			reason := "invalid_payload"
			if errors.Is(err, errUnknownEvent) {
				reason = "unknown_type"
			}
			metrics.FramesDropped.WithLabelValues(reason).Inc()
			zap.L().Warn("ws.dispatch", zap.String("conn", conn.id), zap.String("type", f.Type), zap.Error(err))
		}
	}
}

func (s *WsServer) join(c *clientConn, room, username string) {
	state, prevUser, prevRoom := c.snapshot()
	switch state {
	case stateClosed:
		return
	case stateJoined:
		if prevRoom == room && prevUser == username {
			return
		}
		// A connection lives in one room at a time.
		s.leave(c, prevRoom, prevUser)
	}

	evicted, ok := s.hub.Join(room, username, c)
	if !ok {
		return
	}
	if evicted != nil {
		zap.L().Info("relay.evict",
			zap.String("room", room),
			zap.String("username", username),
			zap.String("evicted", evicted.id),
			zap.String("conn", c.id),
		)
	}
	zap.L().Debug("relay.join", zap.String("room", room), zap.String("username", username), zap.String("conn", c.id))

	s.hub.Broadcast(room, protocol.NewID(protocol.KindJoin), protocol.System{
		Message:   username + " has joined the room",
		Timestamp: protocol.Timestamp(s.now()),
	})
	s.hub.PublishPresence(room)
}

func (s *WsServer) chat(c *clientConn, message string) {
	state, username, room := c.snapshot()
	if state != stateJoined {
		zap.L().Debug("relay.chat_ignored", zap.String("conn", c.id), zap.Stringer("state", state))
		return
	}

	s.hub.Broadcast(room, protocol.NewID(protocol.KindMessage), protocol.Message{
		Username:  username,
		Message:   message,
		Timestamp: protocol.Timestamp(s.now()),
	})
}

// leave removes c from room and tells the remaining members. Nothing is
// announced when c no longer holds the username there.
func (s *WsServer) leave(c *clientConn, room, username string) {
	if !s.hub.Leave(room, username, c) {
		return
	}
	zap.L().Debug("relay.leave", zap.String("room", room), zap.String("username", username), zap.String("conn", c.id))

	s.hub.Broadcast(room, protocol.NewID(protocol.KindLeave), protocol.System{
		Message:   username + " has left the room",
		Timestamp: protocol.Timestamp(s.now()),
	})
	s.hub.PublishPresence(room)
}

func (s *WsServer) disconnect(c *clientConn) {
	c.close()
	s.untrack(c)
	metrics.Connections.Dec()

	username, room, wasJoined := c.markClosed()
	if wasJoined {
		s.leave(c, room, username)
	}
	zap.L().Debug("ws.closed", zap.String("conn", c.id))
}

func (s *WsServer) track(c *clientConn) {
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
}

func (s *WsServer) untrack(c *clientConn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}
