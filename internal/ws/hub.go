package ws

import (
	"sort"
	"sync"
	"time"

	"chatrelay/internal/metrics"
	"chatrelay/internal/protocol"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// PresenceObserver is told about every presence list the hub publishes,
// including the empty list of a room that was just removed. It is called
// with the room locked and must not block.
type PresenceObserver func(room string, users []string)

// RoomInfo is a read‑only view of one room.
type RoomInfo struct {
	Name  string   `json:"name"`
	Users []string `json:"users"`
}

// Hub is the room registry and broadcast engine.
type Hub struct {
	mu        sync.RWMutex
	rooms     map[string]*room
	observers []PresenceObserver
	now       func() time.Time
}

type HubOption func(*Hub)

func WithPresenceObserver(fn PresenceObserver) HubOption {
	return func(h *Hub) { h.observers = append(h.observers, fn) }
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{rooms: map[string]*room{}, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Join registers c as username in the named room, creating the room on
// first use. A connection already holding username there is evicted: it is
// marked closed so its own close handler stays silent, then its socket is
// closed outside the lock. ok is false when c was closed meanwhile.
func (h *Hub) Join(name, username string, c *clientConn) (evicted *clientConn, ok bool) {
	h.mu.Lock()
	if !c.bind(name, username) {
		h.mu.Unlock()
		return nil, false
	}
	r, found := h.rooms[name]
	if !found {
		r = newRoom(name)
		h.rooms[name] = r
		metrics.Rooms.Inc()
	}
	evicted = r.add(username, c)
	if evicted == c {
		evicted = nil
	}
	if evicted != nil {
		evicted.markClosed()
	}
	h.mu.Unlock()

	if evicted != nil {
		metrics.Evictions.Inc()
		evicted.closeWith(websocket.ClosePolicyViolation, "session replaced")
	}
	return evicted, true
}

// Leave removes username from the room if it is still bound to c and drops
// the room once empty.
func (h *Hub) Leave(name, username string, c *clientConn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[name]
	if !ok {
		return false
	}
	removed := r.remove(username, c)
	if r.empty() {
		delete(h.rooms, name)
		metrics.Rooms.Dec()
	}
	return removed
}

// Members returns the room's presence list in join order.
func (h *Hub) Members(name string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	r, ok := h.rooms[name]
	if !ok {
		return []string{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.usernames()
}

// Rooms lists every room, sorted by name.
func (h *Hub) Rooms() []RoomInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]RoomInfo, 0, len(h.rooms))
	for name, r := range h.rooms {
		r.mu.Lock()
		out = append(out, RoomInfo{Name: name, Users: r.usernames()})
		r.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Room returns one room's view.
func (h *Hub) Room(name string) (RoomInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	r, ok := h.rooms[name]
	if !ok {
		return RoomInfo{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return RoomInfo{Name: name, Users: r.usernames()}, true
}

// Broadcast encodes ev once and queues it on every live member of the room.
// It returns how many members accepted the frame.
func (h *Hub) Broadcast(name, id string, ev protocol.Event) int {
	msg, err := protocol.Encode(id, ev)
	if err != nil {
		zap.L().Error("hub.encode", zap.String("room", name), zap.Error(err))
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	r, ok := h.rooms[name]
	if !ok {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	metrics.EventsBroadcast.WithLabelValues(ev.EventType()).Inc()
	return r.fanout(msg)
}

// PublishPresence sends the room's full presence list to all its members.
// The snapshot and the fan‑out happen under one lock so members see presence
// lists in the order the membership changed.
func (h *Hub) PublishPresence(name string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	r, ok := h.rooms[name]
	if !ok {
		h.notify(name, []string{})
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	users := r.usernames()
	msg, err := protocol.Encode(protocol.NewID(protocol.KindUsers), protocol.Users{
		Users:     users,
		Timestamp: protocol.Timestamp(h.now()),
	})
	if err != nil {
		zap.L().Error("hub.encode", zap.String("room", name), zap.Error(err))
		return
	}
	metrics.EventsBroadcast.WithLabelValues(protocol.TypeUsers).Inc()
	r.fanout(msg)
	h.notify(name, users)
}

func (h *Hub) notify(name string, users []string) {
	for _, fn := range h.observers {
		fn(name, users)
	}
}
