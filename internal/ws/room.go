package ws

import (
	"slices"
	"sync"

	"chatrelay/internal/metrics"
)

// room maps usernames to their single live connection. Membership changes
// happen under the hub's write lock; mu orders fan‑outs that only hold the
// hub's read lock.
type room struct {
	mu      sync.Mutex
	name    string
	members map[string]*clientConn
	order   []string // join order, for the presence list
}

func newRoom(name string) *room {
	return &room{name: name, members: map[string]*clientConn{}}
}

// add registers c under username and returns the connection it replaced.
func (r *room) add(username string, c *clientConn) *clientConn {
	prior, ok := r.members[username]
	if ok {
		r.order = slices.DeleteFunc(r.order, func(u string) bool { return u == username })
	}
	r.members[username] = c
	r.order = append(r.order, username)
	return prior
}

// remove drops username when it is still bound to c.
func (r *room) remove(username string, c *clientConn) bool {
	cur, ok := r.members[username]
	if !ok || cur != c {
		return false
	}
	delete(r.members, username)
	r.order = slices.DeleteFunc(r.order, func(u string) bool { return u == username })
	return true
}

func (r *room) empty() bool { return len(r.members) == 0 }

func (r *room) usernames() []string {
	return slices.Clone(r.order)
}

// fanout enqueues msg on every member. Queues are drained by each
// connection's writer, so nothing here blocks on the network.
func (r *room) fanout(msg []byte) int {
	delivered := 0
	for _, username := range r.order {
		c := r.members[username]
		if c.enqueue(msg) {
			delivered++
			continue
		}
		if !c.isClosed() {
			metrics.FramesDropped.WithLabelValues("queue_full").Inc()
		}
	}
	return delivered
}
