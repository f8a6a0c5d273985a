package presence

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	activeSet   = "presence:rooms"
	listPrefix  = "presence:"
	pipeTimeout = 1500 * time.Millisecond

	defaultQueue = 1024
)

type update struct {
	room  string
	users []string
}

// Mirror copies room presence lists into Redis so processes outside the
// relay can read who is online. Updates are queued by Publish and written
// in order by Run.
type Mirror struct {
	rdc     redis.Cmdable
	updates chan update
}

func NewMirror(rdc redis.Cmdable, queue int) *Mirror {
	if queue <= 0 {
		queue = defaultQueue
	}
	return &Mirror{rdc: rdc, updates: make(chan update, queue)}
}

// Key returns the list key holding a room's presence.
func Key(room string) string { return listPrefix + "room:" + room }

// Publish queues a presence list without blocking; it has the hub's
// PresenceObserver signature. A full queue drops the update.
func (m *Mirror) Publish(room string, users []string) {
	select {
	case m.updates <- update{room: room, users: users}:
	default:
		zap.L().Warn("presence.queue_full", zap.String("room", room))
	}
}

// Run drains queued updates until ctx is done.
func (m *Mirror) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case u := <-m.updates:
			if err := m.write(ctx, u); err != nil {
				zap.L().Warn("presence.write", zap.String("room", u.room), zap.Error(err))
			}
		}
	}
}

// write replaces the room's list and its membership in the active set in
// one MULTI/EXEC.
func (m *Mirror) write(ctx context.Context, u update) error {
	ctx, cancel := context.WithTimeout(ctx, pipeTimeout)
	defer cancel()

	key := Key(u.room)
	_, err := m.rdc.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(u.users) == 0 {
			pipe.SRem(ctx, activeSet, u.room)
			return nil
		}
		pipe.RPush(ctx, key, toArgs(u.users)...)
		pipe.SAdd(ctx, activeSet, u.room)
		return nil
	})
	return err
}

// Reset removes whatever a previous relay process left behind.
func (m *Mirror) Reset(ctx context.Context) error {
	rooms, err := m.rdc.SMembers(ctx, activeSet).Result()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(rooms)+1)
	for _, room := range rooms {
		keys = append(keys, Key(room))
	}
	keys = append(keys, activeSet)
	return m.rdc.Del(ctx, keys...).Err()
}

func toArgs(users []string) []interface{} {
	args := make([]interface{}, len(users))
	for i, u := range users {
		args[i] = u
	}
	return args
}
