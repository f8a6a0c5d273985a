package protocol

import (
	"strconv"
	"sync/atomic"
	"time"
)

// ISO‑8601 with millisecond precision, always UTC ("...T12:00:00.000Z").
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Id prefixes per server event.
const (
	KindJoin    = "join"
	KindLeave   = "leave"
	KindMessage = "msg"
	KindUsers   = "users"
)

var seq atomic.Uint64

// NewID returns "<kind>-<unix millis>-<seq>". The process‑wide sequence keeps
// ids unique when several events are produced within the same millisecond.
func NewID(kind string) string {
	return kind + "-" + strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + strconv.FormatUint(seq.Add(1), 10)
}

// Timestamp formats t the way every server event carries it.
func Timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
