package main

import (
	"chatrelay/internal/protocol"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// renderer prints room events as terminal lines.
type renderer struct {
	mu   sync.Mutex
	w    io.Writer
	self string
}

func newRenderer(w io.Writer, self string) *renderer {
	return &renderer{w: w, self: self}
}

func (r *renderer) event(_ string, ev protocol.Event) {
	switch e := ev.(type) {
	case protocol.System:
		r.println(fmt.Sprintf("[%s] * %s", clock(e.Timestamp), e.Message))
	case protocol.Message:
		who := e.Username
		if who == r.self {
			who = "You"
		}
		r.println(fmt.Sprintf("[%s] %s: %s", clock(e.Timestamp), who, e.Message))
	case protocol.Users:
		names := make([]string, len(e.Users))
		for i, u := range e.Users {
			names[i] = u
			if u == r.self {
				names[i] += " (you)"
			}
		}
		r.println(fmt.Sprintf("-- %d online: %s", len(e.Users), strings.Join(names, ", ")))
	}
}

func (r *renderer) status(connected bool) {
	if connected {
		r.notice("connected")
		return
	}
	r.notice("disconnected (reconnecting...)")
}

func (r *renderer) notice(msg string) {
	r.println("-- " + msg)
}

func (r *renderer) println(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.w, line)
}

// clock renders an event timestamp as local wall time.
func clock(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return "--:--:--"
	}
	return t.Local().Format("15:04:05")
}
