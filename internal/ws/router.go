package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"chatrelay/internal/protocol"

	"github.com/go-playground/validator/v10"
)

var (
	errUnknownEvent   = errors.New("unknown_event")
	errInvalidPayload = errors.New("invalid_payload")
)

// internal (untyped) handler signature.
type rawHandler func(c *clientConn, body json.RawMessage) error

// Router keeps a map[event]handler, à‑la gin.Engine.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]rawHandler
	validate *validator.Validate
}

func NewRouter() *Router {
	return &Router{
		handlers: make(map[string]rawHandler),
		validate: validator.New(),
	}
}

// Register binds an event to a strongly‑typed handler. The body is decoded
// into Req and validated before h runs.
func Register[Req any](
	r *Router,
	event string,
	h func(c *clientConn, req Req) error,
) {
	if event == "" {
		panic("ws router: empty event")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[event] = func(c *clientConn, body json.RawMessage) error {
		var req Req
		if len(body) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				return fmt.Errorf("%w: %v", errInvalidPayload, err)
			}
		}
		if err := r.validate.Struct(req); err != nil {
			return fmt.Errorf("%w: %v", errInvalidPayload, err)
		}
		return h(c, req)
	}
}

// dispatch is called by the server’s reader loop.
func (r *Router) dispatch(c *clientConn, f protocol.Frame) error {
	r.mu.RLock()
	h, ok := r.handlers[f.Type]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownEvent, f.Type)
	}
	return h(c, f.Payload)
}
