package wsrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
)

var (
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrMalformedPayload   = errors.New("malformed payload")
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// HandlerFunc handles a single inbound message. The typed wrapper installed
// via Handle decodes the payload before the user handler runs.
type HandlerFunc func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error

type Middleware func(next HandlerFunc) HandlerFunc

// ErrorFunc receives every error returned by a handler, including
// ErrUnknownMessageType for unroutable messages.
type ErrorFunc func(ctx context.Context, conn *websocket.Conn, messageType string, err error)

type Router struct {
	routes      map[string]HandlerFunc
	middlewares []Middleware
	onError     ErrorFunc
}

func New() *Router {
	return &Router{routes: make(map[string]HandlerFunc)}
}

func (r *Router) Use(mw Middleware) {
	r.middlewares = append(r.middlewares, mw)
}

func (r *Router) OnError(f ErrorFunc) {
	r.onError = f
}

// Handle registers a typed handler for the given message type. The payload is
// unmarshalled into T before the handler runs; a payload that does not decode
// fails with ErrMalformedPayload.
func Handle[T any](r *Router, messageType string, handler func(ctx context.Context, conn *websocket.Conn, input T) error) {
	r.routes[messageType] = func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
		var input T
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &input); err != nil {
				return fmt.Errorf("%w: %s", ErrMalformedPayload, err)
			}
		}

		return handler(ctx, conn, input)
	}
}

// ServeConn reads messages from the connection until the read fails,
// dispatching each one through the middleware chain to its registered
// handler. Handler errors go to the OnError hook and never terminate the
// loop; one bad message must not tear down the connection.
func (r *Router) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	defer conn.Close()

	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		mctx := context.WithValue(ctx, messageTypeKey, msg.Type)

		handler, ok := r.routes[msg.Type]
		if !ok {
			if r.onError != nil {
				r.onError(mctx, conn, msg.Type, ErrUnknownMessageType)
			}
			continue
		}

		for i := len(r.middlewares) - 1; i >= 0; i-- {
			handler = r.middlewares[i](handler)
		}

		if err := handler(mctx, conn, msg.Payload); err != nil {
			if r.onError != nil {
				r.onError(mctx, conn, msg.Type, err)
			}
		}
	}
}
