package controller

import (
	"context"

	"github.com/gorilla/websocket"
)

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// broadcast writes the output to every conn, continuing past individual
// failures. A dead recipient is cleaned up by its own disconnect path; it
// must not stop delivery to the rest of the room.
func (c controller) broadcast(ctx context.Context, conns []*websocket.Conn, out *Output) error {
	for _, conn := range conns {
		if err := conn.WriteJSON(out); err != nil {
			c.logger.DebugContext(ctx, "failed to write to conn", "error", err, "type", out.Type)
		}
	}

	return nil
}

func (c controller) writeToConn(ctx context.Context, conn *websocket.Conn, out *Output) error {
	if err := conn.WriteJSON(out); err != nil {
		c.logger.DebugContext(ctx, "failed to write to conn", "error", err, "type", out.Type)
		return err
	}

	return nil
}
