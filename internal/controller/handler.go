package controller

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/whonoahexe/watch.with/internal/repository/session"
	"github.com/whonoahexe/watch.with/internal/service/room"
	"github.com/whonoahexe/watch.with/internal/service/voice"
)

func (c controller) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}
	defer c.disconnect(r.Context(), conn)

	if err := c.wsmux.ServeConn(r.Context(), conn); err != nil {
		c.logger.InfoContext(r.Context(), "connection closed", "error", err)
	}
}

// disconnect runs the transport-close cleanup: voice membership first, then
// room membership, then the session binding. It must be safe to run after a
// graceful leave already did part of the work.
func (c controller) disconnect(ctx context.Context, conn *websocket.Conn) {
	sess, err := c.sessionRepo.GetByConn(conn)
	if err != nil {
		return
	}

	c.cleanupVoice(ctx, conn, sess)

	resp, err := c.roomService.DisconnectUser(ctx, &room.LeaveRoomParams{
		UserId: sess.UserId,
		RoomId: sess.RoomId,
	})
	if err != nil {
		c.logger.InfoContext(ctx, "failed to disconnect user", "error", err, "user_id", sess.UserId)
	} else {
		c.broadcastLeave(ctx, &resp)
	}

	if _, err := c.sessionRepo.RemoveByConn(conn); err != nil {
		c.logger.DebugContext(ctx, "failed to remove session", "error", err)
	}
}

func (c controller) cleanupVoice(ctx context.Context, conn *websocket.Conn, sess session.Session) {
	leaveResp, err := c.voiceService.Leave(ctx, &voice.LeaveParams{
		UserId:     sess.UserId,
		RoomId:     sess.RoomId,
		SenderConn: conn,
	})
	if err != nil {
		c.logger.InfoContext(ctx, "failed to leave voice", "error", err, "user_id", sess.UserId)
		return
	}

	if leaveResp.WasPresent {
		if err := c.broadcast(ctx, leaveResp.Conns, &Output{
			Type: "voice-peer-left",
			Payload: map[string]any{
				"userId": sess.UserId,
			},
		}); err != nil {
			c.logger.InfoContext(ctx, "failed to broadcast voice peer left", "error", err)
		}
	}
}

// broadcastLeave emits the aftermath of a departure: either the one-shot
// room-closing error that tells remaining clients to redirect, or a plain
// user-left.
func (c controller) broadcastLeave(ctx context.Context, resp *room.LeaveRoomResponse) {
	if resp.RoomClosed {
		if err := c.broadcast(ctx, resp.Conns, &Output{
			Type: "room-error",
			Payload: map[string]any{
				"error": "all hosts left the room",
			},
		}); err != nil {
			c.logger.InfoContext(ctx, "failed to broadcast room closing", "error", err)
		}
		return
	}

	if resp.RoomDeleted {
		return
	}

	if err := c.broadcast(ctx, resp.Conns, &Output{
		Type: "user-left",
		Payload: map[string]any{
			"userId": resp.UserId,
		},
	}); err != nil {
		c.logger.InfoContext(ctx, "failed to broadcast user left", "error", err)
	}
}
