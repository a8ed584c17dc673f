package controller

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/whonoahexe/watch.with/internal/service/room"
)

type PlaybackInput struct {
	RoomId      string  `json:"roomId" validate:"required,roomid"`
	CurrentTime float64 `json:"currentTime" validate:"min=0"`
}

var playbackEvents = map[room.PlaybackAction]string{
	room.ActionPlay:  "video-played",
	room.ActionPause: "video-paused",
	room.ActionSeek:  "video-seeked",
}

func (c controller) handlePlayVideo(ctx context.Context, conn *websocket.Conn, input PlaybackInput) error {
	return c.handlePlayback(ctx, conn, input, room.ActionPlay)
}

func (c controller) handlePauseVideo(ctx context.Context, conn *websocket.Conn, input PlaybackInput) error {
	return c.handlePlayback(ctx, conn, input, room.ActionPause)
}

func (c controller) handleSeekVideo(ctx context.Context, conn *websocket.Conn, input PlaybackInput) error {
	return c.handlePlayback(ctx, conn, input, room.ActionSeek)
}

func (c controller) handlePlayback(ctx context.Context, conn *websocket.Conn, input PlaybackInput, action room.PlaybackAction) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		return c.writeValidationErrors(ctx, conn, roomErrorChannel, validationErrors)
	}

	sess, err := c.sessionRepo.GetByConn(conn)
	if err != nil || sess.RoomId != input.RoomId {
		return room.ErrNotInRoom
	}

	updateResp, err := c.roomService.UpdatePlayerState(ctx, &room.UpdatePlayerStateParams{
		SenderId:    sess.UserId,
		RoomId:      input.RoomId,
		SenderConn:  conn,
		Action:      action,
		CurrentTime: input.CurrentTime,
	})
	if err != nil {
		return fmt.Errorf("failed to update player state: %w", err)
	}

	if err := c.broadcast(ctx, updateResp.Conns, &Output{
		Type: playbackEvents[action],
		Payload: map[string]any{
			"currentTime": updateResp.CurrentTime,
			"timestamp":   updateResp.Timestamp,
		},
	}); err != nil {
		return fmt.Errorf("failed to broadcast playback event: %w", err)
	}

	return nil
}

type SyncCheckInput struct {
	RoomId      string  `json:"roomId" validate:"required,roomid"`
	CurrentTime float64 `json:"currentTime" validate:"min=0"`
	IsPlaying   bool    `json:"isPlaying"`
	Timestamp   int64   `json:"timestamp" validate:"required"`
}

func (c controller) handleSyncCheck(ctx context.Context, conn *websocket.Conn, input SyncCheckInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		return c.writeValidationErrors(ctx, conn, roomErrorChannel, validationErrors)
	}

	sess, err := c.sessionRepo.GetByConn(conn)
	if err != nil || sess.RoomId != input.RoomId {
		return room.ErrNotInRoom
	}

	syncCheckResp, err := c.roomService.SyncCheck(ctx, &room.SyncCheckParams{
		SenderId:    sess.UserId,
		RoomId:      input.RoomId,
		CurrentTime: input.CurrentTime,
		IsPlaying:   input.IsPlaying,
		Timestamp:   input.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to sync check: %w", err)
	}

	// the host's snapshot is relayed verbatim, including its timestamp
	if err := c.broadcast(ctx, syncCheckResp.Conns, &Output{
		Type: "sync-update",
		Payload: map[string]any{
			"currentTime": input.CurrentTime,
			"isPlaying":   input.IsPlaying,
			"timestamp":   input.Timestamp,
		},
	}); err != nil {
		return fmt.Errorf("failed to broadcast sync update: %w", err)
	}

	return nil
}
