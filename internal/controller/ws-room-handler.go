package controller

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/whonoahexe/watch.with/internal/service/room"
	"github.com/whonoahexe/watch.with/internal/service/voice"
)

type EmptyInput struct{}

func (c controller) handleAlive(_ context.Context, _ *websocket.Conn, _ EmptyInput) error {
	return nil
}

type CreateRoomInput struct {
	HostName string `json:"hostName" validate:"required,displayname"`
}

func (c controller) handleCreateRoom(ctx context.Context, conn *websocket.Conn, input CreateRoomInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		return c.writeValidationErrors(ctx, conn, roomErrorChannel, validationErrors)
	}

	createRoomResp, err := c.roomService.CreateRoom(ctx, &room.CreateRoomParams{
		HostName: input.HostName,
		Conn:     conn,
	})
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}

	if err := c.writeToConn(ctx, conn, &Output{
		Type: "room-created",
		Payload: map[string]any{
			"roomId":    createRoomResp.RoomId,
			"room":      createRoomResp.Room,
			"hostToken": createRoomResp.HostToken,
		},
	}); err != nil {
		return fmt.Errorf("failed to reply room created: %w", err)
	}

	if err := c.writeToConn(ctx, conn, &Output{
		Type: "room-joined",
		Payload: map[string]any{
			"room": createRoomResp.Room,
			"user": createRoomResp.User,
		},
	}); err != nil {
		return fmt.Errorf("failed to reply room joined: %w", err)
	}

	return nil
}

type JoinRoomInput struct {
	RoomId    string `json:"roomId" validate:"required,roomid"`
	UserName  string `json:"userName" validate:"required,displayname"`
	HostToken string `json:"hostToken" validate:"omitempty,uuid4"`
}

func (c controller) handleJoinRoom(ctx context.Context, conn *websocket.Conn, input JoinRoomInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		return c.writeValidationErrors(ctx, conn, roomErrorChannel, validationErrors)
	}

	joinRoomResp, err := c.roomService.JoinRoom(ctx, &room.JoinRoomParams{
		RoomId:    input.RoomId,
		UserName:  input.UserName,
		HostToken: input.HostToken,
		Conn:      conn,
	})
	if err != nil {
		return fmt.Errorf("failed to join room: %w", err)
	}

	if err := c.writeToConn(ctx, conn, &Output{
		Type: "room-joined",
		Payload: map[string]any{
			"room": joinRoomResp.Room,
			"user": joinRoomResp.User,
		},
	}); err != nil {
		return fmt.Errorf("failed to reply room joined: %w", err)
	}

	// A host re-attach retires the old user id; the room hears it depart
	// before the fresh identity arrives.
	if joinRoomResp.ReplacedUserId != "" {
		leaveResp, err := c.voiceService.Leave(ctx, &voice.LeaveParams{
			UserId: joinRoomResp.ReplacedUserId,
			RoomId: input.RoomId,
		})
		if err == nil && leaveResp.WasPresent {
			if err := c.broadcast(ctx, joinRoomResp.Conns, &Output{
				Type: "voice-peer-left",
				Payload: map[string]any{
					"userId": joinRoomResp.ReplacedUserId,
				},
			}); err != nil {
				return fmt.Errorf("failed to broadcast voice peer left: %w", err)
			}
		}

		if err := c.broadcast(ctx, joinRoomResp.Conns, &Output{
			Type: "user-left",
			Payload: map[string]any{
				"userId": joinRoomResp.ReplacedUserId,
			},
		}); err != nil {
			return fmt.Errorf("failed to broadcast user left: %w", err)
		}
	}

	if err := c.broadcast(ctx, joinRoomResp.Conns, &Output{
		Type: "user-joined",
		Payload: map[string]any{
			"user": joinRoomResp.User,
		},
	}); err != nil {
		return fmt.Errorf("failed to broadcast user joined: %w", err)
	}

	return nil
}

type LeaveRoomInput struct {
	RoomId string `json:"roomId" validate:"required,roomid"`
}

func (c controller) handleLeaveRoom(ctx context.Context, conn *websocket.Conn, input LeaveRoomInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		return c.writeValidationErrors(ctx, conn, roomErrorChannel, validationErrors)
	}

	sess, err := c.sessionRepo.GetByConn(conn)
	if err != nil || sess.RoomId != input.RoomId {
		return room.ErrNotInRoom
	}

	c.cleanupVoice(ctx, conn, sess)

	leaveRoomResp, err := c.roomService.LeaveRoom(ctx, &room.LeaveRoomParams{
		UserId: sess.UserId,
		RoomId: sess.RoomId,
	})

	// The session is detached no matter how the leave went; this connection
	// is out of the room's broadcast group either way.
	if _, removeErr := c.sessionRepo.RemoveByConn(conn); removeErr != nil {
		c.logger.DebugContext(ctx, "failed to remove session", "error", removeErr)
	}

	if err != nil {
		return fmt.Errorf("failed to leave room: %w", err)
	}

	c.broadcastLeave(ctx, &leaveRoomResp)

	return nil
}

type PromoteHostInput struct {
	RoomId string `json:"roomId" validate:"required,roomid"`
	UserId string `json:"userId" validate:"required,uuid4"`
}

func (c controller) handlePromoteHost(ctx context.Context, conn *websocket.Conn, input PromoteHostInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		return c.writeValidationErrors(ctx, conn, roomErrorChannel, validationErrors)
	}

	sess, err := c.sessionRepo.GetByConn(conn)
	if err != nil || sess.RoomId != input.RoomId {
		return room.ErrNotInRoom
	}

	promoteHostResp, err := c.roomService.PromoteHost(ctx, &room.PromoteHostParams{
		SenderId:     sess.UserId,
		RoomId:       input.RoomId,
		TargetUserId: input.UserId,
	})
	if err != nil {
		return fmt.Errorf("failed to promote host: %w", err)
	}

	if err := c.broadcast(ctx, promoteHostResp.Conns, &Output{
		Type: "user-promoted",
		Payload: map[string]any{
			"userId":   promoteHostResp.PromotedUser.Id,
			"userName": promoteHostResp.PromotedUser.Name,
		},
	}); err != nil {
		return fmt.Errorf("failed to broadcast user promoted: %w", err)
	}

	return nil
}

type SetVideoInput struct {
	RoomId    string `json:"roomId" validate:"required,roomid"`
	VideoUrl  string `json:"videoUrl" validate:"required,url"`
	VideoType string `json:"videoType" validate:"required,oneof=youtube mp4 m3u8"`
}

func (c controller) handleSetVideo(ctx context.Context, conn *websocket.Conn, input SetVideoInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		return c.writeValidationErrors(ctx, conn, roomErrorChannel, validationErrors)
	}

	sess, err := c.sessionRepo.GetByConn(conn)
	if err != nil || sess.RoomId != input.RoomId {
		return room.ErrNotInRoom
	}

	setVideoResp, err := c.roomService.SetVideo(ctx, &room.SetVideoParams{
		SenderId:  sess.UserId,
		RoomId:    input.RoomId,
		VideoUrl:  input.VideoUrl,
		VideoType: input.VideoType,
	})
	if err != nil {
		return fmt.Errorf("failed to set video: %w", err)
	}

	if err := c.broadcast(ctx, setVideoResp.Conns, &Output{
		Type: "video-set",
		Payload: map[string]any{
			"videoUrl":  setVideoResp.VideoUrl,
			"videoType": setVideoResp.VideoType,
		},
	}); err != nil {
		return fmt.Errorf("failed to broadcast video set: %w", err)
	}

	return nil
}

type SetSubtitlesInput struct {
	RoomId        string          `json:"roomId" validate:"required,roomid"`
	Tracks        json.RawMessage `json:"tracks" validate:"required"`
	ActiveTrackId *string         `json:"activeTrackId"`
}

func (c controller) handleSetSubtitles(ctx context.Context, conn *websocket.Conn, input SetSubtitlesInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		return c.writeValidationErrors(ctx, conn, roomErrorChannel, validationErrors)
	}

	sess, err := c.sessionRepo.GetByConn(conn)
	if err != nil || sess.RoomId != input.RoomId {
		return room.ErrNotInRoom
	}

	setSubtitlesResp, err := c.roomService.SetSubtitles(ctx, &room.SetSubtitlesParams{
		SenderId:      sess.UserId,
		RoomId:        input.RoomId,
		Tracks:        input.Tracks,
		ActiveTrackId: input.ActiveTrackId,
	})
	if err != nil {
		return fmt.Errorf("failed to set subtitles: %w", err)
	}

	if err := c.broadcast(ctx, setSubtitlesResp.Conns, &Output{
		Type: "subtitles-set",
		Payload: map[string]any{
			"subtitles": setSubtitlesResp.Subtitles,
		},
	}); err != nil {
		return fmt.Errorf("failed to broadcast subtitles set: %w", err)
	}

	return nil
}
