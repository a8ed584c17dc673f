package controller

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/whonoahexe/watch.with/internal/service/room"
	"github.com/whonoahexe/watch.with/internal/service/voice"
)

type VoiceJoinInput struct {
	RoomId string `json:"roomId" validate:"required,roomid"`
}

func (c controller) handleVoiceJoin(ctx context.Context, conn *websocket.Conn, input VoiceJoinInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		return c.writeValidationErrors(ctx, conn, voiceErrorChannel, validationErrors)
	}

	sess, err := c.sessionRepo.GetByConn(conn)
	if err != nil || sess.RoomId != input.RoomId {
		return voice.ErrNotAuthenticated
	}

	joinResp, err := c.voiceService.Join(ctx, &voice.JoinParams{
		UserId:     sess.UserId,
		RoomId:     input.RoomId,
		SenderConn: conn,
	})
	if err != nil {
		return fmt.Errorf("failed to join voice: %w", err)
	}

	if err := c.writeToConn(ctx, conn, &Output{
		Type: "voice-participants",
		Payload: map[string]any{
			"userIds": joinResp.ParticipantIds,
		},
	}); err != nil {
		return fmt.Errorf("failed to write voice participants: %w", err)
	}

	if joinResp.AlreadyJoined {
		return nil
	}

	if err := c.broadcast(ctx, joinResp.Conns, &Output{
		Type: "voice-peer-joined",
		Payload: map[string]any{
			"userId": sess.UserId,
		},
	}); err != nil {
		return fmt.Errorf("failed to broadcast voice peer joined: %w", err)
	}

	return nil
}

type VoiceLeaveInput struct {
	RoomId string `json:"roomId" validate:"required,roomid"`
}

func (c controller) handleVoiceLeave(ctx context.Context, conn *websocket.Conn, input VoiceLeaveInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		return c.writeValidationErrors(ctx, conn, voiceErrorChannel, validationErrors)
	}

	sess, err := c.sessionRepo.GetByConn(conn)
	if err != nil || sess.RoomId != input.RoomId {
		return voice.ErrNotAuthenticated
	}

	leaveResp, err := c.voiceService.Leave(ctx, &voice.LeaveParams{
		UserId:     sess.UserId,
		RoomId:     input.RoomId,
		SenderConn: conn,
	})
	if err != nil {
		return fmt.Errorf("failed to leave voice: %w", err)
	}

	if !leaveResp.WasPresent {
		return nil
	}

	if err := c.broadcast(ctx, leaveResp.Conns, &Output{
		Type: "voice-peer-left",
		Payload: map[string]any{
			"userId": sess.UserId,
		},
	}); err != nil {
		return fmt.Errorf("failed to broadcast voice peer left: %w", err)
	}

	return nil
}

type VoiceOfferInput struct {
	RoomId       string          `json:"roomId" validate:"required,roomid"`
	TargetUserId string          `json:"targetUserId" validate:"required,uuid4"`
	Sdp          json.RawMessage `json:"sdp" validate:"required"`
}

func (c controller) handleVoiceOffer(ctx context.Context, conn *websocket.Conn, input VoiceOfferInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		c.logger.DebugContext(ctx, "dropped malformed signal", "errors", validationErrors)
		return nil
	}

	return c.relaySignal(ctx, conn, "voice-offer", input.RoomId, input.TargetUserId, "sdp", input.Sdp)
}

type VoiceAnswerInput struct {
	RoomId       string          `json:"roomId" validate:"required,roomid"`
	TargetUserId string          `json:"targetUserId" validate:"required,uuid4"`
	Sdp          json.RawMessage `json:"sdp" validate:"required"`
}

func (c controller) handleVoiceAnswer(ctx context.Context, conn *websocket.Conn, input VoiceAnswerInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		c.logger.DebugContext(ctx, "dropped malformed signal", "errors", validationErrors)
		return nil
	}

	return c.relaySignal(ctx, conn, "voice-answer", input.RoomId, input.TargetUserId, "sdp", input.Sdp)
}

type VoiceIceCandidateInput struct {
	RoomId       string          `json:"roomId" validate:"required,roomid"`
	TargetUserId string          `json:"targetUserId" validate:"required,uuid4"`
	Candidate    json.RawMessage `json:"candidate" validate:"required"`
}

func (c controller) handleVoiceIceCandidate(ctx context.Context, conn *websocket.Conn, input VoiceIceCandidateInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		c.logger.DebugContext(ctx, "dropped malformed signal", "errors", validationErrors)
		return nil
	}

	return c.relaySignal(ctx, conn, "voice-ice-candidate", input.RoomId, input.TargetUserId, "candidate", input.Candidate)
}

// relaySignal forwards an already-validated opaque signaling payload stamped
// with the verified sender id. The payload itself is never parsed.
func (c controller) relaySignal(ctx context.Context, conn *websocket.Conn, messageType, roomId, targetUserId, payloadKey string, payload json.RawMessage) error {
	sess, err := c.sessionRepo.GetByConn(conn)
	if err != nil || sess.RoomId != roomId {
		return voice.ErrNotAuthenticated
	}

	relayResp, err := c.voiceService.Relay(ctx, &voice.RelayParams{
		FromUserId:   sess.UserId,
		RoomId:       roomId,
		TargetUserId: targetUserId,
		SenderConn:   conn,
	})
	if err != nil {
		return fmt.Errorf("failed to relay signal: %w", err)
	}

	if err := c.broadcast(ctx, relayResp.Conns, &Output{
		Type: messageType,
		Payload: map[string]any{
			"fromUserId":   sess.UserId,
			"targetUserId": targetUserId,
			payloadKey:     payload,
		},
	}); err != nil {
		return fmt.Errorf("failed to broadcast signal: %w", err)
	}

	return nil
}

type UpdateVoiceStateInput struct {
	RoomId     string `json:"roomId" validate:"required,roomid"`
	IsMuted    *bool  `json:"isMuted"`
	IsDeafened *bool  `json:"isDeafened"`
}

func (c controller) handleUpdateVoiceState(ctx context.Context, conn *websocket.Conn, input UpdateVoiceStateInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		return c.writeValidationErrors(ctx, conn, voiceErrorChannel, validationErrors)
	}

	sess, err := c.sessionRepo.GetByConn(conn)
	if err != nil || sess.RoomId != input.RoomId {
		return room.ErrNotInRoom
	}

	updateResp, err := c.roomService.UpdateVoiceState(ctx, &room.UpdateVoiceStateParams{
		SenderId:   sess.UserId,
		RoomId:     input.RoomId,
		SenderConn: conn,
		IsMuted:    input.IsMuted,
		IsDeafened: input.IsDeafened,
	})
	if err != nil {
		return fmt.Errorf("failed to update voice state: %w", err)
	}

	if err := c.broadcast(ctx, updateResp.Conns, &Output{
		Type: "voice-state-changed",
		Payload: map[string]any{
			"user": updateResp.UpdatedUser,
		},
	}); err != nil {
		return fmt.Errorf("failed to broadcast voice state: %w", err)
	}

	return nil
}
