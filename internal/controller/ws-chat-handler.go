package controller

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/whonoahexe/watch.with/internal/service/room"
)

type ChatMessageInput struct {
	RoomId  string `json:"roomId" validate:"required,roomid"`
	Message string `json:"message" validate:"required,max=500"`
}

func (c controller) handleChatMessage(ctx context.Context, conn *websocket.Conn, input ChatMessageInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		return c.writeValidationErrors(ctx, conn, roomErrorChannel, validationErrors)
	}

	sess, err := c.sessionRepo.GetByConn(conn)
	if err != nil || sess.RoomId != input.RoomId {
		return room.ErrNotInRoom
	}

	sendMessageResp, err := c.roomService.SendMessage(ctx, &room.SendMessageParams{
		SenderId:   sess.UserId,
		SenderName: sess.UserName,
		RoomId:     input.RoomId,
		SenderConn: conn,
		Message:    input.Message,
	})
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	if err := c.broadcast(ctx, sendMessageResp.Conns, &Output{
		Type: "chat-message",
		Payload: map[string]any{
			"userId":    sess.UserId,
			"userName":  sess.UserName,
			"message":   input.Message,
			"timestamp": sendMessageResp.Timestamp,
		},
	}); err != nil {
		return fmt.Errorf("failed to broadcast chat message: %w", err)
	}

	return nil
}

type TypingInput struct {
	RoomId string `json:"roomId" validate:"required,roomid"`
}

func (c controller) handleTypingStart(ctx context.Context, conn *websocket.Conn, input TypingInput) error {
	return c.handleTyping(ctx, conn, input, true)
}

func (c controller) handleTypingStop(ctx context.Context, conn *websocket.Conn, input TypingInput) error {
	return c.handleTyping(ctx, conn, input, false)
}

func (c controller) handleTyping(ctx context.Context, conn *websocket.Conn, input TypingInput, isTyping bool) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		c.logger.DebugContext(ctx, "dropped malformed typing event", "errors", validationErrors)
		return nil
	}

	sess, err := c.sessionRepo.GetByConn(conn)
	if err != nil || sess.RoomId != input.RoomId {
		return room.ErrNotInRoom
	}

	setTypingResp, err := c.roomService.SetTyping(ctx, &room.SetTypingParams{
		SenderId:   sess.UserId,
		RoomId:     input.RoomId,
		SenderConn: conn,
		IsTyping:   isTyping,
	})
	if err != nil {
		return fmt.Errorf("failed to set typing: %w", err)
	}

	if err := c.broadcast(ctx, setTypingResp.Conns, &Output{
		Type: "user-typing",
		Payload: map[string]any{
			"userId":   sess.UserId,
			"isTyping": isTyping,
		},
	}); err != nil {
		return fmt.Errorf("failed to broadcast typing state: %w", err)
	}

	return nil
}
