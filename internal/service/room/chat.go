package room

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	roomRepo "github.com/whonoahexe/watch.with/internal/repository/room"
)

type SendMessageParams struct {
	SenderId   string
	SenderName string
	RoomId     string
	SenderConn *websocket.Conn
	Message    string
}

type SendMessageResponse struct {
	Timestamp int64
	Conns     []*websocket.Conn
}

func (s service) SendMessage(ctx context.Context, params *SendMessageParams) (SendMessageResponse, error) {
	if _, err := s.roomRepo.GetUser(ctx, &roomRepo.GetUserParams{
		UserId: params.SenderId,
		RoomId: params.RoomId,
	}); err != nil {
		return SendMessageResponse{}, ErrNotInRoom
	}

	return SendMessageResponse{
		Timestamp: time.Now().UnixMilli(),
		Conns:     s.getOtherConns(params.RoomId, params.SenderConn),
	}, nil
}

type SetTypingParams struct {
	SenderId   string
	RoomId     string
	SenderConn *websocket.Conn
	IsTyping   bool
}

type SetTypingResponse struct {
	Conns []*websocket.Conn
}

func (s service) SetTyping(ctx context.Context, params *SetTypingParams) (SetTypingResponse, error) {
	if _, err := s.roomRepo.GetUser(ctx, &roomRepo.GetUserParams{
		UserId: params.SenderId,
		RoomId: params.RoomId,
	}); err != nil {
		return SetTypingResponse{}, ErrNotInRoom
	}

	return SetTypingResponse{
		Conns: s.getOtherConns(params.RoomId, params.SenderConn),
	}, nil
}
