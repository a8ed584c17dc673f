package room

import (
	"context"

	"github.com/gorilla/websocket"
	roomRepo "github.com/whonoahexe/watch.with/internal/repository/room"
)

type PromoteHostParams struct {
	SenderId     string
	RoomId       string
	TargetUserId string
}

type PromoteHostResponse struct {
	PromotedUser User
	Conns        []*websocket.Conn
}

// PromoteHost grants host rights to another member. Promotion is additive;
// existing hosts are never demoted.
func (s service) PromoteHost(ctx context.Context, params *PromoteHostParams) (PromoteHostResponse, error) {
	if err := s.checkIfHost(ctx, params.RoomId, params.SenderId); err != nil {
		return PromoteHostResponse{}, err
	}

	userIds, err := s.roomRepo.GetUserIds(ctx, params.RoomId)
	if err != nil {
		return PromoteHostResponse{}, err
	}

	inRoom := false
	for _, id := range userIds {
		if id == params.TargetUserId {
			inRoom = true
			break
		}
	}
	if !inRoom {
		return PromoteHostResponse{}, ErrUserNotFound
	}

	target, err := s.roomRepo.GetUser(ctx, &roomRepo.GetUserParams{
		UserId: params.TargetUserId,
		RoomId: params.RoomId,
	})
	if err != nil {
		return PromoteHostResponse{}, ErrUserNotFound
	}

	if target.IsHost {
		return PromoteHostResponse{}, ErrAlreadyHost
	}

	if err := s.roomRepo.UpdateUserIsHost(ctx, params.TargetUserId, true); err != nil {
		return PromoteHostResponse{}, err
	}

	return PromoteHostResponse{
		PromotedUser: User{
			Id:           params.TargetUserId,
			Name:         target.Name,
			IsHost:       true,
			JoinedAt:     target.JoinedAt,
			VoiceEnabled: target.VoiceEnabled,
			IsMuted:      target.IsMuted,
			IsDeafened:   target.IsDeafened,
		},
		Conns: s.sessionRepo.GetConnsByRoomId(params.RoomId),
	}, nil
}

type UpdateVoiceStateParams struct {
	SenderId   string
	RoomId     string
	SenderConn *websocket.Conn
	IsMuted    *bool
	IsDeafened *bool
}

type UpdateVoiceStateResponse struct {
	UpdatedUser User
	Conns       []*websocket.Conn
}

func (s service) UpdateVoiceState(ctx context.Context, params *UpdateVoiceStateParams) (UpdateVoiceStateResponse, error) {
	user, err := s.roomRepo.GetUser(ctx, &roomRepo.GetUserParams{
		UserId: params.SenderId,
		RoomId: params.RoomId,
	})
	if err != nil {
		return UpdateVoiceStateResponse{}, ErrNotInRoom
	}

	if params.IsMuted != nil && user.IsMuted != *params.IsMuted {
		if err := s.roomRepo.UpdateUserIsMuted(ctx, params.SenderId, *params.IsMuted); err != nil {
			return UpdateVoiceStateResponse{}, err
		}
		user.IsMuted = *params.IsMuted
	}

	if params.IsDeafened != nil && user.IsDeafened != *params.IsDeafened {
		if err := s.roomRepo.UpdateUserIsDeafened(ctx, params.SenderId, *params.IsDeafened); err != nil {
			return UpdateVoiceStateResponse{}, err
		}
		user.IsDeafened = *params.IsDeafened
	}

	return UpdateVoiceStateResponse{
		UpdatedUser: User{
			Id:           params.SenderId,
			Name:         user.Name,
			IsHost:       user.IsHost,
			JoinedAt:     user.JoinedAt,
			VoiceEnabled: user.VoiceEnabled,
			IsMuted:      user.IsMuted,
			IsDeafened:   user.IsDeafened,
		},
		Conns: s.getOtherConns(params.RoomId, params.SenderConn),
	}, nil
}
