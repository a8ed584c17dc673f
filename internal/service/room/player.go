package room

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	roomRepo "github.com/whonoahexe/watch.with/internal/repository/room"
)

type PlaybackAction string

const (
	ActionPlay  PlaybackAction = "play"
	ActionPause PlaybackAction = "pause"
	ActionSeek  PlaybackAction = "seek"
)

type UpdatePlayerStateParams struct {
	SenderId    string
	RoomId      string
	SenderConn  *websocket.Conn
	Action      PlaybackAction
	CurrentTime float64
}

type UpdatePlayerStateResponse struct {
	CurrentTime float64
	Timestamp   int64
	Conns       []*websocket.Conn
}

// UpdatePlayerState applies a host playback transition and returns the other
// members' conns for fan-out. The server stamps the timestamp; recipients
// compensate for elapsed time client-side.
func (s service) UpdatePlayerState(ctx context.Context, params *UpdatePlayerStateParams) (UpdatePlayerStateResponse, error) {
	if err := s.checkIfHost(ctx, params.RoomId, params.SenderId); err != nil {
		return UpdatePlayerStateResponse{}, err
	}

	isPlaying := false
	switch params.Action {
	case ActionPlay:
		isPlaying = true
	case ActionPause:
		isPlaying = false
	case ActionSeek:
		// seeking preserves the play/pause state
		player, err := s.roomRepo.GetPlayer(ctx, params.RoomId)
		if err != nil {
			return UpdatePlayerStateResponse{}, err
		}
		isPlaying = player.IsPlaying
	}

	timestamp := time.Now().UnixMilli()
	if err := s.roomRepo.UpdatePlayerState(ctx, &roomRepo.UpdatePlayerStateParams{
		RoomId:         params.RoomId,
		IsPlaying:      isPlaying,
		CurrentTime:    params.CurrentTime,
		LastUpdateTime: timestamp,
	}); err != nil {
		return UpdatePlayerStateResponse{}, err
	}

	return UpdatePlayerStateResponse{
		CurrentTime: params.CurrentTime,
		Timestamp:   timestamp,
		Conns:       s.getOtherConns(params.RoomId, params.SenderConn),
	}, nil
}

type SyncCheckParams struct {
	SenderId    string
	RoomId      string
	CurrentTime float64
	IsPlaying   bool
	Timestamp   int64
}

type SyncCheckResponse struct {
	Conns []*websocket.Conn
}

// SyncCheck relays the host's periodic authority snapshot to guests only.
// Hosts never receive sync-updates; they are the source of truth, and echoing
// the snapshot back would create a feedback loop.
func (s service) SyncCheck(ctx context.Context, params *SyncCheckParams) (SyncCheckResponse, error) {
	if err := s.checkIfHost(ctx, params.RoomId, params.SenderId); err != nil {
		return SyncCheckResponse{}, err
	}

	userIds, err := s.roomRepo.GetUserIds(ctx, params.RoomId)
	if err != nil {
		return SyncCheckResponse{}, err
	}

	conns := make([]*websocket.Conn, 0, len(userIds))
	for _, userId := range userIds {
		user, err := s.roomRepo.GetUser(ctx, &roomRepo.GetUserParams{
			UserId: userId,
			RoomId: params.RoomId,
		})
		if err != nil || user.IsHost {
			continue
		}

		conn, err := s.sessionRepo.GetConnByUserId(userId)
		if err != nil {
			continue
		}

		conns = append(conns, conn)
	}

	return SyncCheckResponse{Conns: conns}, nil
}
