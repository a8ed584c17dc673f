package room

import (
	"context"

	"github.com/gorilla/websocket"
	roomRepo "github.com/whonoahexe/watch.with/internal/repository/room"
)

func (s service) getUsers(ctx context.Context, roomId string) ([]User, error) {
	userIds, err := s.roomRepo.GetUserIds(ctx, roomId)
	if err != nil {
		return nil, err
	}

	users := make([]User, 0, len(userIds))
	for _, userId := range userIds {
		user, err := s.roomRepo.GetUser(ctx, &roomRepo.GetUserParams{
			UserId: userId,
			RoomId: roomId,
		})
		if err != nil {
			return nil, err
		}

		users = append(users, User{
			Id:           userId,
			Name:         user.Name,
			IsHost:       user.IsHost,
			JoinedAt:     user.JoinedAt,
			VoiceEnabled: user.VoiceEnabled,
			IsMuted:      user.IsMuted,
			IsDeafened:   user.IsDeafened,
		})
	}

	return users, nil
}

// checkIfHost verifies the user is a current host of the room. Every
// host-only operation gates on this server-side; client-side discipline is
// not trusted.
func (s service) checkIfHost(ctx context.Context, roomId, userId string) error {
	user, err := s.roomRepo.GetUser(ctx, &roomRepo.GetUserParams{
		UserId: userId,
		RoomId: roomId,
	})
	if err != nil {
		return ErrPermissionDenied
	}

	if !user.IsHost {
		return ErrPermissionDenied
	}

	return nil
}

func (s service) getOtherConns(roomId string, exclude *websocket.Conn) []*websocket.Conn {
	conns := s.sessionRepo.GetConnsByRoomId(roomId)
	others := make([]*websocket.Conn, 0, len(conns))
	for _, conn := range conns {
		if conn != exclude {
			others = append(others, conn)
		}
	}

	return others
}

func (s service) getRoomState(ctx context.Context, roomId string) (Room, error) {
	rm, err := s.roomRepo.GetRoom(ctx, roomId)
	if err != nil {
		return Room{}, err
	}

	users, err := s.getUsers(ctx, roomId)
	if err != nil {
		return Room{}, err
	}

	player, err := s.roomRepo.GetPlayer(ctx, roomId)
	if err != nil {
		return Room{}, err
	}

	state := Room{
		Id:        roomId,
		HostId:    rm.HostId,
		HostName:  rm.HostName,
		VideoUrl:  rm.VideoUrl,
		VideoType: rm.VideoType,
		VideoState: VideoState{
			IsPlaying:      player.IsPlaying,
			CurrentTime:    player.CurrentTime,
			Duration:       player.Duration,
			LastUpdateTime: player.LastUpdateTime,
		},
		Users:     users,
		CreatedAt: rm.CreatedAt,
	}

	subtitles, err := s.roomRepo.GetSubtitles(ctx, roomId)
	if err == nil {
		state.Subtitles = &Subtitles{
			Tracks:        subtitles.Tracks,
			ActiveTrackId: subtitles.ActiveTrackId,
		}
	}

	return state, nil
}
