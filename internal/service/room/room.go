package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	roomRepo "github.com/whonoahexe/watch.with/internal/repository/room"
	"github.com/whonoahexe/watch.with/internal/repository/session"
)

const createRoomAttempts = 5

type CreateRoomParams struct {
	HostName string
	Conn     *websocket.Conn
}

type CreateRoomResponse struct {
	RoomId    string
	HostToken string
	Room      Room
	User      User
}

func (s service) CreateRoom(ctx context.Context, params *CreateRoomParams) (CreateRoomResponse, error) {
	if _, err := s.sessionRepo.GetByConn(params.Conn); err == nil {
		return CreateRoomResponse{}, ErrAlreadyInRoom
	}

	hostToken := uuid.NewString()
	hostId := uuid.NewString()
	now := time.Now()

	var roomId string
	for attempt := 0; ; attempt++ {
		roomId = s.generator.GenerateRandomString(s.roomIdLength)
		err := s.roomRepo.SetRoom(ctx, &roomRepo.SetRoomParams{
			RoomId:    roomId,
			HostId:    hostId,
			HostName:  params.HostName,
			HostToken: hostToken,
			CreatedAt: now.UnixMilli(),
		})
		if err == nil {
			break
		}

		if !errors.Is(err, roomRepo.ErrRoomAlreadyExists) || attempt+1 >= createRoomAttempts {
			s.logger.InfoContext(ctx, "failed to create room", "error", err)
			return CreateRoomResponse{}, err
		}
	}

	if err := s.roomRepo.SetPlayer(ctx, &roomRepo.SetPlayerParams{
		RoomId:         roomId,
		IsPlaying:      false,
		CurrentTime:    0,
		Duration:       0,
		LastUpdateTime: now.UnixMilli(),
	}); err != nil {
		return CreateRoomResponse{}, err
	}

	if err := s.roomRepo.SetUser(ctx, &roomRepo.SetUserParams{
		UserId:   hostId,
		RoomId:   roomId,
		Name:     params.HostName,
		IsHost:   true,
		JoinedAt: now.UnixMilli(),
	}); err != nil {
		return CreateRoomResponse{}, err
	}

	if err := s.sessionRepo.Add(params.Conn, session.Session{
		UserId:   hostId,
		UserName: params.HostName,
		RoomId:   roomId,
	}); err != nil {
		return CreateRoomResponse{}, err
	}

	host := User{
		Id:       hostId,
		Name:     params.HostName,
		IsHost:   true,
		JoinedAt: now.UnixMilli(),
	}

	return CreateRoomResponse{
		RoomId:    roomId,
		HostToken: hostToken,
		Room: Room{
			Id:        roomId,
			HostId:    hostId,
			HostName:  params.HostName,
			VideoState: VideoState{
				LastUpdateTime: now.UnixMilli(),
			},
			Users:     []User{host},
			CreatedAt: now.UnixMilli(),
		},
		User: host,
	}, nil
}

type JoinRoomParams struct {
	RoomId    string
	UserName  string
	HostToken string
	Conn      *websocket.Conn
}

type JoinRoomResponse struct {
	Room Room
	User User
	// ReplacedUserId is set when a host re-attach superseded an earlier user
	// record; the caller announces that id as departed.
	ReplacedUserId string
	Conns          []*websocket.Conn
}

// JoinRoom admits a user into a room. Host identity is name+token based, not
// connection based: a host can reload and reclaim their slot with the token,
// while guests can never take the host's name.
func (s service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	// A duplicate join from a connection already bound to this room is a
	// client-side retry; answer with the current state and mutate nothing.
	// A connection bound elsewhere is rejected before any store mutation.
	if sess, err := s.sessionRepo.GetByConn(params.Conn); err == nil {
		if sess.RoomId == params.RoomId {
			return s.rejoinExisting(ctx, params, sess)
		}
		return JoinRoomResponse{}, ErrAlreadyInRoom
	}

	rm, err := s.roomRepo.GetRoom(ctx, params.RoomId)
	if err != nil {
		if errors.Is(err, roomRepo.ErrRoomNotFound) {
			return JoinRoomResponse{}, ErrRoomNotFound
		}
		return JoinRoomResponse{}, err
	}

	users, err := s.getUsers(ctx, params.RoomId)
	if err != nil {
		return JoinRoomResponse{}, err
	}

	isHost := false
	replacedUserId := ""
	for _, existing := range users {
		if existing.Name != params.UserName {
			continue
		}

		if !existing.IsHost {
			return JoinRoomResponse{}, ErrNameTaken
		}

		// Re-attach to an existing host slot: same logical identity, new
		// user id bound to the new connection.
		if params.HostToken != rm.HostToken {
			return JoinRoomResponse{}, ErrInvalidHostToken
		}

		if err := s.roomRepo.RemoveUser(ctx, &roomRepo.RemoveUserParams{
			UserId: existing.Id,
			RoomId: params.RoomId,
		}); err != nil && !errors.Is(err, roomRepo.ErrUserNotFound) {
			return JoinRoomResponse{}, err
		}

		// The superseded record's connection leaves the broadcast group now;
		// its own close later finds no session and cleans up nothing twice.
		if staleConn, err := s.sessionRepo.GetConnByUserId(existing.Id); err == nil {
			if _, err := s.sessionRepo.RemoveByConn(staleConn); err != nil {
				s.logger.DebugContext(ctx, "failed to detach stale host session", "error", err, "user_id", existing.Id)
			}
		}

		isHost = true
		replacedUserId = existing.Id
		break
	}

	// The host's name stays reserved even when the host is not present.
	if !isHost && params.UserName == rm.HostName {
		if params.HostToken != rm.HostToken {
			return JoinRoomResponse{}, ErrInvalidHostToken
		}
		isHost = true
	}

	userId := uuid.NewString()
	now := time.Now().UnixMilli()

	if err := s.roomRepo.SetUser(ctx, &roomRepo.SetUserParams{
		UserId:   userId,
		RoomId:   params.RoomId,
		Name:     params.UserName,
		IsHost:   isHost,
		JoinedAt: now,
	}); err != nil {
		return JoinRoomResponse{}, err
	}

	if isHost {
		if err := s.roomRepo.UpdateRoomHost(ctx, params.RoomId, userId); err != nil {
			return JoinRoomResponse{}, err
		}
	}

	// Captured before binding so the joiner is not in its own broadcast set.
	conns := s.getOtherConns(params.RoomId, params.Conn)

	if err := s.sessionRepo.Add(params.Conn, session.Session{
		UserId:   userId,
		UserName: params.UserName,
		RoomId:   params.RoomId,
	}); err != nil {
		// The user record must not outlive the failed bind.
		if removeErr := s.roomRepo.RemoveUser(ctx, &roomRepo.RemoveUserParams{
			UserId: userId,
			RoomId: params.RoomId,
		}); removeErr != nil {
			s.logger.InfoContext(ctx, "failed to roll back user record", "error", removeErr, "user_id", userId)
		}
		return JoinRoomResponse{}, err
	}

	state, err := s.getRoomState(ctx, params.RoomId)
	if err != nil {
		return JoinRoomResponse{}, err
	}

	return JoinRoomResponse{
		Room: state,
		User: User{
			Id:       userId,
			Name:     params.UserName,
			IsHost:   isHost,
			JoinedAt: now,
		},
		ReplacedUserId: replacedUserId,
		Conns:          conns,
	}, nil
}

func (s service) rejoinExisting(ctx context.Context, params *JoinRoomParams, sess session.Session) (JoinRoomResponse, error) {
	rm, err := s.roomRepo.GetRoom(ctx, params.RoomId)
	if err != nil {
		return JoinRoomResponse{}, ErrRoomNotFound
	}

	users, err := s.getUsers(ctx, params.RoomId)
	if err != nil {
		return JoinRoomResponse{}, err
	}

	for _, existing := range users {
		if existing.Name != params.UserName {
			continue
		}

		if existing.IsHost && params.HostToken != rm.HostToken {
			return JoinRoomResponse{}, ErrInvalidHostToken
		}

		state, err := s.getRoomState(ctx, params.RoomId)
		if err != nil {
			return JoinRoomResponse{}, err
		}

		return JoinRoomResponse{
			Room: state,
			User: existing,
		}, nil
	}

	return JoinRoomResponse{}, fmt.Errorf("%w: session bound to unknown user", ErrUserNotFound)
}

type LeaveRoomParams struct {
	UserId string
	RoomId string
}

type LeaveRoomResponse struct {
	UserId      string
	RoomDeleted bool
	RoomClosed  bool
	Conns       []*websocket.Conn
	Users       []User
}

// LeaveRoom removes the user and enforces the host-minimum invariant: a room
// never survives with guests and zero hosts.
func (s service) LeaveRoom(ctx context.Context, params *LeaveRoomParams) (LeaveRoomResponse, error) {
	user, err := s.roomRepo.GetUser(ctx, &roomRepo.GetUserParams{
		UserId: params.UserId,
		RoomId: params.RoomId,
	})
	if err != nil {
		if errors.Is(err, roomRepo.ErrUserNotFound) {
			return LeaveRoomResponse{}, ErrNotInRoom
		}
		return LeaveRoomResponse{}, err
	}

	if err := s.roomRepo.RemoveUser(ctx, &roomRepo.RemoveUserParams{
		UserId: params.UserId,
		RoomId: params.RoomId,
	}); err != nil && !errors.Is(err, roomRepo.ErrUserNotFound) {
		return LeaveRoomResponse{}, err
	}

	remaining, err := s.getUsers(ctx, params.RoomId)
	if err != nil {
		return LeaveRoomResponse{}, err
	}

	if len(remaining) == 0 {
		if err := s.roomRepo.RemoveRoom(ctx, params.RoomId); err != nil {
			s.logger.InfoContext(ctx, "failed to delete empty room", "error", err)
		}

		return LeaveRoomResponse{
			UserId:      params.UserId,
			RoomDeleted: true,
		}, nil
	}

	if user.IsHost {
		hasHost := false
		for _, u := range remaining {
			if u.IsHost {
				hasHost = true
				break
			}
		}

		if !hasHost {
			leaverConn, _ := s.sessionRepo.GetConnByUserId(params.UserId)
			conns := s.getOtherConns(params.RoomId, leaverConn)

			for _, u := range remaining {
				if err := s.roomRepo.RemoveUser(ctx, &roomRepo.RemoveUserParams{
					UserId: u.Id,
					RoomId: params.RoomId,
				}); err != nil {
					s.logger.InfoContext(ctx, "failed to evict user", "error", err, "user_id", u.Id)
				}
			}

			if err := s.roomRepo.RemoveRoom(ctx, params.RoomId); err != nil {
				s.logger.InfoContext(ctx, "failed to delete room", "error", err)
			}

			return LeaveRoomResponse{
				UserId:      params.UserId,
				RoomDeleted: true,
				RoomClosed:  true,
				Conns:       conns,
			}, nil
		}
	}

	leaverConn, _ := s.sessionRepo.GetConnByUserId(params.UserId)

	return LeaveRoomResponse{
		UserId: params.UserId,
		Conns:  s.getOtherConns(params.RoomId, leaverConn),
		Users:  remaining,
	}, nil
}

// DisconnectUser is the transport-close variant of LeaveRoom: it tolerates a
// user that is already gone, since a host re-attach may have superseded this
// session's user record.
func (s service) DisconnectUser(ctx context.Context, params *LeaveRoomParams) (LeaveRoomResponse, error) {
	resp, err := s.LeaveRoom(ctx, params)
	if err != nil && errors.Is(err, ErrNotInRoom) {
		return LeaveRoomResponse{UserId: params.UserId}, nil
	}

	return resp, err
}
