package room

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gorilla/websocket"
	roomRepo "github.com/whonoahexe/watch.with/internal/repository/room"
	"github.com/whonoahexe/watch.with/internal/repository/session"
	"github.com/whonoahexe/watch.with/pkg/randstr"
)

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNameTaken        = errors.New("name already taken")
	ErrInvalidHostToken = errors.New("invalid host credentials")
	ErrAlreadyHost      = errors.New("user is already a host")
	ErrNotInRoom        = errors.New("not a member of this room")
	ErrAlreadyInRoom    = errors.New("connection is already bound to a room")
)

type iRoomRepo interface {
	// room
	SetRoom(context.Context, *roomRepo.SetRoomParams) error
	GetRoom(context.Context, string) (roomRepo.Room, error)
	UpdateRoomHost(ctx context.Context, roomId, hostId string) error
	UpdateVideo(context.Context, *roomRepo.UpdateVideoParams) error
	RemoveRoom(context.Context, string) error
	// user
	SetUser(context.Context, *roomRepo.SetUserParams) error
	GetUser(context.Context, *roomRepo.GetUserParams) (roomRepo.User, error)
	GetUserIds(context.Context, string) ([]string, error)
	RemoveUser(context.Context, *roomRepo.RemoveUserParams) error
	UpdateUserIsHost(ctx context.Context, userId string, isHost bool) error
	UpdateUserIsMuted(ctx context.Context, userId string, isMuted bool) error
	UpdateUserIsDeafened(ctx context.Context, userId string, isDeafened bool) error
	// player
	SetPlayer(context.Context, *roomRepo.SetPlayerParams) error
	GetPlayer(context.Context, string) (roomRepo.Player, error)
	UpdatePlayerState(context.Context, *roomRepo.UpdatePlayerStateParams) error
	// subtitles
	SetSubtitles(context.Context, *roomRepo.SetSubtitlesParams) error
	GetSubtitles(context.Context, string) (roomRepo.Subtitles, error)
}

type iSessionRepo interface {
	Add(*websocket.Conn, session.Session) error
	RemoveByConn(*websocket.Conn) (session.Session, error)
	GetByConn(*websocket.Conn) (session.Session, error)
	GetConnByUserId(string) (*websocket.Conn, error)
	GetConnsByRoomId(string) []*websocket.Conn
}

type iGenerator interface {
	GenerateRandomString(length int) string
}

type Config struct {
	RoomIdLength int
}

type service struct {
	roomRepo     iRoomRepo
	sessionRepo  iSessionRepo
	generator    iGenerator
	logger       *slog.Logger
	roomIdLength int
}

func NewService(roomRepo iRoomRepo, sessionRepo iSessionRepo, logger *slog.Logger, cfg *Config) *service {
	roomIdLength := 6
	if cfg != nil && cfg.RoomIdLength > 0 {
		roomIdLength = cfg.RoomIdLength
	}

	s := service{
		roomRepo:     roomRepo,
		sessionRepo:  sessionRepo,
		logger:       logger,
		roomIdLength: roomIdLength,
	}

	letterBytes := []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")
	s.generator = randstr.New(letterBytes)

	return &s
}
