package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/whonoahexe/watch.with/internal/repository/session"
	"github.com/whonoahexe/watch.with/internal/service/room"
	"github.com/whonoahexe/watch.with/internal/service/voice"
	"github.com/whonoahexe/watch.with/pkg/validator"
	"github.com/whonoahexe/watch.with/pkg/wsrouter"
)

type iRoomService interface {
	CreateRoom(context.Context, *room.CreateRoomParams) (room.CreateRoomResponse, error)
	JoinRoom(context.Context, *room.JoinRoomParams) (room.JoinRoomResponse, error)
	LeaveRoom(context.Context, *room.LeaveRoomParams) (room.LeaveRoomResponse, error)
	DisconnectUser(context.Context, *room.LeaveRoomParams) (room.LeaveRoomResponse, error)
	PromoteHost(context.Context, *room.PromoteHostParams) (room.PromoteHostResponse, error)
	SetVideo(context.Context, *room.SetVideoParams) (room.SetVideoResponse, error)
	SetSubtitles(context.Context, *room.SetSubtitlesParams) (room.SetSubtitlesResponse, error)
	UpdatePlayerState(context.Context, *room.UpdatePlayerStateParams) (room.UpdatePlayerStateResponse, error)
	SyncCheck(context.Context, *room.SyncCheckParams) (room.SyncCheckResponse, error)
	UpdateVoiceState(context.Context, *room.UpdateVoiceStateParams) (room.UpdateVoiceStateResponse, error)
	SendMessage(context.Context, *room.SendMessageParams) (room.SendMessageResponse, error)
	SetTyping(context.Context, *room.SetTypingParams) (room.SetTypingResponse, error)
}

type iVoiceService interface {
	Join(context.Context, *voice.JoinParams) (voice.JoinResponse, error)
	Leave(context.Context, *voice.LeaveParams) (voice.LeaveResponse, error)
	Relay(context.Context, *voice.RelayParams) (voice.RelayResponse, error)
}

type iSessionRepo interface {
	GetByConn(*websocket.Conn) (session.Session, error)
	RemoveByConn(*websocket.Conn) (session.Session, error)
}

type controller struct {
	roomService  iRoomService
	voiceService iVoiceService
	sessionRepo  iSessionRepo
	upgrader     websocket.Upgrader
	validate     *validator.Validator
	logger       *slog.Logger
	wsmux        *wsrouter.Router
}

func NewController(roomService iRoomService, voiceService iVoiceService, sessionRepo iSessionRepo, logger *slog.Logger) *controller {
	c := &controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		roomService:  roomService,
		voiceService: voiceService,
		sessionRepo:  sessionRepo,
		validate:     validator.NewValidator(),
		logger:       logger,
	}
	c.wsmux = c.getWSRouter()

	return c
}
