package voice

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/whonoahexe/watch.with/internal/repository/session"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var (
	ErrVoiceFull        = errors.New("voice chat is full")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrTargetNotFound   = errors.New("target not in room")
)

type iSessionRepo interface {
	GetByUserId(string) (session.Session, error)
	GetConnsByRoomId(string) []*websocket.Conn
}

type iRoomRepo interface {
	UpdateUserVoiceEnabled(ctx context.Context, userId string, voiceEnabled bool) error
}

// service tracks voice membership per room and relays signaling payloads.
// The participant sets are process-local and ephemeral: entries are created
// on first join and dropped when the set empties, and the whole registry
// vanishes with the process. User.VoiceEnabled in the room store is derived
// from this set, never the other way round.
type service struct {
	roomRepo    iRoomRepo
	sessionRepo iSessionRepo
	logger      *slog.Logger
	limit       int

	mu           sync.Mutex
	participants map[string]map[string]struct{}
}

func NewService(roomRepo iRoomRepo, sessionRepo iSessionRepo, logger *slog.Logger, limit int) *service {
	return &service{
		roomRepo:     roomRepo,
		sessionRepo:  sessionRepo,
		logger:       logger,
		limit:        limit,
		participants: make(map[string]map[string]struct{}),
	}
}

type JoinParams struct {
	UserId     string
	RoomId     string
	SenderConn *websocket.Conn
}

type JoinResponse struct {
	// ParticipantIds is the full set captured at the moment of joining,
	// including the joiner. The joiner creates offers to everyone else on
	// the list; existing participants only ever answer. That keeps offer
	// initiation unidirectional per join and rules out glare.
	ParticipantIds []string
	AlreadyJoined  bool
	Conns          []*websocket.Conn
}

func (s *service) Join(ctx context.Context, params *JoinParams) (JoinResponse, error) {
	s.mu.Lock()
	set, ok := s.participants[params.RoomId]
	if !ok {
		set = make(map[string]struct{})
		s.participants[params.RoomId] = set
	}

	if _, joined := set[params.UserId]; joined {
		snapshot := s.snapshotLocked(params.RoomId)
		s.mu.Unlock()
		return JoinResponse{
			ParticipantIds: snapshot,
			AlreadyJoined:  true,
		}, nil
	}

	if len(set) >= s.limit {
		s.mu.Unlock()
		return JoinResponse{}, ErrVoiceFull
	}

	set[params.UserId] = struct{}{}
	snapshot := s.snapshotLocked(params.RoomId)
	s.mu.Unlock()

	if err := s.roomRepo.UpdateUserVoiceEnabled(ctx, params.UserId, true); err != nil {
		s.logger.InfoContext(ctx, "failed to persist voice enabled flag", "error", err, "user_id", params.UserId)
	}

	return JoinResponse{
		ParticipantIds: snapshot,
		Conns:          s.otherConns(params.RoomId, params.SenderConn),
	}, nil
}

type LeaveParams struct {
	UserId     string
	RoomId     string
	SenderConn *websocket.Conn
}

type LeaveResponse struct {
	WasPresent bool
	Conns      []*websocket.Conn
}

// Leave is idempotent: leaving twice, or without ever joining, reports
// WasPresent false and the caller broadcasts nothing.
func (s *service) Leave(ctx context.Context, params *LeaveParams) (LeaveResponse, error) {
	s.mu.Lock()
	set, ok := s.participants[params.RoomId]
	if !ok {
		s.mu.Unlock()
		return LeaveResponse{}, nil
	}

	if _, present := set[params.UserId]; !present {
		s.mu.Unlock()
		return LeaveResponse{}, nil
	}

	delete(set, params.UserId)
	if len(set) == 0 {
		delete(s.participants, params.RoomId)
	}
	s.mu.Unlock()

	if err := s.roomRepo.UpdateUserVoiceEnabled(ctx, params.UserId, false); err != nil {
		s.logger.DebugContext(ctx, "failed to persist voice enabled flag", "error", err, "user_id", params.UserId)
	}

	return LeaveResponse{
		WasPresent: true,
		Conns:      s.otherConns(params.RoomId, params.SenderConn),
	}, nil
}

type RelayParams struct {
	FromUserId   string
	RoomId       string
	TargetUserId string
	SenderConn   *websocket.Conn
}

type RelayResponse struct {
	Conns []*websocket.Conn
}

// Relay authorizes a signaling exchange without inspecting its payload. The
// controller fans the stamped message out to every other conn in the room;
// non-target recipients ignore it by targetUserId.
func (s *service) Relay(ctx context.Context, params *RelayParams) (RelayResponse, error) {
	target, err := s.sessionRepo.GetByUserId(params.TargetUserId)
	if err != nil || target.RoomId != params.RoomId {
		return RelayResponse{}, ErrTargetNotFound
	}

	return RelayResponse{
		Conns: s.otherConns(params.RoomId, params.SenderConn),
	}, nil
}

// Participants returns the current voice set of a room, sorted.
func (s *service) Participants(roomId string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked(roomId)
}

func (s *service) snapshotLocked(roomId string) []string {
	ids := maps.Keys(s.participants[roomId])
	slices.Sort(ids)

	return ids
}

func (s *service) otherConns(roomId string, exclude *websocket.Conn) []*websocket.Conn {
	conns := s.sessionRepo.GetConnsByRoomId(roomId)
	others := make([]*websocket.Conn, 0, len(conns))
	for _, conn := range conns {
		if conn != exclude {
			others = append(others, conn)
		}
	}

	return others
}
