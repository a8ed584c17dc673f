package inmemory

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/whonoahexe/watch.with/internal/repository/session"
)

type repo struct {
	byConn   map[*websocket.Conn]session.Session
	byUserId map[string]*websocket.Conn
	byRoomId map[string]map[*websocket.Conn]struct{}
	mu       sync.RWMutex
	logger   *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		byConn:   make(map[*websocket.Conn]session.Session),
		byUserId: make(map[string]*websocket.Conn),
		byRoomId: make(map[string]map[*websocket.Conn]struct{}),
		logger:   logger,
	}
}

func (r *repo) Add(conn *websocket.Conn, s session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byConn[conn]; ok {
		r.logger.Debug("session add", "error", session.ErrAlreadyExists, "user_id", s.UserId)
		return session.ErrAlreadyExists
	}

	// A reconnect may race the old connection's teardown. The new session
	// wins: the stale conn keeps its entry until its own close runs.
	if old, ok := r.byUserId[s.UserId]; ok && old != conn {
		r.detachLocked(old)
	}

	r.byConn[conn] = s
	r.byUserId[s.UserId] = conn

	conns, ok := r.byRoomId[s.RoomId]
	if !ok {
		conns = make(map[*websocket.Conn]struct{})
		r.byRoomId[s.RoomId] = conns
	}
	conns[conn] = struct{}{}

	return nil
}

func (r *repo) detachLocked(conn *websocket.Conn) {
	s, ok := r.byConn[conn]
	if !ok {
		return
	}

	delete(r.byConn, conn)
	if r.byUserId[s.UserId] == conn {
		delete(r.byUserId, s.UserId)
	}
	if conns, ok := r.byRoomId[s.RoomId]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(r.byRoomId, s.RoomId)
		}
	}
}

func (r *repo) RemoveByConn(conn *websocket.Conn) (session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byConn[conn]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}

	r.detachLocked(conn)

	return s, nil
}

func (r *repo) GetByConn(conn *websocket.Conn) (session.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byConn[conn]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}

	return s, nil
}

func (r *repo) GetByUserId(userId string) (session.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.byUserId[userId]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}

	return r.byConn[conn], nil
}

func (r *repo) GetConnByUserId(userId string) (*websocket.Conn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.byUserId[userId]
	if !ok {
		return nil, session.ErrNotFound
	}

	return conn, nil
}

func (r *repo) GetConnsByRoomId(roomId string) []*websocket.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*websocket.Conn, 0, len(r.byRoomId[roomId]))
	for conn := range r.byRoomId[roomId] {
		conns = append(conns, conn)
	}

	return conns
}
