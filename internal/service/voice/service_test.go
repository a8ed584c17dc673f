package voice

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whonoahexe/watch.with/internal/repository/session"
	"github.com/whonoahexe/watch.with/internal/repository/session/inmemory"
)

type fakeRoomRepo struct {
	voiceEnabled map[string]bool
}

func (f *fakeRoomRepo) UpdateUserVoiceEnabled(_ context.Context, userId string, voiceEnabled bool) error {
	if f.voiceEnabled == nil {
		f.voiceEnabled = make(map[string]bool)
	}
	f.voiceEnabled[userId] = voiceEnabled
	return nil
}

func newTestService(t *testing.T, limit int) (*service, *fakeRoomRepo, func(userId, roomId string) *websocket.Conn) {
	t.Helper()

	roomRepo := &fakeRoomRepo{}
	sessionRepo := inmemory.NewRepo(slog.Default())
	svc := NewService(roomRepo, sessionRepo, slog.Default(), limit)

	addSession := func(userId, roomId string) *websocket.Conn {
		conn := &websocket.Conn{}
		require.NoError(t, sessionRepo.Add(conn, session.Session{
			UserId:   userId,
			UserName: userId,
			RoomId:   roomId,
		}))
		return conn
	}

	return svc, roomRepo, addSession
}

func TestJoin(t *testing.T) {
	svc, roomRepo, addSession := newTestService(t, 5)
	ctx := context.Background()

	conn1 := addSession("user-1", "ROOM01")
	conn2 := addSession("user-2", "ROOM01")

	joinResp, err := svc.Join(ctx, &JoinParams{
		UserId:     "user-1",
		RoomId:     "ROOM01",
		SenderConn: conn1,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"user-1"}, joinResp.ParticipantIds)
	assert.False(t, joinResp.AlreadyJoined)
	assert.Len(t, joinResp.Conns, 1)
	assert.True(t, roomRepo.voiceEnabled["user-1"])

	joinResp, err = svc.Join(ctx, &JoinParams{
		UserId:     "user-2",
		RoomId:     "ROOM01",
		SenderConn: conn2,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"user-1", "user-2"}, joinResp.ParticipantIds, "snapshot includes the joiner, sorted")
}

func TestJoinTwiceIsNoOp(t *testing.T) {
	svc, _, addSession := newTestService(t, 5)
	ctx := context.Background()

	conn := addSession("user-1", "ROOM01")

	_, err := svc.Join(ctx, &JoinParams{UserId: "user-1", RoomId: "ROOM01", SenderConn: conn})
	require.NoError(t, err)

	joinResp, err := svc.Join(ctx, &JoinParams{UserId: "user-1", RoomId: "ROOM01", SenderConn: conn})
	require.NoError(t, err)
	assert.True(t, joinResp.AlreadyJoined)
	assert.Equal(t, []string{"user-1"}, joinResp.ParticipantIds)
	assert.Empty(t, joinResp.Conns, "a repeat join must not re-announce the peer")
}

func TestJoinFull(t *testing.T) {
	svc, _, addSession := newTestService(t, 2)
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		userId := fmt.Sprintf("user-%d", i)
		conn := addSession(userId, "ROOM01")
		_, err := svc.Join(ctx, &JoinParams{UserId: userId, RoomId: "ROOM01", SenderConn: conn})
		require.NoError(t, err)
	}

	conn := addSession("user-3", "ROOM01")
	_, err := svc.Join(ctx, &JoinParams{UserId: "user-3", RoomId: "ROOM01", SenderConn: conn})
	assert.ErrorIs(t, err, ErrVoiceFull)

	// the cap is per room
	otherConn := addSession("user-4", "ROOM02")
	_, err = svc.Join(ctx, &JoinParams{UserId: "user-4", RoomId: "ROOM02", SenderConn: otherConn})
	require.NoError(t, err)
}

func TestLeaveIdempotent(t *testing.T) {
	svc, roomRepo, addSession := newTestService(t, 5)
	ctx := context.Background()

	conn := addSession("user-1", "ROOM01")

	// leaving before joining is not an error
	leaveResp, err := svc.Leave(ctx, &LeaveParams{UserId: "user-1", RoomId: "ROOM01", SenderConn: conn})
	require.NoError(t, err)
	assert.False(t, leaveResp.WasPresent)

	_, err = svc.Join(ctx, &JoinParams{UserId: "user-1", RoomId: "ROOM01", SenderConn: conn})
	require.NoError(t, err)

	leaveResp, err = svc.Leave(ctx, &LeaveParams{UserId: "user-1", RoomId: "ROOM01", SenderConn: conn})
	require.NoError(t, err)
	assert.True(t, leaveResp.WasPresent)
	assert.False(t, roomRepo.voiceEnabled["user-1"])

	leaveResp, err = svc.Leave(ctx, &LeaveParams{UserId: "user-1", RoomId: "ROOM01", SenderConn: conn})
	require.NoError(t, err)
	assert.False(t, leaveResp.WasPresent, "a second leave must be silent")

	assert.Empty(t, svc.Participants("ROOM01"))
}

func TestLeaveFreesSlot(t *testing.T) {
	svc, _, addSession := newTestService(t, 2)
	ctx := context.Background()

	conn1 := addSession("user-1", "ROOM01")
	conn2 := addSession("user-2", "ROOM01")
	conn3 := addSession("user-3", "ROOM01")

	_, err := svc.Join(ctx, &JoinParams{UserId: "user-1", RoomId: "ROOM01", SenderConn: conn1})
	require.NoError(t, err)
	_, err = svc.Join(ctx, &JoinParams{UserId: "user-2", RoomId: "ROOM01", SenderConn: conn2})
	require.NoError(t, err)

	_, err = svc.Join(ctx, &JoinParams{UserId: "user-3", RoomId: "ROOM01", SenderConn: conn3})
	require.ErrorIs(t, err, ErrVoiceFull)

	_, err = svc.Leave(ctx, &LeaveParams{UserId: "user-1", RoomId: "ROOM01", SenderConn: conn1})
	require.NoError(t, err)

	_, err = svc.Join(ctx, &JoinParams{UserId: "user-3", RoomId: "ROOM01", SenderConn: conn3})
	require.NoError(t, err)
}

func TestRelay(t *testing.T) {
	svc, _, addSession := newTestService(t, 5)
	ctx := context.Background()

	conn1 := addSession("user-1", "ROOM01")
	addSession("user-2", "ROOM01")
	addSession("user-3", "ROOM02")

	relayResp, err := svc.Relay(ctx, &RelayParams{
		FromUserId:   "user-1",
		RoomId:       "ROOM01",
		TargetUserId: "user-2",
		SenderConn:   conn1,
	})
	require.NoError(t, err)
	assert.Len(t, relayResp.Conns, 1, "the sender is excluded from the relay fan-out")

	// a target in another room is invisible
	_, err = svc.Relay(ctx, &RelayParams{
		FromUserId:   "user-1",
		RoomId:       "ROOM01",
		TargetUserId: "user-3",
		SenderConn:   conn1,
	})
	assert.ErrorIs(t, err, ErrTargetNotFound)

	_, err = svc.Relay(ctx, &RelayParams{
		FromUserId:   "user-1",
		RoomId:       "ROOM01",
		TargetUserId: "nobody",
		SenderConn:   conn1,
	})
	assert.ErrorIs(t, err, ErrTargetNotFound)
}
