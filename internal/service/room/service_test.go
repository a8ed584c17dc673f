package room

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whonoahexe/watch.with/internal/repository/session/inmemory"

	roomRedis "github.com/whonoahexe/watch.with/internal/repository/room/redis"
)

func newTestService(t *testing.T) *service {
	t.Helper()

	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	rc := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})

	roomRepo := roomRedis.NewRepo(rc, slog.Default(), 24*time.Hour)
	sessionRepo := inmemory.NewRepo(slog.Default())

	return NewService(roomRepo, sessionRepo, slog.Default(), nil)
}

func TestCreateRoom(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	hostConn := &websocket.Conn{}
	createRoomResp, err := service.CreateRoom(ctx, &CreateRoomParams{
		HostName: "alice",
		Conn:     hostConn,
	})
	require.NoError(t, err)
	assert.Len(t, createRoomResp.RoomId, 6, "room id must be 6 characters")
	assert.NotEmpty(t, createRoomResp.HostToken, "host token is empty")
	assert.True(t, createRoomResp.User.IsHost, "creator must be host")
	assert.Equal(t, createRoomResp.User.Id, createRoomResp.Room.HostId)
	assert.Len(t, createRoomResp.Room.Users, 1)
	assert.False(t, createRoomResp.Room.VideoState.IsPlaying, "player must start paused")
	assert.Zero(t, createRoomResp.Room.VideoState.CurrentTime)

	// the creator must not wait for a separate join to be addressable
	joinRoomResp, err := service.JoinRoom(ctx, &JoinRoomParams{
		RoomId:   createRoomResp.RoomId,
		UserName: "bob",
		Conn:     &websocket.Conn{},
	})
	require.NoError(t, err)
	assert.Len(t, joinRoomResp.Conns, 1, "host conn must receive the join broadcast")
}

func TestJoinRoom(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	createRoomResp, err := service.CreateRoom(ctx, &CreateRoomParams{
		HostName: "alice",
		Conn:     &websocket.Conn{},
	})
	require.NoError(t, err)

	joinRoomResp, err := service.JoinRoom(ctx, &JoinRoomParams{
		RoomId:   createRoomResp.RoomId,
		UserName: "bob",
		Conn:     &websocket.Conn{},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, joinRoomResp.User.Id)
	assert.Equal(t, "bob", joinRoomResp.User.Name)
	assert.False(t, joinRoomResp.User.IsHost, "guest must not be host")
	assert.Len(t, joinRoomResp.Room.Users, 2)

	// duplicate guest name
	_, err = service.JoinRoom(ctx, &JoinRoomParams{
		RoomId:   createRoomResp.RoomId,
		UserName: "bob",
		Conn:     &websocket.Conn{},
	})
	assert.ErrorIs(t, err, ErrNameTaken)

	// unknown room
	_, err = service.JoinRoom(ctx, &JoinRoomParams{
		RoomId:   "ZZZZZZ",
		UserName: "carol",
		Conn:     &websocket.Conn{},
	})
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestJoinRoomIdempotentRejoin(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	createRoomResp, err := service.CreateRoom(ctx, &CreateRoomParams{
		HostName: "alice",
		Conn:     &websocket.Conn{},
	})
	require.NoError(t, err)

	guestConn := &websocket.Conn{}
	firstJoin, err := service.JoinRoom(ctx, &JoinRoomParams{
		RoomId:   createRoomResp.RoomId,
		UserName: "bob",
		Conn:     guestConn,
	})
	require.NoError(t, err)

	// a retried join on the same connection answers with current state and
	// keeps the same user id
	secondJoin, err := service.JoinRoom(ctx, &JoinRoomParams{
		RoomId:   createRoomResp.RoomId,
		UserName: "bob",
		Conn:     guestConn,
	})
	require.NoError(t, err)
	assert.Equal(t, firstJoin.User.Id, secondJoin.User.Id)
	assert.Empty(t, secondJoin.Conns, "a rejoin must not broadcast user-joined")
	assert.Len(t, secondJoin.Room.Users, 2)
}

func TestHostReattach(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	createRoomResp, err := service.CreateRoom(ctx, &CreateRoomParams{
		HostName: "alice",
		Conn:     &websocket.Conn{},
	})
	require.NoError(t, err)

	// a guest cannot claim the host's name without the token
	_, err = service.JoinRoom(ctx, &JoinRoomParams{
		RoomId:   createRoomResp.RoomId,
		UserName: "alice",
		Conn:     &websocket.Conn{},
	})
	assert.ErrorIs(t, err, ErrInvalidHostToken)

	// reload: same name, valid token, new connection
	reattach, err := service.JoinRoom(ctx, &JoinRoomParams{
		RoomId:    createRoomResp.RoomId,
		UserName:  "alice",
		HostToken: createRoomResp.HostToken,
		Conn:      &websocket.Conn{},
	})
	require.NoError(t, err)
	assert.True(t, reattach.User.IsHost)
	assert.NotEqual(t, createRoomResp.User.Id, reattach.User.Id, "re-attach must mint a fresh user id")
	assert.Equal(t, reattach.User.Id, reattach.Room.HostId, "room host id must follow the re-attach")
	assert.Len(t, reattach.Room.Users, 1, "the stale host record must be gone")
	assert.Equal(t, createRoomResp.User.Id, reattach.ReplacedUserId, "the superseded user id must be reported")
	assert.Empty(t, reattach.Conns, "the stale host conn must be out of the broadcast group")
}

func TestJoinRoomWhileBoundElsewhere(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	conn := &websocket.Conn{}
	_, err := service.CreateRoom(ctx, &CreateRoomParams{
		HostName: "alice",
		Conn:     conn,
	})
	require.NoError(t, err)

	otherRoom, err := service.CreateRoom(ctx, &CreateRoomParams{
		HostName: "bob",
		Conn:     &websocket.Conn{},
	})
	require.NoError(t, err)

	// a connection bound to one room cannot join another
	_, err = service.JoinRoom(ctx, &JoinRoomParams{
		RoomId:   otherRoom.RoomId,
		UserName: "alice",
		Conn:     conn,
	})
	assert.ErrorIs(t, err, ErrAlreadyInRoom)

	state, err := service.getRoomState(ctx, otherRoom.RoomId)
	require.NoError(t, err)
	assert.Len(t, state.Users, 1, "the rejected join must leave no user record behind")

	// same for creating a second room on a bound connection
	_, err = service.CreateRoom(ctx, &CreateRoomParams{
		HostName: "carol",
		Conn:     conn,
	})
	assert.ErrorIs(t, err, ErrAlreadyInRoom)
}

func TestLeaveRoomLastHostClosesRoom(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	createRoomResp, err := service.CreateRoom(ctx, &CreateRoomParams{
		HostName: "alice",
		Conn:     &websocket.Conn{},
	})
	require.NoError(t, err)

	_, err = service.JoinRoom(ctx, &JoinRoomParams{
		RoomId:   createRoomResp.RoomId,
		UserName: "bob",
		Conn:     &websocket.Conn{},
	})
	require.NoError(t, err)

	leaveRoomResp, err := service.LeaveRoom(ctx, &LeaveRoomParams{
		UserId: createRoomResp.User.Id,
		RoomId: createRoomResp.RoomId,
	})
	require.NoError(t, err)
	assert.True(t, leaveRoomResp.RoomClosed, "room must close when the last host leaves")
	assert.True(t, leaveRoomResp.RoomDeleted)
	assert.Len(t, leaveRoomResp.Conns, 1, "the remaining guest must be notified")

	// the room id is free again
	_, err = service.JoinRoom(ctx, &JoinRoomParams{
		RoomId:   createRoomResp.RoomId,
		UserName: "carol",
		Conn:     &websocket.Conn{},
	})
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestLeaveRoomGuest(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	createRoomResp, err := service.CreateRoom(ctx, &CreateRoomParams{
		HostName: "alice",
		Conn:     &websocket.Conn{},
	})
	require.NoError(t, err)

	joinRoomResp, err := service.JoinRoom(ctx, &JoinRoomParams{
		RoomId:   createRoomResp.RoomId,
		UserName: "bob",
		Conn:     &websocket.Conn{},
	})
	require.NoError(t, err)

	leaveRoomResp, err := service.LeaveRoom(ctx, &LeaveRoomParams{
		UserId: joinRoomResp.User.Id,
		RoomId: createRoomResp.RoomId,
	})
	require.NoError(t, err)
	assert.False(t, leaveRoomResp.RoomClosed)
	assert.False(t, leaveRoomResp.RoomDeleted)
	assert.Len(t, leaveRoomResp.Users, 1)
	assert.Equal(t, createRoomResp.User.Id, leaveRoomResp.Users[0].Id)
}

func TestLeaveRoomLastUserDeletesRoom(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	createRoomResp, err := service.CreateRoom(ctx, &CreateRoomParams{
		HostName: "alice",
		Conn:     &websocket.Conn{},
	})
	require.NoError(t, err)

	leaveRoomResp, err := service.LeaveRoom(ctx, &LeaveRoomParams{
		UserId: createRoomResp.User.Id,
		RoomId: createRoomResp.RoomId,
	})
	require.NoError(t, err)
	assert.True(t, leaveRoomResp.RoomDeleted)
	assert.False(t, leaveRoomResp.RoomClosed, "an empty room deletes silently")
}

func TestPromoteHost(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	createRoomResp, err := service.CreateRoom(ctx, &CreateRoomParams{
		HostName: "alice",
		Conn:     &websocket.Conn{},
	})
	require.NoError(t, err)

	joinRoomResp, err := service.JoinRoom(ctx, &JoinRoomParams{
		RoomId:   createRoomResp.RoomId,
		UserName: "bob",
		Conn:     &websocket.Conn{},
	})
	require.NoError(t, err)

	// guests cannot promote
	_, err = service.PromoteHost(ctx, &PromoteHostParams{
		SenderId:     joinRoomResp.User.Id,
		RoomId:       createRoomResp.RoomId,
		TargetUserId: joinRoomResp.User.Id,
	})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	promoteHostResp, err := service.PromoteHost(ctx, &PromoteHostParams{
		SenderId:     createRoomResp.User.Id,
		RoomId:       createRoomResp.RoomId,
		TargetUserId: joinRoomResp.User.Id,
	})
	require.NoError(t, err)
	assert.True(t, promoteHostResp.PromotedUser.IsHost)
	assert.Len(t, promoteHostResp.Conns, 2, "promotion is announced to the whole room")

	// promotion is additive: the original host keeps control
	_, err = service.UpdatePlayerState(ctx, &UpdatePlayerStateParams{
		SenderId:    createRoomResp.User.Id,
		RoomId:      createRoomResp.RoomId,
		Action:      ActionPlay,
		CurrentTime: 1,
	})
	require.NoError(t, err)

	_, err = service.PromoteHost(ctx, &PromoteHostParams{
		SenderId:     createRoomResp.User.Id,
		RoomId:       createRoomResp.RoomId,
		TargetUserId: joinRoomResp.User.Id,
	})
	assert.ErrorIs(t, err, ErrAlreadyHost)

	// with two hosts, the room survives one of them leaving
	leaveRoomResp, err := service.LeaveRoom(ctx, &LeaveRoomParams{
		UserId: createRoomResp.User.Id,
		RoomId: createRoomResp.RoomId,
	})
	require.NoError(t, err)
	assert.False(t, leaveRoomResp.RoomClosed)
	assert.False(t, leaveRoomResp.RoomDeleted)
}

func TestUpdatePlayerState(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	hostConn := &websocket.Conn{}
	createRoomResp, err := service.CreateRoom(ctx, &CreateRoomParams{
		HostName: "alice",
		Conn:     hostConn,
	})
	require.NoError(t, err)

	joinRoomResp, err := service.JoinRoom(ctx, &JoinRoomParams{
		RoomId:   createRoomResp.RoomId,
		UserName: "bob",
		Conn:     &websocket.Conn{},
	})
	require.NoError(t, err)

	// guests have no playback control
	_, err = service.UpdatePlayerState(ctx, &UpdatePlayerStateParams{
		SenderId:    joinRoomResp.User.Id,
		RoomId:      createRoomResp.RoomId,
		Action:      ActionPlay,
		CurrentTime: 10,
	})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	playResp, err := service.UpdatePlayerState(ctx, &UpdatePlayerStateParams{
		SenderId:    createRoomResp.User.Id,
		RoomId:      createRoomResp.RoomId,
		SenderConn:  hostConn,
		Action:      ActionPlay,
		CurrentTime: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, float64(10), playResp.CurrentTime)
	assert.NotZero(t, playResp.Timestamp)
	assert.Len(t, playResp.Conns, 1, "only the guest conn gets the broadcast")

	// seek keeps the playing flag
	_, err = service.UpdatePlayerState(ctx, &UpdatePlayerStateParams{
		SenderId:    createRoomResp.User.Id,
		RoomId:      createRoomResp.RoomId,
		SenderConn:  hostConn,
		Action:      ActionSeek,
		CurrentTime: 42,
	})
	require.NoError(t, err)

	state, err := service.getRoomState(ctx, createRoomResp.RoomId)
	require.NoError(t, err)
	assert.True(t, state.VideoState.IsPlaying, "seeking must not pause the player")
	assert.Equal(t, float64(42), state.VideoState.CurrentTime)

	_, err = service.UpdatePlayerState(ctx, &UpdatePlayerStateParams{
		SenderId:    createRoomResp.User.Id,
		RoomId:      createRoomResp.RoomId,
		SenderConn:  hostConn,
		Action:      ActionPause,
		CurrentTime: 43,
	})
	require.NoError(t, err)

	state, err = service.getRoomState(ctx, createRoomResp.RoomId)
	require.NoError(t, err)
	assert.False(t, state.VideoState.IsPlaying)
}

func TestSyncCheckSkipsHosts(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	hostConn := &websocket.Conn{}
	createRoomResp, err := service.CreateRoom(ctx, &CreateRoomParams{
		HostName: "alice",
		Conn:     hostConn,
	})
	require.NoError(t, err)

	joinRoomResp, err := service.JoinRoom(ctx, &JoinRoomParams{
		RoomId:   createRoomResp.RoomId,
		UserName: "bob",
		Conn:     &websocket.Conn{},
	})
	require.NoError(t, err)

	_, err = service.PromoteHost(ctx, &PromoteHostParams{
		SenderId:     createRoomResp.User.Id,
		RoomId:       createRoomResp.RoomId,
		TargetUserId: joinRoomResp.User.Id,
	})
	require.NoError(t, err)

	_, err = service.JoinRoom(ctx, &JoinRoomParams{
		RoomId:   createRoomResp.RoomId,
		UserName: "carol",
		Conn:     &websocket.Conn{},
	})
	require.NoError(t, err)

	syncCheckResp, err := service.SyncCheck(ctx, &SyncCheckParams{
		SenderId:    createRoomResp.User.Id,
		RoomId:      createRoomResp.RoomId,
		CurrentTime: 12,
		IsPlaying:   true,
		Timestamp:   time.Now().UnixMilli(),
	})
	require.NoError(t, err)
	assert.Len(t, syncCheckResp.Conns, 1, "sync updates go to non-host members only")
}

func TestSetVideoResetsPlayer(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	hostConn := &websocket.Conn{}
	createRoomResp, err := service.CreateRoom(ctx, &CreateRoomParams{
		HostName: "alice",
		Conn:     hostConn,
	})
	require.NoError(t, err)

	_, err = service.UpdatePlayerState(ctx, &UpdatePlayerStateParams{
		SenderId:    createRoomResp.User.Id,
		RoomId:      createRoomResp.RoomId,
		SenderConn:  hostConn,
		Action:      ActionPlay,
		CurrentTime: 100,
	})
	require.NoError(t, err)

	setVideoResp, err := service.SetVideo(ctx, &SetVideoParams{
		SenderId:  createRoomResp.User.Id,
		RoomId:    createRoomResp.RoomId,
		VideoUrl:  "https://example.com/video.mp4",
		VideoType: "mp4",
	})
	require.NoError(t, err)
	assert.Len(t, setVideoResp.Conns, 1, "video changes are announced to everyone, sender included")

	state, err := service.getRoomState(ctx, createRoomResp.RoomId)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/video.mp4", state.VideoUrl)
	assert.Equal(t, "mp4", state.VideoType)
	assert.False(t, state.VideoState.IsPlaying, "a new video starts paused")
	assert.Zero(t, state.VideoState.CurrentTime)
}

func TestSendMessage(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	createRoomResp, err := service.CreateRoom(ctx, &CreateRoomParams{
		HostName: "alice",
		Conn:     &websocket.Conn{},
	})
	require.NoError(t, err)

	guestConn := &websocket.Conn{}
	joinRoomResp, err := service.JoinRoom(ctx, &JoinRoomParams{
		RoomId:   createRoomResp.RoomId,
		UserName: "bob",
		Conn:     guestConn,
	})
	require.NoError(t, err)

	sendMessageResp, err := service.SendMessage(ctx, &SendMessageParams{
		SenderId:   joinRoomResp.User.Id,
		SenderName: "bob",
		RoomId:     createRoomResp.RoomId,
		SenderConn: guestConn,
		Message:    "hello",
	})
	require.NoError(t, err)
	assert.NotZero(t, sendMessageResp.Timestamp)
	assert.Len(t, sendMessageResp.Conns, 1, "the sender does not get its own message back")

	_, err = service.SendMessage(ctx, &SendMessageParams{
		SenderId: "not-a-member",
		RoomId:   createRoomResp.RoomId,
		Message:  "hi",
	})
	assert.ErrorIs(t, err, ErrNotInRoom)
}
