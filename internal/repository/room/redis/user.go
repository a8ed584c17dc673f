package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/whonoahexe/watch.with/internal/repository/room"
)

func (r repo) getUserKey(userId string) string {
	return "user:" + userId
}

func (r repo) getUserListKey(roomId string) string {
	return "room:" + roomId + ":users"
}

func (r repo) addUserToList(ctx context.Context, pipe redis.Pipeliner, roomId, userId string) {
	userListKey := r.getUserListKey(roomId)

	r.addWithIncrement(ctx, pipe, userListKey, userId)
	pipe.Expire(ctx, userListKey, r.expireDuration)
}

func (r repo) SetUser(ctx context.Context, params *room.SetUserParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	pipe := r.rc.TxPipeline()

	userKey := r.getUserKey(params.UserId)
	pipe.HSet(ctx, userKey,
		"name", params.Name,
		"is_host", params.IsHost,
		"joined_at", params.JoinedAt,
		"voice_enabled", params.VoiceEnabled,
		"is_muted", params.IsMuted,
		"is_deafened", params.IsDeafened,
	)
	pipe.Expire(ctx, userKey, r.expireDuration)

	r.addUserToList(ctx, pipe, params.RoomId, params.UserId)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

// RemoveUser removes the user from the room's ordered list and deletes its
// hash. The ZREM is the atomic list-element removal, so concurrent leaves
// never clobber each other's entries.
func (r repo) RemoveUser(ctx context.Context, params *room.RemoveUserParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	if err := r.rc.ZRem(ctx, r.getUserListKey(params.RoomId), params.UserId).Err(); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	res, err := r.rc.Del(ctx, r.getUserKey(params.UserId)).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	if res == 0 {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrUserNotFound)
		return room.ErrUserNotFound
	}

	return nil
}

func (r repo) GetUserIds(ctx context.Context, roomId string) ([]string, error) {
	r.logger.DebugContext(ctx, "called", "params", map[string]any{
		"room_id": roomId,
	})
	userIds, err := r.rc.ZRange(ctx, r.getUserListKey(roomId), 0, -1).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	return userIds, nil
}

func (r repo) GetUser(ctx context.Context, params *room.GetUserParams) (room.User, error) {
	r.logger.DebugContext(ctx, "called", "params", params)
	var user room.User
	if err := r.rc.HGetAll(ctx, r.getUserKey(params.UserId)).Scan(&user); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.User{}, err
	}

	if user.Name == "" {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrUserNotFound)
		return room.User{}, room.ErrUserNotFound
	}

	return user, nil
}

func (r repo) updateUserField(ctx context.Context, userId, field string, value interface{}) error {
	key := r.getUserKey(userId)
	cmd := r.rc.Exists(ctx, key)
	if err := cmd.Err(); err != nil {
		return err
	}

	if cmd.Val() == 0 {
		return room.ErrUserNotFound
	}

	return r.rc.HSet(ctx, key, field, value).Err()
}

func (r repo) UpdateUserIsHost(ctx context.Context, userId string, isHost bool) error {
	r.logger.DebugContext(ctx, "called", "params", map[string]any{
		"user_id": userId,
		"is_host": isHost,
	})
	if err := r.updateUserField(ctx, userId, "is_host", isHost); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) UpdateUserVoiceEnabled(ctx context.Context, userId string, voiceEnabled bool) error {
	r.logger.DebugContext(ctx, "called", "params", map[string]any{
		"user_id":       userId,
		"voice_enabled": voiceEnabled,
	})
	if err := r.updateUserField(ctx, userId, "voice_enabled", voiceEnabled); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) UpdateUserIsMuted(ctx context.Context, userId string, isMuted bool) error {
	r.logger.DebugContext(ctx, "called", "params", map[string]any{
		"user_id":  userId,
		"is_muted": isMuted,
	})
	if err := r.updateUserField(ctx, userId, "is_muted", isMuted); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) UpdateUserIsDeafened(ctx context.Context, userId string, isDeafened bool) error {
	r.logger.DebugContext(ctx, "called", "params", map[string]any{
		"user_id":     userId,
		"is_deafened": isDeafened,
	})
	if err := r.updateUserField(ctx, userId, "is_deafened", isDeafened); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}
