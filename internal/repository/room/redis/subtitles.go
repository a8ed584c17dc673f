package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/whonoahexe/watch.with/internal/repository/room"
)

func (r repo) getSubtitlesKey(roomId string) string {
	return "room:" + roomId + ":subtitles"
}

// Subtitle tracks round-trip through the store as an opaque JSON blob; the
// server never inspects track contents.
func (r repo) SetSubtitles(ctx context.Context, params *room.SetSubtitlesParams) error {
	blob, err := json.Marshal(room.Subtitles{
		Tracks:        params.Tracks,
		ActiveTrackId: params.ActiveTrackId,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal subtitles: %w", err)
	}

	subtitlesKey := r.getSubtitlesKey(params.RoomId)
	if err := r.rc.Set(ctx, subtitlesKey, blob, r.expireDuration).Err(); err != nil {
		return fmt.Errorf("failed to set subtitles: %w", err)
	}

	return nil
}

func (r repo) GetSubtitles(ctx context.Context, roomId string) (room.Subtitles, error) {
	blob, err := r.rc.Get(ctx, r.getSubtitlesKey(roomId)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return room.Subtitles{}, room.ErrSubtitlesNotFound
		}

		return room.Subtitles{}, fmt.Errorf("failed to get subtitles: %w", err)
	}

	var subtitles room.Subtitles
	if err := json.Unmarshal(blob, &subtitles); err != nil {
		return room.Subtitles{}, fmt.Errorf("failed to unmarshal subtitles: %w", err)
	}

	return subtitles, nil
}
