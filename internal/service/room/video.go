package room

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	roomRepo "github.com/whonoahexe/watch.with/internal/repository/room"
)

type SetVideoParams struct {
	SenderId  string
	RoomId    string
	VideoUrl  string
	VideoType string
}

type SetVideoResponse struct {
	VideoUrl  string
	VideoType string
	Conns     []*websocket.Conn
}

// SetVideo swaps the shared media reference and resets the playback snapshot,
// so every member starts the new video from zero.
func (s service) SetVideo(ctx context.Context, params *SetVideoParams) (SetVideoResponse, error) {
	if err := s.checkIfHost(ctx, params.RoomId, params.SenderId); err != nil {
		return SetVideoResponse{}, err
	}

	if err := s.roomRepo.UpdateVideo(ctx, &roomRepo.UpdateVideoParams{
		RoomId:    params.RoomId,
		VideoUrl:  params.VideoUrl,
		VideoType: params.VideoType,
	}); err != nil {
		return SetVideoResponse{}, err
	}

	if err := s.roomRepo.SetPlayer(ctx, &roomRepo.SetPlayerParams{
		RoomId:         params.RoomId,
		IsPlaying:      false,
		CurrentTime:    0,
		Duration:       0,
		LastUpdateTime: time.Now().UnixMilli(),
	}); err != nil {
		return SetVideoResponse{}, err
	}

	return SetVideoResponse{
		VideoUrl:  params.VideoUrl,
		VideoType: params.VideoType,
		Conns:     s.sessionRepo.GetConnsByRoomId(params.RoomId),
	}, nil
}

type SetSubtitlesParams struct {
	SenderId      string
	RoomId        string
	Tracks        json.RawMessage
	ActiveTrackId *string
}

type SetSubtitlesResponse struct {
	Subtitles Subtitles
	Conns     []*websocket.Conn
}

func (s service) SetSubtitles(ctx context.Context, params *SetSubtitlesParams) (SetSubtitlesResponse, error) {
	if err := s.checkIfHost(ctx, params.RoomId, params.SenderId); err != nil {
		return SetSubtitlesResponse{}, err
	}

	if err := s.roomRepo.SetSubtitles(ctx, &roomRepo.SetSubtitlesParams{
		RoomId:        params.RoomId,
		Tracks:        params.Tracks,
		ActiveTrackId: params.ActiveTrackId,
	}); err != nil {
		return SetSubtitlesResponse{}, err
	}

	return SetSubtitlesResponse{
		Subtitles: Subtitles{
			Tracks:        params.Tracks,
			ActiveTrackId: params.ActiveTrackId,
		},
		Conns: s.sessionRepo.GetConnsByRoomId(params.RoomId),
	}, nil
}
