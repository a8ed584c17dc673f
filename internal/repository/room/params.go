package room

import "encoding/json"

type SetRoomParams struct {
	RoomId    string `json:"room_id"`
	HostId    string `json:"host_id"`
	HostName  string `json:"host_name"`
	HostToken string `json:"-"`
	VideoUrl  string `json:"video_url"`
	VideoType string `json:"video_type"`
	CreatedAt int64  `json:"created_at"`
}

type SetUserParams struct {
	UserId       string `json:"user_id"`
	RoomId       string `json:"room_id"`
	Name         string `json:"name"`
	IsHost       bool   `json:"is_host"`
	JoinedAt     int64  `json:"joined_at"`
	VoiceEnabled bool   `json:"voice_enabled"`
	IsMuted      bool   `json:"is_muted"`
	IsDeafened   bool   `json:"is_deafened"`
}

type GetUserParams struct {
	UserId string `json:"user_id"`
	RoomId string `json:"room_id"`
}

type RemoveUserParams struct {
	UserId string `json:"user_id"`
	RoomId string `json:"room_id"`
}

type SetPlayerParams struct {
	RoomId         string  `json:"room_id"`
	IsPlaying      bool    `json:"is_playing"`
	CurrentTime    float64 `json:"current_time"`
	Duration       float64 `json:"duration"`
	LastUpdateTime int64   `json:"last_update_time"`
}

type UpdatePlayerStateParams struct {
	RoomId         string  `json:"room_id"`
	IsPlaying      bool    `json:"is_playing"`
	CurrentTime    float64 `json:"current_time"`
	LastUpdateTime int64   `json:"last_update_time"`
}

type UpdateVideoParams struct {
	RoomId    string `json:"room_id"`
	VideoUrl  string `json:"video_url"`
	VideoType string `json:"video_type"`
}

type SetSubtitlesParams struct {
	RoomId        string          `json:"room_id"`
	Tracks        json.RawMessage `json:"tracks"`
	ActiveTrackId *string         `json:"active_track_id"`
}

type Subtitles struct {
	Tracks        json.RawMessage `json:"tracks"`
	ActiveTrackId *string         `json:"active_track_id"`
}
