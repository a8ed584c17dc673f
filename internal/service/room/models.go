package room

import "encoding/json"

type VideoState struct {
	IsPlaying      bool    `json:"isPlaying"`
	CurrentTime    float64 `json:"currentTime"`
	Duration       float64 `json:"duration"`
	LastUpdateTime int64   `json:"lastUpdateTime"`
}

type User struct {
	Id           string `json:"id"`
	Name         string `json:"name"`
	IsHost       bool   `json:"isHost"`
	JoinedAt     int64  `json:"joinedAt"`
	VoiceEnabled bool   `json:"voiceEnabled"`
	IsMuted      bool   `json:"isMuted"`
	IsDeafened   bool   `json:"isDeafened"`
}

type Subtitles struct {
	Tracks        json.RawMessage `json:"tracks"`
	ActiveTrackId *string         `json:"activeTrackId"`
}

type Room struct {
	Id         string     `json:"id"`
	HostId     string     `json:"hostId"`
	HostName   string     `json:"hostName"`
	VideoUrl   string     `json:"videoUrl,omitempty"`
	VideoType  string     `json:"videoType,omitempty"`
	VideoState VideoState `json:"videoState"`
	Users      []User     `json:"users"`
	Subtitles  *Subtitles `json:"subtitles,omitempty"`
	CreatedAt  int64      `json:"createdAt"`
}
