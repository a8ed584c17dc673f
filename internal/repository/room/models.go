package room

type Room struct {
	HostId    string `redis:"host_id"`
	HostName  string `redis:"host_name"`
	HostToken string `redis:"host_token"`
	VideoUrl  string `redis:"video_url"`
	VideoType string `redis:"video_type"`
	CreatedAt int64  `redis:"created_at"`
}

type User struct {
	Name         string `redis:"name"`
	IsHost       bool   `redis:"is_host"`
	JoinedAt     int64  `redis:"joined_at"`
	VoiceEnabled bool   `redis:"voice_enabled"`
	IsMuted      bool   `redis:"is_muted"`
	IsDeafened   bool   `redis:"is_deafened"`
}

type Player struct {
	IsPlaying      bool    `redis:"is_playing"`
	CurrentTime    float64 `redis:"current_time"`
	Duration       float64 `redis:"duration"`
	LastUpdateTime int64   `redis:"last_update_time"`
}
