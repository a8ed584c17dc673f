package room

import "errors"

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomAlreadyExists = errors.New("room already exists")
	ErrUserNotFound      = errors.New("user not found")
	ErrPlayerNotFound    = errors.New("player not found")
	ErrSubtitlesNotFound = errors.New("subtitles not found")
)
