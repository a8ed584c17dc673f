package session

import "errors"

var (
	ErrAlreadyExists = errors.New("session already exists")
	ErrNotFound      = errors.New("session not found")
)

// Session binds one transport connection to a joined user. It lives exactly
// as long as the connection does.
type Session struct {
	UserId   string
	UserName string
	RoomId   string
}
