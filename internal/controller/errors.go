package controller

import (
	"context"
	"errors"

	"github.com/gorilla/websocket"
	"github.com/whonoahexe/watch.with/internal/service/room"
	"github.com/whonoahexe/watch.with/internal/service/voice"
	"github.com/whonoahexe/watch.with/pkg/validator"
	"github.com/whonoahexe/watch.with/pkg/wsrouter"
)

const (
	errorChannel      = "error"
	roomErrorChannel  = "room-error"
	voiceErrorChannel = "voice-error"
)

// Best-effort events never get error replies; a malicious or confused peer
// learns nothing from them.
var silentEvents = map[string]struct{}{
	"voice-offer":         {},
	"voice-answer":        {},
	"voice-ice-candidate": {},
	"typing-start":        {},
	"typing-stop":         {},
	"alive":               {},
}

var eventErrorChannels = map[string]string{
	"create-room":        roomErrorChannel,
	"join-room":          roomErrorChannel,
	"leave-room":         roomErrorChannel,
	"promote-host":       roomErrorChannel,
	"set-video":          roomErrorChannel,
	"set-subtitles":      roomErrorChannel,
	"play-video":         roomErrorChannel,
	"pause-video":        roomErrorChannel,
	"seek-video":         roomErrorChannel,
	"sync-check":         roomErrorChannel,
	"voice-join":         voiceErrorChannel,
	"voice-leave":        voiceErrorChannel,
	"update-voice-state": voiceErrorChannel,
}

// surfacedErrors are the failures whose text is shown to the user verbatim.
// Anything else is an internal error and stays opaque.
var surfacedErrors = []error{
	room.ErrRoomNotFound,
	room.ErrUserNotFound,
	room.ErrPermissionDenied,
	room.ErrNameTaken,
	room.ErrInvalidHostToken,
	room.ErrAlreadyHost,
	room.ErrNotInRoom,
	room.ErrAlreadyInRoom,
	voice.ErrVoiceFull,
	voice.ErrNotAuthenticated,
	wsrouter.ErrUnknownMessageType,
	wsrouter.ErrMalformedPayload,
}

func (c controller) handleWSError(ctx context.Context, conn *websocket.Conn, messageType string, err error) {
	if _, silent := silentEvents[messageType]; silent {
		c.logger.DebugContext(ctx, "dropped failing message", "type", messageType, "error", err)
		return
	}

	channel, ok := eventErrorChannels[messageType]
	if !ok {
		channel = errorChannel
	}

	message := "internal error"
	for _, surfaced := range surfacedErrors {
		if errors.Is(err, surfaced) {
			message = surfaced.Error()
			break
		}
	}

	if message == "internal error" {
		c.logger.WarnContext(ctx, "handler failed", "type", messageType, "error", err)
	} else {
		c.logger.InfoContext(ctx, "handler rejected message", "type", messageType, "error", err)
	}

	c.writeError(ctx, conn, channel, message)
}

func (c controller) writeError(ctx context.Context, conn *websocket.Conn, channel, message string) {
	c.writeToConn(ctx, conn, &Output{
		Type: channel,
		Payload: map[string]any{
			"error": message,
		},
	})
}

func (c controller) writeValidationErrors(ctx context.Context, conn *websocket.Conn, channel string, validationErrors []validator.ValidationError) error {
	if len(validationErrors) == 0 {
		return nil
	}

	c.logger.InfoContext(ctx, "validation failed", "errors", validationErrors)
	c.writeError(ctx, conn, channel, validationErrors[0].Message)

	return nil
}
