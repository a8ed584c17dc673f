package controller

import (
	"github.com/whonoahexe/watch.with/pkg/wsrouter"
)

func (c *controller) getWSRouter() *wsrouter.Router {
	mux := wsrouter.New()

	mux.Use(c.wsRequestIdMw())
	mux.Use(c.loggerWSMw())
	mux.OnError(c.handleWSError)

	wsrouter.Handle(mux, "alive", c.handleAlive)

	// room
	wsrouter.Handle(mux, "create-room", c.handleCreateRoom)
	wsrouter.Handle(mux, "join-room", c.handleJoinRoom)
	wsrouter.Handle(mux, "leave-room", c.handleLeaveRoom)
	wsrouter.Handle(mux, "promote-host", c.handlePromoteHost)
	wsrouter.Handle(mux, "set-video", c.handleSetVideo)
	wsrouter.Handle(mux, "set-subtitles", c.handleSetSubtitles)

	// player
	wsrouter.Handle(mux, "play-video", c.handlePlayVideo)
	wsrouter.Handle(mux, "pause-video", c.handlePauseVideo)
	wsrouter.Handle(mux, "seek-video", c.handleSeekVideo)
	wsrouter.Handle(mux, "sync-check", c.handleSyncCheck)

	// voice
	wsrouter.Handle(mux, "voice-join", c.handleVoiceJoin)
	wsrouter.Handle(mux, "voice-leave", c.handleVoiceLeave)
	wsrouter.Handle(mux, "voice-offer", c.handleVoiceOffer)
	wsrouter.Handle(mux, "voice-answer", c.handleVoiceAnswer)
	wsrouter.Handle(mux, "voice-ice-candidate", c.handleVoiceIceCandidate)
	wsrouter.Handle(mux, "update-voice-state", c.handleUpdateVoiceState)

	// chat
	wsrouter.Handle(mux, "chat-message", c.handleChatMessage)
	wsrouter.Handle(mux, "typing-start", c.handleTypingStart)
	wsrouter.Handle(mux, "typing-stop", c.handleTypingStop)

	return mux
}
