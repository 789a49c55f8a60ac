// Package transport maintains the single persistent websocket connection to
// the relay server. All realtime traffic (chat, presence, seen updates,
// call signaling) flows through one Channel as JSON envelopes.
package transport

import "encoding/json"

// Events emitted by the client.
const (
	EvtRegisterUser = "registerUser"
	EvtJoinRoom     = "joinRoom"
	EvtLeaveRoom    = "leaveRoom"
	EvtSendMessage  = "sendMessage"
	EvtUserOnline   = "userOnline"
	EvtMessageSeen  = "messageSeen"
	EvtCallUser     = "callUser"
	EvtAnswerCall   = "answerCall"
	EvtRejectCall   = "rejectCall"
	EvtEndCall      = "endCall"
)

// Events received from the relay.
const (
	EvtNewMessage        = "newMessage"
	EvtMessageSeenUpdate = "messageSeenUpdate"
	EvtOnlineUsers       = "onlineUsers"
	EvtUpdateUserStatus  = "updateUserStatus"
	EvtCallIncoming      = "callIncoming"
	EvtCallAccepted      = "callAccepted"
	EvtCallRejected      = "callRejected"
	EvtCallEnded         = "callEnded"
)

// EvtIceCandidate flows in both directions during signaling.
const EvtIceCandidate = "iceCandidate"

// Envelope is the wire frame: an event name plus its JSON payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}
