package call

import "github.com/pion/webrtc/v4"

// Signaler is the only surface the call package needs from the realtime
// layer. A small adapter over the transport channel satisfies it in the app
// wiring, the only place that imports both packages.
type Signaler interface {
	CallUser(sig OfferSignal) error
	AnswerCall(sig AnswerSignal) error
	RejectCall(sig RejectSignal) error
	EndCall(sig EndSignal) error
	IceCandidate(sig CandidateSignal) error
}

// OfferSignal is the outbound callUser payload.
type OfferSignal struct {
	UserToCall string                    `json:"userToCall"`
	Signal     webrtc.SessionDescription `json:"signal"`
	From       string                    `json:"from"`
	Name       string                    `json:"name"`
}

// AnswerSignal is the outbound answerCall payload.
type AnswerSignal struct {
	Signal webrtc.SessionDescription `json:"signal"`
	To     string                    `json:"to"`
}

// RejectSignal is the outbound rejectCall payload.
type RejectSignal struct {
	To string `json:"to"`
}

// EndSignal is the outbound endCall payload.
type EndSignal struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// CandidateSignal carries one ICE candidate to the remote party.
type CandidateSignal struct {
	Candidate webrtc.ICECandidateInit `json:"candidate"`
	To        string                  `json:"to"`
}

// IncomingOffer is the inbound callIncoming payload.
type IncomingOffer struct {
	From   string                    `json:"from"`
	Signal webrtc.SessionDescription `json:"signal"`
	Name   string                    `json:"name"`
}

// PeerConn is the slice of *webrtc.PeerConnection the coordinator drives.
// Narrowed so tests can negotiate without real ICE or devices.
type PeerConn interface {
	CreateOffer(*webrtc.OfferOptions) (webrtc.SessionDescription, error)
	CreateAnswer(*webrtc.AnswerOptions) (webrtc.SessionDescription, error)
	SetLocalDescription(webrtc.SessionDescription) error
	SetRemoteDescription(webrtc.SessionDescription) error
	AddICECandidate(webrtc.ICECandidateInit) error
	OnICECandidate(func(*webrtc.ICECandidate))
	Close() error
}

// LocalMedia is an acquired camera/microphone capture. Close releases the
// devices and must be called on every exit path from a non-idle call.
type LocalMedia interface {
	Close() error
}

// MediaSource builds a peer connection with local capture attached. Capture
// is acquired here and nowhere else, so a call that never reaches
// offer-creation or accept never touches the devices. local is nil when the
// platform has no capture (receive-only call).
type MediaSource interface {
	NewPeerConnection() (pc PeerConn, local LocalMedia, err error)
}
