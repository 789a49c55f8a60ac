package app

import (
	"encoding/json"
	"log"

	"github.com/pion/webrtc/v4"

	"github.com/campusgig/gigcore/internal/call"
	"github.com/campusgig/gigcore/internal/chat"
	"github.com/campusgig/gigcore/internal/notify"
	"github.com/campusgig/gigcore/internal/transport"
)

// wireEvents attaches every inbound relay event to its consumer. Handlers
// run on the transport read goroutine in delivery order.
func (a *App) wireEvents() {
	a.cancels = append(a.cancels,
		a.ch.On(transport.EvtNewMessage, a.handleNewMessage),
		a.ch.On(transport.EvtMessageSeenUpdate, a.handleSeenUpdate),
		a.ch.OnConnectivity(a.handleConnectivity),
	)

	if a.calls != nil {
		a.cancels = append(a.cancels,
			a.ch.On(transport.EvtCallIncoming, a.handleCallIncoming),
			a.ch.On(transport.EvtCallAccepted, a.handleCallAccepted),
			a.ch.On(transport.EvtCallRejected, func(json.RawMessage) { a.calls.HandleRejected() }),
			a.ch.On(transport.EvtCallEnded, func(json.RawMessage) { a.calls.HandleEnded() }),
			a.ch.On(transport.EvtIceCandidate, a.handleIceCandidate),
		)
	}
}

func (a *App) handleNewMessage(data json.RawMessage) {
	var m chat.Message
	if err := json.Unmarshal(data, &m); err != nil {
		log.Printf("APP: bad newMessage payload: %v", err)
		return
	}
	a.store.AppendLive(m)
	if m.SenderID != a.sess.UserID && !m.Empty() {
		a.notes.Push(notify.KindMessage, "New message received")
	}
	// The list surface refetches on every new message, matching the
	// full-resync behavior of the seen path.
	a.fireListChanged()
}

func (a *App) handleSeenUpdate(data json.RawMessage) {
	var req chat.SeenRequest
	if err := json.Unmarshal(data, &req); err != nil {
		log.Printf("APP: bad messageSeenUpdate payload: %v", err)
		return
	}
	a.seen.HandleSeenUpdate(req)
}

// handleConnectivity resyncs the conversation list after every reconnect.
// Anything broadcast while the link was down is invisible forever on the
// relay path; the REST state is the only way to catch up.
func (a *App) handleConnectivity(connected bool) {
	if connected {
		a.fireListChanged()
		return
	}
	a.notes.Push(notify.KindSystem, "Connection lost, reconnecting")
}

func (a *App) handleCallIncoming(data json.RawMessage) {
	var offer call.IncomingOffer
	if err := json.Unmarshal(data, &offer); err != nil {
		log.Printf("APP: bad callIncoming payload: %v", err)
		return
	}
	a.calls.HandleIncoming(offer)
}

func (a *App) handleCallAccepted(data json.RawMessage) {
	var answer webrtc.SessionDescription
	if err := json.Unmarshal(data, &answer); err != nil {
		log.Printf("APP: bad callAccepted payload: %v", err)
		return
	}
	a.calls.HandleAccepted(answer)
}

func (a *App) handleIceCandidate(data json.RawMessage) {
	var cand webrtc.ICECandidateInit
	if err := json.Unmarshal(data, &cand); err != nil {
		log.Printf("APP: bad iceCandidate payload: %v", err)
		return
	}
	a.calls.HandleCandidate(cand)
}
