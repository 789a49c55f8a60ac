// Package call manages the audio/video call lifecycle: offer/answer/ICE
// exchange over the relay and the capture devices bound to one call at a
// time. It imports only Pion and stdlib; coupling to the rest of gigcore is
// via the Signaler and MediaSource interfaces.
package call

import (
	"errors"
	"log"
	"sync"

	"github.com/pion/webrtc/v4"
)

// State is the call lifecycle state. At most one non-idle call exists per
// client.
type State int

const (
	StateIdle State = iota
	StateOutgoing
	StateIncomingOffered
	StateActive
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOutgoing:
		return "outgoing"
	case StateIncomingOffered:
		return "incoming"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// ErrCallInProgress is returned when a call action conflicts with the
// single-outstanding-call invariant.
var ErrCallInProgress = errors.New("call: another call is in progress")

// ErrNoPendingCall is returned by Accept/Reject with no stored offer.
var ErrNoPendingCall = errors.New("call: no pending incoming call")

// Coordinator is the per-client call state machine.
type Coordinator struct {
	sig      Signaler
	media    MediaSource
	selfID   string
	selfName string

	// notify surfaces transient user-facing call events ("X is calling
	// you", "Call rejected by the user"). Never nil after New.
	notify func(text string)

	mu         sync.Mutex
	state      State
	remoteID   string
	remoteName string
	pending    *webrtc.SessionDescription
	pc         PeerConn
	local      LocalMedia
}

// New creates an idle Coordinator. notify may be nil.
func New(sig Signaler, media MediaSource, selfID, selfName string, notify func(string)) *Coordinator {
	if notify == nil {
		notify = func(string) {}
	}
	return &Coordinator{
		sig:      sig,
		media:    media,
		selfID:   selfID,
		selfName: selfName,
		notify:   notify,
	}
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// RemoteID returns the other party of the current call, if any.
func (c *Coordinator) RemoteID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remoteID
}

// StartCall rings remoteID: acquires capture, creates and transmits the
// local offer, and transitions Idle → Outgoing. Rejected outright from any
// other state.
func (c *Coordinator) StartCall(remoteID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return ErrCallInProgress
	}

	pc, local, err := c.media.NewPeerConnection()
	if err != nil {
		c.notify("Could not access camera/microphone")
		return err
	}
	c.pc = pc
	c.local = local
	c.remoteID = remoteID
	c.wireCandidatesLocked(remoteID)

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		c.cleanupLocked()
		return err
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		c.cleanupLocked()
		return err
	}
	if err := c.sig.CallUser(OfferSignal{
		UserToCall: remoteID,
		Signal:     offer,
		From:       c.selfID,
		Name:       c.selfName,
	}); err != nil {
		c.cleanupLocked()
		return err
	}

	c.state = StateOutgoing
	log.Printf("CALL [%s]: ringing %s", c.selfID, remoteID)
	return nil
}

// AcceptCall answers the stored incoming offer: acquires capture, applies
// the remote offer, transmits the answer, and transitions to Active.
func (c *Coordinator) AcceptCall() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIncomingOffered || c.pending == nil {
		return ErrNoPendingCall
	}

	pc, local, err := c.media.NewPeerConnection()
	if err != nil {
		c.notify("Could not access camera/microphone")
		c.cleanupLocked()
		return err
	}
	c.pc = pc
	c.local = local
	c.wireCandidatesLocked(c.remoteID)

	if err := pc.SetRemoteDescription(*c.pending); err != nil {
		c.cleanupLocked()
		return err
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		c.cleanupLocked()
		return err
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		c.cleanupLocked()
		return err
	}
	if err := c.sig.AnswerCall(AnswerSignal{Signal: answer, To: c.remoteID}); err != nil {
		c.cleanupLocked()
		return err
	}

	c.pending = nil
	c.state = StateActive
	log.Printf("CALL [%s]: accepted call from %s", c.selfID, c.remoteID)
	return nil
}

// RejectCall declines the stored incoming offer. No capture was ever
// acquired on this path.
func (c *Coordinator) RejectCall() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIncomingOffered {
		return ErrNoPendingCall
	}
	if err := c.sig.RejectCall(RejectSignal{To: c.remoteID}); err != nil {
		log.Printf("CALL [%s]: reject signal failed: %v", c.selfID, err)
	}
	c.cleanupLocked()
	return nil
}

// EndCall hangs up from any non-idle state, notifies the other party, and
// releases capture. No-op when already idle.
func (c *Coordinator) EndCall() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateIdle {
		return
	}
	if err := c.sig.EndCall(EndSignal{From: c.selfID, To: c.remoteID}); err != nil {
		log.Printf("CALL [%s]: end signal failed: %v", c.selfID, err)
	}
	c.cleanupLocked()
	c.notify("Call Ended")
}

// HandleIncoming ingests a callIncoming event. While any call is already
// underway the second offer is rejected automatically and the current call
// is untouched.
func (c *Coordinator) HandleIncoming(offer IncomingOffer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		log.Printf("CALL [%s]: busy, auto-rejecting offer from %s", c.selfID, offer.From)
		if err := c.sig.RejectCall(RejectSignal{To: offer.From}); err != nil {
			log.Printf("CALL [%s]: auto-reject signal failed: %v", c.selfID, err)
		}
		return
	}

	sig := offer.Signal
	c.pending = &sig
	c.remoteID = offer.From
	c.remoteName = offer.Name
	c.state = StateIncomingOffered

	name := offer.Name
	if name == "" {
		name = "Someone"
	}
	c.notify(name + " is calling you")
}

// HandleAccepted ingests a callAccepted event: the callee's answer. Applied
// only while Outgoing; out-of-order arrivals are swallowed.
func (c *Coordinator) HandleAccepted(answer webrtc.SessionDescription) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateOutgoing || c.pc == nil {
		return
	}
	if err := c.pc.SetRemoteDescription(answer); err != nil {
		log.Printf("CALL [%s]: set remote answer failed: %v", c.selfID, err)
		return
	}
	c.state = StateActive
}

// HandleRejected ingests a callRejected event while ringing.
func (c *Coordinator) HandleRejected() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateOutgoing {
		return
	}
	c.cleanupLocked()
	c.notify("Call rejected by the user")
}

// HandleEnded ingests a remote hangup from any non-idle state.
func (c *Coordinator) HandleEnded() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateIdle {
		return
	}
	c.cleanupLocked()
	c.notify("Call ended")
}

// HandleCandidate ingests one remote ICE candidate. A candidate arriving
// with no active peer connection is dropped silently.
func (c *Coordinator) HandleCandidate(candidate webrtc.ICECandidateInit) {
	c.mu.Lock()
	pc := c.pc
	c.mu.Unlock()

	if pc == nil {
		return
	}
	if err := pc.AddICECandidate(candidate); err != nil {
		log.Printf("CALL [%s]: add candidate failed: %v", c.selfID, err)
	}
}

// Close tears down any in-progress call before process exit so the remote
// party is not left in a connected-looking state. Idempotent.
func (c *Coordinator) Close() {
	c.EndCall()
}

// wireCandidatesLocked forwards locally gathered ICE candidates to the
// remote party for the lifetime of the current pc.
func (c *Coordinator) wireCandidatesLocked(remoteID string) {
	c.pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil {
			return
		}
		if err := c.sig.IceCandidate(CandidateSignal{
			Candidate: cand.ToJSON(),
			To:        remoteID,
		}); err != nil {
			log.Printf("CALL [%s]: candidate signal failed: %v", c.selfID, err)
		}
	})
}

// cleanupLocked releases capture and the peer connection exactly once and
// returns to Idle.
func (c *Coordinator) cleanupLocked() {
	if c.local != nil {
		if err := c.local.Close(); err != nil {
			log.Printf("CALL [%s]: release capture: %v", c.selfID, err)
		}
		c.local = nil
	}
	if c.pc != nil {
		if err := c.pc.Close(); err != nil {
			log.Printf("CALL [%s]: close peer connection: %v", c.selfID, err)
		}
		c.pc = nil
	}
	c.pending = nil
	c.remoteID = ""
	c.remoteName = ""
	c.state = StateIdle
}
