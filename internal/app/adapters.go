package app

import (
	"context"

	"github.com/campusgig/gigcore/internal/api"
	"github.com/campusgig/gigcore/internal/call"
	"github.com/campusgig/gigcore/internal/chat"
	"github.com/campusgig/gigcore/internal/transport"
)

// callSignaler satisfies call.Signaler over the relay channel.
type callSignaler struct {
	ch *transport.Channel
}

func (s *callSignaler) CallUser(sig call.OfferSignal) error {
	return s.ch.Emit(transport.EvtCallUser, sig)
}

func (s *callSignaler) AnswerCall(sig call.AnswerSignal) error {
	return s.ch.Emit(transport.EvtAnswerCall, sig)
}

func (s *callSignaler) RejectCall(sig call.RejectSignal) error {
	return s.ch.Emit(transport.EvtRejectCall, sig)
}

func (s *callSignaler) EndCall(sig call.EndSignal) error {
	return s.ch.Emit(transport.EvtEndCall, sig)
}

func (s *callSignaler) IceCandidate(sig call.CandidateSignal) error {
	return s.ch.Emit(transport.EvtIceCandidate, sig)
}

// seenPersister satisfies chat.SeenPersister over the REST client.
type seenPersister struct {
	api *api.Client
}

func (p *seenPersister) PersistSeen(ctx context.Context, req chat.SeenRequest) error {
	return p.api.MarkSeen(ctx, api.MarkSeenRequest{
		PosterID:       req.PosterID,
		AcceptedUserID: req.AcceptedUserID,
		JobID:          req.JobID,
		ViewerID:       req.ViewerID,
	})
}

// seenBroadcaster satisfies chat.SeenBroadcaster over the relay channel.
type seenBroadcaster struct {
	ch *transport.Channel
}

func (b *seenBroadcaster) BroadcastSeen(req chat.SeenRequest) error {
	return b.ch.Emit(transport.EvtMessageSeen, req)
}
