package chat

import (
	"context"
	"log"
)

// SeenRequest identifies one viewer's seen boundary in one conversation.
// It is both the REST persist payload and the relay broadcast payload.
type SeenRequest struct {
	PosterID       string `json:"posterId"`
	AcceptedUserID string `json:"acceptedUserId"`
	JobID          string `json:"jobId"`
	ViewerID       string `json:"viewerId"`
}

// Key derives the conversation key the request refers to.
func (r SeenRequest) Key() Key {
	return DeriveKey(r.PosterID, r.AcceptedUserID, r.JobID)
}

// SeenPersister persists the boundary on the REST backend.
// Satisfied by a thin adapter over api.Client.
type SeenPersister interface {
	PersistSeen(ctx context.Context, req SeenRequest) error
}

// SeenBroadcaster pushes the boundary to other connected clients via the
// relay so their unread badges update without waiting for a store refresh.
type SeenBroadcaster interface {
	BroadcastSeen(req SeenRequest) error
}

// Reconciler owns the read/unread boundary per conversation.
type Reconciler struct {
	store     *Store
	persister SeenPersister
	caster    SeenBroadcaster

	// onResync is invoked whenever a seen broadcast arrives (including the
	// echo of a locally-sent one). It triggers a full resync of the list
	// surface rather than a targeted patch.
	onResync func()
}

// NewReconciler wires the reconciler to its collaborators. onResync may be
// nil when no list surface is attached.
func NewReconciler(store *Store, persister SeenPersister, caster SeenBroadcaster, onResync func()) *Reconciler {
	return &Reconciler{store: store, persister: persister, caster: caster, onResync: onResync}
}

// MarkSeen persists the viewer's boundary, then broadcasts it best-effort
// once the persist call has settled, even when it failed. Idempotent:
// marking an already-seen conversation changes nothing. Never blocks the
// caller on failure; a persist error is logged and returned for an optional
// transient notification, with no rollback of local state.
func (r *Reconciler) MarkSeen(ctx context.Context, req SeenRequest) error {
	err := r.persister.PersistSeen(ctx, req)
	if err != nil {
		log.Printf("SEEN: persist failed for %s: %v", req.Key(), err)
	}

	if berr := r.caster.BroadcastSeen(req); berr != nil {
		log.Printf("SEEN: broadcast failed for %s: %v", req.Key(), berr)
	}

	r.store.MarkSeen(req.Key(), req.ViewerID)
	return err
}

// HandleSeenUpdate ingests a messageSeenUpdate broadcast from the relay,
// updates local seen flags, and triggers the list resync.
func (r *Reconciler) HandleSeenUpdate(req SeenRequest) {
	r.store.MarkSeen(req.Key(), req.ViewerID)
	if r.onResync != nil {
		r.onResync()
	}
}
