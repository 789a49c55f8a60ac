package app

import (
	"errors"

	"github.com/campusgig/gigcore/internal/call"
)

// ErrCallsDisabled is returned by call operations when calls are switched
// off in the config.
var ErrCallsDisabled = errors.New("calls are disabled in the configuration")

// CallState returns the coordinator state, or idle when calls are disabled.
func (a *App) CallState() call.State {
	if a.calls == nil {
		return call.StateIdle
	}
	return a.calls.State()
}

// CallRemote returns the other party of the current call, if any.
func (a *App) CallRemote() string {
	if a.calls == nil {
		return ""
	}
	return a.calls.RemoteID()
}

// StartCall rings the other participant of the thread.
func (a *App) StartCall(t Thread) error {
	if a.calls == nil {
		return ErrCallsDisabled
	}
	return a.calls.StartCall(t.other(a.sess.UserID))
}

// AcceptCall answers the pending incoming call.
func (a *App) AcceptCall() error {
	if a.calls == nil {
		return ErrCallsDisabled
	}
	return a.calls.AcceptCall()
}

// RejectCall declines the pending incoming call.
func (a *App) RejectCall() error {
	if a.calls == nil {
		return ErrCallsDisabled
	}
	return a.calls.RejectCall()
}

// EndCall hangs up the current call, if any.
func (a *App) EndCall() {
	if a.calls != nil {
		a.calls.EndCall()
	}
}
