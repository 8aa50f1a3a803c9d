package flow

import "errors"

var (
	ErrRosterMismatch   = errors.New("sessions and players must have the same length")
	ErrEmptyRoster      = errors.New("group assessment needs at least one player")
	ErrNotGroupMode     = errors.New("flow is not in group mode")
	ErrMemberOutOfRange = errors.New("group member index out of range")
	ErrNoActiveSession  = errors.New("no assessment session in progress")
	ErrNotConfirmed     = errors.New("session completion not confirmed by backend")
	ErrSessionMismatch  = errors.New("confirmed session is not the current session")
	ErrGroupIncomplete  = errors.New("not every group member is complete")
	ErrInvalidStep      = errors.New("invalid step transition")
	ErrReviewTerminal   = errors.New("flow is in review; clear it to start over")
)
