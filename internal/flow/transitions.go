package flow

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/Alijeyrad/assessflow/pkg/backend"
)

const unknownPlayer = "Unknown"

// StartSingle begins a single-athlete flow on session, discarding any prior
// state.
func (f *Flow) StartSingle(session backend.Session) {
	f.s = State{
		Mode:           ModeSingle,
		CurrentStep:    StepInput,
		CurrentSession: &session,
		PendingResults: map[string]json.RawMessage{},
	}
}

// StartGroup begins a group flow. sessions[i] belongs to players[i]. Invalid
// rosters are rejected before anything changes.
func (f *Flow) StartGroup(sessions []backend.Session, players []backend.PlayerListItem) error {
	if len(sessions) != len(players) {
		return fmt.Errorf("%w: %d sessions, %d players", ErrRosterMismatch, len(sessions), len(players))
	}
	if len(sessions) == 0 {
		return ErrEmptyRoster
	}

	members := make([]GroupMember, len(sessions))
	for i, s := range sessions {
		name := players[i].FullName
		if name == "" {
			name = s.PlayerName
		}
		if name == "" {
			name = unknownPlayer
		}
		members[i] = GroupMember{
			PlayerID:   s.PlayerID,
			PlayerName: name,
			Session:    s,
		}
	}

	first := sessions[0]
	f.s = State{
		Mode:              ModeGroup,
		CurrentStep:       StepInput,
		CurrentSession:    &first,
		PendingResults:    map[string]json.RawMessage{},
		GroupSessions:     members,
		CurrentGroupIndex: 0,
		SelectedPlayers:   slices.Clone(players),
	}
	return nil
}

// RecordAnswer stores value for testID. The last write wins.
func (f *Flow) RecordAnswer(testID string, value json.RawMessage) error {
	if f.s.CurrentSession == nil {
		return ErrNoActiveSession
	}
	f.s.PendingResults[testID] = slices.Clone(value)
	return nil
}

// RecordAnswers merges answers into the pending results.
func (f *Flow) RecordAnswers(answers map[string]json.RawMessage) error {
	if f.s.CurrentSession == nil {
		return ErrNoActiveSession
	}
	for k, v := range answers {
		f.s.PendingResults[k] = slices.Clone(v)
	}
	return nil
}

// SelectGroupMember makes the member at index current. Pending answers of the
// previous member are discarded.
func (f *Flow) SelectGroupMember(index int) error {
	if err := f.navigable(); err != nil {
		return err
	}
	if index < 0 || index >= len(f.s.GroupSessions) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrMemberOutOfRange, index, len(f.s.GroupSessions))
	}
	f.moveTo(index)
	return nil
}

// AdvanceGroupMember moves to the next member. At the last member it enters
// review once everyone is complete and otherwise does nothing.
func (f *Flow) AdvanceGroupMember() error {
	if err := f.navigable(); err != nil {
		return err
	}
	next := f.s.CurrentGroupIndex + 1
	if next < len(f.s.GroupSessions) {
		f.moveTo(next)
		return nil
	}
	if f.IsGroupComplete() {
		f.s.CurrentStep = StepReview
	}
	return nil
}

// RetreatGroupMember moves to the previous member; no-op at the first.
func (f *Flow) RetreatGroupMember() error {
	if err := f.navigable(); err != nil {
		return err
	}
	if prev := f.s.CurrentGroupIndex - 1; prev >= 0 {
		f.moveTo(prev)
	}
	return nil
}

// MarkGroupMemberComplete records the backend's confirmation that the current
// member's session is complete.
func (f *Flow) MarkGroupMemberComplete(confirmed backend.Session) error {
	if f.s.Mode != ModeGroup {
		return ErrNotGroupMode
	}
	if f.s.CurrentGroupIndex < 0 || f.s.CurrentGroupIndex >= len(f.s.GroupSessions) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrMemberOutOfRange, f.s.CurrentGroupIndex, len(f.s.GroupSessions))
	}
	if !confirmed.IsComplete {
		return ErrNotConfirmed
	}
	m := &f.s.GroupSessions[f.s.CurrentGroupIndex]
	if confirmed.ID != m.Session.ID {
		return fmt.Errorf("%w: got %s, current %s", ErrSessionMismatch, confirmed.ID, m.Session.ID)
	}

	m.Session = confirmed
	m.IsComplete = true
	cur := confirmed
	f.s.CurrentSession = &cur
	return nil
}

// ConfirmSession refreshes the current single-mode session with the backend's
// completed record.
func (f *Flow) ConfirmSession(confirmed backend.Session) error {
	if f.s.CurrentSession == nil {
		return ErrNoActiveSession
	}
	if !confirmed.IsComplete {
		return ErrNotConfirmed
	}
	if confirmed.ID != f.s.CurrentSession.ID {
		return fmt.Errorf("%w: got %s, current %s", ErrSessionMismatch, confirmed.ID, f.s.CurrentSession.ID)
	}
	cur := confirmed
	f.s.CurrentSession = &cur
	return nil
}

// SetStep moves the active session from input to review. Review is left only
// through Clear.
func (f *Flow) SetStep(step Step) error {
	switch step {
	case StepInput, StepReview:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStep, step)
	}
	if f.s.CurrentSession == nil {
		return ErrNoActiveSession
	}
	if f.s.CurrentStep == StepReview {
		if step == StepReview {
			return nil
		}
		return ErrReviewTerminal
	}
	if step == StepReview && f.s.Mode == ModeGroup && !f.IsGroupComplete() {
		return ErrGroupIncomplete
	}
	f.s.CurrentStep = step
	return nil
}

// Clear resets the flow to the empty select state.
func (f *Flow) Clear() {
	f.s = State{
		Mode:            ModeSingle,
		CurrentStep:     StepSelect,
		PendingResults:  map[string]json.RawMessage{},
		GroupSessions:   []GroupMember{},
		SelectedPlayers: []backend.PlayerListItem{},
	}
}

// navigable reports whether group navigation is allowed: group mode, input step.
func (f *Flow) navigable() error {
	if f.s.Mode != ModeGroup {
		return ErrNotGroupMode
	}
	if f.s.CurrentStep == StepReview {
		return ErrReviewTerminal
	}
	return nil
}

func (f *Flow) moveTo(index int) {
	s := f.s.GroupSessions[index].Session
	f.s.CurrentGroupIndex = index
	f.s.CurrentSession = &s
	f.s.PendingResults = map[string]json.RawMessage{}
}
