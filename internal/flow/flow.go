// Package flow holds the assessment flow state machine: one operator walking
// one athlete (single mode) or a roster of athletes (group mode) through the
// select, input and review steps.
//
// A Flow performs no I/O. Callers await backend calls first and then apply the
// matching transition.
package flow

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/samber/lo"

	"github.com/Alijeyrad/assessflow/pkg/backend"
)

type Step string

const (
	StepSelect Step = "select"
	StepInput  Step = "input"
	StepReview Step = "review"
)

type Mode string

const (
	ModeSingle Mode = "single"
	ModeGroup  Mode = "group"
)

// GroupMember pairs an athlete with their session inside a group flow.
// IsComplete mirrors the backend's completion flag and is only set after the
// backend has confirmed it.
type GroupMember struct {
	PlayerID   string          `json:"player_id"`
	PlayerName string          `json:"player_name"`
	Session    backend.Session `json:"session"`
	IsComplete bool            `json:"is_complete"`
}

// State is the serializable shape of a flow.
type State struct {
	Mode              Mode                       `json:"mode"`
	CurrentStep       Step                       `json:"current_step"`
	CurrentSession    *backend.Session           `json:"current_session"`
	PendingResults    map[string]json.RawMessage `json:"pending_results"`
	GroupSessions     []GroupMember              `json:"group_sessions"`
	CurrentGroupIndex int                        `json:"current_group_index"`
	SelectedPlayers   []backend.PlayerListItem   `json:"selected_players"`
}

type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// Flow is the state machine. The zero value is not ready; use New.
type Flow struct {
	s State
}

func New() *Flow {
	f := &Flow{}
	f.Clear()
	return f
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

func (f *Flow) Mode() Mode { return f.s.Mode }

func (f *Flow) Step() Step { return f.s.CurrentStep }

func (f *Flow) CurrentGroupIndex() int { return f.s.CurrentGroupIndex }

// CurrentSession returns a copy of the active session, or nil in select.
func (f *Flow) CurrentSession() *backend.Session {
	if f.s.CurrentSession == nil {
		return nil
	}
	cp := *f.s.CurrentSession
	return &cp
}

// Pending returns a copy of the unsubmitted answers of the active session.
func (f *Flow) Pending() map[string]json.RawMessage {
	return maps.Clone(f.s.PendingResults)
}

// Answer returns the pending answer recorded for testID.
func (f *Flow) Answer(testID string) (json.RawMessage, bool) {
	v, ok := f.s.PendingResults[testID]
	return v, ok
}

// CurrentGroupMember returns the member being worked on, or nil outside
// group mode.
func (f *Flow) CurrentGroupMember() *GroupMember {
	if f.s.Mode != ModeGroup || f.s.CurrentGroupIndex >= len(f.s.GroupSessions) {
		return nil
	}
	m := f.s.GroupSessions[f.s.CurrentGroupIndex]
	return &m
}

// Members returns a copy of the group roster.
func (f *Flow) Members() []GroupMember {
	return slices.Clone(f.s.GroupSessions)
}

func (f *Flow) Progress() Progress {
	return Progress{
		Completed: lo.CountBy(f.s.GroupSessions, func(m GroupMember) bool { return m.IsComplete }),
		Total:     len(f.s.GroupSessions),
	}
}

func (f *Flow) IsGroupComplete() bool {
	return len(f.s.GroupSessions) > 0 &&
		lo.EveryBy(f.s.GroupSessions, func(m GroupMember) bool { return m.IsComplete })
}

// Snapshot returns a deep copy of the state for rendering.
func (f *Flow) Snapshot() State {
	s := State{
		Mode:              f.s.Mode,
		CurrentStep:       f.s.CurrentStep,
		CurrentSession:    f.CurrentSession(),
		PendingResults:    make(map[string]json.RawMessage, len(f.s.PendingResults)),
		GroupSessions:     slices.Clone(f.s.GroupSessions),
		CurrentGroupIndex: f.s.CurrentGroupIndex,
		SelectedPlayers:   slices.Clone(f.s.SelectedPlayers),
	}
	for k, v := range f.s.PendingResults {
		s.PendingResults[k] = slices.Clone(v)
	}
	if s.GroupSessions == nil {
		s.GroupSessions = []GroupMember{}
	}
	if s.SelectedPlayers == nil {
		s.SelectedPlayers = []backend.PlayerListItem{}
	}
	return s
}

// ---------------------------------------------------------------------------
// Persistence
// ---------------------------------------------------------------------------

func (f *Flow) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Snapshot())
}

func (f *Flow) UnmarshalJSON(b []byte) error {
	var s State
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s.Mode == "" {
		s.Mode = ModeSingle
	}
	if s.CurrentStep == "" {
		s.CurrentStep = StepSelect
	}
	if s.PendingResults == nil {
		s.PendingResults = map[string]json.RawMessage{}
	}
	if s.CurrentGroupIndex < 0 || (len(s.GroupSessions) > 0 && s.CurrentGroupIndex >= len(s.GroupSessions)) {
		return fmt.Errorf("flow: %w: %d not in [0, %d)", ErrMemberOutOfRange, s.CurrentGroupIndex, len(s.GroupSessions))
	}
	f.s = s
	return nil
}
