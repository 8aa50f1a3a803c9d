package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/assessflow/internal/battery"
	"github.com/Alijeyrad/assessflow/internal/events"
	"github.com/Alijeyrad/assessflow/internal/flow"
	"github.com/Alijeyrad/assessflow/internal/store"
	"github.com/Alijeyrad/assessflow/pkg/backend"
)

const op = "operator-1"

type fakeBackend struct {
	mu sync.Mutex

	players  map[string]*backend.Player
	sports   map[int]*backend.Sport
	sessions map[string]*backend.Session
	results  map[string][]json.RawMessage

	createErr   map[string]error
	bulkErr     error
	completeErr error
	deleted     []string
	bulkCalls   int
}

func newFakeBackend() *fakeBackend {
	baseball := 1
	return &fakeBackend{
		players: map[string]*backend.Player{
			"p1":   {ID: "p1", FullName: "Ana Ruiz", SportID: &baseball, IsActive: true, IsPositionPlayer: true},
			"p2":   {ID: "p2", FullName: "Ben Cole", SportID: &baseball, IsActive: true, IsPitcher: true},
			"p3":   {ID: "p3", FullName: "Cal Diaz", IsActive: true, IsPositionPlayer: true},
			"gone": {ID: "gone", FullName: "Old Timer", IsActive: false},
		},
		sports: map[int]*backend.Sport{
			baseball: {ID: baseball, Name: "Baseball", AvailableAssessments: []backend.AssessmentType{
				backend.TypeOnBaseU, backend.TypePitcherOnBaseU, backend.TypeTPIPower,
			}},
		},
		sessions:  map[string]*backend.Session{},
		results:   map[string][]json.RawMessage{},
		createErr: map[string]error{},
	}
}

func (f *fakeBackend) GetPlayer(_ context.Context, id string) (*backend.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.players[id]
	if !ok {
		return nil, fmt.Errorf("get player: %w", backend.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (f *fakeBackend) GetSport(_ context.Context, id int) (*backend.Sport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sports[id]
	if !ok {
		return nil, fmt.Errorf("get sport: %w", backend.ErrNotFound)
	}
	cp := *s
	return &cp, nil
}

func (f *fakeBackend) GetSession(_ context.Context, id string) (*backend.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, fmt.Errorf("get session: %w", backend.ErrNotFound)
	}
	cp := *s
	return &cp, nil
}

func (f *fakeBackend) CreateSession(_ context.Context, in backend.SessionCreate) (*backend.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.createErr[in.PlayerID]; err != nil {
		return nil, err
	}
	s := &backend.Session{
		ID:             fmt.Sprintf("s-%s", in.PlayerID),
		PlayerID:       in.PlayerID,
		AssessmentType: in.AssessmentType,
		AssessmentDate: in.AssessmentDate,
		Notes:          in.Notes,
	}
	f.sessions[s.ID] = s
	cp := *s
	return &cp, nil
}

func (f *fakeBackend) DeleteSession(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeBackend) CompleteSession(_ context.Context, id string) (*backend.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	s, ok := f.sessions[id]
	if !ok {
		return nil, fmt.Errorf("complete session: %w", backend.ErrNotFound)
	}
	s.IsComplete = true
	cp := *s
	return &cp, nil
}

func (f *fakeBackend) BulkCreateResults(_ context.Context, _ backend.AssessmentType, sid string, items []any) ([]json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bulkCalls++
	if f.bulkErr != nil {
		return nil, f.bulkErr
	}
	var out []json.RawMessage
	for _, it := range items {
		b, err := json.Marshal(it)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	f.results[sid] = append(f.results[sid], out...)
	return out, nil
}

func (f *fakeBackend) Results(_ context.Context, _ backend.AssessmentType, sid string) ([]json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.results[sid], nil
}

type published struct {
	subject string
	event   events.Event
}

type recorder struct {
	mu  sync.Mutex
	out []published
}

func (r *recorder) Publish(_ context.Context, subject string, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.out = append(r.out, published{subject, e})
	return nil
}

func (r *recorder) subjects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var s []string
	for _, p := range r.out {
		s = append(s, p.subject)
	}
	return s
}

func newTestService(t *testing.T) (*service, *fakeBackend, *recorder) {
	t.Helper()
	be := newFakeBackend()
	rec := &recorder{}
	svc := New(be, store.NewMemory(), rec).(*service)
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) }
	return svc, be, rec
}

func raw(s string) json.RawMessage { return json.RawMessage(s) }

func tpiAnswers() map[string]json.RawMessage {
	return map[string]json.RawMessage{
		"TPI-01": raw(`{"value":30}`),
		"TPI-02": raw(`{"value":110}`),
		"TPI-03": raw(`{"value":25}`),
		"TPI-04": raw(`{"value":26}`),
		"TPI-05": raw(`{"left":40,"right":42}`),
	}
}

func TestStartSingle(t *testing.T) {
	ctx := context.Background()

	t.Run("creates session and enters input", func(t *testing.T) {
		svc, be, rec := newTestService(t)

		v, err := svc.StartSingle(ctx, op, StartSingleRequest{PlayerID: "p1", AssessmentType: backend.TypeOnBaseU})
		require.NoError(t, err)
		assert.Equal(t, flow.ModeSingle, v.State.Mode)
		assert.Equal(t, flow.StepInput, v.State.CurrentStep)
		require.NotNil(t, v.State.CurrentSession)
		assert.Equal(t, "s-p1", v.State.CurrentSession.ID)
		assert.Equal(t, "Ana Ruiz", v.State.CurrentSession.PlayerName)
		assert.Equal(t, "2026-03-14", be.sessions["s-p1"].AssessmentDate)
		assert.Len(t, v.Missing, 16)
		assert.Equal(t, []string{"assessflow.flow.started.onbaseu"}, rec.subjects())
	})

	t.Run("rejects ineligible player without creating a session", func(t *testing.T) {
		svc, be, _ := newTestService(t)

		_, err := svc.StartSingle(ctx, op, StartSingleRequest{PlayerID: "p1", AssessmentType: backend.TypePitcherOnBaseU})
		require.ErrorIs(t, err, ErrIneligiblePlayer)
		assert.Empty(t, be.sessions)

		v, err := svc.State(ctx, op)
		require.NoError(t, err)
		assert.Equal(t, flow.StepSelect, v.State.CurrentStep)
	})

	t.Run("rejects type not offered by sport", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.StartSingle(ctx, op, StartSingleRequest{PlayerID: "p1", AssessmentType: backend.TypeSprint})
		require.ErrorIs(t, err, ErrAssessmentUnavailable)
	})

	t.Run("player without sport may take any type", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.StartSingle(ctx, op, StartSingleRequest{PlayerID: "p3", AssessmentType: backend.TypeKAMS})
		require.NoError(t, err)
	})

	t.Run("rejects inactive player", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.StartSingle(ctx, op, StartSingleRequest{PlayerID: "gone", AssessmentType: backend.TypeKAMS})
		require.ErrorIs(t, err, ErrPlayerInactive)
	})

	t.Run("validates request", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		cases := []StartSingleRequest{
			{PlayerID: "", AssessmentType: backend.TypeKAMS},
			{PlayerID: "p3", AssessmentType: "yoga"},
			{PlayerID: "p3", AssessmentType: backend.TypeKAMS, AssessmentDate: "14/03/2026"},
		}
		for _, c := range cases {
			_, err := svc.StartSingle(ctx, op, c)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		}
	})

	t.Run("backend creation failure commits nothing", func(t *testing.T) {
		svc, be, _ := newTestService(t)
		be.createErr["p3"] = backend.ErrUpstream

		_, err := svc.StartSingle(ctx, op, StartSingleRequest{PlayerID: "p3", AssessmentType: backend.TypeKAMS})
		require.ErrorIs(t, err, backend.ErrUpstream)

		v, err := svc.State(ctx, op)
		require.NoError(t, err)
		assert.Nil(t, v.State.CurrentSession)
	})
}

func TestStartGroup(t *testing.T) {
	ctx := context.Background()

	t.Run("pairs sessions with players by position", func(t *testing.T) {
		svc, _, rec := newTestService(t)

		v, err := svc.StartGroup(ctx, op, StartGroupRequest{
			PlayerIDs:      []string{"p2", "p1", "p3"},
			AssessmentType: backend.TypeTPIPower,
			AssessmentDate: "2026-03-01",
		})
		require.NoError(t, err)
		assert.Equal(t, flow.ModeGroup, v.State.Mode)
		require.Len(t, v.State.GroupSessions, 3)
		for i, id := range []string{"p2", "p1", "p3"} {
			m := v.State.GroupSessions[i]
			assert.Equal(t, id, m.PlayerID)
			assert.Equal(t, "s-"+id, m.Session.ID)
			assert.Equal(t, "2026-03-01", m.Session.AssessmentDate)
		}
		assert.Equal(t, "Ben Cole", v.State.GroupSessions[0].PlayerName)
		assert.Equal(t, "s-p2", v.State.CurrentSession.ID)
		assert.Equal(t, flow.Progress{Completed: 0, Total: 3}, v.Progress)
		assert.Len(t, v.State.SelectedPlayers, 3)
		require.Len(t, rec.out, 1)
		assert.Equal(t, []string{"s-p2", "s-p1", "s-p3"}, rec.out[0].event.SessionIDs)
	})

	t.Run("rolls back created sessions when one creation fails", func(t *testing.T) {
		svc, be, _ := newTestService(t)
		be.createErr["p3"] = backend.ErrUpstream

		_, err := svc.StartGroup(ctx, op, StartGroupRequest{
			PlayerIDs:      []string{"p1", "p2", "p3"},
			AssessmentType: backend.TypeTPIPower,
		})
		require.ErrorIs(t, err, backend.ErrUpstream)
		assert.Empty(t, be.sessions)

		v, err := svc.State(ctx, op)
		require.NoError(t, err)
		assert.Equal(t, flow.StepSelect, v.State.CurrentStep)
		assert.Empty(t, v.State.GroupSessions)
	})

	t.Run("rejects bad rosters", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		for _, ids := range [][]string{nil, {"p1", "p1"}, {"p1", ""}} {
			_, err := svc.StartGroup(ctx, op, StartGroupRequest{PlayerIDs: ids, AssessmentType: backend.TypeTPIPower})
			assert.ErrorIs(t, err, ErrInvalidRequest)
		}
	})

	t.Run("one ineligible player rejects the group", func(t *testing.T) {
		svc, be, _ := newTestService(t)
		_, err := svc.StartGroup(ctx, op, StartGroupRequest{
			PlayerIDs:      []string{"p2", "p1"},
			AssessmentType: backend.TypePitcherOnBaseU,
		})
		require.ErrorIs(t, err, ErrIneligiblePlayer)
		assert.Empty(t, be.sessions)
	})

	t.Run("unknown player", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.StartGroup(ctx, op, StartGroupRequest{
			PlayerIDs:      []string{"p1", "nobody"},
			AssessmentType: backend.TypeTPIPower,
		})
		require.ErrorIs(t, err, backend.ErrNotFound)
	})
}

func TestRecordAnswers(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, err := svc.RecordAnswer(ctx, op, "TPI-01", raw(`{"value":30}`))
	require.ErrorIs(t, err, flow.ErrNoActiveSession)

	_, err = svc.StartSingle(ctx, op, StartSingleRequest{PlayerID: "p1", AssessmentType: backend.TypeTPIPower})
	require.NoError(t, err)

	v, err := svc.RecordAnswer(ctx, op, "TPI-01", raw(`{"value":30}`))
	require.NoError(t, err)
	assert.NotContains(t, v.Missing, "TPI-01")

	_, err = svc.RecordAnswer(ctx, op, "TPI-01", raw(`{"value":-1}`))
	require.ErrorIs(t, err, battery.ErrInvalidAnswer)

	_, err = svc.RecordAnswer(ctx, op, "OBU-01", raw(`{"result":"Pass"}`))
	require.Error(t, err)

	got, ok, err := svc.Answer(ctx, op, "TPI-01")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"value":30}`, string(got))

	v, err = svc.RecordAnswers(ctx, op, tpiAnswers())
	require.NoError(t, err)
	assert.Empty(t, v.Missing)

	previews, err := svc.Preview(ctx, op)
	require.NoError(t, err)
	assert.NotEmpty(t, previews)
}

func TestSubmitSingle(t *testing.T) {
	ctx := context.Background()

	t.Run("incomplete answers are refused before any backend call", func(t *testing.T) {
		svc, be, _ := newTestService(t)
		_, err := svc.StartSingle(ctx, op, StartSingleRequest{PlayerID: "p1", AssessmentType: backend.TypeTPIPower})
		require.NoError(t, err)
		_, err = svc.RecordAnswer(ctx, op, "TPI-01", raw(`{"value":30}`))
		require.NoError(t, err)

		_, err = svc.Submit(ctx, op)
		require.ErrorIs(t, err, ErrIncomplete)
		var inc *IncompleteError
		require.True(t, errors.As(err, &inc))
		assert.Equal(t, []string{"TPI-02", "TPI-03", "TPI-04", "TPI-05"}, inc.Missing)
		assert.Zero(t, be.bulkCalls)
	})

	t.Run("bulk failure keeps input step and pending answers", func(t *testing.T) {
		svc, be, rec := newTestService(t)
		_, err := svc.StartSingle(ctx, op, StartSingleRequest{PlayerID: "p1", AssessmentType: backend.TypeTPIPower})
		require.NoError(t, err)
		_, err = svc.RecordAnswers(ctx, op, tpiAnswers())
		require.NoError(t, err)
		be.bulkErr = backend.ErrValidation

		_, err = svc.Submit(ctx, op)
		require.ErrorIs(t, err, backend.ErrValidation)

		v, err := svc.State(ctx, op)
		require.NoError(t, err)
		assert.Equal(t, flow.StepInput, v.State.CurrentStep)
		assert.Len(t, v.State.PendingResults, 5)
		assert.False(t, be.sessions["s-p1"].IsComplete)
		assert.Len(t, rec.out, 1)

		be.bulkErr = nil
		v, err = svc.Submit(ctx, op)
		require.NoError(t, err)
		assert.Equal(t, flow.StepReview, v.State.CurrentStep)
	})

	t.Run("success moves to review", func(t *testing.T) {
		svc, be, rec := newTestService(t)
		_, err := svc.StartSingle(ctx, op, StartSingleRequest{PlayerID: "p1", AssessmentType: backend.TypeTPIPower})
		require.NoError(t, err)
		_, err = svc.RecordAnswers(ctx, op, tpiAnswers())
		require.NoError(t, err)

		v, err := svc.Submit(ctx, op)
		require.NoError(t, err)
		assert.Equal(t, flow.StepReview, v.State.CurrentStep)
		assert.True(t, v.State.CurrentSession.IsComplete)
		assert.Len(t, be.results["s-p1"], 6)
		assert.Equal(t, []string{
			"assessflow.flow.started.tpi_power",
			"assessflow.session.completed.s-p1",
		}, rec.subjects())

		_, err = svc.Submit(ctx, op)
		require.ErrorIs(t, err, ErrAlreadySubmitted)

		review, err := svc.Review(ctx, op)
		require.NoError(t, err)
		require.Len(t, review, 1)
		assert.Len(t, review[0].Results, 6)
		assert.Equal(t, "Ana Ruiz", review[0].PlayerName)
	})
}

func TestSubmitGroup(t *testing.T) {
	ctx := context.Background()
	svc, be, rec := newTestService(t)

	_, err := svc.StartGroup(ctx, op, StartGroupRequest{
		PlayerIDs:      []string{"p1", "p2"},
		AssessmentType: backend.TypeTPIPower,
	})
	require.NoError(t, err)

	_, err = svc.RecordAnswers(ctx, op, tpiAnswers())
	require.NoError(t, err)
	v, err := svc.Submit(ctx, op)
	require.NoError(t, err)
	assert.Equal(t, flow.StepInput, v.State.CurrentStep)
	assert.Equal(t, flow.Progress{Completed: 1, Total: 2}, v.Progress)
	assert.True(t, v.State.GroupSessions[0].IsComplete)

	// Review is refused while the second member is outstanding.
	_, err = svc.ConfirmReview(ctx, op)
	require.ErrorIs(t, err, flow.ErrGroupIncomplete)
	v, err = svc.NextMember(ctx, op)
	require.NoError(t, err)
	assert.Equal(t, 1, v.State.CurrentGroupIndex)
	assert.Empty(t, v.State.PendingResults)

	_, err = svc.RecordAnswers(ctx, op, tpiAnswers())
	require.NoError(t, err)
	v, err = svc.Submit(ctx, op)
	require.NoError(t, err)
	assert.Equal(t, flow.Progress{Completed: 2, Total: 2}, v.Progress)

	v, err = svc.NextMember(ctx, op)
	require.NoError(t, err)
	assert.Equal(t, flow.StepReview, v.State.CurrentStep)

	assert.Contains(t, rec.subjects(), events.GroupCompletedSubject)

	review, err := svc.Review(ctx, op)
	require.NoError(t, err)
	require.Len(t, review, 2)
	assert.Equal(t, "s-p1", review[0].Session.ID)
	assert.Equal(t, "s-p2", review[1].Session.ID)
	assert.Len(t, be.results["s-p2"], 6)

	// Review is left only through Clear.
	_, err = svc.PreviousMember(ctx, op)
	require.ErrorIs(t, err, flow.ErrReviewTerminal)
	_, err = svc.SelectMember(ctx, op, 0)
	require.ErrorIs(t, err, flow.ErrReviewTerminal)
	v, err = svc.Clear(ctx, op)
	require.NoError(t, err)
	assert.Equal(t, flow.StepSelect, v.State.CurrentStep)
}

func TestNavigation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, err := svc.StartSingle(ctx, op, StartSingleRequest{PlayerID: "p3", AssessmentType: backend.TypeKAMS})
	require.NoError(t, err)
	_, err = svc.NextMember(ctx, op)
	require.ErrorIs(t, err, flow.ErrNotGroupMode)

	_, err = svc.StartGroup(ctx, op, StartGroupRequest{PlayerIDs: []string{"p1", "p3"}, AssessmentType: backend.TypeTPIPower})
	require.NoError(t, err)

	_, err = svc.SelectMember(ctx, op, 5)
	require.ErrorIs(t, err, flow.ErrMemberOutOfRange)

	v, err := svc.SelectMember(ctx, op, 1)
	require.NoError(t, err)
	assert.Equal(t, "s-p3", v.State.CurrentSession.ID)

	v, err = svc.PreviousMember(ctx, op)
	require.NoError(t, err)
	assert.Equal(t, 0, v.State.CurrentGroupIndex)

	v, err = svc.PreviousMember(ctx, op)
	require.NoError(t, err)
	assert.Equal(t, 0, v.State.CurrentGroupIndex)
}

func TestConfirmReviewSingle(t *testing.T) {
	ctx := context.Background()
	svc, be, _ := newTestService(t)

	_, err := svc.StartSingle(ctx, op, StartSingleRequest{PlayerID: "p3", AssessmentType: backend.TypeKAMS})
	require.NoError(t, err)

	_, err = svc.ConfirmReview(ctx, op)
	require.ErrorIs(t, err, ErrNotConfirmed)

	// Completed elsewhere, for example through a KAMS PDF upload.
	be.sessions["s-p3"].IsComplete = true
	v, err := svc.ConfirmReview(ctx, op)
	require.NoError(t, err)
	assert.Equal(t, flow.StepReview, v.State.CurrentStep)

	_, err = svc.RecordAnswer(ctx, op, "KAMS-01", json.RawMessage(`{}`))
	require.ErrorIs(t, err, ErrInvalidRequest)
	v, err = svc.ConfirmReview(ctx, op)
	require.NoError(t, err)
	assert.Equal(t, flow.StepReview, v.State.CurrentStep)

	v, err = svc.Clear(ctx, op)
	require.NoError(t, err)
	assert.Equal(t, flow.StepSelect, v.State.CurrentStep)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	svc, _, rec := newTestService(t)

	_, err := svc.StartGroup(ctx, op, StartGroupRequest{PlayerIDs: []string{"p1", "p3"}, AssessmentType: backend.TypeTPIPower})
	require.NoError(t, err)

	v, err := svc.Clear(ctx, op)
	require.NoError(t, err)
	assert.Equal(t, flow.ModeSingle, v.State.Mode)
	assert.Equal(t, flow.StepSelect, v.State.CurrentStep)
	assert.Empty(t, v.State.GroupSessions)
	assert.Equal(t, events.FlowClearedSubject, rec.out[len(rec.out)-1].subject)

	_, err = svc.Review(ctx, op)
	require.ErrorIs(t, err, flow.ErrNoActiveSession)
}
