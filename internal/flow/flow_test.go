package flow

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/Alijeyrad/assessflow/pkg/backend"
)

func session(id, player string) backend.Session {
	return backend.Session{
		ID:             id,
		PlayerID:       player,
		AssessmentType: backend.TypeSprint,
		AssessmentDate: "2024-05-01",
	}
}

func player(id, name string) backend.PlayerListItem {
	return backend.PlayerListItem{ID: id, FullName: name, IsActive: true}
}

func completed(s backend.Session) backend.Session {
	s.IsComplete = true
	return s
}

func groupOf(t *testing.T, n int) *Flow {
	t.Helper()
	sessions := make([]backend.Session, n)
	players := make([]backend.PlayerListItem, n)
	for i := range n {
		id := string(rune('a' + i))
		sessions[i] = session("s-"+id, "p-"+id)
		players[i] = player("p-"+id, "Player "+id)
	}
	f := New()
	if err := f.StartGroup(sessions, players); err != nil {
		t.Fatalf("StartGroup failed: %v", err)
	}
	return f
}

func assertCleared(t *testing.T, f *Flow) {
	t.Helper()
	s := f.Snapshot()
	if s.Mode != ModeSingle || s.CurrentStep != StepSelect || s.CurrentSession != nil ||
		len(s.PendingResults) != 0 || len(s.GroupSessions) != 0 ||
		s.CurrentGroupIndex != 0 || len(s.SelectedPlayers) != 0 {
		t.Errorf("not the empty state: %+v", s)
	}
}

func TestNew_IsEmpty(t *testing.T) {
	assertCleared(t, New())
}

func TestRecordAnswer_LastWriteWins(t *testing.T) {
	f := New()
	f.StartSingle(session("s1", "p1"))

	writes := []struct {
		test  string
		value string
	}{
		{"SPR-01", `{"run1":2.9}`},
		{"SPR-02", `{"run1":1.2}`},
		{"SPR-01", `{"run1":2.81}`},
	}
	for _, w := range writes {
		if err := f.RecordAnswer(w.test, json.RawMessage(w.value)); err != nil {
			t.Fatalf("RecordAnswer(%s) failed: %v", w.test, err)
		}
	}

	got, ok := f.Answer("SPR-01")
	if !ok || string(got) != `{"run1":2.81}` {
		t.Errorf("SPR-01 = %s, want last write", got)
	}
	if len(f.Pending()) != 2 {
		t.Errorf("pending = %d entries, want 2", len(f.Pending()))
	}

	f.StartSingle(session("s2", "p1"))
	if len(f.Pending()) != 0 {
		t.Errorf("pending not cleared on session change: %v", f.Pending())
	}
}

func TestRecordAnswer_NoSession(t *testing.T) {
	f := New()
	if err := f.RecordAnswer("SPR-01", json.RawMessage(`{}`)); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("got %v, want ErrNoActiveSession", err)
	}
	if err := f.RecordAnswers(map[string]json.RawMessage{"x": nil}); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("got %v, want ErrNoActiveSession", err)
	}
}

func TestRecordAnswers_Merges(t *testing.T) {
	f := New()
	f.StartSingle(session("s1", "p1"))
	_ = f.RecordAnswer("OBU-01", json.RawMessage(`{"left":"Pass"}`))

	err := f.RecordAnswers(map[string]json.RawMessage{
		"OBU-01": json.RawMessage(`{"left":"Fail","right":"Pass"}`),
		"OBU-02": json.RawMessage(`{"left":"Pass","right":"Pass"}`),
	})
	if err != nil {
		t.Fatalf("RecordAnswers failed: %v", err)
	}
	if got, _ := f.Answer("OBU-01"); string(got) != `{"left":"Fail","right":"Pass"}` {
		t.Errorf("OBU-01 = %s", got)
	}
	if _, ok := f.Answer("OBU-02"); !ok {
		t.Error("OBU-02 missing")
	}
}

func TestStartSingle_SameShapeFromAnyState(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) *Flow
	}{
		{"empty", func(t *testing.T) *Flow { return New() }},
		{"single input", func(t *testing.T) *Flow {
			f := New()
			f.StartSingle(session("old", "p0"))
			_ = f.RecordAnswer("SPR-01", json.RawMessage(`{"run1":3}`))
			return f
		}},
		{"group at second member", func(t *testing.T) *Flow {
			f := groupOf(t, 3)
			_ = f.SelectGroupMember(1)
			return f
		}},
		{"group review", func(t *testing.T) *Flow {
			f := groupOf(t, 1)
			_ = f.MarkGroupMemberComplete(completed(session("s-a", "p-a")))
			_ = f.AdvanceGroupMember()
			return f
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.setup(t)
			f.StartSingle(session("s1", "p1"))

			s := f.Snapshot()
			if s.Mode != ModeSingle || s.CurrentStep != StepInput || s.CurrentGroupIndex != 0 {
				t.Errorf("unexpected shape %+v", s)
			}
			if len(s.GroupSessions) != 0 || len(s.SelectedPlayers) != 0 || len(s.PendingResults) != 0 {
				t.Errorf("leftover state %+v", s)
			}
			if s.CurrentSession == nil || s.CurrentSession.ID != "s1" {
				t.Errorf("current session = %+v", s.CurrentSession)
			}
		})
	}
}

func TestStartGroup_RejectsBeforeMutation(t *testing.T) {
	f := New()
	f.StartSingle(session("s1", "p1"))
	_ = f.RecordAnswer("SPR-01", json.RawMessage(`{"run1":2.5}`))
	before := f.Snapshot()

	err := f.StartGroup(
		[]backend.Session{session("a", "pa"), session("b", "pb")},
		[]backend.PlayerListItem{player("pa", "A")},
	)
	if !errors.Is(err, ErrRosterMismatch) {
		t.Fatalf("got %v, want ErrRosterMismatch", err)
	}
	if !reflect.DeepEqual(before, f.Snapshot()) {
		t.Errorf("state changed:\nbefore %+v\nafter  %+v", before, f.Snapshot())
	}

	if err := f.StartGroup(nil, nil); !errors.Is(err, ErrEmptyRoster) {
		t.Fatalf("got %v, want ErrEmptyRoster", err)
	}
	if !reflect.DeepEqual(before, f.Snapshot()) {
		t.Error("state changed after empty roster")
	}
}

func TestStartGroup_MemberNames(t *testing.T) {
	a := session("a", "pa")
	b := session("b", "pb")
	b.PlayerName = "From Session"
	c := session("c", "pc")

	f := New()
	err := f.StartGroup(
		[]backend.Session{a, b, c},
		[]backend.PlayerListItem{player("pa", "Alice"), player("pb", ""), player("pc", "")},
	)
	if err != nil {
		t.Fatalf("StartGroup failed: %v", err)
	}

	want := []string{"Alice", "From Session", "Unknown"}
	for i, m := range f.Members() {
		if m.PlayerName != want[i] {
			t.Errorf("member %d name = %q, want %q", i, m.PlayerName, want[i])
		}
		if m.IsComplete {
			t.Errorf("member %d starts complete", i)
		}
	}
}

func TestAdvance_ReviewOnlyWhenAllComplete(t *testing.T) {
	for n := 1; n <= 3; n++ {
		for done := 0; done <= n; done++ {
			f := groupOf(t, n)
			members := f.Members()
			for i := 0; i < done; i++ {
				_ = f.SelectGroupMember(i)
				if err := f.MarkGroupMemberComplete(completed(members[i].Session)); err != nil {
					t.Fatalf("mark %d failed: %v", i, err)
				}
			}
			_ = f.SelectGroupMember(n - 1)
			_ = f.RecordAnswer("SPR-01", json.RawMessage(`{"run1":2}`))
			before := f.Snapshot()

			if err := f.AdvanceGroupMember(); err != nil {
				t.Fatalf("advance failed: %v", err)
			}

			if done == n {
				if f.Step() != StepReview {
					t.Errorf("n=%d done=%d: step = %s, want review", n, done, f.Step())
				}
				continue
			}
			if !reflect.DeepEqual(before, f.Snapshot()) {
				t.Errorf("n=%d done=%d: state changed at last member", n, done)
			}
		}
	}
}

func TestClear_FromAnyState(t *testing.T) {
	states := map[string]func(t *testing.T) *Flow{
		"select": func(t *testing.T) *Flow { return New() },
		"single input": func(t *testing.T) *Flow {
			f := New()
			f.StartSingle(session("s1", "p1"))
			_ = f.RecordAnswer("SPR-01", json.RawMessage(`{}`))
			return f
		},
		"single review": func(t *testing.T) *Flow {
			f := New()
			f.StartSingle(session("s1", "p1"))
			_ = f.SetStep(StepReview)
			return f
		},
		"group input": func(t *testing.T) *Flow {
			f := groupOf(t, 2)
			_ = f.AdvanceGroupMember()
			return f
		},
		"group review": func(t *testing.T) *Flow {
			f := groupOf(t, 1)
			_ = f.MarkGroupMemberComplete(completed(session("s-a", "p-a")))
			_ = f.SetStep(StepReview)
			return f
		},
	}

	for name, setup := range states {
		t.Run(name, func(t *testing.T) {
			f := setup(t)
			f.Clear()
			assertCleared(t, f)
		})
	}
}

func TestProgress_CountsCompleted(t *testing.T) {
	const n = 4
	for k := 0; k <= n; k++ {
		f := groupOf(t, n)
		members := f.Members()
		for i := 0; i < k; i++ {
			_ = f.SelectGroupMember(i)
			_ = f.MarkGroupMemberComplete(completed(members[i].Session))
		}
		if got := f.Progress(); got != (Progress{Completed: k, Total: n}) {
			t.Errorf("k=%d: progress = %+v", k, got)
		}
		if f.IsGroupComplete() != (k == n) {
			t.Errorf("k=%d: IsGroupComplete = %v", k, f.IsGroupComplete())
		}
	}
}

func TestProgress_SingleMode(t *testing.T) {
	f := New()
	f.StartSingle(session("s1", "p1"))
	if got := f.Progress(); got != (Progress{}) {
		t.Errorf("progress = %+v", got)
	}
	if f.IsGroupComplete() {
		t.Error("single mode reported group complete")
	}
}

func TestSingleScenario(t *testing.T) {
	f := New()
	f.StartSingle(session("s1", "p1"))
	if f.Step() != StepInput {
		t.Fatalf("step = %s", f.Step())
	}

	if err := f.RecordAnswer("SPR-01", json.RawMessage(`{"run1":2.81}`)); err != nil {
		t.Fatal(err)
	}
	raw, _ := f.Answer("SPR-01")
	var got struct {
		Run1 float64 `json:"run1"`
	}
	if err := json.Unmarshal(raw, &got); err != nil || got.Run1 != 2.81 {
		t.Errorf("run1 = %v (%v)", got.Run1, err)
	}

	f.StartSingle(session("s2", "p2"))
	if len(f.Pending()) != 0 {
		t.Errorf("pending = %v", f.Pending())
	}
}

func TestGroupScenario(t *testing.T) {
	sessA, sessB := session("sA", "pA"), session("sB", "pB")
	f := New()
	if err := f.StartGroup([]backend.Session{sessA, sessB}, []backend.PlayerListItem{player("pA", "A"), player("pB", "B")}); err != nil {
		t.Fatal(err)
	}
	if len(f.Members()) != 2 || f.CurrentGroupIndex() != 0 || f.CurrentSession().ID != "sA" {
		t.Fatalf("unexpected start %+v", f.Snapshot())
	}

	if err := f.MarkGroupMemberComplete(completed(sessA)); err != nil {
		t.Fatal(err)
	}
	m := f.Members()
	if !m[0].IsComplete || m[1].IsComplete {
		t.Errorf("completion flags = %v, %v", m[0].IsComplete, m[1].IsComplete)
	}

	_ = f.RecordAnswer("SPR-01", json.RawMessage(`{"run1":2}`))
	if err := f.AdvanceGroupMember(); err != nil {
		t.Fatal(err)
	}
	if f.CurrentGroupIndex() != 1 || f.CurrentSession().ID != "sB" || len(f.Pending()) != 0 {
		t.Errorf("after advance %+v", f.Snapshot())
	}

	if err := f.MarkGroupMemberComplete(completed(sessB)); err != nil {
		t.Fatal(err)
	}
	if err := f.AdvanceGroupMember(); err != nil {
		t.Fatal(err)
	}
	if f.Step() != StepReview {
		t.Errorf("step = %s, want review", f.Step())
	}
}

func TestSelectGroupMember(t *testing.T) {
	tests := []struct {
		name    string
		index   int
		wantErr error
	}{
		{"first", 0, nil},
		{"last", 2, nil},
		{"negative", -1, ErrMemberOutOfRange},
		{"past end", 3, ErrMemberOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := groupOf(t, 3)
			_ = f.RecordAnswer("SPR-01", json.RawMessage(`{}`))
			before := f.Snapshot()

			err := f.SelectGroupMember(tt.index)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				if !reflect.DeepEqual(before, f.Snapshot()) {
					t.Error("state changed on rejected select")
				}
				return
			}
			if f.CurrentGroupIndex() != tt.index || f.CurrentSession().ID != f.Members()[tt.index].Session.ID {
				t.Errorf("index = %d session = %s", f.CurrentGroupIndex(), f.CurrentSession().ID)
			}
			if len(f.Pending()) != 0 {
				t.Error("pending not cleared")
			}
		})
	}

	single := New()
	single.StartSingle(session("s1", "p1"))
	if err := single.SelectGroupMember(0); !errors.Is(err, ErrNotGroupMode) {
		t.Errorf("single mode: got %v", err)
	}
}

func TestRetreat_NoOpAtFirst(t *testing.T) {
	f := groupOf(t, 2)
	_ = f.RecordAnswer("SPR-01", json.RawMessage(`{}`))
	before := f.Snapshot()
	if err := f.RetreatGroupMember(); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(before, f.Snapshot()) {
		t.Error("retreat at index 0 changed state")
	}

	_ = f.AdvanceGroupMember()
	_ = f.RetreatGroupMember()
	if f.CurrentGroupIndex() != 0 {
		t.Errorf("index = %d", f.CurrentGroupIndex())
	}
}

func TestNavigation_SingleMode(t *testing.T) {
	f := New()
	f.StartSingle(session("s1", "p1"))
	if err := f.AdvanceGroupMember(); !errors.Is(err, ErrNotGroupMode) {
		t.Errorf("advance: %v", err)
	}
	if err := f.RetreatGroupMember(); !errors.Is(err, ErrNotGroupMode) {
		t.Errorf("retreat: %v", err)
	}
	if f.Step() != StepInput {
		t.Errorf("step = %s", f.Step())
	}
}

func TestMarkGroupMemberComplete_RequiresConfirmation(t *testing.T) {
	f := groupOf(t, 2)
	cur := f.CurrentSession()

	if err := f.MarkGroupMemberComplete(*cur); !errors.Is(err, ErrNotConfirmed) {
		t.Errorf("unconfirmed: got %v", err)
	}
	if err := f.MarkGroupMemberComplete(completed(session("other", "p-a"))); !errors.Is(err, ErrSessionMismatch) {
		t.Errorf("mismatch: got %v", err)
	}
	if f.Progress().Completed != 0 {
		t.Fatal("member marked complete without confirmation")
	}

	_ = f.RecordAnswer("SPR-01", json.RawMessage(`{"run1":2}`))
	confirmed := completed(*cur)
	confirmed.UpdatedAt = "2024-05-01T10:00:00Z"
	for range 2 {
		if err := f.MarkGroupMemberComplete(confirmed); err != nil {
			t.Fatalf("mark failed: %v", err)
		}
	}
	if f.Progress().Completed != 1 {
		t.Errorf("progress = %+v", f.Progress())
	}
	if !f.CurrentSession().IsComplete || f.Members()[0].Session.UpdatedAt != confirmed.UpdatedAt {
		t.Error("session projection not refreshed")
	}
	if _, ok := f.Answer("SPR-01"); !ok {
		t.Error("pending answers dropped by completion")
	}
}

func TestSetStep(t *testing.T) {
	f := New()
	if err := f.SetStep(StepInput); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("no session: %v", err)
	}

	f.StartSingle(session("s1", "p1"))
	if err := f.SetStep(StepSelect); !errors.Is(err, ErrInvalidStep) {
		t.Errorf("select: %v", err)
	}
	if err := f.SetStep(StepReview); err != nil || f.Step() != StepReview {
		t.Errorf("review: %v step=%s", err, f.Step())
	}
	if err := f.SetStep(StepReview); err != nil || f.Step() != StepReview {
		t.Errorf("review again: %v step=%s", err, f.Step())
	}
	if err := f.SetStep(StepInput); !errors.Is(err, ErrReviewTerminal) || f.Step() != StepReview {
		t.Errorf("back to input: %v step=%s", err, f.Step())
	}

	g := groupOf(t, 2)
	if err := g.SetStep(StepReview); !errors.Is(err, ErrGroupIncomplete) {
		t.Errorf("group review: %v", err)
	}
}

func TestReview_IsTerminal(t *testing.T) {
	reviews := map[string]func(t *testing.T) *Flow{
		"single": func(t *testing.T) *Flow {
			f := New()
			f.StartSingle(session("s1", "p1"))
			if err := f.ConfirmSession(completed(session("s1", "p1"))); err != nil {
				t.Fatal(err)
			}
			if err := f.SetStep(StepReview); err != nil {
				t.Fatal(err)
			}
			return f
		},
		"group": func(t *testing.T) *Flow {
			f := groupOf(t, 2)
			for i, m := range f.Members() {
				_ = f.SelectGroupMember(i)
				if err := f.MarkGroupMemberComplete(completed(m.Session)); err != nil {
					t.Fatal(err)
				}
			}
			if err := f.AdvanceGroupMember(); err != nil || f.Step() != StepReview {
				t.Fatalf("enter review: %v step=%s", err, f.Step())
			}
			return f
		},
	}
	calls := map[string]func(f *Flow) error{
		"set input": func(f *Flow) error { return f.SetStep(StepInput) },
		"select":    func(f *Flow) error { return f.SelectGroupMember(0) },
		"advance":   (*Flow).AdvanceGroupMember,
		"retreat":   (*Flow).RetreatGroupMember,
	}

	for mode, setup := range reviews {
		for name, call := range calls {
			t.Run(mode+"/"+name, func(t *testing.T) {
				f := setup(t)
				before := f.Snapshot()

				err := call(f)
				if err == nil {
					t.Fatal("transition out of review accepted")
				}
				if mode == "group" && !errors.Is(err, ErrReviewTerminal) {
					t.Errorf("got %v, want ErrReviewTerminal", err)
				}
				if !reflect.DeepEqual(before, f.Snapshot()) {
					t.Errorf("state changed:\nbefore %+v\nafter  %+v", before, f.Snapshot())
				}

				f.Clear()
				assertCleared(t, f)
			})
		}
	}
}

func TestMarkGroupMemberComplete_IndexOutOfRange(t *testing.T) {
	f := groupOf(t, 2)
	f.s.CurrentGroupIndex = 5
	if err := f.MarkGroupMemberComplete(completed(session("s-a", "p-a"))); !errors.Is(err, ErrMemberOutOfRange) {
		t.Errorf("got %v", err)
	}
}

func TestConfirmSession(t *testing.T) {
	f := New()
	f.StartSingle(session("s1", "p1"))
	if err := f.ConfirmSession(session("s1", "p1")); !errors.Is(err, ErrNotConfirmed) {
		t.Errorf("got %v", err)
	}
	if err := f.ConfirmSession(completed(session("s2", "p1"))); !errors.Is(err, ErrSessionMismatch) {
		t.Errorf("got %v", err)
	}
	if err := f.ConfirmSession(completed(session("s1", "p1"))); err != nil {
		t.Fatal(err)
	}
	if !f.CurrentSession().IsComplete {
		t.Error("session not refreshed")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	f := groupOf(t, 2)
	_ = f.RecordAnswer("SPR-03", json.RawMessage(`{"run1":1.1}`))
	_ = f.MarkGroupMemberComplete(completed(f.Members()[0].Session))

	b, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Flow
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if back.Mode() != ModeGroup || back.CurrentGroupIndex() != 0 || back.Progress() != f.Progress() {
		t.Errorf("round trip lost state: %+v", back.Snapshot())
	}
	if got, _ := back.Answer("SPR-03"); string(got) != `{"run1":1.1}` {
		t.Errorf("answer = %s", got)
	}
}

func TestUnmarshal_FillsDefaults(t *testing.T) {
	var f Flow
	if err := json.Unmarshal([]byte(`{}`), &f); err != nil {
		t.Fatal(err)
	}
	assertCleared(t, &f)
	if err := f.SetStep(StepInput); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("got %v", err)
	}
}

func TestUnmarshal_RejectsBadGroupIndex(t *testing.T) {
	blobs := []string{
		`{"mode":"group","current_step":"input","group_sessions":[{"player_id":"p-a"}],"current_group_index":3}`,
		`{"mode":"group","current_step":"input","group_sessions":[{"player_id":"p-a"}],"current_group_index":-1}`,
	}
	for _, b := range blobs {
		var f Flow
		if err := json.Unmarshal([]byte(b), &f); !errors.Is(err, ErrMemberOutOfRange) {
			t.Errorf("%s: got %v", b, err)
		}
	}
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	f := New()
	f.StartSingle(session("s1", "p1"))
	_ = f.RecordAnswer("SPR-01", json.RawMessage(`{"run1":2}`))

	s := f.Snapshot()
	s.PendingResults["SPR-01"][0] = 'X'
	s.CurrentSession.ID = "mutated"

	if got, _ := f.Answer("SPR-01"); got[0] != '{' {
		t.Error("snapshot shares answer bytes")
	}
	if f.CurrentSession().ID != "s1" {
		t.Error("snapshot shares session")
	}
}
