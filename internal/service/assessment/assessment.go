package assessment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Alijeyrad/assessflow/internal/battery"
	"github.com/Alijeyrad/assessflow/internal/events"
	"github.com/Alijeyrad/assessflow/internal/flow"
	"github.com/Alijeyrad/assessflow/internal/store"
	"github.com/Alijeyrad/assessflow/pkg/backend"
	"github.com/Alijeyrad/assessflow/pkg/reqctx"
)

const (
	dateLayout = "2006-01-02"
	fanOut     = 8
)

// Backend is the part of the assessment API the flow service needs.
type Backend interface {
	GetPlayer(ctx context.Context, id string) (*backend.Player, error)
	GetSport(ctx context.Context, id int) (*backend.Sport, error)
	GetSession(ctx context.Context, id string) (*backend.Session, error)
	CreateSession(ctx context.Context, in backend.SessionCreate) (*backend.Session, error)
	DeleteSession(ctx context.Context, id string) error
	CompleteSession(ctx context.Context, id string) (*backend.Session, error)
	BulkCreateResults(ctx context.Context, t backend.AssessmentType, sessionID string, items []any) ([]json.RawMessage, error)
	Results(ctx context.Context, t backend.AssessmentType, sessionID string) ([]json.RawMessage, error)
}

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type StartSingleRequest struct {
	PlayerID       string                 `json:"player_id"`
	AssessmentType backend.AssessmentType `json:"assessment_type"`
	AssessmentDate string                 `json:"assessment_date"`
	Notes          string                 `json:"notes"`
}

type StartGroupRequest struct {
	PlayerIDs      []string               `json:"player_ids"`
	AssessmentType backend.AssessmentType `json:"assessment_type"`
	AssessmentDate string                 `json:"assessment_date"`
	Notes          string                 `json:"notes"`
}

// View is what the console renders for an operator.
type View struct {
	State    flow.State    `json:"state"`
	Progress flow.Progress `json:"progress"`
	Missing  []string      `json:"missing"`
}

type SessionResults struct {
	Session    backend.Session   `json:"session"`
	PlayerName string            `json:"player_name,omitempty"`
	Results    []json.RawMessage `json:"results"`
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

type Service interface {
	State(ctx context.Context, operatorID string) (*View, error)
	StartSingle(ctx context.Context, operatorID string, req StartSingleRequest) (*View, error)
	StartGroup(ctx context.Context, operatorID string, req StartGroupRequest) (*View, error)
	RecordAnswer(ctx context.Context, operatorID, testID string, value json.RawMessage) (*View, error)
	RecordAnswers(ctx context.Context, operatorID string, answers map[string]json.RawMessage) (*View, error)
	Answer(ctx context.Context, operatorID, testID string) (json.RawMessage, bool, error)
	SelectMember(ctx context.Context, operatorID string, index int) (*View, error)
	NextMember(ctx context.Context, operatorID string) (*View, error)
	PreviousMember(ctx context.Context, operatorID string) (*View, error)
	Submit(ctx context.Context, operatorID string) (*View, error)
	ConfirmReview(ctx context.Context, operatorID string) (*View, error)
	Review(ctx context.Context, operatorID string) ([]SessionResults, error)
	Preview(ctx context.Context, operatorID string) ([]battery.Preview, error)
	Clear(ctx context.Context, operatorID string) (*View, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type service struct {
	api    Backend
	flows  store.Store
	events events.Publisher
	now    func() time.Time
}

func New(api Backend, flows store.Store, pub events.Publisher) Service {
	if pub == nil {
		pub = events.Noop{}
	}
	return &service{api: api, flows: flows, events: pub, now: time.Now}
}

func (s *service) State(ctx context.Context, operatorID string) (*View, error) {
	f, err := s.flows.Load(ctx, operatorID)
	if err != nil {
		return nil, err
	}
	return view(f), nil
}

// ---------------------------------------------------------------------------
// Starting a flow
// ---------------------------------------------------------------------------

func (s *service) StartSingle(ctx context.Context, operatorID string, req StartSingleRequest) (*View, error) {
	date, err := s.normalizeDate(req.AssessmentDate)
	if err != nil {
		return nil, err
	}
	if req.PlayerID == "" {
		return nil, fmt.Errorf("%w: player_id is required", ErrInvalidRequest)
	}
	if !req.AssessmentType.Valid() {
		return nil, fmt.Errorf("%w: unknown assessment type %q", ErrInvalidRequest, req.AssessmentType)
	}

	player, err := s.api.GetPlayer(ctx, req.PlayerID)
	if err != nil {
		return nil, err
	}
	if err := s.checkEligible(ctx, player, req.AssessmentType, map[int]*backend.Sport{}); err != nil {
		return nil, err
	}

	sess, err := s.api.CreateSession(ctx, backend.SessionCreate{
		PlayerID:       player.ID,
		AssessmentType: req.AssessmentType,
		AssessmentDate: date,
		Notes:          req.Notes,
	})
	if err != nil {
		return nil, err
	}
	if sess.PlayerName == "" {
		sess.PlayerName = player.FullName
	}

	f, err := s.flows.Update(ctx, operatorID, func(f *flow.Flow) error {
		f.StartSingle(*sess)
		return nil
	})
	if err != nil {
		s.rollback(ctx, []*backend.Session{sess})
		return nil, err
	}

	slog.Info("assessment: single flow started",
		"operator_id", operatorID,
		"session_id", sess.ID,
		"assessment_type", req.AssessmentType,
	)
	s.publish(ctx, events.FlowStartedSubject(req.AssessmentType), events.Event{
		OperatorID:     operatorID,
		Mode:           string(flow.ModeSingle),
		AssessmentType: req.AssessmentType,
		SessionIDs:     []string{sess.ID},
		PlayerIDs:      []string{player.ID},
	})
	return view(f), nil
}

func (s *service) StartGroup(ctx context.Context, operatorID string, req StartGroupRequest) (*View, error) {
	date, err := s.normalizeDate(req.AssessmentDate)
	if err != nil {
		return nil, err
	}
	if len(req.PlayerIDs) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, flow.ErrEmptyRoster)
	}
	if !req.AssessmentType.Valid() {
		return nil, fmt.Errorf("%w: unknown assessment type %q", ErrInvalidRequest, req.AssessmentType)
	}
	seen := make(map[string]bool, len(req.PlayerIDs))
	for _, id := range req.PlayerIDs {
		if id == "" || seen[id] {
			return nil, fmt.Errorf("%w: player ids must be non-empty and unique", ErrInvalidRequest)
		}
		seen[id] = true
	}

	players := make([]*backend.Player, len(req.PlayerIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOut)
	for i, id := range req.PlayerIDs {
		g.Go(func() error {
			p, err := s.api.GetPlayer(gctx, id)
			if err != nil {
				return fmt.Errorf("player %s: %w", id, err)
			}
			players[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sports := map[int]*backend.Sport{}
	for _, p := range players {
		if err := s.checkEligible(ctx, p, req.AssessmentType, sports); err != nil {
			return nil, fmt.Errorf("player %s: %w", p.ID, err)
		}
	}

	// Sessions are paired with players by position, not by completion order.
	created := make([]*backend.Session, len(players))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(fanOut)
	for i, p := range players {
		g.Go(func() error {
			sess, err := s.api.CreateSession(gctx, backend.SessionCreate{
				PlayerID:       p.ID,
				AssessmentType: req.AssessmentType,
				AssessmentDate: date,
				Notes:          req.Notes,
			})
			if err != nil {
				return fmt.Errorf("create session for %s: %w", p.ID, err)
			}
			created[i] = sess
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.rollback(ctx, created)
		return nil, err
	}

	sessions := make([]backend.Session, len(created))
	roster := make([]backend.PlayerListItem, len(players))
	for i := range created {
		sessions[i] = *created[i]
		if sessions[i].PlayerName == "" {
			sessions[i].PlayerName = players[i].FullName
		}
		roster[i] = players[i].ListItem()
	}

	f, err := s.flows.Update(ctx, operatorID, func(f *flow.Flow) error {
		return f.StartGroup(sessions, roster)
	})
	if err != nil {
		s.rollback(ctx, created)
		return nil, err
	}

	slog.Info("assessment: group flow started",
		"operator_id", operatorID,
		"assessment_type", req.AssessmentType,
		"players", len(players),
	)
	ids := make([]string, len(sessions))
	for i, sess := range sessions {
		ids[i] = sess.ID
	}
	s.publish(ctx, events.FlowStartedSubject(req.AssessmentType), events.Event{
		OperatorID:     operatorID,
		Mode:           string(flow.ModeGroup),
		AssessmentType: req.AssessmentType,
		SessionIDs:     ids,
		PlayerIDs:      slices.Clone(req.PlayerIDs),
	})
	return view(f), nil
}

// checkEligible applies the player flags and the sport's offered assessments.
// sports caches lookups across a roster.
func (s *service) checkEligible(ctx context.Context, p *backend.Player, t backend.AssessmentType, sports map[int]*backend.Sport) error {
	if !p.IsActive {
		return ErrPlayerInactive
	}
	switch t {
	case backend.TypePitcherOnBaseU:
		if !p.IsPitcher {
			return fmt.Errorf("%w: pitcher screen requires a pitcher", ErrIneligiblePlayer)
		}
	case backend.TypeOnBaseU:
		if !p.IsPositionPlayer {
			return fmt.Errorf("%w: position player screen requires a position player", ErrIneligiblePlayer)
		}
	}

	if p.SportID == nil {
		return nil
	}
	sport, ok := sports[*p.SportID]
	if !ok {
		var err error
		if sport, err = s.api.GetSport(ctx, *p.SportID); err != nil {
			return err
		}
		sports[*p.SportID] = sport
	}
	if !sport.Offers(t) {
		return fmt.Errorf("%w: %s does not offer %s", ErrAssessmentUnavailable, sport.Name, t)
	}
	return nil
}

// rollback deletes sessions created for a flow that never started.
func (s *service) rollback(ctx context.Context, sessions []*backend.Session) {
	ctx = context.WithoutCancel(ctx)
	for _, sess := range sessions {
		if sess == nil {
			continue
		}
		if err := s.api.DeleteSession(ctx, sess.ID); err != nil {
			slog.Warn("assessment: rollback delete failed", "session_id", sess.ID, "err", err)
		}
	}
}

func (s *service) normalizeDate(d string) (string, error) {
	if d == "" {
		return s.now().Format(dateLayout), nil
	}
	if _, err := time.Parse(dateLayout, d); err != nil {
		return "", fmt.Errorf("%w: assessment_date must be YYYY-MM-DD", ErrInvalidRequest)
	}
	return d, nil
}

// ---------------------------------------------------------------------------
// Answers and navigation
// ---------------------------------------------------------------------------

func (s *service) RecordAnswer(ctx context.Context, operatorID, testID string, value json.RawMessage) (*View, error) {
	return s.RecordAnswers(ctx, operatorID, map[string]json.RawMessage{testID: value})
}

func (s *service) RecordAnswers(ctx context.Context, operatorID string, answers map[string]json.RawMessage) (*View, error) {
	if len(answers) == 0 {
		return nil, fmt.Errorf("%w: no answers", ErrInvalidRequest)
	}
	return s.update(ctx, operatorID, func(f *flow.Flow) error {
		b, err := currentBattery(f)
		if err != nil {
			return err
		}
		if f.Step() != flow.StepInput {
			return fmt.Errorf("%w: answers can only be recorded during input", ErrInvalidRequest)
		}
		for id, raw := range answers {
			if err := b.Validate(id, raw); err != nil {
				return err
			}
		}
		return f.RecordAnswers(answers)
	})
}

func (s *service) Answer(ctx context.Context, operatorID, testID string) (json.RawMessage, bool, error) {
	f, err := s.flows.Load(ctx, operatorID)
	if err != nil {
		return nil, false, err
	}
	v, ok := f.Answer(testID)
	return v, ok, nil
}

func (s *service) SelectMember(ctx context.Context, operatorID string, index int) (*View, error) {
	return s.update(ctx, operatorID, func(f *flow.Flow) error { return f.SelectGroupMember(index) })
}

func (s *service) NextMember(ctx context.Context, operatorID string) (*View, error) {
	return s.update(ctx, operatorID, (*flow.Flow).AdvanceGroupMember)
}

func (s *service) PreviousMember(ctx context.Context, operatorID string) (*View, error) {
	return s.update(ctx, operatorID, (*flow.Flow).RetreatGroupMember)
}

func (s *service) Clear(ctx context.Context, operatorID string) (*View, error) {
	v, err := s.update(ctx, operatorID, func(f *flow.Flow) error {
		f.Clear()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.FlowClearedSubject, events.Event{OperatorID: operatorID})
	return v, nil
}

// ---------------------------------------------------------------------------
// Submission and review
// ---------------------------------------------------------------------------

// Submit saves the pending answers of the current session and completes it.
// The flow only records completion after the backend has confirmed it; on any
// failure the flow is left as it was.
func (s *service) Submit(ctx context.Context, operatorID string) (*View, error) {
	f, err := s.flows.Load(ctx, operatorID)
	if err != nil {
		return nil, err
	}
	sess := f.CurrentSession()
	if sess == nil {
		return nil, flow.ErrNoActiveSession
	}
	if sess.IsComplete || f.Step() == flow.StepReview {
		return nil, ErrAlreadySubmitted
	}
	b, err := battery.For(sess.AssessmentType)
	if err != nil {
		return nil, err
	}

	pending := f.Pending()
	if missing := b.Missing(pending); len(missing) > 0 {
		return nil, &IncompleteError{Missing: missing}
	}
	items, err := b.Payload(pending)
	if err != nil {
		return nil, err
	}

	if _, err := s.api.BulkCreateResults(ctx, sess.AssessmentType, sess.ID, items); err != nil {
		return nil, err
	}
	confirmed, err := s.api.CompleteSession(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	if !confirmed.IsComplete {
		return nil, ErrNotConfirmed
	}
	if confirmed.PlayerName == "" {
		confirmed.PlayerName = sess.PlayerName
	}

	f, err = s.flows.Update(ctx, operatorID, func(f *flow.Flow) error {
		cur := f.CurrentSession()
		if cur == nil || cur.ID != sess.ID {
			return ErrSessionChanged
		}
		if f.Mode() == flow.ModeGroup {
			return f.MarkGroupMemberComplete(*confirmed)
		}
		if err := f.ConfirmSession(*confirmed); err != nil {
			return err
		}
		return f.SetStep(flow.StepReview)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("assessment: session submitted",
		"operator_id", operatorID,
		"session_id", sess.ID,
		"results", len(items),
	)
	s.publish(ctx, events.SessionCompletedSubject(sess.ID), events.Event{
		OperatorID:     operatorID,
		Mode:           string(f.Mode()),
		AssessmentType: sess.AssessmentType,
		SessionIDs:     []string{sess.ID},
		PlayerIDs:      []string{sess.PlayerID},
	})
	if f.Mode() == flow.ModeGroup && f.IsGroupComplete() {
		s.publish(ctx, events.GroupCompletedSubject, events.Event{
			OperatorID:     operatorID,
			Mode:           string(flow.ModeGroup),
			AssessmentType: sess.AssessmentType,
			SessionIDs:     memberSessionIDs(f),
		})
	}
	return view(f), nil
}

// ConfirmReview moves to review. In single mode the backend is asked again
// whether the session is complete.
func (s *service) ConfirmReview(ctx context.Context, operatorID string) (*View, error) {
	f, err := s.flows.Load(ctx, operatorID)
	if err != nil {
		return nil, err
	}
	sess := f.CurrentSession()
	if sess == nil {
		return nil, flow.ErrNoActiveSession
	}
	if f.Mode() == flow.ModeGroup {
		return s.update(ctx, operatorID, func(f *flow.Flow) error { return f.SetStep(flow.StepReview) })
	}

	remote, err := s.api.GetSession(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	if !remote.IsComplete {
		return nil, ErrNotConfirmed
	}
	return s.update(ctx, operatorID, func(f *flow.Flow) error {
		if err := f.ConfirmSession(*remote); err != nil {
			return err
		}
		return f.SetStep(flow.StepReview)
	})
}

// Review fetches the saved results of every session in the flow.
func (s *service) Review(ctx context.Context, operatorID string) ([]SessionResults, error) {
	f, err := s.flows.Load(ctx, operatorID)
	if err != nil {
		return nil, err
	}

	var targets []SessionResults
	if f.Mode() == flow.ModeGroup {
		for _, m := range f.Members() {
			targets = append(targets, SessionResults{Session: m.Session, PlayerName: m.PlayerName})
		}
	} else if sess := f.CurrentSession(); sess != nil {
		targets = append(targets, SessionResults{Session: *sess, PlayerName: sess.PlayerName})
	}
	if len(targets) == 0 {
		return nil, flow.ErrNoActiveSession
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOut)
	for i := range targets {
		g.Go(func() error {
			sess := targets[i].Session
			res, err := s.api.Results(gctx, sess.AssessmentType, sess.ID)
			if err != nil {
				return fmt.Errorf("results for %s: %w", sess.ID, err)
			}
			if res == nil {
				res = []json.RawMessage{}
			}
			targets[i].Results = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return targets, nil
}

func (s *service) Preview(ctx context.Context, operatorID string) ([]battery.Preview, error) {
	f, err := s.flows.Load(ctx, operatorID)
	if err != nil {
		return nil, err
	}
	b, err := currentBattery(f)
	if err != nil {
		return nil, err
	}
	out := b.Preview(f.Pending())
	if out == nil {
		out = []battery.Preview{}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *service) update(ctx context.Context, operatorID string, fn func(*flow.Flow) error) (*View, error) {
	f, err := s.flows.Update(ctx, operatorID, fn)
	if err != nil {
		return nil, err
	}
	return view(f), nil
}

func (s *service) publish(ctx context.Context, subject string, e events.Event) {
	e.RequestID = reqctx.RequestIDFromContext(ctx)
	e.At = s.now().UTC()
	if err := s.events.Publish(ctx, subject, e); err != nil {
		slog.Warn("assessment: publish event failed", "subject", subject, "err", err)
	}
}

func currentBattery(f *flow.Flow) (battery.Battery, error) {
	sess := f.CurrentSession()
	if sess == nil {
		return nil, flow.ErrNoActiveSession
	}
	return battery.For(sess.AssessmentType)
}

func memberSessionIDs(f *flow.Flow) []string {
	members := f.Members()
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.Session.ID
	}
	return ids
}

func view(f *flow.Flow) *View {
	v := &View{
		State:    f.Snapshot(),
		Progress: f.Progress(),
		Missing:  []string{},
	}
	if b, err := currentBattery(f); err == nil {
		if m := b.Missing(f.Pending()); m != nil {
			v.Missing = m
		}
	}
	return v
}
