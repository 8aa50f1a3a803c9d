// Package reference serves the read-mostly data the console needs around an
// assessment: sports, teams, players, past sessions and analysis.
package reference

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/Alijeyrad/assessflow/pkg/backend"
)

const (
	dateLayout     = "2006-01-02"
	maxComparePlay = 10
)

// Backend is the reference part of the assessment API.
type Backend interface {
	ListSports(ctx context.Context, includeInactive bool) ([]backend.Sport, error)
	GetSport(ctx context.Context, id int) (*backend.Sport, error)
	ListPlayers(ctx context.Context, f backend.PlayerFilters) ([]backend.PlayerListItem, error)
	GetPlayer(ctx context.Context, id string) (*backend.Player, error)
	PlayerAssessments(ctx context.Context, id string) (json.RawMessage, error)
	ListTeams(ctx context.Context, includeInactive bool) ([]backend.Team, error)
	TeamPlayers(ctx context.Context, id int, includeInactive bool) ([]backend.PlayerListItem, error)

	ListSessions(ctx context.Context, f backend.SessionFilters) ([]backend.Session, error)
	GetSession(ctx context.Context, id string) (*backend.Session, error)
	DeleteSession(ctx context.Context, id string) error
	Tests(ctx context.Context, t backend.AssessmentType) ([]backend.TestDefinition, error)
	Results(ctx context.Context, t backend.AssessmentType, sessionID string) ([]json.RawMessage, error)
	UploadKAMSReport(ctx context.Context, filename string, r io.Reader) (*backend.UploadReceipt, error)

	PlayerProgress(ctx context.Context, playerID string, r backend.AnalysisRange) (json.RawMessage, error)
	PlayerSummary(ctx context.Context, playerID string) (json.RawMessage, error)
	ComparePlayers(ctx context.Context, q backend.CompareQuery) (json.RawMessage, error)
	TeamOverview(ctx context.Context, teamID int) (json.RawMessage, error)
	TeamTrends(ctx context.Context, teamID int, r backend.AnalysisRange) (json.RawMessage, error)
	TeamRankings(ctx context.Context, teamID int, t backend.AssessmentType) (json.RawMessage, error)
}

// SessionDetail is a session with its stored results.
type SessionDetail struct {
	Session backend.Session   `json:"session"`
	Results []json.RawMessage `json:"results"`
}

// PlayerDetail is a player with the backend's assessment counts.
type PlayerDetail struct {
	Player      backend.Player  `json:"player"`
	Assessments json.RawMessage `json:"assessments,omitempty"`
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

type Service interface {
	Sports(ctx context.Context, includeInactive bool) ([]backend.Sport, error)
	Sport(ctx context.Context, id int) (*backend.Sport, error)
	EligiblePlayers(ctx context.Context, sportID int, t backend.AssessmentType, search string) ([]backend.PlayerListItem, error)
	Players(ctx context.Context, f backend.PlayerFilters) ([]backend.PlayerListItem, error)
	Player(ctx context.Context, id string) (*PlayerDetail, error)
	Teams(ctx context.Context, includeInactive bool) ([]backend.Team, error)
	TeamPlayers(ctx context.Context, id int, includeInactive bool) ([]backend.PlayerListItem, error)

	Sessions(ctx context.Context, f backend.SessionFilters) ([]backend.Session, error)
	Session(ctx context.Context, id string) (*SessionDetail, error)
	DeleteSession(ctx context.Context, id string) error
	Tests(ctx context.Context, t backend.AssessmentType) ([]backend.TestDefinition, error)
	UploadKAMS(ctx context.Context, filename string, size int64, r io.Reader) (*backend.UploadReceipt, error)

	PlayerProgress(ctx context.Context, playerID string, r backend.AnalysisRange) (json.RawMessage, error)
	PlayerSummary(ctx context.Context, playerID string) (json.RawMessage, error)
	Compare(ctx context.Context, q backend.CompareQuery) (json.RawMessage, error)
	TeamOverview(ctx context.Context, teamID int) (json.RawMessage, error)
	TeamTrends(ctx context.Context, teamID int, r backend.AnalysisRange) (json.RawMessage, error)
	TeamRankings(ctx context.Context, teamID int, t backend.AssessmentType) (json.RawMessage, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type service struct {
	api         Backend
	maxUploadMB int
}

func New(api Backend, maxUploadMB int) Service {
	if maxUploadMB <= 0 {
		maxUploadMB = 20
	}
	return &service{api: api, maxUploadMB: maxUploadMB}
}

func (s *service) Sports(ctx context.Context, includeInactive bool) ([]backend.Sport, error) {
	return s.api.ListSports(ctx, includeInactive)
}

func (s *service) Sport(ctx context.Context, id int) (*backend.Sport, error) {
	return s.api.GetSport(ctx, id)
}

// EligiblePlayers lists active players of a sport who can take an
// assessment of type t, sorted by name.
func (s *service) EligiblePlayers(ctx context.Context, sportID int, t backend.AssessmentType, search string) ([]backend.PlayerListItem, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: unknown assessment type %q", ErrInvalidRequest, t)
	}
	sport, err := s.api.GetSport(ctx, sportID)
	if err != nil {
		return nil, err
	}
	if !sport.Offers(t) {
		return nil, fmt.Errorf("%w: %s does not offer %s", ErrAssessmentUnavailable, sport.Name, t)
	}

	active := true
	f := backend.PlayerFilters{SportID: sportID, IsActive: &active, Search: strings.TrimSpace(search), Limit: 1000}
	if t == backend.TypePitcherOnBaseU {
		f.IsPitcher = &active
	}
	players, err := s.api.ListPlayers(ctx, f)
	if err != nil {
		return nil, err
	}

	out := lo.Filter(players, func(p backend.PlayerListItem, _ int) bool { return p.Eligible(t) })
	slices.SortFunc(out, func(a, b backend.PlayerListItem) int {
		return strings.Compare(strings.ToLower(a.FullName), strings.ToLower(b.FullName))
	})
	return out, nil
}

func (s *service) Players(ctx context.Context, f backend.PlayerFilters) ([]backend.PlayerListItem, error) {
	return s.api.ListPlayers(ctx, f)
}

func (s *service) Player(ctx context.Context, id string) (*PlayerDetail, error) {
	var detail PlayerDetail
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.api.GetPlayer(gctx, id)
		if err != nil {
			return err
		}
		detail.Player = *p
		return nil
	})
	g.Go(func() error {
		a, err := s.api.PlayerAssessments(gctx, id)
		if err != nil {
			return err
		}
		detail.Assessments = a
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (s *service) Teams(ctx context.Context, includeInactive bool) ([]backend.Team, error) {
	return s.api.ListTeams(ctx, includeInactive)
}

func (s *service) TeamPlayers(ctx context.Context, id int, includeInactive bool) ([]backend.PlayerListItem, error) {
	return s.api.TeamPlayers(ctx, id, includeInactive)
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

func (s *service) Sessions(ctx context.Context, f backend.SessionFilters) ([]backend.Session, error) {
	if f.AssessmentType != "" && !f.AssessmentType.Valid() {
		return nil, fmt.Errorf("%w: unknown assessment type %q", ErrInvalidRequest, f.AssessmentType)
	}
	if err := checkRange(f.StartDate, f.EndDate); err != nil {
		return nil, err
	}
	return s.api.ListSessions(ctx, f)
}

func (s *service) Session(ctx context.Context, id string) (*SessionDetail, error) {
	sess, err := s.api.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	res, err := s.api.Results(ctx, sess.AssessmentType, sess.ID)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = []json.RawMessage{}
	}
	return &SessionDetail{Session: *sess, Results: res}, nil
}

func (s *service) DeleteSession(ctx context.Context, id string) error {
	if err := s.api.DeleteSession(ctx, id); err != nil {
		return err
	}
	slog.Info("reference: session deleted", "session_id", id)
	return nil
}

func (s *service) Tests(ctx context.Context, t backend.AssessmentType) ([]backend.TestDefinition, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: unknown assessment type %q", ErrInvalidRequest, t)
	}
	return s.api.Tests(ctx, t)
}

// UploadKAMS forwards a KAMS PDF export. size is the declared length; the
// reader is additionally capped so a lying client cannot exceed the limit.
func (s *service) UploadKAMS(ctx context.Context, filename string, size int64, r io.Reader) (*backend.UploadReceipt, error) {
	filename = filepath.Base(strings.TrimSpace(filename))
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return nil, ErrNotPDF
	}
	limit := int64(s.maxUploadMB) << 20
	if size > limit {
		return nil, fmt.Errorf("%w: %d MB", ErrUploadTooLarge, s.maxUploadMB)
	}
	receipt, err := s.api.UploadKAMSReport(ctx, filename, io.LimitReader(r, limit))
	if err != nil {
		return nil, err
	}
	slog.Info("reference: kams report uploaded", "filename", filename, "status", receipt.Status)
	return receipt, nil
}

// ---------------------------------------------------------------------------
// Analysis
// ---------------------------------------------------------------------------

func (s *service) PlayerProgress(ctx context.Context, playerID string, r backend.AnalysisRange) (json.RawMessage, error) {
	if err := checkAnalysisRange(r); err != nil {
		return nil, err
	}
	return s.api.PlayerProgress(ctx, playerID, r)
}

func (s *service) PlayerSummary(ctx context.Context, playerID string) (json.RawMessage, error) {
	return s.api.PlayerSummary(ctx, playerID)
}

func (s *service) Compare(ctx context.Context, q backend.CompareQuery) (json.RawMessage, error) {
	q.PlayerIDs = lo.Uniq(lo.Compact(q.PlayerIDs))
	if len(q.PlayerIDs) < 2 || len(q.PlayerIDs) > maxComparePlay {
		return nil, fmt.Errorf("%w: compare needs between 2 and %d players", ErrInvalidRequest, maxComparePlay)
	}
	if !q.AssessmentType.Valid() {
		return nil, fmt.Errorf("%w: unknown assessment type %q", ErrInvalidRequest, q.AssessmentType)
	}
	if q.AsOfDate != "" {
		if _, err := time.Parse(dateLayout, q.AsOfDate); err != nil {
			return nil, fmt.Errorf("%w: as_of_date must be YYYY-MM-DD", ErrInvalidRequest)
		}
	}
	return s.api.ComparePlayers(ctx, q)
}

func (s *service) TeamOverview(ctx context.Context, teamID int) (json.RawMessage, error) {
	return s.api.TeamOverview(ctx, teamID)
}

func (s *service) TeamTrends(ctx context.Context, teamID int, r backend.AnalysisRange) (json.RawMessage, error) {
	if err := checkAnalysisRange(r); err != nil {
		return nil, err
	}
	return s.api.TeamTrends(ctx, teamID, r)
}

func (s *service) TeamRankings(ctx context.Context, teamID int, t backend.AssessmentType) (json.RawMessage, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: unknown assessment type %q", ErrInvalidRequest, t)
	}
	return s.api.TeamRankings(ctx, teamID, t)
}

func checkAnalysisRange(r backend.AnalysisRange) error {
	if r.AssessmentType != "" && !r.AssessmentType.Valid() {
		return fmt.Errorf("%w: unknown assessment type %q", ErrInvalidRequest, r.AssessmentType)
	}
	return checkRange(r.StartDate, r.EndDate)
}

func checkRange(start, end string) error {
	var from, to time.Time
	var err error
	if start != "" {
		if from, err = time.Parse(dateLayout, start); err != nil {
			return fmt.Errorf("%w: start_date must be YYYY-MM-DD", ErrInvalidRequest)
		}
	}
	if end != "" {
		if to, err = time.Parse(dateLayout, end); err != nil {
			return fmt.Errorf("%w: end_date must be YYYY-MM-DD", ErrInvalidRequest)
		}
	}
	if start != "" && end != "" && to.Before(from) {
		return fmt.Errorf("%w: end_date is before start_date", ErrInvalidRequest)
	}
	return nil
}
