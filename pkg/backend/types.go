package backend

import (
	"fmt"
	"strings"
)

// AssessmentType identifies one of the fixed test batteries.
type AssessmentType string

const (
	TypeOnBaseU        AssessmentType = "onbaseu"
	TypePitcherOnBaseU AssessmentType = "pitcher_onbaseu"
	TypeTPIPower       AssessmentType = "tpi_power"
	TypeSprint         AssessmentType = "sprint"
	TypeKAMS           AssessmentType = "kams"
)

// AssessmentTypes lists every assessment type in canonical order.
var AssessmentTypes = []AssessmentType{
	TypeOnBaseU,
	TypePitcherOnBaseU,
	TypeTPIPower,
	TypeSprint,
	TypeKAMS,
}

var segments = map[AssessmentType]string{
	TypeOnBaseU:        "onbaseu",
	TypePitcherOnBaseU: "pitcher-onbaseu",
	TypeTPIPower:       "tpi-power",
	TypeSprint:         "sprint",
	TypeKAMS:           "kams",
}

// ParseAssessmentType accepts either the type identifier or its URL segment.
func ParseAssessmentType(s string) (AssessmentType, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	for t, seg := range segments {
		if s == string(t) || s == seg {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown assessment type %q", ErrValidation, s)
}

func (t AssessmentType) Valid() bool {
	_, ok := segments[t]
	return ok
}

// Segment returns the path segment the backend uses for result collections.
func (t AssessmentType) Segment() string {
	return segments[t]
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

type Session struct {
	ID             string         `json:"id"`
	PlayerID       string         `json:"player_id"`
	PlayerName     string         `json:"player_name,omitempty"`
	AssessmentType AssessmentType `json:"assessment_type"`
	AssessmentDate string         `json:"assessment_date"`
	AssessedBy     string         `json:"assessed_by,omitempty"`
	AssessedByName string         `json:"assessed_by_name,omitempty"`
	Notes          string         `json:"notes,omitempty"`
	IsComplete     bool           `json:"is_complete"`
	CreatedAt      string         `json:"created_at,omitempty"`
	UpdatedAt      string         `json:"updated_at,omitempty"`
}

type SessionCreate struct {
	PlayerID       string         `json:"player_id"`
	AssessmentType AssessmentType `json:"assessment_type"`
	AssessmentDate string         `json:"assessment_date"`
	Notes          string         `json:"notes,omitempty"`
}

type SessionUpdate struct {
	AssessmentDate *string `json:"assessment_date,omitempty"`
	Notes          *string `json:"notes,omitempty"`
	IsComplete     *bool   `json:"is_complete,omitempty"`
}

type SessionFilters struct {
	Skip           int            `url:"skip,omitempty"`
	Limit          int            `url:"limit,omitempty"`
	PlayerID       string         `url:"player_id,omitempty"`
	AssessmentType AssessmentType `url:"assessment_type,omitempty"`
	IsComplete     *bool          `url:"is_complete,omitempty"`
	StartDate      string         `url:"start_date,omitempty"`
	EndDate        string         `url:"end_date,omitempty"`
}

// TestDefinition is the backend's description of one test in a battery.
type TestDefinition struct {
	Code        string   `json:"code"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Subcategory string   `json:"subcategory,omitempty"`
	IsBilateral bool     `json:"is_bilateral"`
	ResultType  string   `json:"result_type"`
	Options     []string `json:"options,omitempty"`
	Unit        string   `json:"unit,omitempty"`
	Description string   `json:"description,omitempty"`
}

// UploadReceipt is returned by the KAMS PDF upload endpoint.
type UploadReceipt struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
	Status   string `json:"status"`
}

// ---------------------------------------------------------------------------
// Players, sports, teams
// ---------------------------------------------------------------------------

type Player struct {
	ID               string `json:"id"`
	PlayerCode       string `json:"player_code"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	FullName         string `json:"full_name"`
	DisplayName      string `json:"display_name,omitempty"`
	TeamID           *int   `json:"team_id"`
	TeamName         string `json:"team_name,omitempty"`
	SportID          *int   `json:"sport_id"`
	SportName        string `json:"sport_name,omitempty"`
	GraduationYear   *int   `json:"graduation_year,omitempty"`
	DateOfBirth      string `json:"date_of_birth,omitempty"`
	IsPitcher        bool   `json:"is_pitcher"`
	IsPositionPlayer bool   `json:"is_position_player"`
	Bats             string `json:"bats,omitempty"`
	Throws           string `json:"throws,omitempty"`
	HeightInches     *int   `json:"height_inches,omitempty"`
	WeightLbs        *int   `json:"weight_lbs,omitempty"`
	IsActive         bool   `json:"is_active"`
	CreatedAt        string `json:"created_at,omitempty"`
	UpdatedAt        string `json:"updated_at,omitempty"`
}

// ListItem projects a full player record onto the roster shape.
func (p Player) ListItem() PlayerListItem {
	return PlayerListItem{
		ID:               p.ID,
		PlayerCode:       p.PlayerCode,
		FullName:         p.FullName,
		TeamName:         p.TeamName,
		SportID:          p.SportID,
		SportName:        p.SportName,
		IsPitcher:        p.IsPitcher,
		IsPositionPlayer: p.IsPositionPlayer,
		IsActive:         p.IsActive,
		GraduationYear:   p.GraduationYear,
	}
}

type PlayerListItem struct {
	ID               string `json:"id"`
	PlayerCode       string `json:"player_code"`
	FullName         string `json:"full_name"`
	TeamName         string `json:"team_name,omitempty"`
	SportID          *int   `json:"sport_id"`
	SportName        string `json:"sport_name,omitempty"`
	IsPitcher        bool   `json:"is_pitcher"`
	IsPositionPlayer bool   `json:"is_position_player"`
	IsActive         bool   `json:"is_active"`
	GraduationYear   *int   `json:"graduation_year,omitempty"`
}

// Eligible reports whether the player may take an assessment of type t.
// The sport's offered assessments are checked separately.
func (p PlayerListItem) Eligible(t AssessmentType) bool {
	if !p.IsActive {
		return false
	}
	switch t {
	case TypePitcherOnBaseU:
		return p.IsPitcher
	case TypeOnBaseU:
		return p.IsPositionPlayer
	default:
		return true
	}
}

type PlayerFilters struct {
	Skip      int    `url:"skip,omitempty"`
	Limit     int    `url:"limit,omitempty"`
	TeamID    int    `url:"team_id,omitempty"`
	SportID   int    `url:"sport_id,omitempty"`
	IsPitcher *bool  `url:"is_pitcher,omitempty"`
	IsActive  *bool  `url:"is_active,omitempty"`
	Search    string `url:"search,omitempty"`
}

type Sport struct {
	ID                   int              `json:"id"`
	Name                 string           `json:"name"`
	Code                 string           `json:"code"`
	Description          string           `json:"description,omitempty"`
	AvailableAssessments []AssessmentType `json:"available_assessments"`
	IsActive             bool             `json:"is_active"`
	CreatedAt            string           `json:"created_at,omitempty"`
	UpdatedAt            string           `json:"updated_at,omitempty"`
}

// Offers reports whether t is one of the sport's available assessments.
func (s Sport) Offers(t AssessmentType) bool {
	for _, a := range s.AvailableAssessments {
		if a == t {
			return true
		}
	}
	return false
}

type Team struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Organization string `json:"organization,omitempty"`
	Sport        string `json:"sport"`
	IsActive     bool   `json:"is_active"`
	PlayerCount  int    `json:"player_count,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type UserRole struct {
	RoleName string `json:"role_name"`
	TeamID   *int   `json:"team_id"`
}

type User struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name,omitempty"`
	LastName    string     `json:"last_name,omitempty"`
	FullName    string     `json:"full_name"`
	IsActive    bool       `json:"is_active"`
	IsSuperuser bool       `json:"is_superuser"`
	Roles       []UserRole `json:"roles"`
}

// ---------------------------------------------------------------------------
// Analysis
// ---------------------------------------------------------------------------

type AnalysisRange struct {
	AssessmentType AssessmentType `url:"assessment_type,omitempty"`
	StartDate      string         `url:"start_date,omitempty"`
	EndDate        string         `url:"end_date,omitempty"`
}

type CompareQuery struct {
	PlayerIDs      []string       `url:"player_ids"`
	AssessmentType AssessmentType `url:"assessment_type"`
	AsOfDate       string         `url:"as_of_date,omitempty"`
}
