package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/assessflow/internal/service/reference"
	"github.com/Alijeyrad/assessflow/pkg/backend"
)

type ReferenceHandler struct {
	svc reference.Service
}

func NewReferenceHandler(svc reference.Service) *ReferenceHandler {
	return &ReferenceHandler{svc: svc}
}

// GET /api/v1/sports
func (h *ReferenceHandler) Sports(c fiber.Ctx) error {
	sports, err := h.svc.Sports(c.Context(), fiber.Query[bool](c, "include_inactive"))
	if err != nil {
		return mapReferenceError(c, err)
	}
	return ok(c, sports)
}

// GET /api/v1/sports/:id
func (h *ReferenceHandler) Sport(c fiber.Ctx) error {
	id, err := intParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid sport id")
	}
	sport, err := h.svc.Sport(c.Context(), id)
	if err != nil {
		return mapReferenceError(c, err)
	}
	return ok(c, sport)
}

// GET /api/v1/sports/:id/players?assessment_type=&search=
//
// Lists the active players of a sport who may take the given assessment.
func (h *ReferenceHandler) EligiblePlayers(c fiber.Ctx) error {
	id, err := intParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid sport id")
	}
	t, err := backend.ParseAssessmentType(c.Query("assessment_type"))
	if err != nil {
		return badRequest(c, "assessment_type is required")
	}
	players, err := h.svc.EligiblePlayers(c.Context(), id, t, c.Query("search"))
	if err != nil {
		return mapReferenceError(c, err)
	}
	return ok(c, players)
}

// GET /api/v1/players
func (h *ReferenceHandler) Players(c fiber.Ctx) error {
	f := backend.PlayerFilters{
		Skip:    fiber.Query[int](c, "skip"),
		Limit:   fiber.Query[int](c, "limit"),
		TeamID:  fiber.Query[int](c, "team_id"),
		SportID: fiber.Query[int](c, "sport_id"),
		Search:  c.Query("search"),
	}
	var err error
	if f.IsPitcher, err = optionalBool(c, "is_pitcher"); err != nil {
		return badRequest(c, "is_pitcher must be a boolean")
	}
	if f.IsActive, err = optionalBool(c, "is_active"); err != nil {
		return badRequest(c, "is_active must be a boolean")
	}

	players, err := h.svc.Players(c.Context(), f)
	if err != nil {
		return mapReferenceError(c, err)
	}
	return ok(c, players)
}

// GET /api/v1/players/:id
func (h *ReferenceHandler) Player(c fiber.Ctx) error {
	p, err := h.svc.Player(c.Context(), c.Params("id"))
	if err != nil {
		return mapReferenceError(c, err)
	}
	return ok(c, p)
}

// GET /api/v1/teams
func (h *ReferenceHandler) Teams(c fiber.Ctx) error {
	teams, err := h.svc.Teams(c.Context(), fiber.Query[bool](c, "include_inactive"))
	if err != nil {
		return mapReferenceError(c, err)
	}
	return ok(c, teams)
}

// GET /api/v1/teams/:id/players
func (h *ReferenceHandler) TeamPlayers(c fiber.Ctx) error {
	id, err := intParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid team id")
	}
	players, err := h.svc.TeamPlayers(c.Context(), id, fiber.Query[bool](c, "include_inactive"))
	if err != nil {
		return mapReferenceError(c, err)
	}
	return ok(c, players)
}

// GET /api/v1/sessions
func (h *ReferenceHandler) Sessions(c fiber.Ctx) error {
	f := backend.SessionFilters{
		Skip:      fiber.Query[int](c, "skip"),
		Limit:     fiber.Query[int](c, "limit"),
		PlayerID:  c.Query("player_id"),
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
	}
	if raw := c.Query("assessment_type"); raw != "" {
		t, err := backend.ParseAssessmentType(raw)
		if err != nil {
			return badRequest(c, "unknown assessment_type")
		}
		f.AssessmentType = t
	}
	var err error
	if f.IsComplete, err = optionalBool(c, "is_complete"); err != nil {
		return badRequest(c, "is_complete must be a boolean")
	}

	sessions, err := h.svc.Sessions(c.Context(), f)
	if err != nil {
		return mapReferenceError(c, err)
	}
	return ok(c, sessions)
}

// GET /api/v1/sessions/:id
func (h *ReferenceHandler) Session(c fiber.Ctx) error {
	d, err := h.svc.Session(c.Context(), c.Params("id"))
	if err != nil {
		return mapReferenceError(c, err)
	}
	return ok(c, d)
}

// DELETE /api/v1/sessions/:id
func (h *ReferenceHandler) DeleteSession(c fiber.Ctx) error {
	if err := h.svc.DeleteSession(c.Context(), c.Params("id")); err != nil {
		return mapReferenceError(c, err)
	}
	return noContent(c)
}

// GET /api/v1/tests/:type
//
// The backend's own test definitions for a battery.
func (h *ReferenceHandler) Tests(c fiber.Ctx) error {
	t, err := backend.ParseAssessmentType(c.Params("type"))
	if err != nil {
		return notFound(c, "unknown assessment type")
	}
	defs, err := h.svc.Tests(c.Context(), t)
	if err != nil {
		return mapReferenceError(c, err)
	}
	return ok(c, defs)
}

// POST /api/v1/kams/upload (multipart, field "file")
func (h *ReferenceHandler) UploadKAMS(c fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return badRequest(c, "cannot read uploaded file")
	}
	defer f.Close()

	receipt, err := h.svc.UploadKAMS(c.Context(), fh.Filename, fh.Size, f)
	if err != nil {
		return mapReferenceError(c, err)
	}
	return created(c, receipt)
}

func intParam(c fiber.Ctx, name string) (int, error) {
	return strconv.Atoi(c.Params(name))
}

func optionalBool(c fiber.Ctx, key string) (*bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func mapReferenceError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, reference.ErrInvalidRequest),
		errors.Is(err, reference.ErrAssessmentUnavailable),
		errors.Is(err, reference.ErrNotPDF):
		return badRequest(c, err.Error())
	case errors.Is(err, reference.ErrUploadTooLarge):
		return payloadTooLarge(c, err.Error())
	default:
		return mapBackendError(c, err)
	}
}
