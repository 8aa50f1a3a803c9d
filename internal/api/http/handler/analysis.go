package handler

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/assessflow/pkg/backend"
)

// Analysis endpoints pass the backend's computed reports through unchanged.

func analysisRange(c fiber.Ctx) (backend.AnalysisRange, error) {
	r := backend.AnalysisRange{
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
	}
	if raw := c.Query("assessment_type"); raw != "" {
		t, err := backend.ParseAssessmentType(raw)
		if err != nil {
			return r, err
		}
		r.AssessmentType = t
	}
	return r, nil
}

// GET /api/v1/analysis/players/:id/progress
func (h *ReferenceHandler) PlayerProgress(c fiber.Ctx) error {
	r, err := analysisRange(c)
	if err != nil {
		return badRequest(c, "unknown assessment_type")
	}
	out, err := h.svc.PlayerProgress(c.Context(), c.Params("id"), r)
	if err != nil {
		return mapReferenceError(c, err)
	}
	return ok(c, out)
}

// GET /api/v1/analysis/players/:id/summary
func (h *ReferenceHandler) PlayerSummary(c fiber.Ctx) error {
	out, err := h.svc.PlayerSummary(c.Context(), c.Params("id"))
	if err != nil {
		return mapReferenceError(c, err)
	}
	return ok(c, out)
}

// GET /api/v1/analysis/compare?player_ids=a,b&assessment_type=
func (h *ReferenceHandler) Compare(c fiber.Ctx) error {
	t, err := backend.ParseAssessmentType(c.Query("assessment_type"))
	if err != nil {
		return badRequest(c, "assessment_type is required")
	}
	var ids []string
	for _, id := range strings.Split(c.Query("player_ids"), ",") {
		ids = append(ids, strings.TrimSpace(id))
	}
	out, err := h.svc.Compare(c.Context(), backend.CompareQuery{
		PlayerIDs:      ids,
		AssessmentType: t,
		AsOfDate:       c.Query("as_of_date"),
	})
	if err != nil {
		return mapReferenceError(c, err)
	}
	return ok(c, out)
}

// GET /api/v1/analysis/teams/:id/overview
func (h *ReferenceHandler) TeamOverview(c fiber.Ctx) error {
	id, err := intParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid team id")
	}
	out, err := h.svc.TeamOverview(c.Context(), id)
	if err != nil {
		return mapReferenceError(c, err)
	}
	return ok(c, out)
}

// GET /api/v1/analysis/teams/:id/trends
func (h *ReferenceHandler) TeamTrends(c fiber.Ctx) error {
	id, err := intParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid team id")
	}
	r, err := analysisRange(c)
	if err != nil {
		return badRequest(c, "unknown assessment_type")
	}
	out, err := h.svc.TeamTrends(c.Context(), id, r)
	if err != nil {
		return mapReferenceError(c, err)
	}
	return ok(c, out)
}

// GET /api/v1/analysis/teams/:id/rankings?assessment_type=
func (h *ReferenceHandler) TeamRankings(c fiber.Ctx) error {
	id, err := intParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid team id")
	}
	t, err := backend.ParseAssessmentType(c.Query("assessment_type"))
	if err != nil {
		return badRequest(c, "assessment_type is required")
	}
	out, err := h.svc.TeamRankings(c.Context(), id, t)
	if err != nil {
		return mapReferenceError(c, err)
	}
	return ok(c, out)
}
