package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/assessflow/internal/api/http/handler"
	"github.com/Alijeyrad/assessflow/pkg/authorize"
)

func (r *Router) registerAnalysisRoutes(
	api fiber.Router,
	h *handler.ReferenceHandler,
	authRequired fiber.Handler,
	requirePerm func(authorize.Resource, authorize.Action) fiber.Handler,
) {
	group := api.Group("/analysis", authRequired, requirePerm(authorize.ResourceAnalysis, authorize.ActionRead))
	group.Get("/players/:id/progress", h.PlayerProgress)
	group.Get("/players/:id/summary", h.PlayerSummary)
	group.Get("/compare", h.Compare)
	group.Get("/teams/:id/overview", h.TeamOverview)
	group.Get("/teams/:id/trends", h.TeamTrends)
	group.Get("/teams/:id/rankings", h.TeamRankings)
}
