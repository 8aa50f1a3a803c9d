package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/assessflow/internal/api/http/handler"
	"github.com/Alijeyrad/assessflow/pkg/authorize"
)

func (r *Router) registerReferenceRoutes(
	api fiber.Router,
	h *handler.ReferenceHandler,
	authRequired fiber.Handler,
	requirePerm func(authorize.Resource, authorize.Action) fiber.Handler,
) {
	read := requirePerm(authorize.ResourceReference, authorize.ActionRead)

	sports := api.Group("/sports", authRequired, read)
	sports.Get("/", h.Sports)
	sports.Get("/:id", h.Sport)
	sports.Get("/:id/players", h.EligiblePlayers)

	players := api.Group("/players", authRequired, read)
	players.Get("/", h.Players)
	players.Get("/:id", h.Player)

	teams := api.Group("/teams", authRequired, read)
	teams.Get("/", h.Teams)
	teams.Get("/:id/players", h.TeamPlayers)

	api.Get("/tests/:type", authRequired, read, h.Tests)
}

func (r *Router) registerSessionRoutes(
	api fiber.Router,
	h *handler.ReferenceHandler,
	authRequired fiber.Handler,
	requirePerm func(authorize.Resource, authorize.Action) fiber.Handler,
) {
	group := api.Group("/sessions", authRequired)
	group.Get("/", requirePerm(authorize.ResourceSession, authorize.ActionRead), h.Sessions)
	group.Get("/:id", requirePerm(authorize.ResourceSession, authorize.ActionRead), h.Session)
	group.Delete("/:id", requirePerm(authorize.ResourceSession, authorize.ActionDelete), h.DeleteSession)

	api.Post("/kams/upload", authRequired, requirePerm(authorize.ResourceSession, authorize.ActionWrite), h.UploadKAMS)
}
