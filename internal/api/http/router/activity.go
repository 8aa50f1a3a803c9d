package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/assessflow/internal/api/http/handler"
	"github.com/Alijeyrad/assessflow/pkg/authorize"
)

func (r *Router) registerActivityRoutes(
	api fiber.Router,
	h *handler.ActivityHandler,
	authRequired fiber.Handler,
	requirePerm func(authorize.Resource, authorize.Action) fiber.Handler,
) {
	api.Get("/activity", authRequired, requirePerm(authorize.ResourceActivity, authorize.ActionRead), h.Recent)
}
