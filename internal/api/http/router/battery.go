package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/assessflow/internal/api/http/handler"
)

func (r *Router) registerBatteryRoutes(api fiber.Router, h *handler.BatteryHandler, authRequired fiber.Handler) {
	group := api.Group("/batteries", authRequired)
	group.Get("/", h.List)
	group.Get("/:type", h.Show)
	group.Get("/:type/tests/:code/instructions", h.Instructions)
}
