package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/assessflow/internal/api/http/handler"
	"github.com/Alijeyrad/assessflow/pkg/authorize"
)

func (r *Router) registerFlowRoutes(
	api fiber.Router,
	h *handler.FlowHandler,
	authRequired fiber.Handler,
	requirePerm func(authorize.Resource, authorize.Action) fiber.Handler,
) {
	read := requirePerm(authorize.ResourceFlow, authorize.ActionRead)
	write := requirePerm(authorize.ResourceFlow, authorize.ActionWrite)

	group := api.Group("/flow", authRequired)
	group.Get("/", read, h.State)
	group.Delete("/", write, h.Clear)

	group.Post("/single", write, h.StartSingle)
	group.Post("/group", write, h.StartGroup)

	group.Patch("/answers", write, h.RecordAnswers)
	group.Put("/answers/:test", write, h.RecordAnswer)
	group.Get("/answers/:test", read, h.Answer)

	group.Post("/members/:index", write, h.SelectMember)
	group.Post("/next", write, h.Next)
	group.Post("/previous", write, h.Previous)

	group.Get("/preview", read, h.Preview)
	group.Post("/submit", write, h.Submit)
	group.Post("/review", write, h.ConfirmReview)
	group.Get("/review", read, h.Review)
}
