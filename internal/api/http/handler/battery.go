package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/assessflow/internal/battery"
	"github.com/Alijeyrad/assessflow/pkg/backend"
)

// BatteryHandler serves the static test catalogues. Nothing here touches the
// backend.
type BatteryHandler struct{}

func NewBatteryHandler() *BatteryHandler { return &BatteryHandler{} }

type batterySummary struct {
	Type      backend.AssessmentType `json:"type"`
	TestCount int                    `json:"test_count"`
}

// GET /api/v1/batteries
func (h *BatteryHandler) List(c fiber.Ctx) error {
	all := battery.All()
	out := make([]batterySummary, 0, len(all))
	for _, b := range all {
		out = append(out, batterySummary{Type: b.Type(), TestCount: len(b.Tests())})
	}
	return ok(c, out)
}

// GET /api/v1/batteries/:type
func (h *BatteryHandler) Show(c fiber.Ctx) error {
	t, err := backend.ParseAssessmentType(c.Params("type"))
	if err != nil {
		return notFound(c, "unknown assessment type")
	}
	b, err := battery.For(t)
	if err != nil {
		return mapBatteryError(c, err)
	}
	return ok(c, fiber.Map{"type": b.Type(), "tests": b.Tests()})
}

// GET /api/v1/batteries/:type/tests/:code/instructions
func (h *BatteryHandler) Instructions(c fiber.Ctx) error {
	t, err := backend.ParseAssessmentType(c.Params("type"))
	if err != nil {
		return notFound(c, "unknown assessment type")
	}
	in, err := battery.InstructionFor(t, c.Params("code"))
	if err != nil {
		return mapBatteryError(c, err)
	}
	return ok(c, in)
}

func mapBatteryError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, battery.ErrUnknownType), errors.Is(err, battery.ErrUnknownTest):
		return notFound(c, err.Error())
	default:
		return internalError(c)
	}
}
