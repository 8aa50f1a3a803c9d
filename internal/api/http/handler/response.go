package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/assessflow/pkg/backend"
	"github.com/Alijeyrad/assessflow/pkg/logs"
	"github.com/Alijeyrad/assessflow/pkg/reqctx"
)

func ok(c fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{"data": data})
}

func created(c fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": data})
}

func noContent(c fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}

func badRequest(c fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func unauthorized(c fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
}

func forbidden(c fiber.Ctx) error {
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden"})
}

func notFound(c fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": msg})
}

func conflict(c fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": msg})
}

func unprocessable(c fiber.Ctx, msg string, missing []string) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": msg, "missing": missing})
}

func payloadTooLarge(c fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": msg})
}

func badGateway(c fiber.Ctx) error {
	return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "assessment backend unavailable"})
}

func internalError(c fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}

// operatorID returns the authenticated operator's id. Routes using it are
// always mounted behind AuthRequired.
func operatorID(c fiber.Ctx) (string, bool) {
	claims := reqctx.ClaimsFromContext(c.Context())
	if claims == nil {
		return "", false
	}
	return claims.GetUserID().String(), true
}

// mapBackendError translates errors surfaced by the assessment backend.
func mapBackendError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, backend.ErrNotFound):
		return notFound(c, backend.Message(err))
	case errors.Is(err, backend.ErrUnauthorized):
		return unauthorized(c)
	case errors.Is(err, backend.ErrForbidden):
		return forbidden(c)
	case errors.Is(err, backend.ErrValidation):
		return badRequest(c, backend.Message(err))
	case errors.Is(err, backend.ErrConflict):
		return conflict(c, backend.Message(err))
	case errors.Is(err, backend.ErrUpstream):
		logs.FromContext(c.Context()).Warn("backend request failed", slog.String("error", err.Error()))
		return badGateway(c)
	default:
		logs.FromContext(c.Context()).Error("unhandled error", slog.String("error", err.Error()))
		return internalError(c)
	}
}
