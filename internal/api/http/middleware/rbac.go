package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/assessflow/pkg/authorize"
	"github.com/Alijeyrad/assessflow/pkg/reqctx"
)

// RequirePermission checks the authenticated operator's roles against the
// Casbin policy. Mount it after AuthRequired.
func RequirePermission(auth authorize.IAuthorization, resource authorize.Resource, action authorize.Action) fiber.Handler {
	return func(c fiber.Ctx) error {
		claims := reqctx.ClaimsFromContext(c.Context())
		if claims == nil {
			return fiber.ErrUnauthorized
		}

		if err := auth.Authorize(c.Context(), claims, resource, action); err != nil {
			if errors.Is(err, authorize.ErrForbidden) {
				return fiber.ErrForbidden
			}
			return err
		}

		return c.Next()
	}
}
