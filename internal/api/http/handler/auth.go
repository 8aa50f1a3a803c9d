package handler

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/assessflow/internal/api/http/middleware"
	"github.com/Alijeyrad/assessflow/internal/service/auth"
	"github.com/Alijeyrad/assessflow/pkg/logs"
	"github.com/Alijeyrad/assessflow/pkg/reqctx"
)

type AuthHandler struct {
	svc auth.Service
}

func NewAuthHandler(svc auth.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// POST /api/v1/auth/login
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	tokens, err := h.svc.Login(c.Context(), strings.TrimSpace(body.Email), body.Password)
	if err != nil {
		return mapAuthError(c, err)
	}

	return ok(c, tokens)
}

// POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(c fiber.Ctx) error {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	tokens, err := h.svc.Refresh(c.Context(), body.RefreshToken)
	if err != nil {
		return mapAuthError(c, err)
	}

	return ok(c, tokens)
}

// GET /api/v1/auth/me
func (h *AuthHandler) Me(c fiber.Ctx) error {
	op, found := middleware.OperatorFromFiber(c)
	if !found {
		return unauthorized(c)
	}
	return ok(c, op)
}

// POST /api/v1/auth/logout
//
// Drops the cached operator for the presented token. Tokens themselves are
// owned by the backend and stay valid until they expire.
func (h *AuthHandler) Logout(c fiber.Ctx) error {
	if err := h.svc.Forget(c.Context(), reqctx.AccessTokenFromContext(c.Context())); err != nil {
		logs.FromContext(c.Context()).Warn("forget cached operator", slog.String("error", err.Error()))
	}
	return noContent(c)
}

func mapAuthError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, auth.ErrMissingCredentials):
		return badRequest(c, "email and password are required")
	case errors.Is(err, auth.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid email or password"})
	case errors.Is(err, auth.ErrInvalidToken):
		return unauthorized(c)
	case errors.Is(err, auth.ErrAccountInactive):
		return forbidden(c)
	default:
		return mapBackendError(c, err)
	}
}
