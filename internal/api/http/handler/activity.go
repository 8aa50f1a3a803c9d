package handler

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/assessflow/internal/events"
	"github.com/Alijeyrad/assessflow/pkg/logs"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 500
)

// ActivityFeed is satisfied by *events.Activity.
type ActivityFeed interface {
	Recent(ctx context.Context, n int64) ([]events.Entry, error)
}

type ActivityHandler struct {
	feed ActivityFeed
}

func NewActivityHandler(feed ActivityFeed) *ActivityHandler {
	return &ActivityHandler{feed: feed}
}

// GET /api/v1/activity?limit=
func (h *ActivityHandler) Recent(c fiber.Ctx) error {
	n := fiber.Query[int](c, "limit", defaultActivityLimit)
	if n <= 0 || n > maxActivityLimit {
		return badRequest(c, "limit must be between 1 and 500")
	}
	entries, err := h.feed.Recent(c.Context(), int64(n))
	if err != nil {
		logs.FromContext(c.Context()).Error("read activity", slog.String("error", err.Error()))
		return internalError(c)
	}
	return ok(c, entries)
}
