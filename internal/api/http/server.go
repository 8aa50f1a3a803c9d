package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/logger"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/Alijeyrad/assessflow/config"
	"github.com/Alijeyrad/assessflow/internal/api/http/middleware"
	"github.com/Alijeyrad/assessflow/internal/api/http/router"
	"github.com/Alijeyrad/assessflow/pkg/constants"
	"github.com/Alijeyrad/assessflow/pkg/logs"
	"github.com/Alijeyrad/assessflow/pkg/observability"
)

// Module provides the HTTP Server to the fx graph.
var Module = fx.Module("http", fx.Provide(NewServer))

const megabyte = 1 << 20

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Cfg       *config.Config
	Redis     *redis.Client
	Router    *router.Router
	OTel      *observability.Provider `optional:"true"`
}

func NewServer(p Params) *fiber.App {
	app := newApp(p.Cfg)

	if p.OTel != nil && p.Cfg.Observability.Tracing.Enabled {
		name := p.Cfg.Observability.ServiceName
		if name == "" {
			name = constants.AppName
		}
		app.Use(observability.FiberMiddleware(name))
	}

	configureGlobalMiddleware(app, p.Cfg, p.Redis)

	p.Router.Register(app)

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			addr := fmt.Sprintf(":%d", p.Cfg.Server.Port)
			go func() {
				if err := app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
					slog.Error("HTTP server error", "error", err)
				}
			}()
			slog.Info("HTTP server listening", "addr", addr, "environment", p.Cfg.Server.Environment)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.ShutdownWithContext(ctx)
		},
	})

	return app
}

func newApp(cfg *config.Config) *fiber.App {
	timeout := time.Duration(cfg.Server.TimeoutSeconds) * time.Second
	uploadMB := cfg.Backend.MaxUploadMB
	if uploadMB <= 0 {
		uploadMB = 20
	}

	return fiber.New(fiber.Config{
		AppName:      constants.AppName,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		// multipart overhead on top of the largest accepted KAMS report
		BodyLimit:    (uploadMB + 1) * megabyte,
		ErrorHandler: errorHandler,
	})
}

// errorHandler renders errors that escape handlers, mostly from middleware,
// in the same envelope handlers use.
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	} else {
		logs.FromContext(c.Context()).Error("unhandled request error",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}

	return c.Status(code).JSON(fiber.Map{"error": msg})
}

func configureGlobalMiddleware(app *fiber.App, cfg *config.Config, rdb *redis.Client) {
	app.Use(middleware.RequestID())
	app.Use(recoverer.New())

	if cfg.Server.CORS.Enabled {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.Server.CORS.AllowOrigins,
			AllowMethods:     cfg.Server.CORS.AllowMethods,
			AllowHeaders:     cfg.Server.CORS.AllowHeaders,
			AllowCredentials: cfg.Server.CORS.AllowCredentials,
			MaxAge:           cfg.Server.CORS.MaxAgeSeconds,
		}))
	}

	if cfg.Server.Environment == "production" {
		app.Use(helmet.New())
		app.Use(middleware.NewLimiter(cfg.Server.RateLimit, rdb))
	}

	app.Use(logger.New(logger.Config{
		Format: "${ip} - [${time}] [req_id=${respHeader:X-Request-Id}] ${method} ${url} ${status} ${latency}\n",
	}))
}
