package router

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/Alijeyrad/assessflow/config"
	"github.com/Alijeyrad/assessflow/internal/api/http/handler"
	"github.com/Alijeyrad/assessflow/internal/api/http/middleware"
	"github.com/Alijeyrad/assessflow/internal/events"
	"github.com/Alijeyrad/assessflow/internal/service/assessment"
	"github.com/Alijeyrad/assessflow/internal/service/auth"
	"github.com/Alijeyrad/assessflow/internal/service/reference"
	"github.com/Alijeyrad/assessflow/pkg/authorize"
	"github.com/Alijeyrad/assessflow/pkg/backend"
)

// Module provides the Router to the fx graph.
var Module = fx.Module("router", fx.Provide(NewRouter))

const readinessTimeout = 2 * time.Second

type Params struct {
	fx.In

	Cfg           *config.Config
	Redis         *redis.Client
	Auth          authorize.IAuthorization
	Backend       *backend.Client
	Activity      *events.Activity
	AuthSvc       auth.Service
	AssessmentSvc assessment.Service
	ReferenceSvc  reference.Service
}

type Router struct {
	p Params
}

func NewRouter(p Params) *Router {
	return &Router{p: p}
}

func (r *Router) Register(app *fiber.App) {
	// 1. Health & Metrics
	r.registerSystemRoutes(app)

	// 2. Initialize Middlewares
	authRequired := middleware.AuthRequired(r.p.AuthSvc)

	// Permission helper
	requirePerm := func(res authorize.Resource, act authorize.Action) fiber.Handler {
		return middleware.RequirePermission(r.p.Auth, res, act)
	}

	// 3. Initialize Handlers
	authH := handler.NewAuthHandler(r.p.AuthSvc)
	flowH := handler.NewFlowHandler(r.p.AssessmentSvc)
	batteryH := handler.NewBatteryHandler()
	refH := handler.NewReferenceHandler(r.p.ReferenceSvc)
	activityH := handler.NewActivityHandler(r.p.Activity)

	api := app.Group("/api/v1")

	// 4. Delegate to sub-files
	r.registerAuthRoutes(api, authH, authRequired)
	r.registerBatteryRoutes(api, batteryH, authRequired)
	r.registerFlowRoutes(api, flowH, authRequired, requirePerm)
	r.registerReferenceRoutes(api, refH, authRequired, requirePerm)
	r.registerSessionRoutes(api, refH, authRequired, requirePerm)
	r.registerAnalysisRoutes(api, refH, authRequired, requirePerm)
	r.registerActivityRoutes(api, activityH, authRequired, requirePerm)
}

func (r *Router) registerSystemRoutes(app *fiber.App) {
	app.Get(healthcheck.LivenessEndpoint, healthcheck.New())
	app.Get(healthcheck.ReadinessEndpoint, healthcheck.New(healthcheck.Config{
		Probe: func(c fiber.Ctx) bool { return r.ready(c.Context()) },
	}))
	app.Get(healthcheck.StartupEndpoint, healthcheck.New())

	if r.p.Cfg.Observability.Enabled && r.p.Cfg.Observability.Metrics.Enabled {
		path := r.p.Cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, adaptor.HTTPHandler(promhttp.Handler()))
	}
}

// ready reports whether Redis and the assessment backend both answer.
func (r *Router) ready(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()

	if err := r.p.Redis.Ping(ctx).Err(); err != nil {
		slog.Warn("readiness: redis ping failed", "error", err)
		return false
	}
	if err := r.p.Backend.Ping(ctx); err != nil {
		slog.Warn("readiness: backend ping failed", "error", err)
		return false
	}
	return true
}
