package app

import (
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/Alijeyrad/assessflow/config"
	"github.com/Alijeyrad/assessflow/internal/events"
	"github.com/Alijeyrad/assessflow/internal/service/assessment"
	"github.com/Alijeyrad/assessflow/internal/service/auth"
	"github.com/Alijeyrad/assessflow/internal/service/reference"
	"github.com/Alijeyrad/assessflow/internal/store"
	"github.com/Alijeyrad/assessflow/pkg/backend"
)

// ServiceModule provides all application service dependencies.
var ServiceModule = fx.Module("services",
	fx.Provide(
		ProvideAuthService,
		ProvideAssessmentService,
		ProvideReferenceService,
	),
)

func ProvideAuthService(api *backend.Client, rdb *redis.Client, cfg *config.Config) auth.Service {
	return auth.New(api, rdb, time.Duration(cfg.Backend.UserCacheTTLSeconds)*time.Second)
}

func ProvideAssessmentService(api *backend.Client, flows store.Store, pub events.Publisher) assessment.Service {
	return assessment.New(api, flows, pub)
}

func ProvideReferenceService(api *backend.Client, cfg *config.Config) reference.Service {
	return reference.New(api, cfg.Backend.MaxUploadMB)
}
