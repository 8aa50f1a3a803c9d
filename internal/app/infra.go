package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/Alijeyrad/assessflow/config"
	"github.com/Alijeyrad/assessflow/internal/events"
	"github.com/Alijeyrad/assessflow/internal/store"
	"github.com/Alijeyrad/assessflow/pkg/authorize"
	"github.com/Alijeyrad/assessflow/pkg/backend"
	"github.com/Alijeyrad/assessflow/pkg/observability"
	redispkg "github.com/Alijeyrad/assessflow/pkg/redis"
)

// InfraModule provides all infrastructure dependencies.
var InfraModule = fx.Module("infra",
	fx.Provide(ProvideRedis),
	fx.Provide(ProvideBackendClient),
	fx.Provide(ProvideAuthorization),
	fx.Provide(ProvideOTel),
	fx.Provide(ProvideNatsClient),
	fx.Provide(ProvideFlowStore),
	fx.Provide(ProvideActivity),
	fx.Provide(ProvideEventSink),
	fx.Provide(ProvidePublisher),
)

func ProvideRedis(lc fx.Lifecycle, cfg *config.Config) (*redis.Client, error) {
	rdb, err := redispkg.NewRedisFromCentral(context.Background(), cfg.Redis)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("closing Redis connection")
			return rdb.Close()
		},
	})
	return rdb, nil
}

func ProvideBackendClient(cfg *config.Config) (*backend.Client, error) {
	return backend.NewFromCentral(cfg.Backend)
}

func ProvideAuthorization() (authorize.IAuthorization, error) {
	return authorize.New(context.Background(), true)
}

// ProvideNatsClient returns nil when NATS is disabled; events then go straight
// to the local sink.
func ProvideNatsClient(lc fx.Lifecycle, cfg *config.Config) (*nats.Conn, error) {
	if !cfg.Nats.Enabled {
		return nil, nil
	}
	nc, err := nats.Connect(cfg.Nats.URL, nats.Name(cfg.Observability.ServiceName))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("draining NATS connection")
			return nc.Drain()
		},
	})
	return nc, nil
}

func ProvideOTel(lc fx.Lifecycle, cfg *config.Config) (*observability.Provider, error) {
	if !cfg.Observability.Enabled {
		return nil, nil
	}
	provider, err := observability.InitTelemetry(context.Background(), observability.FromCentralConfig(cfg))
	if err != nil {
		return nil, err
	}
	slog.Info("observability initialized",
		"tracing", cfg.Observability.Tracing.Enabled,
		"metrics", cfg.Observability.Metrics.Enabled,
	)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("shutting down observability providers")
			return provider.Shutdown(ctx)
		},
	})
	return provider, nil
}

func ProvideFlowStore(cfg *config.Config, rdb *redis.Client) store.Store {
	if cfg.FlowStore() == "memory" {
		slog.Warn("flow state is kept in memory and is lost on restart")
		return store.NewMemory()
	}
	return store.NewRedis(rdb, time.Duration(cfg.Flow.TTLHours)*time.Hour)
}

func ProvideActivity(cfg *config.Config, rdb *redis.Client) *events.Activity {
	return events.NewActivity(rdb, cfg.Flow.ActivityMaxLen)
}

// ProvideEventSink is where every event ends up: the activity stream and the
// event counter. The OTel provider is requested so the counter is created
// against the configured meter provider.
func ProvideEventSink(activity *events.Activity, _ *observability.Provider) (events.Sink, error) {
	meter, err := events.NewMeter()
	if err != nil {
		return nil, fmt.Errorf("create event meter: %w", err)
	}
	return events.Fanout{activity, meter}, nil
}

func ProvidePublisher(nc *nats.Conn, sink events.Sink) events.Publisher {
	if nc == nil {
		return events.NewDirect(sink)
	}
	return events.NewNATS(nc)
}
