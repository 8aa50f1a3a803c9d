package app

import (
	"context"
	"log/slog"

	"github.com/nats-io/nats.go"
	"go.uber.org/fx"

	"github.com/Alijeyrad/assessflow/internal/events"
)

// WorkerModule registers the NATS event workers.
var WorkerModule = fx.Module("workers",
	fx.Invoke(RegisterWorkers),
)

type WorkerParams struct {
	fx.In

	Lc   fx.Lifecycle
	NC   *nats.Conn `optional:"true"`
	Sink events.Sink
}

func RegisterWorkers(p WorkerParams) {
	if p.NC == nil {
		slog.Info("activity_worker: NATS disabled, events are recorded in-process")
		return
	}

	var sub *nats.Subscription
	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			var err error
			sub, err = startActivityWorker(p.NC, p.Sink)
			return err
		},
		OnStop: func(ctx context.Context) error {
			if sub == nil {
				return nil
			}
			// Drain of the connection itself is handled by ProvideNatsClient
			return sub.Unsubscribe()
		},
	})
}

// ---------------------------------------------------------------------------
// activity_worker
// ---------------------------------------------------------------------------

func startActivityWorker(nc *nats.Conn, sink events.Sink) (*nats.Subscription, error) {
	sub, err := events.Subscribe(nc, sink, func(subject string, err error) {
		slog.Warn("activity_worker: record event failed", "subject", subject, "err", err)
	})
	if err != nil {
		slog.Error("activity_worker: subscribe failed", "subject", events.AllSubjects, "err", err)
		return nil, err
	}
	slog.Info("activity_worker: started", "subject", events.AllSubjects)
	return sub, nil
}
