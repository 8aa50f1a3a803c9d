package events

import (
	"context"
	"fmt"
	"net/http"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// NATS publishes events on a NATS connection with the trace context in the
// message headers.
type NATS struct {
	nc *nats.Conn
}

func NewNATS(nc *nats.Conn) *NATS { return &NATS{nc: nc} }

func (n *NATS) Publish(ctx context.Context, subject string, e Event) error {
	b, err := encode(e)
	if err != nil {
		return err
	}
	msg := nats.NewMsg(subject)
	msg.Data = b
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(http.Header(msg.Header)))
	if err := n.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe forwards every event on AllSubjects to sink.
func Subscribe(nc *nats.Conn, sink Sink, onError func(subject string, err error)) (*nats.Subscription, error) {
	return nc.Subscribe(AllSubjects, func(msg *nats.Msg) {
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), propagation.HeaderCarrier(http.Header(msg.Header)))
		if err := sink.Record(ctx, msg.Subject, msg.Data); err != nil && onError != nil {
			onError(msg.Subject, err)
		}
	})
}
