package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Alijeyrad/assessflow/pkg/constants"
)

const meterName = "github.com/Alijeyrad/assessflow/internal/events"

// Meter counts events by kind and assessment type.
type Meter struct {
	events metric.Int64Counter
}

func NewMeter() (*Meter, error) {
	c, err := otel.Meter(meterName).Int64Counter(
		"assessflow_events_total",
		metric.WithDescription("Assessment flow events seen by the activity worker"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}
	return &Meter{events: c}, nil
}

func (m *Meter) Record(ctx context.Context, subject string, data []byte) error {
	var e Event
	_ = json.Unmarshal(data, &e)
	m.events.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", Kind(subject)),
		attribute.String("assessment_type", string(e.AssessmentType)),
		attribute.String("mode", e.Mode),
	))
	return nil
}

// Kind strips the subject root and any trailing id or type token, so
// "assessflow.session.completed.abc" becomes "session.completed".
func Kind(subject string) string {
	s := strings.TrimPrefix(subject, constants.SubjectRoot+".")
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return strings.Join(parts, ".")
}

// Fanout records every event in each sink and joins their errors.
type Fanout []Sink

func (f Fanout) Record(ctx context.Context, subject string, data []byte) error {
	var errs []error
	for _, s := range f {
		if err := s.Record(ctx, subject, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
