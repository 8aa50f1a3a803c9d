// Package events publishes assessment lifecycle events and keeps a short
// activity feed of them.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Alijeyrad/assessflow/pkg/backend"
	"github.com/Alijeyrad/assessflow/pkg/constants"
)

// Subject wildcard matching every event this service emits.
const AllSubjects = constants.SubjectRoot + ".>"

func FlowStartedSubject(t backend.AssessmentType) string {
	return fmt.Sprintf("%s.flow.started.%s", constants.SubjectRoot, t)
}

func SessionCompletedSubject(sessionID string) string {
	return fmt.Sprintf("%s.session.completed.%s", constants.SubjectRoot, sessionID)
}

var (
	GroupCompletedSubject = constants.SubjectRoot + ".group.completed"
	FlowClearedSubject    = constants.SubjectRoot + ".flow.cleared"
)

type Event struct {
	OperatorID     string                 `json:"operator_id"`
	Mode           string                 `json:"mode,omitempty"`
	AssessmentType backend.AssessmentType `json:"assessment_type,omitempty"`
	SessionIDs     []string               `json:"session_ids,omitempty"`
	PlayerIDs      []string               `json:"player_ids,omitempty"`
	RequestID      string                 `json:"request_id,omitempty"`
	At             time.Time              `json:"at"`
}

// Publisher emits events. Publishing is best effort: callers log failures
// and carry on.
type Publisher interface {
	Publish(ctx context.Context, subject string, e Event) error
}

func encode(e Event) ([]byte, error) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return b, nil
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, string, Event) error { return nil }

// Sink receives encoded events.
type Sink interface {
	Record(ctx context.Context, subject string, data []byte) error
}

// Direct writes events straight to a sink. Used when no broker is configured.
type Direct struct {
	sink Sink
}

func NewDirect(sink Sink) *Direct { return &Direct{sink: sink} }

func (d *Direct) Publish(ctx context.Context, subject string, e Event) error {
	b, err := encode(e)
	if err != nil {
		return err
	}
	return d.sink.Record(ctx, subject, b)
}
